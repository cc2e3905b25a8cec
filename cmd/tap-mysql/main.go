package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"

	"github.com/transferwise/pipelinewise-tap-mysql/binlog"
	"github.com/transferwise/pipelinewise-tap-mysql/catalog"
	"github.com/transferwise/pipelinewise-tap-mysql/config"
	"github.com/transferwise/pipelinewise-tap-mysql/discover"
	"github.com/transferwise/pipelinewise-tap-mysql/singer"
	"github.com/transferwise/pipelinewise-tap-mysql/zlog"
)

func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func main() {
	var (
		configPath  = flag.String("config", "", "path to config json (required)")
		catalogPath = flag.String("catalog", "", "path to catalog json (required)")
		statePath   = flag.String("state", "", "path to state json (optional)")
	)
	flag.Parse()

	logger := zlog.DefaultZLogger
	if *configPath == "" || *catalogPath == "" {
		logger.Fatal().Msg("-config and -catalog are required")
	}

	cfg := &config.Config{}
	if err := loadJSON(*configPath, cfg); err != nil {
		logger.Fatal().Err(err).Msg("load config failed")
	}

	cat := &catalog.Catalog{}
	if err := loadJSON(*catalogPath, cat); err != nil {
		logger.Fatal().Err(err).Msg("load catalog failed")
	}

	state := &singer.State{}
	if *statePath != "" {
		if err := loadJSON(*statePath, state); err != nil {
			logger.Fatal().Err(err).Msg("load state failed")
		}
	}

	var entries []*catalog.Entry
	for _, entry := range cat.Streams {
		if entry.IsSelected() && entry.ReplicationMethod() == "LOG_BASED" {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		logger.Fatal().Msg("no selected LOG_BASED streams in catalog")
	}

	db, err := sql.Open("mysql", cfg.ToDriverCfg().FormatDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("open db failed")
	}
	defer db.Close()

	opts := []binlog.SyncerOption{
		binlog.SyncerOptLogger(&logger),
		binlog.SyncerOptFilterDbs(cfg.FilterDbs),
		binlog.SyncerOptFlushInterval(cfg.BookmarkFlushInterval()),
		binlog.SyncerOptDiscoverer(discover.New(db)),
	}
	if cfg.ServerId != 0 {
		opts = append(opts, binlog.SyncerOptServerId(cfg.ServerId))
	}

	syncer, err := binlog.NewSyncer(
		binlog.NewServer(db),
		binlog.OpenBinlogSource(cfg),
		entries,
		state,
		singer.NewWriter(os.Stdout),
		opts...,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("build syncer failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := syncer.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("binlog sync failed")
	}
	logger.Info().Msg("binlog sync done")
}
