package config

import (
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/siddontang/go-mysql/replication"
)

// DefaultFlushInterval is the number of processed rows (or skipped events)
// between two bookmark flushes.
const DefaultFlushInterval = 1000

// Config holds connection and run settings for a capture pass.
type Config struct {
	// Host of MySQL server.
	Host string `json:"host"`

	// Port of MySQL server.
	Port uint16 `json:"port"`

	// User for connection.
	User string `json:"user"`

	// Password for connection.
	Password string `json:"password"`

	// Charset for connecting.
	Charset string `json:"charset"`

	// ServerId is a fixed replica server id to register with. If zero the
	// server's own @@server_id is used.
	ServerId uint32 `json:"server_id,omitempty"`

	// FilterDbs restricts rediscovery to the given databases.
	FilterDbs []string `json:"filter_dbs,omitempty"`

	// FlushInterval overrides DefaultFlushInterval when positive.
	FlushInterval int `json:"flush_interval,omitempty"`
}

func (cfg *Config) ToDriverCfg() *mysql.Config {
	ret := mysql.NewConfig()
	ret.Net = "tcp"
	ret.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ret.User = cfg.User
	ret.Passwd = cfg.Password
	ret.ParseTime = true
	ret.InterpolateParams = true
	if ret.Params == nil {
		ret.Params = map[string]string{}
	}
	ret.Params["charset"] = cfg.getCharset()
	return ret
}

// ToSyncerCfg builds the binlog syncer config. serverId is the replica id to
// register with, resolved by the caller (fixed or fetched live).
func (cfg *Config) ToSyncerCfg(serverId uint32) replication.BinlogSyncerConfig {
	return replication.BinlogSyncerConfig{
		ServerID:   serverId,
		Host:       cfg.Host,
		Port:       cfg.Port,
		User:       cfg.User,
		Password:   cfg.Password,
		Charset:    cfg.getCharset(),
		ParseTime:  true,
		UseDecimal: true,
	}
}

// BookmarkFlushInterval returns the effective flush interval.
func (cfg *Config) BookmarkFlushInterval() int {
	if cfg.FlushInterval > 0 {
		return cfg.FlushInterval
	}
	return DefaultFlushInterval
}

func (cfg *Config) getCharset() string {
	if cfg.Charset != "" {
		return cfg.Charset
	}
	return "utf8mb4"
}
