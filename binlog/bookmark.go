package binlog

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/siddontang/go-mysql/mysql"

	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

// BookmarkKeys are the only bookmark keys the binlog strategy owns.
var BookmarkKeys = []string{"log_file", "log_pos", "version"}

// All tracked streams read the same ordered log, so they share one cursor;
// only the earliest unflushed position per file matters for resuming.
func minLogPosPerFile(streams map[string]*StreamBinding, state *singer.State) map[string]int64 {
	ret := map[string]int64{}
	for streamId, bm := range state.Bookmarks {
		if _, ok := streams[streamId]; !ok {
			continue
		}
		file, ok := bm["log_file"].(string)
		if !ok || file == "" {
			continue
		}
		pos, ok := bookmarkInt64(bm["log_pos"])
		if !ok {
			continue
		}
		if cur, ok := ret[file]; !ok || pos < cur {
			ret[file] = pos
		}
	}
	return ret
}

func bookmarkInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// CalculateBookmark computes the resume position: the earliest retained log
// file any tracked stream still needs, at the minimum recorded offset within
// it. A bookmarked file missing from the server's retained set is fatal.
func CalculateBookmark(ctx context.Context, srv Server, streams map[string]*StreamBinding, state *singer.State) (mysql.Position, error) {
	minPerFile := minLogPosPerFile(streams, state)

	logs, err := srv.BinaryLogs(ctx)
	if err != nil {
		return mysql.Position{}, err
	}
	if len(logs) == 0 {
		return mysql.Position{}, configErrorf("no binary logs exist on the server")
	}

	serverFiles := make(map[string]struct{}, len(logs))
	names := make([]string, 0, len(logs))
	for _, log := range logs {
		serverFiles[log.Name] = struct{}{}
		names = append(names, log.Name)
	}

	var expired []string
	for file := range minPerFile {
		if _, ok := serverFiles[file]; !ok {
			expired = append(expired, file)
		}
	}
	if len(expired) > 0 {
		sort.Strings(expired)
		return mysql.Position{}, &PurgedPositionError{Files: expired}
	}

	// Rotation naming is assumed monotonic, so plain string order works.
	sort.Strings(names)
	for _, file := range names {
		if pos, ok := minPerFile[file]; ok {
			return mysql.Position{Name: file, Pos: uint32(pos)}, nil
		}
	}

	// No tracked stream carries a binlog bookmark: the initial full sync
	// must seed one before log-based capture can resume.
	return mysql.Position{}, configErrorf("no binlog bookmark found for any selected stream")
}

// UpdateBookmarks broadcasts the same position to every tracked stream
// (single shared cursor).
func UpdateBookmarks(state *singer.State, streams map[string]*StreamBinding, pos mysql.Position) {
	for streamId := range streams {
		state.WriteBookmark(streamId, "log_file", pos.Name)
		state.WriteBookmark(streamId, "log_pos", int64(pos.Pos))
	}
}
