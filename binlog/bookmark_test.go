package binlog

import (
	"context"
	"testing"

	"github.com/siddontang/go-mysql/mysql"
	"github.com/stretchr/testify/assert"

	"github.com/transferwise/pipelinewise-tap-mysql/singer"
)

func TestCalculateBookmark(t *testing.T) {
	assert := assert.New(t)
	bg := context.Background()

	streams := map[string]*StreamBinding{
		"db-a": {},
		"db-b": {},
	}

	// Both streams bookmarked in the same file: minimum offset wins.
	{
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a": {"log_file": "binlog0001", "log_pos": int64(50)},
			"db-b": {"log_file": "binlog0001", "log_pos": int64(30)},
		}}
		pos, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		assert.NoError(err)
		assert.Equal(mysql.Position{Name: "binlog0001", Pos: 30}, pos)
	}

	// Bookmarks in different files: the earliest file by name order wins.
	{
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a": {"log_file": "binlog0002", "log_pos": int64(10)},
			"db-b": {"log_file": "binlog0003", "log_pos": int64(700)},
		}}
		pos, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		assert.NoError(err)
		assert.Equal(mysql.Position{Name: "binlog0002", Pos: 10}, pos)
	}

	// Offsets persisted through JSON arrive as float64.
	{
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a": {"log_file": "binlog0002", "log_pos": float64(480)},
		}}
		pos, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		assert.NoError(err)
		assert.Equal(mysql.Position{Name: "binlog0002", Pos: 480}, pos)
	}

	// Bookmarks of streams outside the tracked set are irrelevant.
	{
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a":     {"log_file": "binlog0002", "log_pos": int64(200)},
			"db-other": {"log_file": "binlog0001", "log_pos": int64(1)},
		}}
		pos, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		assert.NoError(err)
		assert.Equal(mysql.Position{Name: "binlog0002", Pos: 200}, pos)
	}

	// A bookmarked file the server no longer retains is fatal.
	{
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a": {"log_file": "binlog0000", "log_pos": int64(4)},
			"db-b": {"log_file": "binlog0002", "log_pos": int64(9)},
		}}
		_, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		if assert.IsType(&PurgedPositionError{}, err) {
			assert.Equal([]string{"binlog0000"}, err.(*PurgedPositionError).Files)
		}
	}

	// No tracked stream has a bookmark at all.
	{
		state := &singer.State{}
		_, err := CalculateBookmark(bg, newFakeServer(), streams, state)
		assert.IsType(&ConfigError{}, err)
	}

	// Server without binary logs.
	{
		srv := newFakeServer()
		srv.logs = nil
		state := &singer.State{Bookmarks: map[string]singer.Bookmark{
			"db-a": {"log_file": "binlog0001", "log_pos": int64(4)},
		}}
		_, err := CalculateBookmark(bg, srv, streams, state)
		assert.IsType(&ConfigError{}, err)
	}
}

func TestUpdateBookmarks(t *testing.T) {
	assert := assert.New(t)

	streams := map[string]*StreamBinding{
		"db-a": {},
		"db-b": {},
	}
	state := &singer.State{Bookmarks: map[string]singer.Bookmark{
		"db-a": {"log_file": "binlog0001", "log_pos": int64(50), "version": int64(7)},
	}}

	UpdateBookmarks(state, streams, mysql.Position{Name: "binlog0002", Pos: 333})

	for _, streamId := range []string{"db-a", "db-b"} {
		assert.Equal("binlog0002", state.GetBookmark(streamId, "log_file"))
		assert.Equal(int64(333), state.GetBookmark(streamId, "log_pos"))
	}
	// The generation counter is left alone.
	assert.Equal(int64(7), state.GetBookmark("db-a", "version"))
}
