package singer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateBookmarks(t *testing.T) {
	assert := assert.New(t)

	state := &State{}
	assert.Nil(state.GetBookmark("db-t", "log_file"))

	state.WriteBookmark("db-t", "log_file", "binlog0001")
	state.WriteBookmark("db-t", "log_pos", int64(50))
	assert.Equal("binlog0001", state.GetBookmark("db-t", "log_file"))
	assert.Equal(int64(50), state.GetBookmark("db-t", "log_pos"))
}

func TestStateWhitelistBookmarkKeys(t *testing.T) {
	assert := assert.New(t)

	state := &State{Bookmarks: map[string]Bookmark{
		"db-t": {"log_file": "binlog0001", "log_pos": int64(50), "last_pk_fetched": int64(9)},
	}}
	state.WhitelistBookmarkKeys("db-t", "log_file", "log_pos", "version")

	assert.Equal(Bookmark{"log_file": "binlog0001", "log_pos": int64(50)}, state.Bookmarks["db-t"])

	// Unknown streams are a no-op.
	state.WhitelistBookmarkKeys("db-other", "log_file")
}

func TestStateStreamVersion(t *testing.T) {
	assert := assert.New(t)

	state := &State{}
	assert.Equal(int64(0), state.StreamVersion("db-t"))

	state.WriteBookmark("db-t", "version", int64(3))
	assert.Equal(int64(3), state.StreamVersion("db-t"))

	// Versions reloaded from persisted JSON arrive as float64.
	var loaded State
	assert.NoError(json.Unmarshal([]byte(`{"bookmarks":{"db-t":{"version":1617112056}}}`), &loaded))
	assert.Equal(int64(1617112056), loaded.StreamVersion("db-t"))
}

func TestStateClone(t *testing.T) {
	assert := assert.New(t)

	state := &State{Bookmarks: map[string]Bookmark{
		"db-t": {"log_file": "binlog0001", "log_pos": int64(50)},
	}}
	snap := state.Clone()

	state.WriteBookmark("db-t", "log_pos", int64(900))
	assert.Equal(int64(50), snap.Bookmarks["db-t"]["log_pos"])
	assert.Equal(int64(900), state.Bookmarks["db-t"]["log_pos"])
}
