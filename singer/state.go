package singer

import "encoding/json"

// Bookmark is the per-stream resume record. Keys beyond the ones a strategy
// whitelists are dropped at run start.
type Bookmark map[string]interface{}

// State maps tap stream ids to their bookmarks.
type State struct {
	Bookmarks map[string]Bookmark `json:"bookmarks"`
}

// Bookmark returns the bookmark for streamId, creating it if absent.
func (s *State) Bookmark(streamId string) Bookmark {
	if s.Bookmarks == nil {
		s.Bookmarks = map[string]Bookmark{}
	}
	bm := s.Bookmarks[streamId]
	if bm == nil {
		bm = Bookmark{}
		s.Bookmarks[streamId] = bm
	}
	return bm
}

// WriteBookmark sets one bookmark key for streamId.
func (s *State) WriteBookmark(streamId, key string, value interface{}) {
	s.Bookmark(streamId)[key] = value
}

// GetBookmark returns one bookmark key for streamId, or nil if unset.
func (s *State) GetBookmark(streamId, key string) interface{} {
	bm, ok := s.Bookmarks[streamId]
	if !ok {
		return nil
	}
	return bm[key]
}

// WhitelistBookmarkKeys drops every bookmark key of streamId not listed in
// keys.
func (s *State) WhitelistBookmarkKeys(streamId string, keys ...string) {
	bm, ok := s.Bookmarks[streamId]
	if !ok {
		return
	}
	allowed := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		allowed[k] = struct{}{}
	}
	for k := range bm {
		if _, ok := allowed[k]; !ok {
			delete(bm, k)
		}
	}
}

// StreamVersion returns the stream's generation counter, or 0 if unset.
// Values loaded from persisted JSON arrive as float64.
func (s *State) StreamVersion(streamId string) int64 {
	switch v := s.GetBookmark(streamId, "version").(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Clone returns a deep copy suitable for emitting as a state snapshot while
// the live state keeps mutating.
func (s *State) Clone() State {
	ret := State{}
	if s.Bookmarks == nil {
		return ret
	}
	ret.Bookmarks = make(map[string]Bookmark, len(s.Bookmarks))
	for id, bm := range s.Bookmarks {
		cp := make(Bookmark, len(bm))
		for k, v := range bm {
			cp[k] = v
		}
		ret.Bookmarks[id] = cp
	}
	return ret
}
