// Package server exposes the lookup service to a UI shell as a stream of
// msgpack messages over stdin/stdout.
package server

import (
	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/suggest"
)

// Commands understood by the server.
const (
	CommandLookup   = "lookup"
	CommandGet      = "get"
	CommandBrowse   = "browse"
	CommandComplete = "complete"
	CommandHealth   = "health"
)

// Response statuses.
const (
	StatusReady  = "ready"
	StatusOK     = "ok"
	StatusQueued = "queued"
	StatusError  = "error"
)

// Request is one message from the client. ID is echoed back unchanged.
type Request struct {
	ID      uint64 `msgpack:"id,omitempty"`
	Command string `msgpack:"command"`
	Query   string `msgpack:"query,omitempty"`
	EntryID int64  `msgpack:"entry_id,omitempty"`
	Prefix  string `msgpack:"prefix,omitempty"`
	Limit   int    `msgpack:"limit,omitempty"`
}

// Response is one message to the client. A lookup request is answered
// twice: first with StatusQueued and the query's sequence number, then,
// unless a later lookup supersedes it, with StatusOK and the entries. Result
// messages arrive in increasing Seq order.
type Response struct {
	ID          uint64               `msgpack:"id,omitempty"`
	Command     string               `msgpack:"command"`
	Status      string               `msgpack:"status"`
	Seq         uint64               `msgpack:"seq,omitempty"`
	Query       string               `msgpack:"query,omitempty"`
	Entries     []EntryView          `msgpack:"entries,omitempty"`
	Entry       *EntryView           `msgpack:"entry,omitempty"`
	Suggestions []suggest.Suggestion `msgpack:"suggestions,omitempty"`
	Count       int                  `msgpack:"count"`
	Ready       bool                 `msgpack:"ready,omitempty"`
	TimeTaken   int64                `msgpack:"time_us,omitempty"`
	Error       string               `msgpack:"error,omitempty"`
	Code        int                  `msgpack:"code,omitempty"`
}

// FieldView is one extension field, kept in bundle order.
type FieldView struct {
	Key   string `msgpack:"key"`
	Value string `msgpack:"value"`
}

// EntryView is the wire form of a dictionary entry.
type EntryView struct {
	ID           int64       `msgpack:"id"`
	Kanji        string      `msgpack:"kanji"`
	Reading      string      `msgpack:"reading,omitempty"`
	Furigana     string      `msgpack:"furigana,omitempty"`
	Romaji       string      `msgpack:"romaji,omitempty"`
	Meaning      string      `msgpack:"meaning"`
	PrimarySense string      `msgpack:"primary_sense"`
	Tags         string      `msgpack:"tags,omitempty"`
	Priority     *int        `msgpack:"priority,omitempty"`
	Source       *int64      `msgpack:"source,omitempty"`
	Rank         *int        `msgpack:"rank,omitempty"`
	Extra        []FieldView `msgpack:"extra,omitempty"`
}

// NewEntryView converts an entry for the wire.
func NewEntryView(e db.Entry) EntryView {
	v := EntryView{
		ID:           e.ID,
		Kanji:        e.Kanji,
		Reading:      db.Deref(e.Reading),
		Furigana:     db.Deref(e.Furigana),
		Romaji:       db.Deref(e.Romaji),
		Meaning:      e.Meaning,
		PrimarySense: e.PrimarySense(),
		Tags:         db.Deref(e.Tags),
		Priority:     e.Priority,
		Source:       e.Source,
		Rank:         e.Rank,
	}
	for _, f := range e.Extra {
		v.Extra = append(v.Extra, FieldView{Key: f.Key, Value: f.Value})
	}
	return v
}

func entryViews(entries []db.Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryView(e))
	}
	return out
}
