package server

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/internal/testutil"
	"github.com/japaniel/jdict/pkg/lookup"
	"github.com/japaniel/jdict/pkg/store"
	"github.com/japaniel/jdict/pkg/suggest"
)

type client struct {
	t    *testing.T
	enc  *msgpack.Encoder
	dec  *msgpack.Decoder
	in   *io.PipeWriter
	done chan error
}

func startServer(t *testing.T, opts Options) *client {
	t.Helper()
	bundle := testutil.SampleBundle(t)
	st := store.New(store.Options{BundlePath: bundle, IndexPath: bundle + ".idx", Logger: logger.Discard()})
	require.NoError(t, st.Initialize(context.Background()))
	t.Cleanup(func() { st.Close() })

	svc := lookup.NewService(st, lookup.Options{Logger: logger.Discard()})
	if opts.Completer != nil {
		c := opts.Completer.(*suggest.Completer)
		require.NoError(t, c.Load(context.Background(), st))
	}
	opts.Logger = logger.Discard()
	opts.Ready = st.Ready

	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	srv := New(svc, reqR, respW, opts)

	c := &client{
		t:    t,
		enc:  msgpack.NewEncoder(reqW),
		dec:  msgpack.NewDecoder(respR),
		in:   reqW,
		done: make(chan error, 1),
	}
	go func() {
		err := srv.Serve(context.Background())
		respW.Close()
		c.done <- err
	}()
	t.Cleanup(func() {
		reqW.Close()
		go io.Copy(io.Discard, respR)
		select {
		case <-c.done:
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return c
}

func (c *client) send(req Request) {
	c.t.Helper()
	require.NoError(c.t, c.enc.Encode(&req))
}

func (c *client) recv() Response {
	c.t.Helper()
	var resp Response
	require.NoError(c.t, c.dec.Decode(&resp))
	return resp
}

func viewIDs(views []EntryView) []int64 {
	out := make([]int64, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestServerReadyAndHealth(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})

	ready := c.recv()
	assert.Equal(t, StatusReady, ready.Status)
	assert.True(t, ready.Ready)

	c.send(Request{ID: 9, Command: CommandHealth})
	resp := c.recv()
	assert.Equal(t, uint64(9), resp.ID)
	assert.Equal(t, StatusOK, resp.Status)
}

func TestServerLookupIsSequenced(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.send(Request{ID: 1, Command: CommandLookup, Query: "to eat"})
	queued := c.recv()
	assert.Equal(t, StatusQueued, queued.Status)
	assert.Equal(t, uint64(1), queued.Seq)

	result := c.recv()
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, uint64(1), result.Seq)
	assert.Equal(t, uint64(1), result.ID)
	assert.Equal(t, "to eat", result.Query)
	assert.Equal(t, []int64{1, 2, 6}, viewIDs(result.Entries))
	assert.Equal(t, "to eat", result.Entries[0].PrimarySense)
}

func TestServerGet(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.send(Request{ID: 2, Command: CommandGet, EntryID: 1})
	resp := c.recv()
	require.Equal(t, StatusOK, resp.Status)
	require.NotNil(t, resp.Entry)
	assert.Equal(t, "食べる", resp.Entry.Kanji)
	assert.Equal(t, "食[た]べる", resp.Entry.Furigana)
	assert.Equal(t, []FieldView{{"jmdict_id", "1358280"}, {"forms", "喰べる"}}, resp.Entry.Extra)
	require.NotNil(t, resp.Entry.Source)
	assert.Equal(t, int64(1358280), *resp.Entry.Source)
	require.NotNil(t, resp.Entry.Rank)
	assert.Equal(t, 1, *resp.Entry.Rank)

	c.send(Request{ID: 4, Command: CommandGet, EntryID: 2})
	plain := c.recv()
	require.NotNil(t, plain.Entry)
	assert.Nil(t, plain.Entry.Source)
	assert.Nil(t, plain.Entry.Rank)

	c.send(Request{ID: 3, Command: CommandGet, EntryID: 999})
	missing := c.recv()
	assert.Equal(t, StatusError, missing.Status)
	assert.Equal(t, 404, missing.Code)
}

func TestServerBrowse(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.send(Request{Command: CommandBrowse, Limit: 3})
	resp := c.recv()
	assert.Equal(t, []int64{2, 4, 6}, viewIDs(resp.Entries))
	assert.Equal(t, 3, resp.Count)
}

func TestServerComplete(t *testing.T) {
	c := startServer(t, Options{Debounce: -1, Completer: suggest.NewCompleter(logger.Discard())})
	c.recv()

	c.send(Request{Command: CommandComplete, Prefix: "食", Limit: 2})
	resp := c.recv()
	require.Equal(t, StatusOK, resp.Status)
	require.Len(t, resp.Suggestions, 2)
	assert.Equal(t, "食事", resp.Suggestions[0].Word)

	c.send(Request{Command: CommandComplete})
	assert.Equal(t, 400, c.recv().Code)
}

func TestServerCompleteUnavailable(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.send(Request{Command: CommandComplete, Prefix: "食"})
	assert.Equal(t, 503, c.recv().Code)
}

func TestServerUnknownCommand(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.send(Request{Command: "define"})
	resp := c.recv()
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, 400, resp.Code)
	assert.Contains(t, resp.Error, "define")
}

func TestServerStopsAtEOF(t *testing.T) {
	c := startServer(t, Options{Debounce: -1})
	c.recv()

	c.in.Close()
	select {
	case err := <-c.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop at EOF")
	}
	// Cleanup waits on done again; refill it.
	c.done <- nil
}
