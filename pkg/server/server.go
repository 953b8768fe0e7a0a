package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/lookup"
	"github.com/japaniel/jdict/pkg/suggest"
)

// Limits applied to requests.
const (
	DefaultCompleteLimit = 10
	MaxPrefixLength      = 60
)

// Completer completes headword prefixes.
type Completer interface {
	Complete(prefix string, limit int) []suggest.Suggestion
}

// Options configures a Server.
type Options struct {
	// Debounce is passed to the lookup session.
	Debounce time.Duration
	// Completer serves the complete command; nil disables it.
	Completer Completer
	// Ready reports whether the store is installed; nil means always ready.
	Ready  func() bool
	Logger *log.Logger
}

// Server answers msgpack requests read from r and writes responses to w.
type Server struct {
	svc  *lookup.Service
	opts Options
	log  *log.Logger

	dec *msgpack.Decoder

	mu  sync.Mutex
	enc *msgpack.Encoder

	session *lookup.Session
	// lookupIDs maps a lookup sequence number to its request id.
	lookupIDs sync.Map
}

// New returns a server reading requests from r and writing responses to w.
func New(svc *lookup.Service, r io.Reader, w io.Writer, opts Options) *Server {
	l := opts.Logger
	if l == nil {
		l = logger.New("server")
	}
	if opts.Ready == nil {
		opts.Ready = func() bool { return true }
	}
	return &Server{
		svc:  svc,
		opts: opts,
		log:  l,
		dec:  msgpack.NewDecoder(r),
		enc:  msgpack.NewEncoder(w),
	}
}

// Serve sends a ready message and handles requests until the input ends or
// ctx is done. A malformed message ends the stream with an error, since the
// decoder cannot resynchronize.
func (s *Server) Serve(ctx context.Context) error {
	s.session = s.svc.NewSession(ctx, lookup.SessionOptions{
		Debounce: s.opts.Debounce,
		Deliver:  s.deliver,
	})
	defer s.session.Close()

	s.log.Debug("starting server", "session", s.session.ID)
	if err := s.send(Response{Command: CommandHealth, Status: StatusReady, Ready: s.opts.Ready()}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Error("decoding request", "err", err)
			s.sendError(Request{}, "invalid msgpack request", 400)
			return fmt.Errorf("decoding request: %w", err)
		}
		if err := s.handle(ctx, req); err != nil {
			return err
		}
	}
}

func (s *Server) handle(ctx context.Context, req Request) error {
	s.log.Debug("request", "command", req.Command, "id", req.ID)
	switch req.Command {
	case CommandLookup:
		return s.handleLookup(req)
	case CommandGet:
		return s.handleGet(ctx, req)
	case CommandBrowse:
		start := time.Now()
		entries := s.svc.Browse(ctx, req.Limit)
		return s.send(Response{
			ID: req.ID, Command: req.Command, Status: StatusOK,
			Entries: entryViews(entries), Count: len(entries),
			TimeTaken: time.Since(start).Microseconds(),
		})
	case CommandComplete:
		return s.handleComplete(req)
	case CommandHealth:
		return s.send(Response{ID: req.ID, Command: req.Command, Status: StatusOK, Ready: s.opts.Ready()})
	default:
		return s.sendError(req, fmt.Sprintf("unknown command: %s", req.Command), 400)
	}
}

// handleLookup submits the query to the session. The queued reply is
// written before the session can deliver the result.
func (s *Server) handleLookup(req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.session.Submit(req.Query)
	if seq == 0 {
		return s.encodeLocked(Response{ID: req.ID, Command: req.Command, Status: StatusError, Error: "session closed", Code: 503})
	}
	s.lookupIDs.Store(seq, req.ID)
	return s.encodeLocked(Response{ID: req.ID, Command: req.Command, Status: StatusQueued, Seq: seq, Query: req.Query})
}

func (s *Server) deliver(res lookup.Result) {
	var id uint64
	if v, ok := s.lookupIDs.LoadAndDelete(res.Seq); ok {
		id = v.(uint64)
	}
	// Results for superseded queries are never delivered; forget them.
	s.lookupIDs.Range(func(k, _ any) bool {
		if k.(uint64) < res.Seq {
			s.lookupIDs.Delete(k)
		}
		return true
	})
	err := s.send(Response{
		ID: id, Command: CommandLookup, Status: StatusOK,
		Seq: res.Seq, Query: res.Query,
		Entries: entryViews(res.Entries), Count: len(res.Entries),
	})
	if err != nil {
		s.log.Error("writing lookup result", "seq", res.Seq, "err", err)
	}
}

func (s *Server) handleGet(ctx context.Context, req Request) error {
	e, ok := s.svc.GetByID(ctx, req.EntryID)
	if !ok {
		return s.sendError(req, fmt.Sprintf("entry %d not found", req.EntryID), 404)
	}
	v := NewEntryView(e)
	return s.send(Response{ID: req.ID, Command: req.Command, Status: StatusOK, Entry: &v, Count: 1})
}

func (s *Server) handleComplete(req Request) error {
	if s.opts.Completer == nil {
		return s.sendError(req, "completion is not available", 503)
	}
	prefix := req.Prefix
	if prefix == "" {
		return s.sendError(req, "missing 'prefix' parameter", 400)
	}
	if len([]rune(prefix)) > MaxPrefixLength {
		return s.sendError(req, fmt.Sprintf("prefix exceeds maximum length of %d characters", MaxPrefixLength), 400)
	}
	limit := req.Limit
	if limit < 1 {
		limit = DefaultCompleteLimit
	}
	start := time.Now()
	suggestions := s.opts.Completer.Complete(prefix, limit)
	return s.send(Response{
		ID: req.ID, Command: req.Command, Status: StatusOK,
		Query: prefix, Suggestions: suggestions, Count: len(suggestions),
		TimeTaken: time.Since(start).Microseconds(),
	})
}

func (s *Server) sendError(req Request, message string, code int) error {
	s.log.Debug("request failed", "command", req.Command, "code", code, "err", message)
	return s.send(Response{ID: req.ID, Command: req.Command, Status: StatusError, Error: message, Code: code})
}

func (s *Server) send(resp Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encodeLocked(resp)
}

func (s *Server) encodeLocked(resp Response) error {
	if err := s.enc.Encode(&resp); err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	return nil
}
