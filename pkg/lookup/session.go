package lookup

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/japaniel/jdict/pkg/db"
)

// DefaultDebounce is the quiet period before a submitted query runs.
const DefaultDebounce = 300 * time.Millisecond

// Result is one delivered lookup.
type Result struct {
	Seq     uint64
	Query   string
	Entries []db.Entry
}

// SessionOptions configures a Session.
type SessionOptions struct {
	// Debounce is the quiet period before a query runs. Zero means
	// DefaultDebounce; use a negative value to run immediately.
	Debounce time.Duration
	// Deliver receives results in strictly increasing sequence order. It may
	// call Submit but must not call Close.
	Deliver func(Result)
	// OnTransition observes every state change, including stale lookups.
	// It runs with the session locked and must not call back into it.
	OnTransition func(seq uint64, st State)
}

// Session runs the lookups of one interactive query box. Each Submit
// supersedes the previous query: its debounce timer is reset, its in-flight
// lookup is cancelled and any result it still produces is discarded.
type Session struct {
	ID   uuid.UUID
	svc  *Service
	opts SessionOptions
	log  *log.Logger

	parent context.Context

	mu      sync.Mutex
	seq     uint64
	state   State
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	running sync.WaitGroup

	deliverMu     sync.Mutex
	lastDelivered uint64
}

// NewSession starts a session whose lookups run under ctx.
func (s *Service) NewSession(ctx context.Context, opts SessionOptions) *Session {
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	id := uuid.New()
	return &Session{
		ID:     id,
		svc:    s,
		opts:   opts,
		log:    s.log.With("session", id.String()[:8]),
		parent: ctx,
	}
}

// Submit schedules raw as the session's current query and returns its
// sequence number. It returns 0 after Close.
func (s *Session) Submit(raw string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	if s.seq > 0 && s.state != Delivered && s.state != Superseded {
		s.transitionLocked(s.seq, Superseded)
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.seq++
	seq := s.seq
	s.transitionLocked(seq, Idle)
	s.timer = time.AfterFunc(s.opts.Debounce, func() { s.run(seq, raw) })
	return seq
}

// State returns the stage of the most recent query.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seq returns the most recently issued sequence number.
func (s *Session) Seq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Close cancels pending and in-flight lookups and waits for them to stop.
// No result is delivered after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.running.Wait()
}

func (s *Session) run(seq uint64, raw string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.parent)
	s.cancel = cancel
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()
	defer cancel()

	entries, ok := s.svc.lookup(ctx, raw, func(st State) { s.transition(seq, st) })

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !ok || !s.isCurrent(seq) || seq <= s.lastDelivered {
		s.log.Debug("discarding stale lookup", "seq", seq, "query", raw)
		s.transition(seq, Superseded)
		return
	}
	s.lastDelivered = seq
	if s.opts.Deliver != nil {
		s.opts.Deliver(Result{Seq: seq, Query: raw, Entries: entries})
	}
	s.transition(seq, Delivered)
}

func (s *Session) isCurrent(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && seq == s.seq
}

func (s *Session) transition(seq uint64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitionLocked(seq, st)
}

// transitionLocked records st for seq. Only the current query moves the
// session state; stale lookups are reported to the observer alone.
func (s *Session) transitionLocked(seq uint64, st State) {
	if seq == s.seq {
		s.state = st
	}
	if s.opts.OnTransition != nil {
		s.opts.OnTransition(seq, st)
	}
}
