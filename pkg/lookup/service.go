// Package lookup is the façade over the entry store: it normalizes queries,
// routes empty input to browsing, ranks search candidates and runs debounced
// per-session lookups for interactive callers.
package lookup

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/query"
	"github.com/japaniel/jdict/pkg/rank"
)

// EntryStore is the subset of the entry store the service reads from.
type EntryStore interface {
	FetchAll(ctx context.Context, limit int) []db.Entry
	Search(ctx context.Context, matchExpr, exact string, limit int) []db.Candidate
	FetchByID(ctx context.Context, id int64) (db.Entry, bool)
}

// Options configures a Service. Zero values take the defaults.
type Options struct {
	ResultCap      int
	BrowseCap      int
	CandidateLimit int
	Logger         *log.Logger
}

// Service answers lookups against an initialized store.
type Service struct {
	store EntryStore
	opts  Options
	log   *log.Logger
}

// NewService returns a Service reading from store.
func NewService(store EntryStore, opts Options) *Service {
	if opts.ResultCap <= 0 {
		opts.ResultCap = rank.SearchCap
	}
	if opts.BrowseCap <= 0 {
		opts.BrowseCap = rank.BrowseCap
	}
	if opts.CandidateLimit < opts.ResultCap {
		opts.CandidateLimit = 4 * opts.ResultCap
	}
	l := opts.Logger
	if l == nil {
		l = logger.New("lookup")
	}
	return &Service{store: store, opts: opts, log: l}
}

// Lookup returns the ranked entries for raw. Empty input returns the first
// BrowseCap entries in natural order.
func (s *Service) Lookup(ctx context.Context, raw string) []db.Entry {
	entries, _ := s.lookup(ctx, raw, nil)
	return entries
}

// Browse returns up to limit entries in natural order. A non-positive limit
// uses the browse cap.
func (s *Service) Browse(ctx context.Context, limit int) []db.Entry {
	if limit <= 0 || limit > s.opts.BrowseCap {
		limit = s.opts.BrowseCap
	}
	entries := s.store.FetchAll(ctx, limit)
	if entries == nil {
		entries = []db.Entry{}
	}
	return entries
}

// GetByID returns the entry with the given id, or false when it is absent.
func (s *Service) GetByID(ctx context.Context, id int64) (db.Entry, bool) {
	return s.store.FetchByID(ctx, id)
}

// lookup runs one query through the pipeline, reporting each stage to
// observe when it is non-nil. It returns false when ctx was cancelled
// before the result was complete.
func (s *Service) lookup(ctx context.Context, raw string, observe func(State)) ([]db.Entry, bool) {
	step := func(st State) bool {
		if ctx.Err() != nil {
			return false
		}
		if observe != nil {
			observe(st)
		}
		return true
	}

	if !step(Normalizing) {
		return nil, false
	}
	n := query.Normalize(raw)
	if n.Empty() {
		if !step(Searching) {
			return nil, false
		}
		entries := s.Browse(ctx, s.opts.BrowseCap)
		return entries, ctx.Err() == nil
	}

	if !step(Searching) {
		return nil, false
	}
	cands := s.store.Search(ctx, n.MatchExpression, n.ExactTerm, s.opts.CandidateLimit)
	if !step(Ranking) {
		return nil, false
	}
	entries := rank.Rank(cands, s.opts.ResultCap)
	s.log.Debug("lookup", "query", n.ExactTerm, "expr", n.MatchExpression, "candidates", len(cands), "results", len(entries))
	return entries, ctx.Err() == nil
}
