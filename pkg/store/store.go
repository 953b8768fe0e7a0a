// Package store is the read-only entry store over an installed dictionary
// bundle. The bundle is installed into the working directory once, then
// served from a shared read-only connection pool.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/db"
)

// Secondary ordering keys accepted by SearchOrdered. Each sorts descending.
const (
	OrderPriority = "priority"
	OrderRank     = "rank"
	OrderID       = "id"
)

var orderClauses = map[string]string{
	OrderPriority: `COALESCE(d.priority, 0) DESC, d.id ASC`,
	OrderRank:     `COALESCE(d.rank, 0) DESC, d.id ASC`,
	OrderID:       `d.id DESC`,
}

const naturalOrder = `COALESCE(d.priority, 0) DESC, d.id ASC`

// primarySenseSQL is db.PrimarySense evaluated by SQLite.
const primarySenseSQL = `CASE WHEN instr(d.meaning, '` + db.SenseSeparator + `') > 0
	THEN substr(d.meaning, 1, instr(d.meaning, '` + db.SenseSeparator + `') - 1)
	ELSE d.meaning END`

// Options configures a Store.
type Options struct {
	// BundlePath is the bundled snapshot, optionally .dz or .gz compressed.
	BundlePath string
	// IndexPath is where the working copy is installed.
	IndexPath string
	// OrderBy is the default secondary key for Search.
	OrderBy string
	Logger  *log.Logger
}

// Store serves entries from the installed index. All read methods return
// empty results until Initialize has succeeded.
type Store struct {
	opts Options
	log  *log.Logger

	once    sync.Once
	ready   atomic.Bool
	initErr error
	conn    *sql.DB
}

// New returns an uninitialized store.
func New(opts Options) *Store {
	if opts.OrderBy == "" {
		opts.OrderBy = OrderPriority
	}
	l := opts.Logger
	if l == nil {
		l = logger.New("store")
	}
	return &Store{opts: opts, log: l}
}

// Initialize installs the bundle if needed and opens the index read-only.
// It is safe to call from many goroutines; the work runs once and every
// caller observes the same result.
func (s *Store) Initialize(ctx context.Context) error {
	s.once.Do(func() {
		if err := s.install(ctx); err != nil {
			s.initErr = err
			s.log.Error("install failed", "err", err)
			return
		}
		conn, err := openReadOnly(s.opts.IndexPath)
		if err == nil {
			err = validate(ctx, conn)
			if err != nil {
				conn.Close()
			}
		}
		if err != nil {
			s.initErr = newInstallError(PhaseOpen, s.opts.IndexPath, err)
			s.log.Error("open failed", "err", s.initErr)
			return
		}
		s.conn = conn
		s.ready.Store(true)
	})
	return s.initErr
}

// Ready reports whether Initialize has completed successfully.
func (s *Store) Ready() bool {
	return s.ready.Load()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if !s.ready.Load() {
		return nil
	}
	s.ready.Store(false)
	return s.conn.Close()
}

// FetchAll returns up to limit entries in natural order: priority
// descending with missing priority read as 0, then id ascending.
func (s *Store) FetchAll(ctx context.Context, limit int) []db.Entry {
	if !s.ready.Load() || limit <= 0 {
		return nil
	}
	entries, err := s.queryEntries(ctx,
		`SELECT `+db.EntryColumns+` FROM dict_index d ORDER BY `+naturalOrder+` LIMIT ?`, limit)
	if err != nil {
		s.log.Warn("fetch all failed", "err", err)
		return nil
	}
	return entries
}

// Search runs a full-text match over kanji, reading, meaning and romaji and
// returns up to limit candidates. Rows whose primary sense equals exact come
// first, then the rest descend by the configured secondary key.
func (s *Store) Search(ctx context.Context, matchExpr, exact string, limit int) []db.Candidate {
	return s.SearchOrdered(ctx, matchExpr, exact, limit, s.opts.OrderBy)
}

// SearchOrdered is Search with an explicit secondary key. Unknown keys fall
// back to priority.
func (s *Store) SearchOrdered(ctx context.Context, matchExpr, exact string, limit int, key string) []db.Candidate {
	if !s.ready.Load() || strings.TrimSpace(matchExpr) == "" || limit <= 0 {
		return nil
	}
	order, ok := orderClauses[key]
	if !ok {
		order = orderClauses[OrderPriority]
	}
	// Rows whose primary sense equals exact sort first so the limit never
	// cuts them off before ranking.
	q := `SELECT ` + db.EntryColumns + ` FROM dict_fts JOIN dict_index d ON d.id = dict_fts.docid
		WHERE dict_fts MATCH ? ORDER BY (` + primarySenseSQL + ` = ?) DESC, ` + order + ` LIMIT ?`

	entries, err := s.queryEntries(ctx, q, matchExpr, exact, limit)
	if err != nil {
		if isMalformedMatch(err) {
			s.log.Debug("malformed match expression", "expr", matchExpr, "err", err)
		} else if !errors.Is(err, context.Canceled) {
			s.log.Warn("search failed", "expr", matchExpr, "err", err)
		}
		return nil
	}
	cands := make([]db.Candidate, len(entries))
	for i, e := range entries {
		cands[i] = db.Candidate{
			Entry:             e,
			BaselinePriority:  db.Deref(e.Priority),
			FirstSenseMatches: e.PrimarySense() == exact,
		}
	}
	s.log.Debug("search", "expr", matchExpr, "rows", len(cands))
	return cands
}

// FetchByID returns the entry with the given id. A missing id is reported
// as false, not as an error.
func (s *Store) FetchByID(ctx context.Context, id int64) (db.Entry, bool) {
	if !s.ready.Load() {
		return db.Entry{}, false
	}
	e, err := db.ScanEntry(s.conn.QueryRowContext(ctx,
		`SELECT `+db.EntryColumns+` FROM dict_index d WHERE d.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return db.Entry{}, false
	}
	if err != nil {
		s.log.Warn("fetch by id failed", "id", id, "err", err)
		return db.Entry{}, false
	}
	one := []db.Entry{e}
	if err := db.LoadExtras(ctx, s.conn, one); err != nil {
		s.log.Warn("loading extension fields failed", "id", id, "err", err)
	}
	return one[0], true
}

// FindExact returns entries whose kanji or reading equals word, most
// common first.
func (s *Store) FindExact(ctx context.Context, word string, limit int) []db.Entry {
	if !s.ready.Load() || word == "" || limit <= 0 {
		return nil
	}
	entries, err := s.queryEntries(ctx,
		`SELECT `+db.EntryColumns+` FROM dict_index d WHERE d.kanji = ? OR d.reading = ? ORDER BY `+naturalOrder+` LIMIT ?`,
		word, word, limit)
	if err != nil {
		s.log.Warn("exact lookup failed", "word", word, "err", err)
		return nil
	}
	return entries
}

// VisitHeadwords calls fn for every non-empty kanji and reading in the index
// with the entry's priority. Iteration stops at the first error.
func (s *Store) VisitHeadwords(ctx context.Context, fn func(headword string, priority int) error) error {
	if !s.ready.Load() {
		return ErrNotReady
	}
	rows, err := s.conn.QueryContext(ctx, `SELECT kanji, COALESCE(reading, ''), COALESCE(priority, 0) FROM dict_index`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var kanji, reading string
		var priority int
		if err := rows.Scan(&kanji, &reading, &priority); err != nil {
			return err
		}
		for _, w := range []string{kanji, reading} {
			if w == "" {
				continue
			}
			if err := fn(w, priority); err != nil {
				return err
			}
		}
	}
	return rows.Err()
}

// Meta returns the bundle metadata.
func (s *Store) Meta(ctx context.Context) (map[string]string, error) {
	if !s.ready.Load() {
		return nil, ErrNotReady
	}
	return db.ReadMeta(ctx, s.conn)
}

// ErrNotReady is returned by methods that report errors when the store has
// not been initialized.
var ErrNotReady = errors.New("store not initialized")

func (s *Store) queryEntries(ctx context.Context, q string, args ...interface{}) ([]db.Entry, error) {
	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []db.Entry
	for rows.Next() {
		e, err := db.ScanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := db.LoadExtras(ctx, s.conn, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func isMalformedMatch(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed MATCH") ||
		strings.Contains(msg, "fts") ||
		strings.Contains(msg, "syntax error") ||
		strings.Contains(msg, "unterminated")
}
