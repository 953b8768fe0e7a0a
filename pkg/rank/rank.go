// Package rank orders store candidates by corpus priority, promoting entries
// whose primary sense equals the query exactly.
package rank

import (
	"math"
	"sort"

	"github.com/japaniel/jdict/pkg/db"
)

// ExactBonus is added to the priority of candidates whose primary sense
// equals the raw query.
const ExactBonus = 5000

// Default result caps.
const (
	SearchCap = 50
	BrowseCap = 100
)

// ScoredEntry is an entry with its adjusted priority. It only exists during
// ranking.
type ScoredEntry struct {
	Entry            db.Entry
	AdjustedPriority int
}

// Adjust returns baseline plus the exact bonus, saturating at math.MaxInt.
func Adjust(baseline int, exact bool) int {
	if !exact {
		return baseline
	}
	if baseline > math.MaxInt-ExactBonus {
		return math.MaxInt
	}
	return baseline + ExactBonus
}

// Score computes adjusted priorities, preserving candidate order.
func Score(cands []db.Candidate) []ScoredEntry {
	scored := make([]ScoredEntry, len(cands))
	for i, c := range cands {
		scored[i] = ScoredEntry{
			Entry:            c.Entry,
			AdjustedPriority: Adjust(c.BaselinePriority, c.FirstSenseMatches),
		}
	}
	return scored
}

// Rank scores the candidates, sorts them by adjusted priority descending and
// keeps at most limit entries. Equal scores keep their store order.
func Rank(cands []db.Candidate, limit int) []db.Entry {
	if limit <= 0 || len(cands) == 0 {
		return []db.Entry{}
	}
	scored := Score(cands)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].AdjustedPriority > scored[j].AdjustedPriority
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]db.Entry, len(scored))
	for i, s := range scored {
		out[i] = s.Entry
	}
	return out
}
