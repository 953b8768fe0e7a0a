package rank

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/japaniel/jdict/pkg/db"
)

func cand(id int64, baseline int, exact bool) db.Candidate {
	return db.Candidate{
		Entry:             db.Entry{ID: id, Priority: db.Ptr(baseline)},
		BaselinePriority:  baseline,
		FirstSenseMatches: exact,
	}
}

func entryIDs(entries []db.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestAdjust(t *testing.T) {
	t.Parallel()

	tests := []struct {
		baseline int
		exact    bool
		want     int
	}{
		{0, false, 0},
		{0, true, 5000},
		{10, true, 5010},
		{-3, false, -3},
		{math.MaxInt, true, math.MaxInt},
		{math.MaxInt - 10, true, math.MaxInt},
		{math.MaxInt - 5000, true, math.MaxInt},
	}
	for _, tt := range tests {
		if got := Adjust(tt.baseline, tt.exact); got != tt.want {
			t.Errorf("Adjust(%d, %v) = %d, want %d", tt.baseline, tt.exact, got, tt.want)
		}
	}
}

func TestScoreNeverBelowBaseline(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewSource(1))
	cands := make([]db.Candidate, 500)
	for i := range cands {
		cands[i] = cand(int64(i), r.Intn(math.MaxInt), r.Intn(2) == 0)
	}
	for i, s := range Score(cands) {
		if s.AdjustedPriority < cands[i].BaselinePriority {
			t.Fatalf("entry %d: adjusted %d < baseline %d", i, s.AdjustedPriority, cands[i].BaselinePriority)
		}
	}
}

func TestExactOutranksHigherBaseline(t *testing.T) {
	t.Parallel()

	got := Rank([]db.Candidate{cand(1, 4999, false), cand(2, 10, true)}, SearchCap)
	if diff := cmp.Diff([]int64{2, 1}, entryIDs(got)); diff != "" {
		t.Errorf("Rank (-want, +got):\n%s", diff)
	}
}

func TestRankStableOnTies(t *testing.T) {
	t.Parallel()

	cands := []db.Candidate{
		cand(5, 10, false),
		cand(3, 20, false),
		cand(9, 10, false),
		cand(1, 10, false),
		cand(7, 5010, false),
		cand(2, 10, true),
	}
	got := Rank(cands, SearchCap)
	// 5010 ties between 7 (store order first) and 2 (exact).
	want := []int64{7, 2, 3, 5, 9, 1}
	if diff := cmp.Diff(want, entryIDs(got)); diff != "" {
		t.Errorf("Rank (-want, +got):\n%s", diff)
	}
}

func TestRankTruncates(t *testing.T) {
	t.Parallel()

	cands := make([]db.Candidate, 120)
	for i := range cands {
		cands[i] = cand(int64(i+1), 1000-i, false)
	}

	tests := []struct {
		limit int
		want  int
	}{
		{SearchCap, 50},
		{BrowseCap, 100},
		{500, 120},
		{0, 0},
		{-1, 0},
	}
	for _, tt := range tests {
		got := Rank(cands, tt.limit)
		if len(got) != tt.want {
			t.Errorf("Rank(120 candidates, %d) returned %d entries, want %d", tt.limit, len(got), tt.want)
		}
		for i := 1; i < len(got); i++ {
			if db.Deref(got[i-1].Priority) < db.Deref(got[i].Priority) {
				t.Fatalf("limit %d: result not sorted at %d", tt.limit, i)
			}
		}
	}
}

func TestRankEmpty(t *testing.T) {
	t.Parallel()

	got := Rank(nil, SearchCap)
	if got == nil || len(got) != 0 {
		t.Errorf("Rank(nil) = %v, want empty non-nil slice", got)
	}
}
