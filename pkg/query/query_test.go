package query

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw  string
		want Normalized
	}{
		"empty": {
			raw:  "",
			want: Normalized{},
		},
		"whitespace only": {
			raw:  " \t　 ",
			want: Normalized{},
		},
		"single english term": {
			raw: "eat",
			want: Normalized{
				MatchExpression: `"eat*"`,
				ExactTerm:       "eat",
				Terms:           []string{"eat"},
			},
		},
		"phrase keeps exact term": {
			raw: "  to eat ",
			want: Normalized{
				MatchExpression: `"to*" "eat*"`,
				ExactTerm:       "to eat",
				Terms:           []string{"to", "eat"},
			},
		},
		"mixed script": {
			raw: "食べる object",
			want: Normalized{
				MatchExpression: `"食べる*" "object*"`,
				ExactTerm:       "食べる object",
				Terms:           []string{"食べる", "object"},
			},
		},
		"case and width folding": {
			raw: "ＴＡＢＥ Eat",
			want: Normalized{
				MatchExpression: `"tabe*" "eat*"`,
				ExactTerm:       "ＴＡＢＥ Eat",
				Terms:           []string{"tabe", "eat"},
			},
		},
		"quotes stripped": {
			raw: `"eat" "`,
			want: Normalized{
				MatchExpression: `"eat*"`,
				ExactTerm:       `"eat" "`,
				Terms:           []string{"eat"},
			},
		},
		"kana untouched": {
			raw: "たべる",
			want: Normalized{
				MatchExpression: `"たべる*"`,
				ExactTerm:       "たべる",
				Terms:           []string{"たべる"},
			},
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tc.raw)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Normalize(%q) (-want, +got):\n%s", tc.raw, diff)
			}
		})
	}
}

func TestNormalizeEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "\t\n"} {
		if n := Normalize(raw); !n.Empty() {
			t.Errorf("Normalize(%q).Empty() = false", raw)
		}
	}
	for _, raw := range []string{"x", `"`, `" ""`} {
		if Normalize(raw).Empty() {
			t.Errorf("Normalize(%q).Empty() = true", raw)
		}
	}

	if n := Normalize(`""`); n.MatchExpression != "" || len(n.Terms) != 0 {
		t.Errorf("Normalize(%q) = %+v, want no terms", `""`, n)
	}
}

func TestNormalizeIdempotentExpression(t *testing.T) {
	t.Parallel()

	first := Normalize("食べ物 FOOD")
	second := Normalize(first.ExactTerm)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalizing twice (-first, +second):\n%s", diff)
	}
}
