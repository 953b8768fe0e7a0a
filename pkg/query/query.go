// Package query turns raw user input into a full-text match expression.
//
// Each whitespace-separated term becomes a quoted prefix phrase, and terms
// are joined by spaces so the index treats them as an implicit AND:
//
//	"食べる object"  ->  "食べる*" "object*"
//
// No script detection or transliteration happens here; romaji is indexed as
// its own column.
package query

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Normalized is the result of normalizing one raw query.
type Normalized struct {
	// MatchExpression is the full-text expression, empty for an empty query.
	MatchExpression string
	// ExactTerm is the trimmed raw query, compared against primary senses.
	ExactTerm string
	// Terms are the folded terms without quoting.
	Terms []string
}

// Empty reports whether the trimmed query is empty. Empty queries are served
// by browsing instead of searching. A query that folds to no terms, such as
// one made only of quotes, is not empty: it searches and matches nothing.
func (n Normalized) Empty() bool {
	return n.ExactTerm == ""
}

// folder maps full-width ASCII to ASCII and applies Unicode case folding.
func folder() transform.Transformer {
	return transform.Chain(width.Fold, cases.Fold())
}

// Fold applies the term folding used by Normalize to s.
func Fold(s string) string {
	folded, _, err := transform.String(folder(), s)
	if err != nil {
		return s
	}
	return folded
}

// Normalize converts raw input into a match expression and exact term.
func Normalize(raw string) Normalized {
	trimmed := strings.TrimSpace(raw)
	n := Normalized{ExactTerm: trimmed}
	if trimmed == "" {
		return n
	}

	phrases := make([]string, 0, 4)
	for _, f := range strings.Fields(trimmed) {
		term := strings.ReplaceAll(Fold(f), `"`, "")
		if term == "" {
			continue
		}
		n.Terms = append(n.Terms, term)
		phrases = append(phrases, `"`+term+`*"`)
	}
	n.MatchExpression = strings.Join(phrases, " ")
	return n
}
