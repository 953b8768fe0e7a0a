package annotate

import (
	"context"
	"unicode"

	"github.com/charmbracelet/log"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/dictionary"
)

// EntryFinder looks up entries whose kanji or reading equals word.
type EntryFinder interface {
	FindExact(ctx context.Context, word string, limit int) []db.Entry
}

// Annotation is one content word of a document and its dictionary entry.
type Annotation struct {
	Surface string
	Lemma   string
	// Reading is the hiragana reading from the tokenizer.
	Reading string
	Entry   *db.Entry
}

// Annotator glosses the content words of Japanese text.
type Annotator struct {
	analyzer *Analyzer
	finder   EntryFinder
	log      *log.Logger
}

// New returns an Annotator. l may be nil.
func New(a *Analyzer, f EntryFinder, l *log.Logger) *Annotator {
	if l == nil {
		l = logger.New("annotate")
	}
	return &Annotator{analyzer: a, finder: f, log: l}
}

// Annotate tokenizes text and returns its content words in order. Each word
// carries the most common entry matching its lemma, or its surface form
// when the lemma has none.
func (an *Annotator) Annotate(ctx context.Context, text string) ([]Annotation, error) {
	var out []Annotation
	cache := make(map[string]*db.Entry)
	for _, sentence := range an.analyzer.AnalyzeDocument(text) {
		for _, tok := range sentence.Tokens {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !IsContentWord(tok) {
				continue
			}
			a := Annotation{
				Surface: tok.Surface,
				Lemma:   tok.BaseForm,
				Reading: dictionary.ToHiragana(tok.Reading),
			}
			a.Entry = an.find(ctx, cache, tok.BaseForm)
			if a.Entry == nil && tok.Surface != tok.BaseForm {
				a.Entry = an.find(ctx, cache, tok.Surface)
			}
			out = append(out, a)
		}
	}
	an.log.Debug("annotated", "words", len(out), "distinct", len(cache))
	return out, nil
}

func (an *Annotator) find(ctx context.Context, cache map[string]*db.Entry, word string) *db.Entry {
	if e, ok := cache[word]; ok {
		return e
	}
	var found *db.Entry
	if entries := an.finder.FindExact(ctx, word, 1); len(entries) > 0 {
		found = &entries[0]
	}
	cache[word] = found
	return found
}

// Glossary returns the distinct annotated entries in order of first
// appearance.
func Glossary(anns []Annotation) []db.Entry {
	seen := make(map[int64]bool)
	var out []db.Entry
	for _, a := range anns {
		if a.Entry == nil || seen[a.Entry.ID] {
			continue
		}
		seen[a.Entry.ID] = true
		out = append(out, *a.Entry)
	}
	return out
}

var skippedPOS = map[string]bool{
	"助詞":   true, // particles
	"助動詞":  true,
	"記号":   true, // symbols
	"フィラー": true,
	"接頭詞":  true,
}

// IsContentWord reports whether a token is worth glossing: not a particle,
// auxiliary, symbol or number, and not ASCII-only.
func IsContentWord(tok Token) bool {
	if skippedPOS[tok.PrimaryPOS] {
		return false
	}
	if tok.PrimaryPOS == "名詞" && feature(tok.PartsOfSpeech, featureSubPOS) == "数" {
		return false
	}
	for _, r := range tok.Surface {
		if r > unicode.MaxASCII && !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
