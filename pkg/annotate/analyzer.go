package annotate

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/japaniel/jdict/pkg/dictionary"
)

// Token represents a single analyzed unit of text.
type Token struct {
	Surface       string   // The text as it appears (e.g. "行っ")
	BaseForm      string   // The dictionary form (e.g. "行く")
	Reading       string   // Katakana pronunciation (e.g. "イッ"), empty for unknown words
	PartsOfSpeech []string // IPA feature list, e.g. ["動詞", "自立", "*", "*", ...]
	PrimaryPOS    string
}

// Sentence represents a sentence containing tokens.
type Sentence struct {
	Text   string
	Tokens []Token
}

// Analyzer segments Japanese text with the IPA dictionary. It is safe for
// concurrent use.
type Analyzer struct {
	t *tokenizer.Tokenizer
}

// NewAnalyzer creates a new tokenizer instance.
func NewAnalyzer() (*Analyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{t: t}, nil
}

// IPA feature positions.
const (
	featurePOS     = 0
	featureSubPOS  = 1
	featureBase    = 6
	featureReading = 7
)

func feature(features []string, i int) string {
	if len(features) > i && features[i] != "*" {
		return features[i]
	}
	return ""
}

// Analyze breaks text into tokens with readings and base forms. Whitespace
// tokens are dropped.
func (a *Analyzer) Analyze(text string) []Token {
	var result []Token
	for _, token := range a.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY || strings.TrimSpace(token.Surface) == "" {
			continue
		}
		features := token.Features()
		base := feature(features, featureBase)
		if base == "" {
			base = token.Surface
		}
		result = append(result, Token{
			Surface:       token.Surface,
			BaseForm:      base,
			Reading:       feature(features, featureReading),
			PartsOfSpeech: features,
			PrimaryPOS:    feature(features, featurePOS),
		})
	}
	return result
}

// AnalyzeDocument splits the text into sentences and tokenizes each sentence.
func (a *Analyzer) AnalyzeDocument(text string) []Sentence {
	var result []Sentence
	for _, s := range splitSentences(text) {
		if strings.TrimSpace(s) == "" {
			continue
		}
		result = append(result, Sentence{Text: s, Tokens: a.Analyze(s)})
	}
	return result
}

// Reading returns the hiragana reading of text, or "" when any segment of
// it is unknown to the dictionary.
func (a *Analyzer) Reading(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	var b strings.Builder
	for _, tok := range a.Analyze(text) {
		if tok.Reading == "" {
			return ""
		}
		b.WriteString(tok.Reading)
	}
	return dictionary.ToHiragana(b.String())
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for _, r := range text {
		current.WriteRune(r)
		// 。！？ and newlines end a sentence.
		if r == '。' || r == '！' || r == '？' || r == '\n' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}
