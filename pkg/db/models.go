package db

import "strings"

// SenseSeparator splits the meaning field into senses.
const SenseSeparator = ";"

// Field is one extension attribute of an entry. Extension fields keep their
// bundle order so they can be displayed generically.
type Field struct {
	Key   string
	Value string
}

// Entry is one dictionary sense/reading combination as stored in dict_index.
// Kanji and Meaning are never null but may be empty.
type Entry struct {
	ID       int64
	Source   *int64
	Kanji    string
	Reading  *string
	Furigana *string
	Romaji   *string
	Meaning  string
	Tags     *string
	Priority *int
	Rank     *int
	Extra    []Field
}

// PrimarySense returns the first sense of the entry's meaning.
func (e Entry) PrimarySense() string {
	return PrimarySense(e.Meaning)
}

// Headword returns the written form used to display the entry: the kanji,
// or the reading for kana-only words.
func (e Entry) Headword() string {
	if e.Kanji != "" {
		return e.Kanji
	}
	return Deref(e.Reading)
}

// Senses splits the meaning into its trimmed, non-empty senses.
func (e Entry) Senses() []string {
	var out []string
	for _, s := range strings.Split(e.Meaning, SenseSeparator) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PrimarySense returns the substring of meaning before the first separator,
// or the whole string when there is none.
func PrimarySense(meaning string) string {
	if i := strings.Index(meaning, SenseSeparator); i >= 0 {
		return meaning[:i]
	}
	return meaning
}

// Candidate is a search hit as returned by the entry store, before ranking.
type Candidate struct {
	Entry Entry
	// BaselinePriority is the entry priority with absent values read as 0.
	BaselinePriority int
	// FirstSenseMatches reports whether the primary sense equals the raw query.
	FirstSenseMatches bool
}

// Meta keys written by the builder.
const (
	MetaFormatVersion = "format_version"
	MetaSourceName    = "source_name"
	MetaBuiltAt       = "built_at"
	MetaEntryCount    = "entry_count"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns the value behind p, or the zero value when p is nil.
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
