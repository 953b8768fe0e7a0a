package dictionary

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/japaniel/jdict/pkg/db"
)

// CommonPriority is the baseline priority of entries marked common in the
// source. Other entries have no priority.
const CommonPriority = 100

// Extension field keys written by ToRow.
const (
	ExtraJMdictID   = "jmdict_id"
	ExtraOtherForms = "other_forms"
	ExtraInfo       = "info"
)

// ToRow converts a source entry into a dictionary row. The second result is
// false when the entry has no English gloss and should be skipped.
func ToRow(e JMdictEntry) (db.Entry, bool) {
	meaning := englishMeaning(e.Sense)
	if meaning == "" {
		return db.Entry{}, false
	}

	kanji := primaryKanji(e.Kanji)
	row := db.Entry{
		Kanji:   kanji,
		Meaning: meaning,
	}
	if reading := primaryReading(e.Kana, kanji); reading != "" {
		row.Reading = db.Ptr(reading)
		row.Romaji = db.Ptr(ToRomaji(reading))
		if f := MakeFurigana(kanji, reading); f != "" {
			row.Furigana = db.Ptr(f)
		}
	}
	if id, err := strconv.ParseInt(e.Id, 10, 64); err == nil {
		row.Source = db.Ptr(id)
	}
	if tags := entryTags(e); tags != "" {
		row.Tags = db.Ptr(tags)
	}
	if isCommon(e) {
		row.Priority = db.Ptr(CommonPriority)
	}

	if e.Id != "" {
		row.Extra = append(row.Extra, db.Field{Key: ExtraJMdictID, Value: e.Id})
	}
	if forms := otherForms(e, kanji, db.Deref(row.Reading)); forms != "" {
		row.Extra = append(row.Extra, db.Field{Key: ExtraOtherForms, Value: forms})
	}
	var info []string
	for _, s := range e.Sense {
		info = append(info, s.Info...)
	}
	if len(info) > 0 {
		row.Extra = append(row.Extra, db.Field{Key: ExtraInfo, Value: strings.Join(info, "; ")})
	}
	return row, true
}

func englishMeaning(senses []JMdictSense) string {
	var parts []string
	for _, s := range senses {
		var glosses []string
		for _, g := range s.Gloss {
			if (g.Lang == "" || g.Lang == "eng") && strings.TrimSpace(g.Text) != "" {
				// The sense separator must not appear inside a sense.
				glosses = append(glosses, strings.ReplaceAll(g.Text, db.SenseSeparator, ","))
			}
		}
		if len(glosses) > 0 {
			parts = append(parts, strings.Join(glosses, ", "))
		}
	}
	return strings.Join(parts, db.SenseSeparator+" ")
}

func primaryKanji(elems []JMdictElement) string {
	for _, k := range elems {
		if k.Common {
			return k.Text
		}
	}
	if len(elems) > 0 {
		return elems[0].Text
	}
	return ""
}

func appliesTo(k JMdictElement, kanji string) bool {
	if kanji == "" || len(k.AppliesToKanji) == 0 {
		return true
	}
	for _, a := range k.AppliesToKanji {
		if a == "*" || a == kanji {
			return true
		}
	}
	return false
}

func primaryReading(kana []JMdictElement, kanji string) string {
	var first string
	for _, k := range kana {
		if !appliesTo(k, kanji) {
			continue
		}
		if k.Common {
			return k.Text
		}
		if first == "" {
			first = k.Text
		}
	}
	if first == "" && len(kana) > 0 {
		first = kana[0].Text
	}
	return first
}

func isCommon(e JMdictEntry) bool {
	for _, k := range e.Kanji {
		if k.Common {
			return true
		}
	}
	for _, k := range e.Kana {
		if k.Common {
			return true
		}
	}
	return false
}

func entryTags(e JMdictEntry) string {
	var tags []string
	for _, s := range e.Sense {
		tags = append(tags, s.PartOfSpeech...)
		tags = append(tags, s.Misc...)
		tags = append(tags, s.Field...)
	}
	if isCommon(e) {
		tags = append(tags, "common")
	}
	return MergeTags("", tags...)
}

func otherForms(e JMdictEntry, kanji, reading string) string {
	var forms []string
	for _, k := range e.Kanji {
		if k.Text != kanji {
			forms = append(forms, k.Text)
		}
	}
	for _, k := range e.Kana {
		if k.Text != reading {
			forms = append(forms, k.Text)
		}
	}
	return strings.Join(forms, "、")
}

// MergeTags adds tags to a comma-separated tag list. The result is trimmed,
// de-duplicated and sorted.
func MergeTags(existing string, add ...string) string {
	set := make(map[string]struct{})
	for _, t := range strings.Split(existing, ",") {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	for _, t := range add {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// MakeFurigana annotates the kanji runs of word with their readings in
// 漢[かん]字 notation. Okurigana in word are aligned against reading; when
// alignment fails the whole word is annotated. Kana-only words return "".
func MakeFurigana(word, reading string) string {
	if word == "" || reading == "" {
		return ""
	}
	runs := splitRuns(word)
	hasKanji := false
	var pattern strings.Builder
	pattern.WriteString("^")
	for _, r := range runs {
		if r.kana {
			pattern.WriteString(regexp.QuoteMeta(ToHiragana(r.text)))
		} else {
			hasKanji = true
			pattern.WriteString("(.+?)")
		}
	}
	pattern.WriteString("$")
	if !hasKanji {
		return ""
	}

	re, err := regexp.Compile(pattern.String())
	if err != nil {
		return word + "[" + reading + "]"
	}
	m := re.FindStringSubmatch(ToHiragana(reading))
	if m == nil {
		return word + "[" + reading + "]"
	}
	var b strings.Builder
	g := 1
	for _, r := range runs {
		if r.kana {
			b.WriteString(r.text)
			continue
		}
		b.WriteString(r.text)
		b.WriteString("[")
		b.WriteString(m[g])
		b.WriteString("]")
		g++
	}
	return b.String()
}

type run struct {
	text string
	kana bool
}

func splitRuns(s string) []run {
	var runs []run
	for _, r := range s {
		k := IsKana(r)
		if n := len(runs); n > 0 && runs[n-1].kana == k {
			runs[n-1].text += string(r)
			continue
		}
		runs = append(runs, run{text: string(r), kana: k})
	}
	return runs
}
