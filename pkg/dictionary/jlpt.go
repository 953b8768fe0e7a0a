package dictionary

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/japaniel/jdict/pkg/db"
)

// JLPTLevels are processed easiest first.
var JLPTLevels = []int{5, 4, 3, 2, 1}

// VocabEntry is the resolved JLPT information for one written form.
type VocabEntry struct {
	// Level is the numeric level; when a form appears in several lists the
	// largest number wins.
	Level   int
	English []string
}

// Tag returns the tag added to matching rows, e.g. JLPTN5.
func (v VocabEntry) Tag() string {
	return fmt.Sprintf("JLPTN%d", v.Level)
}

// VocabMap maps kanji or kana forms to their JLPT entry.
type VocabMap map[string]VocabEntry

// VocabListPath returns the path of the list for a level inside dir.
func VocabListPath(dir string, level int) string {
	return filepath.Join(dir, fmt.Sprintf("VocabList.N%d.csv", level))
}

// BuildVocabMap reads VocabList.N5.csv through VocabList.N1.csv from dir.
// Missing lists are skipped with a warning; it is an error if none exist.
func BuildVocabMap(dir string) (VocabMap, error) {
	acc := make(map[string]*vocabAcc)
	read := 0
	for _, lvl := range JLPTLevels {
		path := VocabListPath(dir, lvl)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			log.Warn("vocabulary list not found, skipping", "path", path)
			continue
		}
		if err != nil {
			return nil, err
		}
		rows, added, err := readVocabList(f, lvl, acc)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		log.Debug("vocabulary list read", "level", lvl, "rows", rows, "forms", added)
		read++
	}
	if read == 0 {
		return nil, fmt.Errorf("no vocabulary lists found in %s", dir)
	}
	return resolveVocab(acc), nil
}

// ParseVocabList reads a single list for level.
func ParseVocabList(r io.Reader, level int) (VocabMap, error) {
	acc := make(map[string]*vocabAcc)
	if _, _, err := readVocabList(r, level, acc); err != nil {
		return nil, err
	}
	return resolveVocab(acc), nil
}

type vocabAcc struct {
	levels  map[int]struct{}
	english []string
}

// readVocabList reads rows of kanji, kana, english. Rows without english or
// without any Japanese form are skipped.
func readVocabList(r io.Reader, level int, acc map[string]*vocabAcc) (rows, added int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, added, err
		}
		rows++
		if len(rec) < 3 {
			log.Debug("skipping malformed vocabulary row", "level", level, "row", rows)
			continue
		}
		kanji := strings.TrimSpace(rec[0])
		kana := strings.TrimSpace(rec[1])
		english := strings.TrimSpace(rec[2])
		if (kanji == "" && kana == "") || english == "" {
			continue
		}

		keys := make([]string, 0, 2)
		if kanji != "" {
			keys = append(keys, kanji)
		}
		if kana != "" && kana != kanji {
			keys = append(keys, kana)
		}
		for _, k := range keys {
			a, ok := acc[k]
			if !ok {
				a = &vocabAcc{levels: make(map[int]struct{})}
				acc[k] = a
			}
			a.levels[level] = struct{}{}
			if !containsString(a.english, english) {
				a.english = append(a.english, english)
			}
		}
		added++
	}
	return rows, added, nil
}

func resolveVocab(acc map[string]*vocabAcc) VocabMap {
	out := make(VocabMap, len(acc))
	for k, a := range acc {
		best := 0
		for lvl := range a.levels {
			if lvl > best {
				best = lvl
			}
		}
		out[k] = VocabEntry{Level: best, English: a.english}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// MatchKind describes how a row was matched against the vocabulary.
type MatchKind int

const (
	NoMatch MatchKind = iota
	KanjiMatch
	KanaOnlyMatch
	AmbiguousMatch
	AmbiguousRejected
)

// Match resolves the JLPT entry for a row. Rows match by kanji, by reading
// when they have no kanji, or by reading on kanji rows when one of the
// list's english meanings occurs in the row meaning.
func (v VocabMap) Match(kanji, reading, meaning string) (VocabEntry, MatchKind) {
	if kanji != "" {
		if e, ok := v[kanji]; ok {
			return e, KanjiMatch
		}
	}
	if reading == "" {
		return VocabEntry{}, NoMatch
	}
	e, ok := v[reading]
	if !ok {
		return VocabEntry{}, NoMatch
	}
	if kanji == "" {
		return e, KanaOnlyMatch
	}
	if meaningOverlaps(meaning, e.English) {
		return e, AmbiguousMatch
	}
	return VocabEntry{}, AmbiguousRejected
}

func meaningOverlaps(meaning string, english []string) bool {
	if meaning == "" {
		return false
	}
	lower := strings.ToLower(meaning)
	for _, e := range english {
		if strings.Contains(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}

// TagStats summarizes a tagging run.
type TagStats struct {
	Processed         int
	KanjiMatches      int
	KanaOnlyMatches   int
	AmbiguousAccepted int
	AmbiguousRejected int
	NoMatch           int
	AlreadyTagged     int
	Updated           int
}

// TagJLPT adds JLPT level tags to matching rows of an index in a single
// transaction.
func TagJLPT(ctx context.Context, conn *sql.DB, vocab VocabMap) (TagStats, error) {
	var stats TagStats
	type update struct {
		id   int64
		tags string
	}
	var updates []update

	rows, err := conn.QueryContext(ctx, `SELECT id, kanji, COALESCE(reading, ''), meaning, COALESCE(tags, '') FROM dict_index`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var id int64
		var kanji, reading, meaning, tags string
		if err := rows.Scan(&id, &kanji, &reading, &meaning, &tags); err != nil {
			rows.Close()
			return stats, err
		}
		stats.Processed++

		entry, kind := vocab.Match(kanji, reading, meaning)
		switch kind {
		case KanjiMatch:
			stats.KanjiMatches++
		case KanaOnlyMatch:
			stats.KanaOnlyMatches++
		case AmbiguousMatch:
			stats.AmbiguousAccepted++
		case AmbiguousRejected:
			stats.AmbiguousRejected++
			continue
		default:
			stats.NoMatch++
			continue
		}

		merged := MergeTags(tags, entry.Tag())
		if merged == MergeTags(tags) {
			stats.AlreadyTagged++
			continue
		}
		updates = append(updates, update{id, merged})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	if len(updates) == 0 {
		return stats, nil
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	for _, u := range updates {
		if err := db.UpdateTags(tx, u.id, u.tags); err != nil {
			tx.Rollback()
			return stats, fmt.Errorf("updating tags of %d: %w", u.id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return stats, err
	}
	stats.Updated = len(updates)
	log.Info("jlpt tagging done", "processed", stats.Processed, "updated", stats.Updated,
		"kanji", stats.KanjiMatches, "kana_only", stats.KanaOnlyMatches,
		"ambiguous_ok", stats.AmbiguousAccepted, "ambiguous_rejected", stats.AmbiguousRejected)
	return stats, nil
}
