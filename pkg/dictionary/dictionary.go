// Package dictionary reads the JMdict-simplified source and converts its
// entries into dictionary rows. It also tags rows with JLPT levels and
// fetches the source when it is missing.
package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// JMdictEntry matches the structure of jmdict-simplified entries.
type JMdictEntry struct {
	Id    string          `json:"id"`
	Kanji []JMdictElement `json:"kanji"`
	Kana  []JMdictElement `json:"kana"`
	Sense []JMdictSense   `json:"sense"`
}

type JMdictElement struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
	// AppliesToKanji lists the kanji forms a kana reading belongs to; "*"
	// means all of them.
	AppliesToKanji []string `json:"appliesToKanji"`
}

type JMdictSense struct {
	PartOfSpeech []string      `json:"partOfSpeech"`
	Misc         []string      `json:"misc"`
	Field        []string      `json:"field"`
	Info         []string      `json:"info"`
	Gloss        []JMdictGloss `json:"gloss"`
}

type JMdictGloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// SourceInfo is the header of a jmdict-simplified file.
type SourceInfo struct {
	Version  string `json:"version"`
	DictDate string `json:"dictDate"`
}

// ErrStop can be returned from a StreamJMdict callback to end iteration
// early without an error.
var ErrStop = errors.New("stop iteration")

// LoadJMdictSimplified reads a whole file (object with "words" or a bare
// array) into memory.
func LoadJMdictSimplified(path string) ([]JMdictEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []JMdictEntry
	_, err = StreamJMdict(f, func(e JMdictEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// StreamJMdict decodes entries one at a time and passes them to fn. The
// full file is never held in memory, which matters for the complete JMdict
// release.
func StreamJMdict(r io.Reader, fn func(JMdictEntry) error) (SourceInfo, error) {
	var info SourceInfo
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return info, fmt.Errorf("failed to parse dictionary: %w", err)
	}

	switch tok {
	case json.Delim('['):
		return info, stopOK(streamArray(dec, fn))
	case json.Delim('{'):
	default:
		return info, fmt.Errorf("failed to parse dictionary as object or array: unexpected %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return info, err
		}
		key, _ := keyTok.(string)
		switch key {
		case "words":
			tok, err := dec.Token()
			if err != nil {
				return info, err
			}
			if tok != json.Delim('[') {
				return info, fmt.Errorf("words: expected array, got %v", tok)
			}
			if err := streamArray(dec, fn); err != nil {
				return info, stopOK(err)
			}
		case "version":
			if err := dec.Decode(&info.Version); err != nil {
				return info, err
			}
		case "dictDate":
			if err := dec.Decode(&info.DictDate); err != nil {
				return info, err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return info, err
			}
		}
	}
	return info, nil
}

// streamArray decodes array elements after the opening bracket has been
// consumed, including the closing bracket.
func streamArray(dec *json.Decoder, fn func(JMdictEntry) error) error {
	for dec.More() {
		var e JMdictEntry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("decoding entry: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	_, err := dec.Token()
	return err
}

func stopOK(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
