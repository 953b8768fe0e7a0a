// Package suggest completes headword prefixes from the installed index.
package suggest

import (
	"context"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/query"
)

// Suggestion is one completed headword.
type Suggestion struct {
	Word     string `msgpack:"word"`
	Priority int    `msgpack:"priority"`
}

// HeadwordSource enumerates headwords with their priority.
type HeadwordSource interface {
	VisitHeadwords(ctx context.Context, fn func(headword string, priority int) error) error
}

type item struct {
	word     string
	priority int
}

// Completer is a patricia trie of folded headwords. It is safe for
// concurrent use.
type Completer struct {
	mu          sync.RWMutex
	trie        *patricia.Trie
	totalWords  int
	maxPriority int
	log         *log.Logger
}

// NewCompleter returns an empty completer. Call Load or AddWord to fill it.
func NewCompleter(l *log.Logger) *Completer {
	if l == nil {
		l = logger.New("suggest")
	}
	return &Completer{trie: patricia.NewTrie(), log: l}
}

// AddWord inserts a headword. A word added twice keeps its highest
// priority.
func (c *Completer) AddWord(word string, priority int) {
	if word == "" {
		return
	}
	key := patricia.Prefix(query.Fold(word))

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.trie.Get(key).(*item); ok {
		if priority > existing.priority {
			existing.priority = priority
		}
	} else {
		c.trie.Insert(key, &item{word: word, priority: priority})
		c.totalWords++
	}
	if priority > c.maxPriority {
		c.maxPriority = priority
	}
}

// Load adds every headword of src.
func (c *Completer) Load(ctx context.Context, src HeadwordSource) error {
	err := src.VisitHeadwords(ctx, func(w string, p int) error {
		c.AddWord(w, p)
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	c.log.Debug("completer loaded", "words", c.Len())
	return nil
}

// Complete returns up to limit headwords starting with prefix, highest
// priority first, then shortest, then in lexical order.
func (c *Completer) Complete(prefix string, limit int) []Suggestion {
	if prefix == "" || limit <= 0 {
		return []Suggestion{}
	}
	var out []Suggestion

	c.mu.RLock()
	err := c.trie.VisitSubtree(patricia.Prefix(query.Fold(prefix)), func(_ patricia.Prefix, it patricia.Item) error {
		v, ok := it.(*item)
		if !ok {
			c.log.Errorf("unknown item type %T", it)
			return nil
		}
		out = append(out, Suggestion{Word: v.word, Priority: v.priority})
		return nil
	})
	c.mu.RUnlock()
	if err != nil {
		c.log.Warn("completion failed", "prefix", prefix, "err", err)
		return []Suggestion{}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if la, lb := len([]rune(a.Word)), len([]rune(b.Word)); la != lb {
			return la < lb
		}
		return a.Word < b.Word
	})
	if len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []Suggestion{}
	}
	return out
}

// Len returns the number of distinct headwords.
func (c *Completer) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalWords
}

// Stats returns statistics about the loaded headwords.
func (c *Completer) Stats() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string]int{
		"totalWords":  c.totalWords,
		"maxPriority": c.maxPriority,
	}
}
