package lookup

import (
	"context"
	"time"
)

// Point is one sampled position of a stroke.
type Point struct {
	X, Y float64
	// T is the offset from the start of the gesture.
	T time.Duration
}

// Stroke is one pen-down to pen-up trace.
type Stroke []Point

// Gesture is a handwritten character as captured by the UI shell.
type Gesture struct {
	Strokes []Stroke
}

// CandidateIter yields recognized characters best first. It is finite and
// cannot be restarted.
type CandidateIter interface {
	Next() (string, bool)
}

// Recognizer turns a gesture into candidate characters. Implementations
// live outside this module.
type Recognizer interface {
	Recognize(ctx context.Context, g Gesture) (CandidateIter, error)
}

// TopCandidate returns the best candidate for g, or false when the
// recognizer produced none.
func TopCandidate(ctx context.Context, r Recognizer, g Gesture) (string, bool, error) {
	it, err := r.Recognize(ctx, g)
	if err != nil {
		return "", false, err
	}
	c, ok := it.Next()
	return c, ok, nil
}

// SubmitGesture recognizes g and submits its top candidate appended to
// prefix. It returns 0 when nothing was recognized.
func (s *Session) SubmitGesture(ctx context.Context, r Recognizer, g Gesture, prefix string) (uint64, error) {
	c, ok, err := TopCandidate(ctx, r, g)
	if err != nil || !ok {
		return 0, err
	}
	return s.Submit(prefix + c), nil
}

// SliceIter is a CandidateIter over a fixed list.
type SliceIter struct {
	items []string
	pos   int
}

// NewSliceIter returns an iterator over items.
func NewSliceIter(items ...string) *SliceIter {
	return &SliceIter{items: items}
}

// Next implements CandidateIter.
func (it *SliceIter) Next() (string, bool) {
	if it.pos >= len(it.items) {
		return "", false
	}
	it.pos++
	return it.items[it.pos-1], true
}
