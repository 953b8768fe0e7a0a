// Package ingest materializes dictionary bundles: source entries are
// converted on a worker pool, written in source order through a batched
// transactional writer, and the full-text index is rebuilt at the end.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/dictionary"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// Source feeds entries to fn until it is exhausted or fn returns an error.
type Source func(fn func(dictionary.JMdictEntry) error) error

// SliceSource returns a Source over entries.
func SliceSource(entries []dictionary.JMdictEntry) Source {
	return func(fn func(dictionary.JMdictEntry) error) error {
		for _, e := range entries {
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	}
}

// ReadingSource supplies a reading for written forms that lack one.
type ReadingSource interface {
	Reading(text string) string
}

// Ingester converts source entries into dict_index rows.
type Ingester struct {
	DB        *sql.DB
	BatchSize int
	// Logger is used for informational messages. nil means no logging.
	Logger *log.Logger
	// OnProgress is called after every committed batch with the number of rows written so far.
	OnProgress func(current int)
	// Readings fills missing readings when set.
	Readings ReadingSource

	// Concurrency settings
	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewIngester creates a new Ingester writing to conn.
func NewIngester(conn *sql.DB) *Ingester {
	return &Ingester{
		DB:        conn,
		BatchSize: 500,
		Workers:   4,
		Logger:    logger.Discard(),
	}
}

// IngestStats counts what an ingest run did.
type IngestStats struct {
	Read    int
	Written int
	Skipped int
}

// convertedEntry holds the result of converting an entry before it is written.
type convertedEntry struct {
	Index int
	Row   db.Entry
	OK    bool
}

// Ingest streams entries from src and writes the converted rows. Rows are
// written in source order and their rank is their 1-based source position,
// whatever order the workers finish in.
func (ig *Ingester) Ingest(ctx context.Context, src Source) (IngestStats, error) {
	var stats IngestStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	l := ig.Logger
	if l == nil {
		l = logger.Discard()
	}

	var wp WorkerPoolInterface
	if ig.PoolFactory != nil {
		wp = ig.PoolFactory(ig.Workers, ig.Workers*2)
	} else {
		wp = NewWorkerPool(ig.Workers, ig.Workers*2)
	}
	resultCh := make(chan convertedEntry, ig.Workers*2)
	doneCh := make(chan error, 1)

	var written, skipped int64

	bw := NewBatchWriter(ig.DB, ig.BatchSize, 100*time.Millisecond)
	var batchErr error
	var batchErrMu sync.Mutex
	bw.OnError = func(e error) {
		batchErrMu.Lock()
		if batchErr == nil {
			batchErr = e
		}
		batchErrMu.Unlock()
	}
	if ig.OnProgress != nil {
		bw.OnCommit = func(int) { ig.OnProgress(bw.Committed()) }
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wp.Start(ctx)

	// Consumer: reorder converted entries and hand them to the batch writer.
	go func() {
		defer close(doneCh)
		buffer := make(map[int]convertedEntry)
		nextIdx := 0
		for res := range resultCh {
			buffer[res.Index] = res
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				nextIdx++

				if !item.OK {
					atomic.AddInt64(&skipped, 1)
					continue
				}
				row := item.Row
				row.Rank = db.Ptr(item.Index + 1)
				err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
					if _, err := db.InsertEntry(tx, row); err != nil {
						return err
					}
					atomic.AddInt64(&written, 1)
					return nil
				})
				if err != nil {
					cancel()
					doneCh <- err
					// Keep draining so workers never block on resultCh.
					for range resultCh {
					}
					return
				}
			}
		}
		doneCh <- nil
	}()

	// Producer: submit conversion jobs as entries stream in.
	read := 0
	produceErr := src(func(e dictionary.JMdictEntry) error {
		idx := read
		read++
		entry := e
		job := func(ctx context.Context) error {
			res := ig.convert(idx, entry)
			select {
			case resultCh <- res:
			case <-ctx.Done():
			}
			return nil
		}
		return wp.SubmitCtx(ctx, job)
	})
	stats.Read = read

	// No worker sends after Close returns, so the result channel can close.
	wp.Close()
	close(resultCh)
	consumerErr := <-doneCh

	if err := bw.Close(); err != nil && consumerErr == nil {
		consumerErr = err
	}
	batchErrMu.Lock()
	if batchErr != nil && consumerErr == nil {
		consumerErr = batchErr
	}
	batchErrMu.Unlock()

	stats.Written = int(atomic.LoadInt64(&written))
	stats.Skipped = int(atomic.LoadInt64(&skipped))

	switch {
	case consumerErr != nil:
		return stats, consumerErr
	case produceErr != nil && !errors.Is(produceErr, ErrPoolClosed):
		return stats, fmt.Errorf("reading source: %w", produceErr)
	case ctx.Err() != nil:
		return stats, ctx.Err()
	}
	if stats.Written+stats.Skipped != stats.Read {
		return stats, fmt.Errorf("ingest incomplete: read %d, written %d, skipped %d", stats.Read, stats.Written, stats.Skipped)
	}
	l.Debug("ingest finished", "read", stats.Read, "written", stats.Written, "skipped", stats.Skipped)
	return stats, nil
}

// convert performs the CPU-bound conversion of one entry.
func (ig *Ingester) convert(index int, e dictionary.JMdictEntry) convertedEntry {
	row, ok := dictionary.ToRow(e)
	if ok && row.Reading == nil && row.Kanji != "" && ig.Readings != nil {
		if r := ig.Readings.Reading(row.Kanji); r != "" {
			row.Reading = db.Ptr(r)
			row.Romaji = db.Ptr(dictionary.ToRomaji(r))
			if f := dictionary.MakeFurigana(row.Kanji, r); f != "" {
				row.Furigana = db.Ptr(f)
			}
		}
	}
	return convertedEntry{Index: index, Row: row, OK: ok}
}
