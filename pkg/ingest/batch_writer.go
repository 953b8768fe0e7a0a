package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// WriteFunc is a callback that performs database writes inside a transaction.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter groups row writes into transactions. A batch is committed when
// it reaches the configured size or when the flush interval elapses; a
// failing WriteFunc rolls back its whole batch.
type BatchWriter struct {
	db       *sql.DB
	size     int
	interval time.Duration

	mu     sync.Mutex
	buf    []WriteFunc
	closed bool

	ctx      context.Context
	cancel   context.CancelFunc
	commitCh chan []WriteFunc
	wg       sync.WaitGroup

	// OnError receives every asynchronous failure, including dropped batches.
	OnError func(error)
	// OnCommit is called after each committed batch with its size.
	OnCommit func(n int)

	errMu     sync.Mutex
	firstErr  error
	committed int
}

// NewBatchWriter starts a writer on db. bufferSize is the number of writes
// per transaction; flushInterval of 0 disables time-based flushing. A nil db
// runs callbacks with a nil transaction, which tests use.
func NewBatchWriter(db *sql.DB, bufferSize int, flushInterval time.Duration) *BatchWriter {
	if bufferSize <= 0 {
		bufferSize = 10
	}
	ctx, cancel := context.WithCancel(context.Background())
	bw := &BatchWriter{
		db:       db,
		size:     bufferSize,
		interval: flushInterval,
		buf:      make([]WriteFunc, 0, bufferSize),
		ctx:      ctx,
		cancel:   cancel,
		commitCh: make(chan []WriteFunc, 2),
	}

	bw.wg.Add(1)
	go bw.committer()
	if flushInterval > 0 {
		bw.wg.Add(1)
		go bw.ticker()
	}
	return bw
}

// Submit queues w. It blocks while two batches are already waiting to be
// committed.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.buf = append(bw.buf, w)
	if len(bw.buf) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Committed returns the number of writes committed so far.
func (bw *BatchWriter) Committed() int {
	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.committed
}

// flushLocked hands the buffer to the committer. bw.mu must be held.
func (bw *BatchWriter) flushLocked() {
	if len(bw.buf) == 0 {
		return
	}
	batch := bw.buf
	bw.buf = make([]WriteFunc, 0, bw.size)

	select {
	case bw.commitCh <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) committer() {
	defer bw.wg.Done()
	for batch := range bw.commitCh {
		if err := bw.commit(batch); err != nil {
			bw.fail(err)
			continue
		}
		bw.errMu.Lock()
		bw.committed += len(batch)
		bw.errMu.Unlock()
		if bw.OnCommit != nil {
			bw.OnCommit(len(batch))
		}
	}
}

func (bw *BatchWriter) commit(batch []WriteFunc) error {
	if bw.db == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Pending batches are committed even while the writer is closing.
	ctx := context.Background()
	tx, err := bw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch tx: %w", err)
	}
	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch (%d items): %w", len(batch), err)
	}
	return nil
}

func (bw *BatchWriter) ticker() {
	defer bw.wg.Done()
	t := time.NewTicker(bw.interval)
	defer t.Stop()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-t.C:
			bw.mu.Lock()
			bw.flushLocked()
			bw.mu.Unlock()
		}
	}
}

// Close flushes buffered writes, waits for every batch to commit and returns
// the first asynchronous error.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	bw.flushLocked()
	bw.mu.Unlock()

	bw.cancel()
	close(bw.commitCh)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
