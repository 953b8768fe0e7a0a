package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/japaniel/jdict/pkg/db"
)

func insertRow(meaning string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := db.InsertEntry(tx, db.Entry{Kanji: "字", Meaning: meaning})
		return err
	}
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := setupDB(t)

	bw := NewBatchWriter(conn, 2, 0)
	var commits []int
	var mu sync.Mutex
	bw.OnCommit = func(n int) {
		mu.Lock()
		commits = append(commits, n)
		mu.Unlock()
	}

	for _, m := range []string{"a", "b", "c"} {
		if err := bw.Submit(insertRow(m)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	// Close and wait for pending batches to be committed. Use a timeout to avoid hanging tests.
	doneCh := make(chan error, 1)
	go func() {
		doneCh <- bw.Close()
	}()
	select {
	case err := <-doneCh:
		if err != nil {
			t.Fatalf("close failed: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	n, err := db.CountEntries(context.Background(), conn)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows, got %d", n)
	}
	if bw.Committed() != 3 {
		t.Errorf("Committed() = %d, want 3", bw.Committed())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(commits) != 2 || commits[0] != 2 || commits[1] != 1 {
		t.Errorf("commit sizes = %v, want [2 1]", commits)
	}
}

func TestBatchWriterRollback(t *testing.T) {
	conn := setupDB(t)

	bw := NewBatchWriter(conn, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		errCh <- e
	}

	// Batch of 2: First succeeds, second fails. Whole batch should roll back.
	bw.Submit(insertRow("kept?"))
	bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		return fmt.Errorf("intentional error")
	})

	if err := bw.Close(); err == nil || !strings.Contains(err.Error(), "intentional") {
		t.Fatalf("Close() = %v, want the batch error", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	default:
		t.Fatal("expected OnError to be called")
	}

	n, err := db.CountEntries(context.Background(), conn)
	if err != nil {
		t.Fatalf("failed to query row count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows (rollback), got %d", n)
	}
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 2, 0)
	if err := bw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bw.Submit(func(context.Context, *sql.Tx) error { return nil }); err != ErrBatchWriterClosed {
		t.Errorf("Submit after Close = %v, want ErrBatchWriterClosed", err)
	}
	if err := bw.Close(); err != ErrBatchWriterClosed {
		t.Errorf("second Close = %v, want ErrBatchWriterClosed", err)
	}
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var mu sync.Mutex
	called := 0
	for i := 0; i < 12; i++ {
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			mu.Lock()
			called++
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if called != 12 {
		t.Fatalf("expected 12 calls, got %d", called)
	}
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 20*time.Millisecond)
	defer bw.Close()
	flushed := make(chan struct{})
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(flushed)
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("buffered write was not flushed by the interval")
	}
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	// The committer is kept busy on the first batch and the queue holds the
	// next two, so a flush after cancellation has nowhere to go.
	bw := NewBatchWriter(nil, 1, 0)
	defer bw.Close()
	errCh := make(chan error, 1)
	bw.OnError = func(e error) {
		select {
		case errCh <- e:
		default:
		}
	}

	blocker := make(chan struct{})
	started := make(chan struct{})
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(started)
		<-blocker
		return nil
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	<-started
	for i := 0; i < 2; i++ {
		if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != nil {
			t.Fatalf("submit failed: %v", err)
		}
	}

	bw.cancel()
	if err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil }); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	close(blocker)

	select {
	case e := <-errCh:
		if e == nil || !strings.Contains(e.Error(), "dropping batch") {
			t.Fatalf("unexpected OnError value: %v", e)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected OnError to be called when batch dropped")
	}
}
