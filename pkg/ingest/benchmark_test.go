package ingest

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkIngest(b *testing.B) {
	entries := makeEntries(2000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		conn := setupDB(b)
		ig := NewIngester(conn)
		b.StartTimer()

		if _, err := ig.Ingest(context.Background(), SliceSource(entries)); err != nil {
			b.Fatalf("ingest failed: %v", err)
		}
	}
}

func BenchmarkIngestConcurrencyScaling(b *testing.B) {
	entries := makeEntries(2000)
	for _, workers := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				b.StopTimer()
				conn := setupDB(b)
				ig := NewIngester(conn)
				ig.Workers = workers
				b.StartTimer()

				if _, err := ig.Ingest(context.Background(), SliceSource(entries)); err != nil {
					b.Fatalf("ingest failed: %v", err)
				}
			}
		})
	}
}
