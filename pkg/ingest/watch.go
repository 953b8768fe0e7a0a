package ingest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/japaniel/jdict/internal/logger"
)

// SourceWatcher triggers a rebuild when the source file changes. Bursts of
// events within Settle collapse into one rebuild.
type SourceWatcher struct {
	Path    string
	Settle  time.Duration
	Rebuild func(ctx context.Context) error
	Logger  *log.Logger
}

// Run watches until ctx is done. The parent directory is watched rather
// than the file itself so atomic replaces by editors and downloads are seen.
func (w *SourceWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	l := w.Logger
	if l == nil {
		l = logger.New("watch")
	}
	settle := w.Settle
	if settle <= 0 {
		settle = 500 * time.Millisecond
	}
	target := filepath.Clean(w.Path)
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return err
	}
	l.Info("watching source", "path", target)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			l.Debug("source changed", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(settle)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.Rebuild(ctx); err != nil {
				l.Error("rebuild failed", "err", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", "err", err)
		}
	}
}
