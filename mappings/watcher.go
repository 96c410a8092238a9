package mappings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/ggoodman/a11y-warehouse/jsonmap"
)

var _ Source = (*Watcher)(nil)

// Watcher serves the latest Set compiled from an override directory and
// recompiles it when files in the directory change. A change that fails to
// compile is logged and the previous Set stays in effect.
type Watcher struct {
	dir  string
	opts []jsonmap.Option
	log  *slog.Logger
	cur  atomic.Pointer[Set]
}

// NewWatcher performs the initial load. It fails if the overrides present at
// startup do not compile.
func NewWatcher(dir string, log *slog.Logger, opts ...jsonmap.Option) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{dir: dir, opts: opts, log: log}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Current returns the most recently compiled Set.
func (w *Watcher) Current() *Set { return w.cur.Load() }

// Reload recompiles the tables and swaps them in on success.
func (w *Watcher) Reload() error {
	set, err := Load(w.dir, w.opts...)
	if err != nil {
		return err
	}
	w.cur.Store(set)
	return nil
}

// Run watches the override directory until ctx is done. Without a directory
// it simply waits for ctx.
func (w *Watcher) Run(ctx context.Context) error {
	if w.dir == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mappings: create watcher: %w", err)
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("mappings: watch %s: %w", w.dir, err)
	}
	w.log.InfoContext(ctx, "mappings.watch.start", slog.String("dir", w.dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !isTableFile(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.ErrorContext(ctx, "mappings.reload.fail", slog.String("file", ev.Name), slog.String("err", err.Error()))
				continue
			}
			w.log.InfoContext(ctx, "mappings.reload.ok", slog.String("file", ev.Name), slog.String("op", ev.Op.String()))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WarnContext(ctx, "mappings.watch.error", slog.String("err", err.Error()))
		}
	}
}
