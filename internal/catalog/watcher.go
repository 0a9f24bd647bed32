package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a Catalog when its file sources change.
// Parent directories are watched so editors that save via rename are seen.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	files    map[string]struct{}
	debounce time.Duration
	onReload func()
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the file sources of c.
// onReload (optional) runs after every successful reload.
func NewWatcher(c *Catalog, onReload func(), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}

	w := &Watcher{
		catalog:  c,
		watcher:  fw,
		files:    make(map[string]struct{}),
		debounce: defaultDebounce,
		onReload: onReload,
		log:      log.With().Str("component", "catalog.watcher").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, src := range c.FileSources() {
		abs, err := filepath.Abs(src)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("resolve %s: %w", src, err)
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Start begins watching. Non-blocking.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	go w.run(ctx)
	w.log.Info().Int("files", len(w.files)).Msg("catalog watcher started")
}

// Stop stops the watcher and waits for the event loop to exit
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		w.log.Error().Err(err).Msg("error closing fs watcher")
	}
	w.log.Info().Msg("catalog watcher stopped")
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("catalog file changed")
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fs watcher error")

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	_, ok := w.files[abs]
	return ok
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.catalog.Reload(ctx); err != nil {
		w.log.Warn().Err(err).Msg("catalog reload failed, keeping previous snapshot")
		return
	}
	if w.onReload != nil {
		w.onReload()
	}
}
