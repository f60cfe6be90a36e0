// Package watcher turns file creation in one directory into
// [events.NewScreenshot] events.
//
// Raw notifications come from fsnotify, or from directory polling when the
// OS notification mechanism is unavailable. They are debounced per path and
// passed through [Translate] before being sent to the event queue. Watching
// is non-recursive.
package watcher

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"tools.zach/dev/shotd/internal/events"
)

// DefaultDebounce is the quiet period after the last raw notification for a
// path before its event is emitted.
const DefaultDebounce = 500 * time.Millisecond

// DefaultPollInterval is the directory scan interval in polling mode.
const DefaultPollInterval = time.Second

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors a directory for new files.
type Watcher struct {
	// dir is the absolute path of the watched directory.
	dir    string
	sender *events.Sender
	filter Filter
	logger *slog.Logger

	window       time.Duration
	pollInterval time.Duration
	forcePolling bool

	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	deb *debouncer
	// polling is true when the watcher uses directory scans.
	polling atomic.Bool

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Option configures a [Watcher].
type Option func(*Watcher)

// WithDebounce sets the debounce window. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.window = d
		}
	}
}

// WithFilter sets the file name filter. The default is [DefaultFilter].
func WithFilter(f Filter) Option {
	return func(w *Watcher) { w.filter = f }
}

// WithLogger sets the logger. The default is [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithPollInterval sets the scan interval used if the watcher ends up
// polling. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithPolling forces directory polling at the given interval, for file
// systems where fsnotify does not deliver events (network mounts, some
// container volumes). A non-positive interval keeps [DefaultPollInterval].
func WithPolling(interval time.Duration) Option {
	return func(w *Watcher) {
		w.forcePolling = true
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// New starts watching dir and sends events to q.
//
// Errors returned here are setup failures: dir is missing, not a directory,
// unreadable, or cannot be registered with the OS. Errors reported by the OS
// after setup are logged and do not stop the watcher.
func New(dir string, q *events.Queue, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve watch dir %s: %w", dir, err)
	}
	if err := checkDir(abs); err != nil {
		return nil, err
	}

	w := &Watcher{
		dir:          abs,
		filter:       DefaultFilter(),
		logger:       slog.Default(),
		window:       DefaultDebounce,
		pollInterval: DefaultPollInterval,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.deb = newDebouncer(w.window, w.emit)

	if !w.forcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Info("fsnotify unavailable, falling back to polling", "error", err)
		} else if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", abs, err)
		} else {
			w.fsw = fsw
		}
	}

	w.sender = q.Sender()
	if w.fsw == nil {
		w.startPolling()
		return w, nil
	}
	w.wg.Add(1)
	go w.watch()
	return w, nil
}

// checkDir validates that path is a readable directory.
func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir %s: not a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open watch dir: %w", err)
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read watch dir %s: %w", path, err)
	}
	return nil
}

// Dir returns the absolute path of the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher, cancels open debounce windows and releases the
// watcher's sender. It is idempotent.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.deb.stop()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
		w.wg.Wait()
		w.sender.Release()
	})
	return err
}

// watch forwards fsnotify notifications to the debouncer until Close.
func (w *Watcher) watch() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name == w.dir && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				w.deb.fail(fmt.Errorf("watched directory %s was removed or renamed", w.dir))
				continue
			}
			w.deb.observe(ev.Name, ev.Op)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.deb.fail(err)
		}
	}
}

// emit translates a settled Result and sends the resulting events. It runs
// on debounce timer goroutines and never blocks on the consumer.
func (w *Watcher) emit(r Result) {
	for _, ev := range Translate(r, w.filter, w.logger) {
		if err := w.sender.Send(ev); err != nil {
			w.logger.Debug("event not delivered", "event", ev, "error", err)
			continue
		}
		w.logger.Debug("queued event", "event", ev)
	}
}
