package watcher

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Result
// ///////////////////////////////////////////////

// Change is one settled filesystem change: a path whose debounce window
// elapsed with no further activity.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string
	// Op accumulates every raw operation seen for the path during the window.
	Op fsnotify.Op
	// At is the time of the last raw notification for the path.
	At time.Time
}

// Result is what the debouncer hands to the translation step. Exactly one
// of the two slices is non-empty: Changes on success, Errors on failure.
type Result struct {
	Changes []Change
	Errors  []error
}

// Failed reports whether r carries errors instead of changes.
func (r Result) Failed() bool {
	return len(r.Errors) > 0
}

// ///////////////////////////////////////////////
// Debouncer
// ///////////////////////////////////////////////

// pending tracks one path inside its debounce window.
type pending struct {
	timer *time.Timer
	gen   uint64
	op    fsnotify.Op
	at    time.Time
}

// debouncer coalesces raw notifications per path. A Create opens a window
// for the path; Write and Chmod on an open window extend it. When a window
// closes, emit receives a Result with that single change.
type debouncer struct {
	window time.Duration
	emit   func(Result)
	now    func() time.Time

	mu      sync.Mutex
	paths   map[string]*pending
	stopped bool
}

func newDebouncer(window time.Duration, emit func(Result)) *debouncer {
	return &debouncer{
		window: window,
		emit:   emit,
		now:    time.Now,
		paths:  make(map[string]*pending),
	}
}

// observe records one raw notification.
func (d *debouncer) observe(path string, op fsnotify.Op) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	p, open := d.paths[path]
	switch {
	case op.Has(fsnotify.Create):
		if !open {
			p = &pending{}
			d.paths[path] = p
		}
	case open && (op.Has(fsnotify.Write) || op.Has(fsnotify.Chmod)):
	case open && (op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)):
		// Keep the window; the translation step drops paths that are gone.
		p.op |= op
		return
	default:
		return
	}

	p.op |= op
	p.at = d.now()
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
	}
	gen := p.gen
	p.timer = time.AfterFunc(d.window, func() { d.fire(path, gen) })
}

// fail forwards a watcher error without debouncing.
func (d *debouncer) fail(err error) {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped {
		return
	}
	d.emit(Result{Errors: []error{err}})
}

// fire closes the window for path if no newer notification re-armed it.
func (d *debouncer) fire(path string, gen uint64) {
	d.mu.Lock()
	p, ok := d.paths[path]
	if !ok || p.gen != gen || d.stopped {
		d.mu.Unlock()
		return
	}
	delete(d.paths, path)
	change := Change{Path: path, Op: p.op, At: p.at}
	d.mu.Unlock()

	d.emit(Result{Changes: []Change{change}})
}

// pendingCount returns the number of open windows.
func (d *debouncer) pendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paths)
}

// stop cancels every open window. Later notifications are ignored.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for path, p := range d.paths {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(d.paths, path)
	}
}
