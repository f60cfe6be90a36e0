package watcher

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Polling Fallback
// ///////////////////////////////////////////////

// fileStamp is what polling compares between scans.
type fileStamp struct {
	size int64
	mod  time.Time
}

// startPolling switches the watcher to directory scans.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	baseline, err := w.scan()
	if err != nil {
		w.logger.Warn("initial directory scan failed", "dir", w.dir, "error", err)
	}
	w.wg.Add(1)
	go w.poll(baseline)
}

// poll rescans the directory every pollInterval and feeds synthesized
// Create and Write notifications to the debouncer. Files present at startup
// are part of the baseline and never reported.
func (w *Watcher) poll(known map[string]fileStamp) {
	defer w.wg.Done()

	if known == nil {
		known = make(map[string]fileStamp)
	}
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			current, err := w.scan()
			if err != nil {
				w.deb.fail(err)
				continue
			}
			for path, stamp := range current {
				prev, seen := known[path]
				switch {
				case !seen:
					w.deb.observe(path, fsnotify.Create)
				case stamp != prev:
					w.deb.observe(path, fsnotify.Write)
				}
			}
			known = current
		}
	}
}

// scan lists the regular files directly inside the watched directory.
func (w *Watcher) scan() (map[string]fileStamp, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]fileStamp, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out[filepath.Join(w.dir, e.Name())] = fileStamp{size: info.Size(), mod: info.ModTime()}
	}
	return out, nil
}
