package watcher

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"tools.zach/dev/shotd/internal/events"
)

// ///////////////////////////////////////////////
// Filter
// ///////////////////////////////////////////////

// Filter selects which file names count as screenshots. Patterns are
// doublestar globs matched against the base name.
type Filter struct {
	// Include lists accepted names. An empty list accepts every name.
	Include []string
	// Ignore lists rejected names; it wins over Include.
	Ignore []string
}

// DefaultFilter accepts common image formats and skips hidden, temporary
// and partially written files.
func DefaultFilter() Filter {
	return Filter{
		Include: []string{"*.png", "*.jpg", "*.jpeg", "*.webp", "*.gif", "*.heic"},
		Ignore:  []string{".*", "*.tmp", "*.part", "*.crdownload", "*~"},
	}
}

// Match reports whether the base name of path passes the filter. Malformed
// patterns never match.
func (f Filter) Match(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range f.Ignore {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// ///////////////////////////////////////////////
// Translation
// ///////////////////////////////////////////////

// Translate maps a debouncer Result to domain events. Each change yields at
// most one [events.NewScreenshot]: the path must still exist, be a regular
// file, and pass the filter. Errors are logged and yield nothing.
func Translate(r Result, f Filter, logger *slog.Logger) []events.Event {
	if r.Failed() {
		for _, err := range r.Errors {
			logger.Warn("watch error", "error", err)
		}
		return nil
	}

	var out []events.Event
	for _, c := range r.Changes {
		if !f.Match(c.Path) {
			logger.Debug("ignoring filtered file", "path", c.Path)
			continue
		}
		info, err := os.Stat(c.Path)
		if err != nil {
			logger.Debug("file gone before settling", "path", c.Path, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		out = append(out, events.NewScreenshot{Path: c.Path})
	}
	return out
}
