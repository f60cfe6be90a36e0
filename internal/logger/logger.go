// Package logger provides the daemon's slog handler, its rotating file sink
// and the optional stderr console tee.
//
// Every line has the form:
//
//	2006-01-02T15:04:05.000Z [LEVEL] message | key=value, key2=value2
//
// Two levels extend the slog set: LevelTrace (-8) and LevelFail (12).
package logger

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

const (
	LevelTrace slog.Level = -8
	LevelDebug slog.Level = slog.LevelDebug
	LevelInfo  slog.Level = slog.LevelInfo
	LevelWarn  slog.Level = slog.LevelWarn
	LevelError slog.Level = slog.LevelError
	LevelFail  slog.Level = 12
)

var levelNames = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
	"fail":  LevelFail,
}

func levelName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARN"
	case l <= LevelError:
		return "ERROR"
	default:
		return "FAIL"
	}
}

// ParseLevel maps a case-insensitive level name to its slog.Level. Unknown
// names yield LevelInfo and false.
func ParseLevel(s string) (slog.Level, bool) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return LevelInfo, false
	}
	return l, true
}

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

var lineEnding = "\n"

func init() {
	if runtime.GOOS == "windows" {
		lineEnding = "\r\n"
	}
}

// Handler is a slog.Handler producing the single-line format described in
// the package doc. Handlers derived through WithAttrs and WithGroup share
// the writer lock of their parent.
type Handler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Level

	// prefix is the group path applied to record attrs, e.g. "watch.".
	prefix string
	// pre holds already-rendered "key=value" pairs from WithAttrs.
	pre []string
}

// NewHandler returns a Handler writing records at or above level to w.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{w: w, level: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05.000Z"))
	b.WriteString(" [")
	b.WriteString(levelName(r.Level))
	b.WriteString("] ")
	b.WriteString(r.Message)

	pairs := h.pre
	if r.NumAttrs() > 0 {
		pairs = append(make([]string, 0, len(h.pre)+r.NumAttrs()), h.pre...)
		r.Attrs(func(a slog.Attr) bool {
			pairs = appendAttr(pairs, h.prefix, a)
			return true
		})
	}
	if len(pairs) > 0 {
		b.WriteString(" | ")
		b.WriteString(strings.Join(pairs, ", "))
	}
	b.WriteString(lineEnding)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	pre := append(make([]string, 0, len(h.pre)+len(attrs)), h.pre...)
	for _, a := range attrs {
		pre = appendAttr(pre, h.prefix, a)
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: h.prefix, pre: pre}
}

// WithGroup prefixes keys logged through the returned handler with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{w: h.w, mu: h.mu, level: h.level, prefix: h.prefix + name + ".", pre: h.pre}
}

// appendAttr renders a as key=value, flattening nested groups.
func appendAttr(dst []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			dst = appendAttr(dst, sub, ga)
		}
		return dst
	}
	return append(dst, prefix+a.Key+"="+a.Value.String())
}

// ///////////////////////////////////////////////
// Console
// ///////////////////////////////////////////////

// Console controls whether log lines are also written to stderr.
type Console string

const (
	// ConsoleAuto tees to stderr only when it is a terminal.
	ConsoleAuto   Console = "auto"
	ConsoleAlways Console = "always"
	ConsoleNever  Console = "never"
)

// Valid reports whether c is a known console mode.
func (c Console) Valid() bool {
	switch c {
	case ConsoleAuto, ConsoleAlways, ConsoleNever:
		return true
	}
	return false
}

// enabled decides the tee for a concrete stderr.
func (c Console) enabled(stderr io.Writer) bool {
	switch c {
	case ConsoleAlways:
		return true
	case ConsoleNever:
		return false
	}
	f, ok := stderr.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ///////////////////////////////////////////////
// Constructor
// ///////////////////////////////////////////////

// Options configures [NewLogger].
type Options struct {
	// Path is the log file; rotated by size.
	Path string
	// Level is the minimum level written.
	Level slog.Level
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int
	// Console selects the stderr tee; empty means ConsoleAuto.
	Console Console
	// Stderr overrides os.Stderr for the tee.
	Stderr io.Writer
}

// NewLogger returns a logger writing to a rotating file and, depending on
// Console, to stderr. The io.Closer flushes and closes the file.
func NewLogger(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Path == "" {
		return nil, nil, fmt.Errorf("logger: no log path")
	}
	if opts.Console == "" {
		opts.Console = ConsoleAuto
	}
	if !opts.Console.Valid() {
		return nil, nil, fmt.Errorf("logger: unknown console mode %q", opts.Console)
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: 3,
		MaxAge:     28,
	}

	var w io.Writer = lj
	if opts.Console.enabled(stderr) {
		w = io.MultiWriter(lj, stderr)
	}
	return slog.New(NewHandler(w, opts.Level)), lj, nil
}

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// Trace logs at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Fail logs at LevelFail.
func Fail(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelFail, msg, args...)
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

// ReadTail returns the last n lines of the file at path, oldest first.
func ReadTail(path string, n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	ring := make([]string, n)
	total := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		ring[total%n] = strings.TrimRight(sc.Text(), "\r")
		total++
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading log file: %w", err)
	}

	if total <= n {
		return strings.Join(ring[:total], "\n"), nil
	}
	start := total % n
	out := make([]string, 0, n)
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return strings.Join(out, "\n"), nil
}
