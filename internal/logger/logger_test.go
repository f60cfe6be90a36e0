package logger

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
)

// lineRe matches one rendered record, line ending excluded.
var lineRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z \[([A-Z]+)\] ([^|]*?)(?: \| (.*))?$`)

// render logs one record through build(handler) and returns its fields.
func render(t *testing.T, level slog.Level, build func(*Handler) slog.Handler, log func(*slog.Logger)) (lvl, msg, attrs string) {
	t.Helper()
	var buf bytes.Buffer
	h := NewHandler(&buf, level)
	log(slog.New(build(h)))
	line := strings.TrimRight(buf.String(), "\r\n")
	if line == "" {
		return "", "", ""
	}
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		t.Fatalf("line %q does not match the log format", line)
	}
	return m[1], m[2], m[3]
}

func plain(h *Handler) slog.Handler { return h }

// ///////////////////////////////////////////////
// Handler
// ///////////////////////////////////////////////

func TestHandlerLine(t *testing.T) {
	tests := []struct {
		name      string
		build     func(*Handler) slog.Handler
		log       func(*slog.Logger)
		wantLevel string
		wantMsg   string
		wantAttrs string
	}{
		{
			name:      "no attrs",
			build:     plain,
			log:       func(l *slog.Logger) { l.Info("event loop running") },
			wantLevel: "INFO",
			wantMsg:   "event loop running",
		},
		{
			name:      "record attrs",
			build:     plain,
			log:       func(l *slog.Logger) { l.Warn("watcher error", "dir", "/shots", "retry", 2) },
			wantLevel: "WARN",
			wantMsg:   "watcher error",
			wantAttrs: "dir=/shots, retry=2",
		},
		{
			name: "with attrs",
			build: func(h *Handler) slog.Handler {
				return h.WithAttrs([]slog.Attr{slog.String("dispatch_id", "d1")})
			},
			log:       func(l *slog.Logger) { l.Info("new screenshot", "path", "/a.png") },
			wantLevel: "INFO",
			wantMsg:   "new screenshot",
			wantAttrs: "dispatch_id=d1, path=/a.png",
		},
		{
			name:      "group",
			build:     func(h *Handler) slog.Handler { return h.WithGroup("upload") },
			log:       func(l *slog.Logger) { l.Error("upload failed", "status", 503) },
			wantLevel: "ERROR",
			wantMsg:   "upload failed",
			wantAttrs: "upload.status=503",
		},
		{
			name:      "nested groups",
			build:     func(h *Handler) slog.Handler { return h.WithGroup("action").WithGroup("exec") },
			log:       func(l *slog.Logger) { l.Info("done", "code", 0) },
			wantLevel: "INFO",
			wantMsg:   "done",
			wantAttrs: "action.exec.code=0",
		},
		{
			name: "attrs before group keep their keys",
			build: func(h *Handler) slog.Handler {
				return h.WithAttrs([]slog.Attr{slog.String("dispatch_id", "d1")}).WithGroup("watch")
			},
			log:       func(l *slog.Logger) { l.Info("x", "path", "/a.png") },
			wantLevel: "INFO",
			wantMsg:   "x",
			wantAttrs: "dispatch_id=d1, watch.path=/a.png",
		},
		{
			name:  "group attr flattened",
			build: plain,
			log: func(l *slog.Logger) {
				l.Info("event loop stopped", slog.Group("stats", "dispatched", 3, "failed", 1))
			},
			wantLevel: "INFO",
			wantMsg:   "event loop stopped",
			wantAttrs: "stats.dispatched=3, stats.failed=1",
		},
		{
			name:      "trace",
			build:     plain,
			log:       func(l *slog.Logger) { Trace(l, "raw event", "op", "CREATE") },
			wantLevel: "TRACE",
			wantMsg:   "raw event",
			wantAttrs: "op=CREATE",
		},
		{
			name:      "fail",
			build:     plain,
			log:       func(l *slog.Logger) { Fail(l, "cannot start") },
			wantLevel: "FAIL",
			wantMsg:   "cannot start",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lvl, msg, attrs := render(t, LevelTrace, tt.build, tt.log)
			if lvl != tt.wantLevel || msg != tt.wantMsg || attrs != tt.wantAttrs {
				t.Errorf("got [%s] %q | %q, want [%s] %q | %q",
					lvl, msg, attrs, tt.wantLevel, tt.wantMsg, tt.wantAttrs)
			}
		})
	}
}

func TestHandlerLevelFilter(t *testing.T) {
	lvl, _, _ := render(t, LevelWarn, plain, func(l *slog.Logger) { l.Info("dropped") })
	if lvl != "" {
		t.Errorf("info record written at warn level")
	}
	lvl, _, _ = render(t, LevelWarn, plain, func(l *slog.Logger) { l.Error("kept") })
	if lvl != "ERROR" {
		t.Errorf("level = %q, want ERROR", lvl)
	}
}

func TestHandlerWithGroupEmptyIsIdentity(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, LevelInfo)
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("WithGroup(\"\") returned a new handler")
	}
}

func TestHandlerDerivedShareLock(t *testing.T) {
	var buf bytes.Buffer
	root := NewHandler(&buf, LevelInfo)
	child := root.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*Handler)
	if root.mu != child.mu {
		t.Fatal("derived handler has its own mutex")
	}

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(2)
		go func() { defer wg.Done(); slog.New(root).Info(fmt.Sprintf("root %d", i)) }()
		go func() { defer wg.Done(); slog.New(child).Info(fmt.Sprintf("child %d", i)) }()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	if len(lines) != 2*n {
		t.Fatalf("got %d lines, want %d", len(lines), 2*n)
	}
	for _, l := range lines {
		if !lineRe.MatchString(strings.TrimRight(l, "\r")) {
			t.Fatalf("interleaved line %q", l)
		}
	}
}

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"trace", LevelTrace, true},
		{"DEBUG", LevelDebug, true},
		{"info", LevelInfo, true},
		{"  warn ", LevelWarn, true},
		{"Error", LevelError, true},
		{"fail", LevelFail, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
			if ok && levelName(got) != strings.ToUpper(strings.TrimSpace(tt.in)) {
				t.Errorf("levelName(%v) = %q does not round-trip %q", got, levelName(got), tt.in)
			}
		})
	}
}

// ///////////////////////////////////////////////
// NewLogger
// ///////////////////////////////////////////////

func TestNewLoggerConsole(t *testing.T) {
	tests := []struct {
		name    string
		mode    Console
		wantTee bool
	}{
		{"always", ConsoleAlways, true},
		{"never", ConsoleNever, false},
		// A bytes.Buffer is not a terminal.
		{"auto without tty", ConsoleAuto, false},
		{"empty means auto", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "shotd.log")
			var console bytes.Buffer
			logger, closer, err := NewLogger(Options{
				Path:      path,
				Level:     LevelInfo,
				MaxSizeMB: 1,
				Console:   tt.mode,
				Stderr:    &console,
			})
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}

			logger.Debug("below level")
			logger.Warn("watcher error", "error", "boom")
			closer.Close()

			file, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read log file: %v", err)
			}
			if !strings.Contains(string(file), "watcher error | error=boom") {
				t.Errorf("file missing record: %q", file)
			}
			if strings.Contains(string(file), "below level") {
				t.Errorf("debug record written at info level")
			}
			if got := strings.Contains(console.String(), "watcher error"); got != tt.wantTee {
				t.Errorf("tee = %v, want %v", got, tt.wantTee)
			}
		})
	}
}

func TestNewLoggerErrors(t *testing.T) {
	if _, _, err := NewLogger(Options{}); err == nil {
		t.Error("expected error for empty path")
	}
	if _, _, err := NewLogger(Options{Path: filepath.Join(t.TempDir(), "x.log"), Console: "sometimes"}); err == nil {
		t.Error("expected error for unknown console mode")
	}
}

// ///////////////////////////////////////////////
// ReadTail
// ///////////////////////////////////////////////

func TestReadTail(t *testing.T) {
	tests := []struct {
		name    string
		content string
		n       int
		want    string
	}{
		{"last three", "l1\nl2\nl3\nl4\nl5\n", 3, "l3\nl4\nl5"},
		{"fewer lines than n", "l1\nl2\n", 10, "l1\nl2"},
		{"exactly n", "l1\nl2\n", 2, "l1\nl2"},
		{"no trailing newline", "l1\nl2\nl3", 2, "l2\nl3"},
		{"crlf", "l1\r\nl2\r\n", 1, "l2"},
		{"empty file", "", 5, ""},
		{"zero lines", "l1\n", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "shotd.log")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadTail(path, tt.n)
			if err != nil {
				t.Fatalf("ReadTail: %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadTail(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}

func TestReadTailMissingFile(t *testing.T) {
	if _, err := ReadTail(filepath.Join(t.TempDir(), "none.log"), 10); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
	if got, err := ReadTail(filepath.Join(t.TempDir(), "none.log"), 0); err != nil || got != "" {
		t.Errorf("ReadTail(n=0) = %q, %v; want empty, nil", got, err)
	}
}
