// Package integration runs the watcher, signal monitor and event loop
// together against a real directory, with shell commands as actions.
package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/shotd/internal/action"
	"tools.zach/dev/shotd/internal/events"
	"tools.zach/dev/shotd/internal/loop"
	"tools.zach/dev/shotd/internal/signals"
	"tools.zach/dev/shotd/internal/watcher"
)

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

// findShell locates a POSIX shell. Tests skip when none is available.
func findShell() string {
	if runtime.GOOS == "windows" {
		return ""
	}
	for _, name := range []string{"sh", "bash"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pipeline is a running watcher, monitor and loop sharing one queue.
type pipeline struct {
	signal chan<- os.Signal
	exits  chan int
	done   chan loop.Stats
	loop   *loop.Loop
	mon    *signals.Monitor
	w      *watcher.Watcher
}

// startPipeline wires the daemon components with an injected signal source
// and exit function.
func startPipeline(t *testing.T, dir string, h action.Handler) *pipeline {
	t.Helper()
	q := events.NewQueue()
	p := &pipeline{exits: make(chan int, 1), done: make(chan loop.Stats, 1)}

	var mu sync.Mutex
	p.mon = signals.New(q,
		signals.WithNotify(func(c chan<- os.Signal, _ ...os.Signal) {
			mu.Lock()
			p.signal = c
			mu.Unlock()
		}, func(chan<- os.Signal) {}),
		signals.WithExit(func(code int) { p.exits <- code }),
		signals.WithLogger(quietLogger()),
	)
	if err := p.mon.Start(); err != nil {
		t.Fatalf("signals Start: %v", err)
	}
	t.Cleanup(p.mon.Stop)

	w, err := watcher.New(dir, q,
		watcher.WithDebounce(100*time.Millisecond),
		watcher.WithLogger(quietLogger()),
	)
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	p.w = w
	t.Cleanup(func() { w.Close() })

	p.loop = loop.New(q, h, loop.WithLogger(quietLogger()))
	go func() { p.done <- p.loop.Run(context.Background()) }()
	return p
}

func (p *pipeline) interrupt() {
	p.signal <- os.Interrupt
}

func (p *pipeline) wait(t *testing.T) loop.Stats {
	t.Helper()
	select {
	case s := <-p.done:
		return s
	case <-time.After(3 * time.Second):
		t.Fatal("event loop did not stop")
		return loop.Stats{}
	}
}

// readLines returns the non-empty lines of path.
func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read %s: %v", path, err)
	}
	var out []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// ///////////////////////////////////////////////
// Tests
// ///////////////////////////////////////////////

func TestExecActionSeesEachScreenshotOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	sh := findShell()
	if sh == "" {
		t.Skip("no POSIX shell available")
	}

	dir := t.TempDir()
	record := filepath.Join(t.TempDir(), "seen.txt")
	h := action.Exec{
		Command: []string{sh, "-c", `printf '%s\n' "$(basename "$1")" >> "$0"`, record},
		Timeout: 5 * time.Second,
	}
	p := startPipeline(t, dir, h)

	// a.png is written in several chunks; b.png arrives via a temp file.
	a := filepath.Join(dir, "a.png")
	f, _ := os.Create(a)
	for range 5 {
		f.WriteString("chunk")
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()
	tmp := filepath.Join(dir, "b.png.tmp")
	os.WriteFile(tmp, []byte("b"), 0o644)
	os.Rename(tmp, filepath.Join(dir, "b.png"))

	deadline := time.Now().Add(3 * time.Second)
	for len(readLines(t, record)) < 2 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	// Give a stray duplicate time to show up.
	time.Sleep(300 * time.Millisecond)

	p.interrupt()
	stats := p.wait(t)

	got := readLines(t, record)
	slices.Sort(got)
	if !slices.Equal(got, []string{"a.png", "b.png"}) {
		t.Errorf("seen = %v, want [a.png b.png]", got)
	}
	if stats.Reason != loop.ReasonExit || stats.Failed != 0 {
		t.Errorf("stats = %+v, want exit with no failures", stats)
	}
	if p.loop.State() != loop.Stopped {
		t.Errorf("State = %v, want stopped", p.loop.State())
	}
}

func TestFailingActionDoesNotStopLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	sh := findShell()
	if sh == "" {
		t.Skip("no POSIX shell available")
	}

	dir := t.TempDir()
	record := filepath.Join(t.TempDir(), "seen.txt")
	// Fails for bad.png, records everything else.
	script := `case "$1" in *bad.png) exit 3;; esac; printf '%s\n' "$(basename "$1")" >> "$0"`
	p := startPipeline(t, dir, action.Exec{Command: []string{sh, "-c", script, record}})

	os.WriteFile(filepath.Join(dir, "bad.png"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "good.png"), []byte("x"), 0o644)

	deadline := time.Now().Add(3 * time.Second)
	for len(readLines(t, record)) < 1 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}

	p.interrupt()
	stats := p.wait(t)

	if got := readLines(t, record); !slices.Equal(got, []string{"good.png"}) {
		t.Errorf("seen = %v, want [good.png]", got)
	}
	if stats.Dispatched != 2 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 2 dispatched, 1 failed", stats)
	}
}

func TestSecondSignalForcesExit(t *testing.T) {
	dir := t.TempDir()
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	hung := action.HandlerFunc(func(ctx context.Context, path string) error {
		started <- struct{}{}
		<-release
		return nil
	})
	p := startPipeline(t, dir, hung)
	defer close(release)

	os.WriteFile(filepath.Join(dir, "a.png"), []byte("x"), 0o644)
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("handler never started")
	}

	p.interrupt()
	p.interrupt()
	select {
	case code := <-p.exits:
		if code != signals.ForcedExitCode {
			t.Errorf("exit code = %d, want %d", code, signals.ForcedExitCode)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("second signal did not force exit")
	}
	if !signals.Interrupted() {
		t.Error("Interrupted() = false after signal")
	}
}
