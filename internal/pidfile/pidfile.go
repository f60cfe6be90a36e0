// Package pidfile enforces a single running daemon per data directory.
//
// The PID file holds "PID:TOKEN" and is kept open with an exclusive advisory
// lock for the daemon's lifetime. The token proves ownership so a daemon
// only removes a file it wrote.
package pidfile

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrRunning is wrapped by [Acquire] when another live process holds the lock.
var ErrRunning = errors.New("another instance is running")

// RunningError reports the PID of the instance holding the lock, when known.
type RunningError struct {
	PID int
}

func (e *RunningError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("%s (pid %d)", ErrRunning, e.PID)
	}
	return ErrRunning.Error()
}

func (e *RunningError) Unwrap() error { return ErrRunning }

// errLocked is wrapped by lockFile when another process holds the lock.
var errLocked = errors.New("locked by another process")

// lock and beforeUnlock are replaced in tests.
var (
	lock         = lockFile
	beforeUnlock = func() {}
)

// File is a held PID file.
type File struct {
	path  string
	token string
	f     *os.File
}

// Acquire locks path and writes this process's PID. A stale file left by a
// dead process is taken over. If another process holds the lock the error
// is a *RunningError.
func Acquire(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	if err := lock(f); err != nil {
		f.Close()
		if !errors.Is(err, errLocked) {
			return nil, fmt.Errorf("lock PID file: %w", err)
		}
		pid, _ := Read(path)
		return nil, &RunningError{PID: pid}
	}

	pf := &File{path: path, token: newToken(), f: f}
	if err := pf.write(); err != nil {
		_ = unlockFile(f)
		f.Close()
		return nil, err
	}
	return pf, nil
}

func (pf *File) write() error {
	if err := pf.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate PID file: %w", err)
	}
	if _, err := pf.f.WriteAt([]byte(fmt.Sprintf("%d:%s", os.Getpid(), pf.token)), 0); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return nil
}

// Path returns the PID file location.
func (pf *File) Path() string { return pf.path }

// Release removes the file if it still carries this process's token, then
// unlocks and closes it. Where the platform allows, removal happens while
// the lock is held so a new instance never loses its file. Safe to call
// more than once.
func (pf *File) Release() {
	if pf.f == nil {
		return
	}
	owned := pf.owned()
	if owned && removeWhileLocked {
		os.Remove(pf.path)
	}
	beforeUnlock()
	_ = unlockFile(pf.f)
	pf.f.Close()
	pf.f = nil
	if owned && !removeWhileLocked {
		os.Remove(pf.path)
	}
}

// owned reads the token through the held handle.
func (pf *File) owned() bool {
	data, err := io.ReadAll(io.NewSectionReader(pf.f, 0, 256))
	if err != nil {
		return false
	}
	_, tok, ok := strings.Cut(strings.TrimSpace(string(data)), ":")
	return ok && tok == pf.token
}

// Read returns the PID recorded in path.
func Read(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pidStr, _, _ := strings.Cut(strings.TrimSpace(string(data)), ":")
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("parse PID file: %w", err)
	}
	return pid, nil
}

// Running reports whether a live process holds the lock on path. A stale
// file is removed.
func Running(path string) (bool, int) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}
	if err := lock(f); err != nil {
		f.Close()
		if !errors.Is(err, errLocked) {
			return false, 0
		}
		pid, _ := Read(path)
		return true, pid
	}
	_ = unlockFile(f)
	f.Close()
	os.Remove(path)
	return false, 0
}

func newToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
