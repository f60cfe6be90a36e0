//go:build windows

package pidfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// removeWhileLocked is false: Windows refuses to delete a file with an open
// handle, so Release removes it after closing.
const removeWhileLocked = false

// lockFile locks the first byte of f with LockFileEx, failing immediately
// when another process holds it.
func lockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	if err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	); err != nil {
		return lockError(f.Name(), err)
	}
	return nil
}

func lockError(name string, err error) error {
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return fmt.Errorf("lock file %s: %w", name, errLocked)
	}
	return fmt.Errorf("lock file %s: %w", name, err)
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	if err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol); err != nil {
		return fmt.Errorf("unlock file %s: %w", f.Name(), err)
	}
	return nil
}
