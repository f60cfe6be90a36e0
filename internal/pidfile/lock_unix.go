//go:build !windows

package pidfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// removeWhileLocked is true where an open file can be unlinked.
const removeWhileLocked = true

// lockFile takes a non-blocking exclusive flock(2) on f. Contention is
// reported as errLocked; any other failure is returned as is.
func lockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return lockError(f.Name(), err)
	}
	return nil
}

func lockError(name string, err error) error {
	if errors.Is(err, unix.EWOULDBLOCK) {
		return fmt.Errorf("lock file %s: %w", name, errLocked)
	}
	return fmt.Errorf("lock file %s: %w", name, err)
}

func unlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock file %s: %w", f.Name(), err)
	}
	return nil
}
