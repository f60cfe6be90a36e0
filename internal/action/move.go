package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tools.zach/dev/shotd/internal/atomicfile"
)

// maxCollisions bounds the numeric suffixes tried by [Move].
const maxCollisions = 1000

// Move relocates each screenshot into an archive directory.
type Move struct {
	// Dir is the destination directory, created on first use.
	Dir string
	// DateSubdirs files screenshots under Dir/YYYY-MM-DD when set.
	DateSubdirs bool

	// now is the clock used for DateSubdirs; nil means time.Now.
	now func() time.Time
}

// Handle implements [Handler]. Name collisions get a " (n)" suffix before
// the extension. Renames across devices fall back to copy and remove.
func (m Move) Handle(ctx context.Context, path string) error {
	if m.Dir == "" {
		return errors.New("move: destination directory not configured")
	}
	dir := m.Dir
	if m.DateSubdirs {
		now := time.Now
		if m.now != nil {
			now = m.now
		}
		dir = filepath.Join(dir, now().Format("2006-01-02"))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	dst, err := freeName(dir, filepath.Base(path))
	if err != nil {
		return err
	}

	if err := os.Rename(path, dst); err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return fmt.Errorf("move screenshot: %w", err)
		}
		if err := copyAndRemove(path, dst); err != nil {
			return err
		}
	}

	Relocated(ctx, dst)
	Logger(ctx).Info("archived screenshot", "from", path, "to", dst)
	return nil
}

// freeName returns a path in dir for name that does not exist yet.
func freeName(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	if _, err := os.Lstat(candidate); os.IsNotExist(err) {
		return candidate, nil
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; i <= maxCollisions; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if _, err := os.Lstat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("move: no free name for %s in %s", name, dir)
}

// copyAndRemove writes src to dst atomically, then deletes src.
func copyAndRemove(src, dst string) error {
	if err := atomicfile.Copy(src, dst); err != nil {
		return fmt.Errorf("copy screenshot: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove original after copy: %w", err)
	}
	return nil
}
