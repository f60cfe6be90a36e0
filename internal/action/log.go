package action

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// Log records each screenshot in the daemon log. It fails when the file is
// no longer there.
type Log struct{}

// Handle implements [Handler].
func (Log) Handle(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat screenshot: %w", err)
	}
	Logger(ctx).Info("new screenshot",
		"path", path,
		"size", humanize.Bytes(uint64(info.Size())),
		"modified", humanize.Time(info.ModTime()),
	)
	return nil
}
