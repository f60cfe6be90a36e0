// Termination signals on Linux, macOS and the BSDs: SIGINT (Ctrl+C) and
// SIGTERM, the signal process managers and container runtimes send to request
// a graceful stop.

//go:build !windows

package signals

import (
	"os"
	"syscall"
)

func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
