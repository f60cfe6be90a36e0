// Termination signals on Windows. SIGTERM does not exist there; the Go
// runtime maps CTRL_BREAK_EVENT and console-close events to os.Interrupt.

//go:build windows

package signals

import "os"

func terminationSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
