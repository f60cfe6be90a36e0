package action

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultExecTimeout bounds a single [Exec] run when Timeout is zero.
const DefaultExecTimeout = 30 * time.Second

// maxOutputInError caps how much command output is quoted in errors.
const maxOutputInError = 512

// execWaitDelay bounds how long Handle waits for output pipes to close
// after the command has been killed.
const execWaitDelay = 2 * time.Second

// Exec runs an external command for each screenshot. The path is appended
// as the last argument and exported as SHOTD_PATH, with the dispatch id in
// SHOTD_DISPATCH_ID.
type Exec struct {
	// Command is the program and its leading arguments.
	Command []string
	// Timeout kills the command after this long; zero means DefaultExecTimeout.
	Timeout time.Duration
}

// Handle implements [Handler].
func (e Exec) Handle(ctx context.Context, path string) error {
	if len(e.Command) == 0 {
		return errors.New("exec: no command configured")
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultExecTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, e.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	killProcessGroup(cmd)
	cmd.WaitDelay = execWaitDelay
	cmd.Env = append(os.Environ(),
		"SHOTD_PATH="+path,
		"SHOTD_DISPATCH_ID="+DispatchID(ctx),
	)

	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("exec %s: timed out after %s", e.Command[0], timeout)
		}
		return fmt.Errorf("exec %s: %w: %s", e.Command[0], err, truncate(strings.TrimSpace(string(out)), maxOutputInError))
	}
	Logger(ctx).Debug("command finished", "command", e.Command[0], "duration", time.Since(start).String())
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
