//go:build windows

package action

import "os/exec"

// killProcessGroup is a no-op on Windows; WaitDelay still bounds the wait
// for pipes held by orphaned children.
func killProcessGroup(cmd *exec.Cmd) {}
