//go:build windows

package oracle

import (
	"os/exec"
	"time"
)

// configureProcAttr only bounds the wait on Windows; process groups are
// not signalled.
func configureProcAttr(cmd *exec.Cmd, grace time.Duration) {
	cmd.WaitDelay = grace
}
