//go:build darwin || linux

package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// RunCommand runs an external tool with a C locale and returns its combined
// output. The whole process group is killed when ctx ends or timeout passes.
func RunCommand(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	cmdContext, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdContext, name, args...)

	// Set process group and kill the entire process tree on cancel
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env, "LANG=C")

	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) == 0 {
			return nil, fmt.Errorf("%s: %v", name, err)
		}
		return output, fmt.Errorf("%s: %v: %s", name, err, bytes.TrimSpace(output))
	}
	return output, nil
}
