package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// Open hands target (a URL or a directory) to the platform's default opener.
//
// Supports macOS, Linux, and Windows platforms.
func Open(target string) error {
	if target == "" {
		return fmt.Errorf("%w: nothing to open", ErrMissingArgument)
	}

	var cmd *exec.Cmd
	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", target)
	case "linux":
		cmd = exec.Command("xdg-open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default:
		return fmt.Errorf("%w: unsupported platform: %s", ErrNotSupported, rt)
	}

	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}

	return nil
}
