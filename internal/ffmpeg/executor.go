package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stdout []byte
	Stderr string
	Err    error
}

// Execute runs args (args[0] is the binary). Stdout is captured for frame
// grabs. When tee is set, stderr is also copied to os.Stderr in real time;
// otherwise it is captured silently for retry classification.
func Execute(ctx context.Context, args []string, tee bool) ExecResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stdout, stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	if tee {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	return ExecResult{
		Stdout: stdout.Bytes(),
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// tail returns the last non-empty line of stderr for error messages.
func tail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
