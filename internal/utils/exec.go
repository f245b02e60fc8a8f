package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandTimeout bounds every shell command; video encoding of a full batch stays well under it.
const CommandTimeout = 2 * time.Hour

// RunCommandContext runs command through `bash -lc` and returns combined stdout/stderr.
func RunCommandContext(ctx context.Context, command string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	Logf("run: %s", command)

	cmd := exec.CommandContext(ctx, "bash", "-lc", command)
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if Verbose && output.Len() > 0 {
			Logf("output (error):\n%s", strings.TrimRight(output.String(), "\n"))
		}
		return output.String(), fmt.Errorf("command failed: %w", err)
	}
	if Verbose && output.Len() > 0 {
		Logf("output:\n%s", strings.TrimRight(output.String(), "\n"))
	}
	return output.String(), nil
}
