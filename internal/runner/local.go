package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Local runs command through sh in dir, capturing stdout and stderr in one
// stream the way a CI log shows them.
func Local(ctx context.Context, dir, command string) (*Result, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return &Result{Output: out.String()}, nil
	case errors.As(err, &exitErr):
		return &Result{Output: out.String(), ExitCode: exitErr.ExitCode()}, nil
	default:
		return nil, fmt.Errorf("run %q: %w", command, err)
	}
}
