// Package exec runs external extraction tools.
package exec

import (
	"bytes"
	"context"
	"fmt"
	osexec "os/exec"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// maxStderr caps how much standard error is kept in error messages.
const maxStderr = 512

// Ensure Runner implements the interface.
var _ driven.CommandRunner = (*Runner)(nil)

// Runner executes commands with os/exec.
type Runner struct{}

// NewRunner creates a command runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes name and returns its standard output. The process is killed
// when ctx is done.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := osexec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[:maxStderr] + "..."
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Available reports whether name is on PATH.
func (r *Runner) Available(name string) bool {
	_, err := osexec.LookPath(name)
	return err == nil
}
