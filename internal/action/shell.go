package action

import (
	"context"
	"fmt"
	"os/exec"
)

// ShellPerformer performs requests using os/exec.
type ShellPerformer struct{}

// NewShellPerformer creates a ShellPerformer.
func NewShellPerformer() *ShellPerformer {
	return &ShellPerformer{}
}

// Perform runs the request and captures combined stdout/stderr.
func (p *ShellPerformer) Perform(ctx context.Context, req Request) (*Result, error) {
	if req.Command == "" {
		return nil, fmt.Errorf("empty command")
	}

	var cmd *exec.Cmd
	switch req.Kind {
	case KindCommand:
		cmd = exec.CommandContext(ctx, req.Command, req.Args...)
	case KindShell:
		cmd = exec.CommandContext(ctx, "sh", "-c", req.Command)
	default:
		return nil, fmt.Errorf("unknown action kind %q", req.Kind)
	}
	if req.WorkDir != "" {
		cmd.Dir = req.WorkDir
	}

	out, err := cmd.CombinedOutput()
	result := &Result{
		Success: err == nil,
		Output:  string(out),
	}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// Verify ShellPerformer implements Performer at compile time.
var _ Performer = (*ShellPerformer)(nil)
