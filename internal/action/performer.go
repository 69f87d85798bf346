// Package action defines the boundary to concrete action executors.
// The orchestration core treats execution as opaque: it hands over a
// request and gets back success, output, and an error message.
package action

import (
	"context"
)

// Kind selects how a request is executed.
type Kind string

const (
	// KindCommand runs a program with arguments.
	KindCommand Kind = "command"
	// KindShell runs a snippet through "sh -c".
	KindShell Kind = "shell"
)

// Request describes one action to perform.
type Request struct {
	// Kind selects the execution mechanism.
	Kind Kind
	// Command is the program for KindCommand or the snippet for KindShell.
	Command string
	// Args are passed to the program for KindCommand.
	Args []string
	// WorkDir sets the working directory when non-empty.
	WorkDir string
}

// Result is the outcome of a performed action.
type Result struct {
	// Success reports whether the action ran without error.
	Success bool
	// Output is the combined stdout/stderr of the action.
	Output string
	// Error holds the failure message when Success is false.
	Error string
}

// Performer executes action requests.
// This abstraction allows faking action execution in tests.
type Performer interface {
	// Perform executes one request. The returned error covers only
	// malformed requests; action failures are reported in the Result.
	Perform(ctx context.Context, req Request) (*Result, error)
}
