package sandbox

// Package sandbox provides primitives for provisioning remote execution
// environments and running commands inside them.
//
// This file intentionally only defines the contract that higher-level code can
// depend on. Concrete backends live in the daytona and kube subpackages.

import (
	"context"
	"time"
)

// Language hints accepted by provisioning backends.
const (
	LanguageTypeScript = "typescript"
)

// State is the lifecycle state of a sandbox as reported by its backend.
type State string

const (
	StateCreating   State = "creating"
	StateReady      State = "ready"
	StateRunning    State = "running"
	StateDestroying State = "destroying"
	StateDestroyed  State = "destroyed"
	StateFailed     State = "failed"
)

// Sandbox represents one remote execution environment. The ID is assigned by
// the backend and is the only thing callers need to hold on to.
type Sandbox struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// CommandResult is the outcome of a blocking command execution.
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Output   string `json:"output"`
}

// SessionCommand identifies a command started asynchronously inside a named
// session. The backend assigns the CommandID; completion is not observed here.
type SessionCommand struct {
	CommandID string    `json:"command_id"`
	StartedAt time.Time `json:"started_at"`
}

// Client defines the operations a sandbox provisioning backend must provide.
type Client interface {
	// Create allocates a new sandbox for the given language hint.
	Create(ctx context.Context, language string) (*Sandbox, error)
	// Get returns the sandbox with the given id, or a NotFoundError.
	Get(ctx context.Context, id string) (*Sandbox, error)
	// Delete destroys the sandbox and releases its resources.
	Delete(ctx context.Context, sb *Sandbox) error
	// RunCommand executes a shell command inside the sandbox and blocks
	// until it completes.
	RunCommand(ctx context.Context, sb *Sandbox, command string) (*CommandResult, error)
	// OpenSession creates a named, persistent command-execution context.
	OpenSession(ctx context.Context, sb *Sandbox, name string) error
	// RunSessionCommand starts a command inside a named session without
	// waiting for it to complete.
	RunSessionCommand(ctx context.Context, sb *Sandbox, session string, command string) (*SessionCommand, error)
	// CloseSession terminates a named session and its processes. Closing a
	// session that does not exist is not an error.
	CloseSession(ctx context.Context, sb *Sandbox, name string) error
}
