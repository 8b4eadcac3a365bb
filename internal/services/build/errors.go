package build

import "fmt"

// AllocationError means no sandbox was created; the request is safe to retry.
type AllocationError struct {
	Err error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate sandbox: %v", e.Err)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

// BootstrapError means a sandbox exists but setting it up failed. The sandbox
// is intentionally left running so the failure can be inspected; the reaper
// collects it later.
type BootstrapError struct {
	Step   string
	Output string
	Err    error
}

func (e *BootstrapError) Error() string {
	if e.Output != "" {
		return e.Output
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s failed", e.Step)
}

func (e *BootstrapError) Unwrap() error {
	return e.Err
}
