package sandbox

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a sandbox with a given id does not exist.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("sandbox %s not found", e.ID)
}

// IsNotFound reports whether err indicates a missing sandbox.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
