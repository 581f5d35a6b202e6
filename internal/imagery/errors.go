package imagery

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDateRange  = errors.New("end date must be after start date")
	ErrInvalidCloudCover = errors.New("cloud cover threshold must be within 0-100")
	ErrMissingRegion     = errors.New("query has no region")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrImageNotFound     = errors.New("image not found")
)

// RemoteQueryError is returned when a collection cannot be resolved.
type RemoteQueryError struct {
	Collection string
	Err        error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("query %s: %v", e.Collection, e.Err)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Err
}

// RemoteComputeError is returned when a reduction or a rendering fails on the remote side.
// Transient failures (throttling, timeouts, server errors) are worth retrying.
type RemoteComputeError struct {
	Op        string
	Image     string
	Transient bool
	Err       error
}

func (e *RemoteComputeError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Image == "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, kind, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Image, kind, e.Err)
}

func (e *RemoteComputeError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err carries a transient RemoteComputeError.
func IsTransient(err error) bool {
	var ce *RemoteComputeError
	return errors.As(err, &ce) && ce.Transient
}
