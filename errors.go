package impact

import "errors"

var (
	// ErrWorldLocked is returned by mutations attempted during Step, for
	// example from a pre-solve hook.
	ErrWorldLocked     = errors.New("world is locked")
	ErrBodyNotFound    = errors.New("body not found")
	ErrFixtureNotFound = errors.New("fixture not found")
	ErrInvalidConfig   = errors.New("invalid config")
)
