package directory

import "errors"

// Sentinel errors for directory operations.
var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrAgentExists   = errors.New("agent already registered")
	ErrEmptyAgentID  = errors.New("agent id is empty")
)
