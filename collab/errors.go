package collab

import "errors"

// Sentinel errors for coordinator operations.
var (
	ErrInsufficientAgents    = errors.New("insufficient capable agents")
	ErrCollaborationNotFound = errors.New("collaboration not found")
)
