package entity

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRequestNotFound is returned when no request exists for the given id
	ErrRequestNotFound = errors.New("approval request not found")

	// ErrVersionConflict is returned when an optimistic concurrency check fails
	ErrVersionConflict = errors.New("request version conflict")
)

// RequirementsNotMetError carries the machine-readable reasons a submit or
// resubmit was blocked. Recoverable: the requester fixes the items and retries.
type RequirementsNotMetError struct {
	Reasons []string
}

func (e *RequirementsNotMetError) Error() string {
	return fmt.Sprintf("requirements not met: %s", strings.Join(e.Reasons, "; "))
}

// InvalidTransitionError is returned when an operation is attempted from a
// state that does not permit it.
type InvalidTransitionError struct {
	RequestID string
	From      string
	Action    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s not permitted from %s (request %s)", e.Action, e.From, e.RequestID)
}

// ChannelNotAllowedError is returned when organization policy blocks a
// reminder channel. Recoverable by choosing another channel.
type ChannelNotAllowedError struct {
	Channel string
}

func (e *ChannelNotAllowedError) Error() string {
	return fmt.Sprintf("channel not allowed by organization policy: %s", e.Channel)
}
