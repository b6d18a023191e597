// Package errs holds the domain error sentinels returned by services.
// Handlers map them to HTTP codes; services never wrap them away.
package errs

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrProjectNotFound   = errors.New("project not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrMessageNotFound   = errors.New("chat message not found")
	ErrContactNotFound   = errors.New("contact not found")

	ErrEmptyContent  = errors.New("message content is empty")
	ErrInvalidStatus = errors.New("invalid status value")

	ErrSessionClosed     = errors.New("chat session already closed")
	ErrInvalidTransition = errors.New("illegal status transition")

	ErrForbidden = errors.New("caller does not own this record")
)
