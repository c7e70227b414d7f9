package domain

import "errors"

var (
	ErrMissingSender        = errors.New("event sender is required")
	ErrNoRecipients         = errors.New("event has no recipients")
	ErrNotificationNotFound = errors.New("notification not found")
)
