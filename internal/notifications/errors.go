package notifications

import "errors"

// Service errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrDuplicateNotification is returned when an equal notification
	// (same subscriber, title and calendar day) already exists.
	ErrDuplicateNotification = errors.New("notification already exists today")
)
