// Package common defines sentinel errors shared by the tracker layers.
// Callers should use errors.Is to match these values; producers wrap them
// with fmt.Errorf("%w: ...") to add context.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound    = errors.New("not found")
	ErrStorage     = errors.New("storage error")
	ErrLockTimeout = errors.New("lock timeout")

	// Input errors. Recovered locally by prompting the user again.
	ErrValidation = errors.New("validation error")

	// Attachment errors. Reconciliation degrades instead of failing on these.
	ErrAttachmentWrite = errors.New("attachment write failed")
)
