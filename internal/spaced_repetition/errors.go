package spaced_repetition

import "errors"

var (
	// ErrInvalidPolicy is returned when a schedule policy cannot be used.
	ErrInvalidPolicy = errors.New("spaced_repetition: invalid policy")
	// ErrInvariantViolation marks a stored track whose fields contradict each
	// other. It signals corrupted data and must not be repaired silently.
	ErrInvariantViolation = errors.New("spaced_repetition: track invariant violated")
)
