package model

import (
	"errors"
	"fmt"
)

// Error taxonomy. Specific errors wrap one of the base kinds so callers can
// match either the exact condition or the broad category with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrExternalService = errors.New("external service failure")
)

var (
	// ErrExamNotYetOpen is returned when a taker reaches an exam before its
	// open-at time.
	ErrExamNotYetOpen = fmt.Errorf("exam is not open yet: %w", ErrAccessDenied)

	// ErrDuplicateSubmission is returned on a second submit for the same
	// (exam, taker) pair.
	ErrDuplicateSubmission = fmt.Errorf("submission already exists for this exam: %w", ErrAlreadyExists)

	// ErrInvalidMarks is returned when an evaluation carries non-numeric or
	// out-of-range awarded marks. The wrapping error names the question.
	ErrInvalidMarks = fmt.Errorf("invalid awarded marks: %w", ErrInvalidInput)

	// ErrScoringUnavailable is returned when the scoring oracle fails; the
	// submission stays unevaluated and the manual path remains usable.
	ErrScoringUnavailable = fmt.Errorf("scoring oracle unavailable: %w", ErrExternalService)
)
