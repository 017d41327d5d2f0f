package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("onboarding: not found")
	ErrForbidden    = errors.New("onboarding: forbidden")
	ErrInvalidState = errors.New("onboarding: invalid state")
	// ErrAlreadyExists surfaces a uniqueness violation, e.g. a second
	// ACTIVE session for the same hotel/user pair losing a create race.
	ErrAlreadyExists = errors.New("onboarding: already exists")
)

// ValidationError is returned from strict-mode step updates when the
// payload fails business rules. Warnings alone never produce one.
type ValidationError struct {
	StepID string
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("onboarding: step %q failed validation: %s",
		e.StepID, strings.Join(e.Result.Errors, "; "))
}

// IntegrationError wraps any failure inside the commit/migration
// transaction. The transaction has already been rolled back; prior
// state is intact and the operation is safe to retry.
type IntegrationError struct {
	Op    string // "commit" | "migrate"
	Cause error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("onboarding: %s failed: %v", e.Op, e.Cause)
}

func (e *IntegrationError) Unwrap() error { return e.Cause }

// ValidationResult is the structured outcome of a step validator.
// Validators never return Go errors for rule violations.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
