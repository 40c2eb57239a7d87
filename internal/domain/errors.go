package domain

import (
	"errors"
	"fmt"
)

// Domain errors returned by services and repository implementations.

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDefinitionNotFound indicates the specified task definition does not exist.
	ErrDefinitionNotFound = fmt.Errorf("definition %w", ErrNotFound)

	// ErrInstanceNotFound indicates the specified task instance does not exist.
	ErrInstanceNotFound = fmt.Errorf("instance %w", ErrNotFound)

	// ErrInvalidID indicates the provided ID format is invalid.
	ErrInvalidID = errors.New("invalid ID format")

	// ErrInvalidRule indicates a structurally malformed recurrence rule.
	ErrInvalidRule = errors.New("invalid recurrence rule")

	// ErrUnknownRuleType indicates a serialized rule carries no or an unsupported type tag.
	ErrUnknownRuleType = fmt.Errorf("%w: unknown rule type", ErrInvalidRule)

	// ErrWindowTooLarge indicates a generation window exceeds the configured bound.
	ErrWindowTooLarge = errors.New("generation window too large")

	// ErrInvalidWindow indicates a malformed generation window (unparseable or zero dates).
	ErrInvalidWindow = errors.New("invalid generation window")

	// ErrTitleRequired indicates an empty definition title.
	ErrTitleRequired = errors.New("title is required")

	// ErrTitleTooLong indicates a definition title over 255 characters.
	ErrTitleTooLong = errors.New("title must be at most 255 characters")

	// ErrInvalidInstanceStatus indicates an unsupported instance status value.
	ErrInvalidInstanceStatus = errors.New("invalid instance status")
)

// InvalidRuleError describes which field of which rule variant failed validation.
// It matches ErrInvalidRule with errors.Is.
type InvalidRuleError struct {
	Type   RuleType
	Field  string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s rule: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid %s rule: %s %s", e.Type, e.Field, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error {
	return ErrInvalidRule
}

func invalidRule(t RuleType, field, reason string) error {
	return &InvalidRuleError{Type: t, Field: field, Reason: reason}
}
