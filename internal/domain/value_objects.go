package domain

import (
	"fmt"
	"strings"
)

// Title is a validated title value object (1-255 characters).
type Title struct {
	value string
}

// NewTitle creates a new Title, validating the input.
func NewTitle(s string) (Title, error) {
	s = strings.TrimSpace(s)

	if s == "" {
		return Title{}, ErrTitleRequired
	}

	if len(s) > 255 {
		return Title{}, ErrTitleTooLong
	}

	return Title{value: s}, nil
}

// String returns the title value.
func (t Title) String() string {
	return t.value
}

// NewInstanceStatus validates and creates an InstanceStatus.
func NewInstanceStatus(s string) (InstanceStatus, error) {
	status := InstanceStatus(strings.ToLower(strings.TrimSpace(s)))

	switch status {
	case InstanceStatusPending, InstanceStatusCompleted, InstanceStatusSkipped:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidInstanceStatus, s)
	}
}

// NewRuleType validates and creates a RuleType.
func NewRuleType(s string) (RuleType, error) {
	for _, t := range RuleTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRuleType, s)
}
