package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyUpdateMask indicates an update request with nothing to update.
	ErrEmptyUpdateMask = errors.New("update mask must not be empty")

	// ErrUnknownField indicates an update mask naming an unsupported field.
	ErrUnknownField = errors.New("unknown field in update mask")

	// ErrStatusRequired indicates a status update without a status value.
	ErrStatusRequired = errors.New("status is required")
)

// Valid fields for UpdateInstanceParams.
var updateInstanceValidFields = map[string]struct{}{
	FieldInstanceStatus: {},
	FieldInstanceNotes:  {},
}

// Validate checks that UpdateMask contains only known fields and that
// required fields have non-nil values when included in the mask.
func (p UpdateInstanceParams) Validate() error {
	if len(p.UpdateMask) == 0 {
		return ErrEmptyUpdateMask
	}

	maskSet := make(map[string]bool, len(p.UpdateMask))

	// Check for unknown fields
	for _, field := range p.UpdateMask {
		if _, ok := updateInstanceValidFields[field]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		maskSet[field] = true
	}

	if maskSet[FieldInstanceStatus] {
		if p.Status == nil {
			return ErrStatusRequired
		}
		if _, err := NewInstanceStatus(string(*p.Status)); err != nil {
			return err
		}
	}

	return nil
}
