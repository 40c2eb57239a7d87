package domain

import "cloud.google.com/go/civil"

// ListDefinitionsParams contains filters for listing task definitions.
type ListDefinitionsParams struct {
	Category *string // Filter by exact category name (nil = all categories)
}

// ListInstancesParams contains parameters for listing instances with filtering.
//
// Common use cases:
//   - "This week's checklist": From=monday, To=sunday
//   - "Everything still open for a definition": DefinitionID=X, Status=pending
type ListInstancesParams struct {
	// Optional filters (nil = no filter applied)
	DefinitionID *string
	Status       *InstanceStatus
	From         *civil.Date // Inclusive
	To           *civil.Date // Inclusive

	// Limit caps the result size (0 = no limit). Results are ordered by date, then definition.
	Limit int
}
