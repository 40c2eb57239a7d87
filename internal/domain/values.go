package domain

// InstanceStatus represents the current state of a task instance.
// Value object - immutable string enum.
type InstanceStatus string

const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusSkipped   InstanceStatus = "skipped"
)
