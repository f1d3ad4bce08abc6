package fleet

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects an order before anything is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// UnknownRobotError indicates the fleet has no handler under that name.
type UnknownRobotError struct {
	Name string
}

func (e *UnknownRobotError) Error() string {
	return fmt.Sprintf("unknown robot %q", e.Name)
}

// NoFreeCellError means every cell of the robot is occupied and a PICKUP
// cannot be dispatched.
type NoFreeCellError struct {
	Robot string
}

func (e *NoFreeCellError) Error() string {
	return fmt.Sprintf("robot %s has no free cell for pickup", e.Robot)
}

// UnknownStartTagError means the robot has never reported a tag, so its
// position cannot be resolved to a start node.
type UnknownStartTagError struct {
	Robot string
}

func (e *UnknownStartTagError) Error() string {
	return fmt.Sprintf("robot %s has no known tag, cannot resolve start node", e.Robot)
}

// NoPathError means the oracle found no route between two nodes.
type NoPathError struct {
	From int
	To   int
}

func (e *NoPathError) Error() string {
	return fmt.Sprintf("no path from node %d to node %d", e.From, e.To)
}

// InconsistentStateError is returned when a request references a job that
// is missing from the store. It is surfaced, never auto-repaired.
type InconsistentStateError struct {
	RequestID uuid.UUID
	Message   string
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("request %s inconsistent: %s", e.RequestID, e.Message)
}
