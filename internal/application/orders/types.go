package orders

import (
	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// NodeRef addresses a node by id or by human alias. Exactly one side
// should be set; id wins when both are.
type NodeRef struct {
	ID    *int    `json:"id,omitempty"`
	Alias *string `json:"alias,omitempty"`
}

// IsZero reports whether the ref addresses nothing.
func (r NodeRef) IsZero() bool { return r.ID == nil && r.Alias == nil }

// JobOrder is a single-job order for one robot.
type JobOrder struct {
	Robot     string              `json:"robot_name"`
	Operation domain.JobOperation `json:"operation"`
	Target    NodeRef             `json:"target"`
}

// RequestOrder is a pickup+delivery pair bound to one robot.
type RequestOrder struct {
	Robot    string  `json:"robot_name"`
	Pickup   NodeRef `json:"pickup"`
	Delivery NodeRef `json:"delivery"`
}

// WarehouseRequest is one pickup+delivery pair inside a warehouse order.
type WarehouseRequest struct {
	Pickup   NodeRef `json:"pickup"`
	Delivery NodeRef `json:"delivery"`
}

// Assignment gives one robot an ordered route of nodes to serve.
type Assignment struct {
	Robot string    `json:"robot_name"`
	Route []NodeRef `json:"route"`
}

// WarehouseOrder routes multiple requests across multiple robots.
type WarehouseOrder struct {
	Requests    []WarehouseRequest `json:"requests"`
	Assignments []Assignment       `json:"assignments"`
}

// JobOrderResult reports admission of a job order.
type JobOrderResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Job     *domain.Job `json:"job,omitempty"`
}

// RequestOrderResult reports admission of a request order.
type RequestOrderResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Request *domain.Request `json:"request,omitempty"`
}

// WarehouseOrderResult reports admission of a warehouse order.
type WarehouseOrderResult struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Requests []domain.Request `json:"requests,omitempty"`
}

// Fleet is the slice of the fleet handler the controller needs.
type Fleet interface {
	HasRobot(name string) bool
	AssignJob(name string, job domain.Job)
	GetCurrentJob(name string) *domain.Job
	RemoveQueuedJob(name string, id uuid.UUID) bool
}
