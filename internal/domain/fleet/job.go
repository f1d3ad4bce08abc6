package fleet

import "github.com/google/uuid"

// Job is an atomic robot task: move to the target node and optionally pick
// up or deliver there. Once created, only its status changes, and only
// through the handling robot's handler.
type Job struct {
	ID        uuid.UUID    `json:"uuid"`
	Status    OrderStatus  `json:"status"`
	Operation JobOperation `json:"operation"`
	TargetNode Node        `json:"target_node"`
	// RequestID links the job to its owning pickup+delivery request,
	// nil for standalone job orders.
	RequestID *uuid.UUID `json:"request_uuid,omitempty"`
	Robot     string     `json:"handling_robot"`
}

// Request is a pickup-and-delivery pair bound to one robot. Its status is
// always derived from the two member jobs, never stored.
type Request struct {
	ID         uuid.UUID `json:"uuid"`
	PickupID   uuid.UUID `json:"pickup"`
	DeliveryID uuid.UUID `json:"delivery"`
	Robot      string    `json:"handling_robot"`
}
