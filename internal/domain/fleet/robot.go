package fleet

import (
	"time"

	"github.com/google/uuid"
)

// CellUnused is the wire sentinel for "no cell involved" in a warehouse
// command goal (TRAVEL and DELIVERY operations).
const CellUnused = -1

// RobotCell is a vertical storage slot on a robot. A cell holds at most one
// item at a time; Holding is the id of the PICKUP job that occupied it.
type RobotCell struct {
	Height  float64    `json:"height"`
	Holding *uuid.UUID `json:"holding,omitempty"`
}

// Occupied reports whether the cell currently holds an item.
func (c RobotCell) Occupied() bool { return c.Holding != nil }

// Pose is the mobile base position and heading, timestamped at receipt.
type Pose struct {
	At    time.Time `json:"at"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Theta float64   `json:"theta"`
}

// Tag is the fiducial marker the robot last drove over. The robot knows
// "I am at the node carrying tag X"; the oracle resolves the tag to a node.
type Tag struct {
	At time.Time `json:"at"`
	ID string    `json:"id"`
}

// PiggybackState mirrors the joint positions of the piggyback manipulator.
type PiggybackState struct {
	At        time.Time `json:"at"`
	Lift      float64   `json:"lift"`
	Turntable float64   `json:"turntable"`
	Slide     float64   `json:"slide"`
	HookLeft  float64   `json:"hook_left"`
	HookRight float64   `json:"hook_right"`
}

// RobotSnapshot is a read-only view of one robot's operational state,
// produced for the query layer. Mutating a snapshot has no effect on the
// handler that produced it.
type RobotSnapshot struct {
	Name             string                `json:"name"`
	Active           bool                  `json:"active"`
	ConnectionStatus RobotConnectionStatus `json:"connection_status"`
	ActionStatus     RobotActionStatus     `json:"action_status"`
	Pose             *Pose                 `json:"pose,omitempty"`
	Tag              *Tag                  `json:"tag,omitempty"`
	Piggyback        *PiggybackState       `json:"piggyback,omitempty"`
	Cells            []RobotCell           `json:"cells"`
	CurrentJob       *Job                  `json:"current_job,omitempty"`
	Queue            []Job                 `json:"queue"`
}
