package fleet

// Enum integer values in this file are frozen wire codes. They are shared
// with the robots' warehouse command action and with the order store, so
// they must never be renumbered.

// NodeType classifies a node in the warehouse path graph.
type NodeType int

const (
	NodeWaypoint NodeType = 0
	NodeConveyor NodeType = 1
	NodeShelf    NodeType = 2
	NodeCell     NodeType = 3
	NodeDepot    NodeType = 4
)

func (t NodeType) String() string {
	switch t {
	case NodeWaypoint:
		return "WAYPOINT"
	case NodeConveyor:
		return "CONVEYOR"
	case NodeShelf:
		return "SHELF"
	case NodeCell:
		return "CELL"
	case NodeDepot:
		return "DEPOT"
	default:
		return "UNKNOWN"
	}
}

// JobOperation is what the robot does once it reaches the job's target node.
type JobOperation int

const (
	OpTravel   JobOperation = 0
	OpPickup   JobOperation = 1
	OpDelivery JobOperation = 2
)

func (o JobOperation) String() string {
	switch o {
	case OpTravel:
		return "TRAVEL"
	case OpPickup:
		return "PICKUP"
	case OpDelivery:
		return "DELIVERY"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus is the lifecycle status of a job. A request's status is never
// stored; it is derived from its two member jobs.
type OrderStatus int

const (
	StatusQueuing    OrderStatus = 0
	StatusInProgress OrderStatus = 1
	StatusFailed     OrderStatus = 2
	StatusCanceled   OrderStatus = 3
	StatusCompleted  OrderStatus = 4
)

// IsTerminal reports whether no further transition is allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFailed || s == StatusCanceled || s == StatusCompleted
}

func (s OrderStatus) String() string {
	switch s {
	case StatusQueuing:
		return "QUEUING"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFailed:
		return "FAILED"
	case StatusCanceled:
		return "CANCELED"
	case StatusCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// RobotConnectionStatus is derived from transport health.
type RobotConnectionStatus int

const (
	ConnOffline RobotConnectionStatus = 0
	ConnOnline  RobotConnectionStatus = 1
)

func (s RobotConnectionStatus) String() string {
	if s == ConnOnline {
		return "ONLINE"
	}
	return "OFFLINE"
}

// RobotActionStatus is the robot handler's local action state machine.
type RobotActionStatus int

const (
	ActionIdle      RobotActionStatus = 0
	ActionOperating RobotActionStatus = 1
	ActionError     RobotActionStatus = 2
	ActionCanceled  RobotActionStatus = 3
	ActionSucceeded RobotActionStatus = 4
)

// Ready reports whether the handler may dispatch the next queued job.
// ERROR is sticky (only ClearError escapes it) and OPERATING means a goal
// is in flight.
func (s RobotActionStatus) Ready() bool {
	return s == ActionIdle || s == ActionCanceled || s == ActionSucceeded
}

func (s RobotActionStatus) String() string {
	switch s {
	case ActionIdle:
		return "IDLE"
	case ActionOperating:
		return "OPERATING"
	case ActionError:
		return "ERROR"
	case ActionCanceled:
		return "CANCELED"
	case ActionSucceeded:
		return "SUCCEEDED"
	default:
		return "UNKNOWN"
	}
}
