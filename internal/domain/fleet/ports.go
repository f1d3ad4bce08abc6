package fleet

import (
	"context"

	"github.com/google/uuid"
)

// RouteOracle is the read-only graph service the orchestrator queries for
// node lookups and shortest paths. The variadic graph argument overrides the
// oracle's default graph; omitting it when the oracle has no default is a
// programming error and yields an error.
type RouteOracle interface {
	GetNodeByID(ctx context.Context, id int, graph ...int) (*Node, error)
	GetNodeByAlias(ctx context.Context, alias string, graph ...int) (*Node, error)
	GetNodeByTagID(ctx context.Context, tagID string, graph ...int) (*Node, error)
	GetNodesByIDs(ctx context.Context, ids []int, graph ...int) ([]Node, error)
	// GetShortestPathByID returns the node id sequence from start to end,
	// empty when no path exists.
	GetShortestPathByID(ctx context.Context, startID, endID int, graph ...int) ([]int, error)
	GetShortestPathByAlias(ctx context.Context, startAlias, endAlias string, graph ...int) ([]int, error)
}

// GoalStatus values follow the actionlib terminal codes reported by the
// warehouse command action server.
type GoalStatus int

const (
	GoalPending   GoalStatus = 0
	GoalActive    GoalStatus = 1
	GoalPreempted GoalStatus = 2 // canceled after it started
	GoalSucceeded GoalStatus = 3
	GoalAborted   GoalStatus = 4
	GoalRejected  GoalStatus = 5
	GoalRecalled  GoalStatus = 8 // canceled before it started
)

// Canceled reports whether the status is one of the two cancellation codes.
func (s GoalStatus) Canceled() bool {
	return s == GoalPreempted || s == GoalRecalled
}

// Goal is the warehouse command payload handed to the robot: the full path
// to drive, the operation to perform at its end, and the storage cell to
// use (CellUnused for TRAVEL and DELIVERY).
type Goal struct {
	Nodes     []Node
	Operation JobOperation
	RobotCell int
}

// GoalCallbacks are invoked from the transport's reader goroutine, not from
// the caller of SendGoal. Exactly one of OnResult or OnError fires per goal.
type GoalCallbacks struct {
	OnResult   func(status GoalStatus)
	OnFeedback func()
	OnError    func(err error)
}

// RobotTransport is the live command channel to one physical robot.
type RobotTransport interface {
	Connected() bool
	SendGoal(goal Goal, cb GoalCallbacks) error
	Close() error
}

// TelemetrySink receives the robot's streamed state. The transport adapter
// calls it from its reader goroutine.
type TelemetrySink interface {
	OnPose(p Pose)
	OnTag(t Tag)
	OnPiggyback(p PiggybackState)
	// OnConnection fires when the transport goes online or offline.
	OnConnection(online bool)
}

// OrderStore persists jobs and requests. Get methods return nil (not an
// error) when the record is absent; scans skip unparseable records.
type OrderStore interface {
	SetJob(ctx context.Context, job Job) error
	SetRequest(ctx context.Context, req Request) error
	GetJob(ctx context.Context, id uuid.UUID) (*Job, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)
	GetJobs(ctx context.Context) ([]Job, error)
	GetRequests(ctx context.Context) ([]Request, error)
	// GetRequestStatus derives the request's status from its two member
	// jobs; a missing member yields InconsistentStateError.
	GetRequestStatus(ctx context.Context, req Request) (OrderStatus, error)
}
