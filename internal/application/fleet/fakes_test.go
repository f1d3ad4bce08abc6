package fleet

import (
	"sync"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"

	"github.com/andrescamacho/fleetgate/internal/adapters/routeoracle"
)

// fakeTransport is a controllable in-memory RobotTransport. Tests flip the
// online flag and settle goals by hand.
type fakeTransport struct {
	mu     sync.Mutex
	online bool
	goals  []domain.Goal
	cbs    []domain.GoalCallbacks
	err    error
	closed bool
}

func (t *fakeTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

func (t *fakeTransport) SendGoal(goal domain.Goal, cb domain.GoalCallbacks) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.goals = append(t.goals, goal)
	t.cbs = append(t.cbs, cb)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) sentGoals() []domain.Goal {
	t.mu.Lock()
	defer t.mu.Unlock()
	goals := make([]domain.Goal, len(t.goals))
	copy(goals, t.goals)
	return goals
}

// settleLast reports the terminal status for the most recent goal.
func (t *fakeTransport) settleLast(status domain.GoalStatus) {
	t.mu.Lock()
	cb := t.cbs[len(t.cbs)-1]
	t.mu.Unlock()
	cb.OnResult(status)
}

// testOracle builds a small fixture graph: tag "tag-1" sits on node 1, and
// node 1 reaches nodes 5 and 6.
func testOracle() *routeoracle.Memory {
	return routeoracle.NewMemory().
		AddNode(domain.Node{ID: 1, TagID: "tag-1", Type: domain.NodeWaypoint}).
		AddNode(domain.Node{ID: 3, Type: domain.NodeWaypoint}).
		AddNode(domain.Node{ID: 5, Alias: "shelf-a", Type: domain.NodeShelf}).
		AddNode(domain.Node{ID: 6, Alias: "conveyor-1", Type: domain.NodeConveyor}).
		AddPath(1, 5, []int{1, 3, 5}).
		AddPath(1, 6, []int{1, 3, 6}).
		AddPath(5, 6, []int{5, 3, 6})
}

// drainUpdates empties the buffered update channel into a slice.
func drainUpdates(ch chan domain.Job) []domain.Job {
	var jobs []domain.Job
	for {
		select {
		case job := <-ch:
			jobs = append(jobs, job)
		default:
			return jobs
		}
	}
}
