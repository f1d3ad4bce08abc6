package fleet

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

func newTestHandler(t *testing.T, transport *fakeTransport, opts Options) (*RobotHandler, chan domain.Job) {
	t.Helper()
	updates := make(chan domain.Job, 64)
	factory := func(spec RobotSpec, sink domain.TelemetrySink) domain.RobotTransport {
		return transport
	}
	h := NewRobotHandler(RobotSpec{
		Name:        "carrier-1",
		Host:        "localhost",
		Port:        9090,
		CellHeights: []float64{0.2, 0.6},
	}, factory, testOracle(), updates, opts)
	h.OnTag(domain.Tag{ID: "tag-1"})
	return h, updates
}

func pickupJob(target int) domain.Job {
	requestID := uuid.New()
	return domain.Job{
		ID:         uuid.New(),
		Status:     domain.StatusQueuing,
		Operation:  domain.OpPickup,
		TargetNode: domain.Node{ID: target, Type: domain.NodeShelf},
		RequestID:  &requestID,
		Robot:      "carrier-1",
	}
}

func TestRobotHandlerDispatchesPickup(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})
	job := pickupJob(5)

	// Act
	h.Assign(job)

	// Assert
	goals := transport.sentGoals()
	require.Len(t, goals, 1)
	assert.Equal(t, domain.OpPickup, goals[0].Operation)
	assert.Equal(t, 0, goals[0].RobotCell, "first free cell by index")
	require.Len(t, goals[0].Nodes, 3, "full path, start node included")
	assert.Equal(t, 1, goals[0].Nodes[0].ID)
	assert.Equal(t, 5, goals[0].Nodes[2].ID)

	current := h.CurrentJob()
	require.NotNil(t, current)
	assert.Equal(t, domain.StatusInProgress, current.Status)

	published := drainUpdates(updates)
	require.Len(t, published, 1)
	assert.Equal(t, domain.StatusInProgress, published[0].Status)
}

func TestRobotHandlerPickupCompletionOccupiesCell(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})
	job := pickupJob(5)
	h.Assign(job)
	drainUpdates(updates)

	// Act
	transport.settleLast(domain.GoalSucceeded)

	// Assert
	cells := h.Cells()
	require.NotNil(t, cells[0].Holding)
	assert.Equal(t, job.ID, *cells[0].Holding)
	assert.Nil(t, h.CurrentJob())

	published := drainUpdates(updates)
	require.Len(t, published, 1)
	assert.Equal(t, domain.StatusCompleted, published[0].Status)
	assert.Equal(t, domain.ActionSucceeded, h.Snapshot().ActionStatus)
}

func TestRobotHandlerNoFreeCellFailsJob(t *testing.T) {
	// Arrange: occupy both cells with completed pickups.
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})
	for i := 0; i < 2; i++ {
		h.Assign(pickupJob(5))
		transport.settleLast(domain.GoalSucceeded)
	}
	drainUpdates(updates)

	// Act
	h.Assign(pickupJob(5))

	// Assert: the third pickup fails terminally and the robot sticks in ERROR.
	published := drainUpdates(updates)
	require.Len(t, published, 1)
	assert.Equal(t, domain.StatusFailed, published[0].Status)
	assert.Equal(t, domain.ActionError, h.Snapshot().ActionStatus)
	assert.Len(t, transport.sentGoals(), 2, "no goal sent for the failed pickup")
}

func TestRobotHandlerErrorIsStickyUntilCleared(t *testing.T) {
	// Arrange: a handler stuck in ERROR with a queued job behind it.
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})
	h.Assign(pickupJob(5))
	transport.settleLast(domain.GoalAborted)
	h.Assign(pickupJob(5))
	drainUpdates(updates)
	require.Len(t, transport.sentGoals(), 1)

	// Act + Assert: Trigger does not escape ERROR, ClearError does.
	h.Trigger()
	assert.Len(t, transport.sentGoals(), 1)

	assert.True(t, h.ClearError())
	assert.False(t, h.ClearError(), "second clear is a no-op")
	assert.Len(t, transport.sentGoals(), 2, "queued job dispatched after recovery")
}

func TestRobotHandlerFIFOAcrossReconnect(t *testing.T) {
	// Arrange: three jobs queued while the robot is offline.
	transport := &fakeTransport{online: false}
	h, _ := newTestHandler(t, transport, Options{})
	first := pickupJob(5)
	h.Assign(first)
	h.Assign(pickupJob(6))
	h.Assign(pickupJob(5))
	require.Empty(t, transport.sentGoals())
	assert.Len(t, h.Queue(), 3)

	// Act: the transport comes back.
	transport.mu.Lock()
	transport.online = true
	transport.mu.Unlock()
	h.OnConnection(true)

	// Assert: exactly the queue head dispatches.
	goals := transport.sentGoals()
	require.Len(t, goals, 1)
	current := h.CurrentJob()
	require.NotNil(t, current)
	assert.Equal(t, first.ID, current.ID)
	assert.Len(t, h.Queue(), 2)
}

func TestRobotHandlerCanceledGoalDoesNotBlockQueue(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})
	h.Assign(pickupJob(5))
	h.Assign(pickupJob(6))
	drainUpdates(updates)

	// Act: the action server preempts the running goal.
	transport.settleLast(domain.GoalPreempted)

	// Assert: the job is CANCELED and the next one dispatches immediately.
	published := drainUpdates(updates)
	require.Len(t, published, 2)
	assert.Equal(t, domain.StatusCanceled, published[0].Status)
	assert.Equal(t, domain.StatusInProgress, published[1].Status)
	assert.Len(t, transport.sentGoals(), 2)
}

func TestRobotHandlerUnknownStartTag(t *testing.T) {
	// Arrange: a handler that has never seen a tag.
	transport := &fakeTransport{online: true}
	updates := make(chan domain.Job, 64)
	factory := func(spec RobotSpec, sink domain.TelemetrySink) domain.RobotTransport {
		return transport
	}
	h := NewRobotHandler(RobotSpec{Name: "carrier-1", CellHeights: []float64{0.2}},
		factory, testOracle(), updates, Options{})

	// Act
	h.Assign(pickupJob(5))

	// Assert
	published := drainUpdates(updates)
	require.Len(t, published, 1)
	assert.Equal(t, domain.StatusFailed, published[0].Status)
	assert.Equal(t, domain.ActionError, h.Snapshot().ActionStatus)
}

func TestRobotHandlerNoPathFailsJob(t *testing.T) {
	// Arrange: target node 99 is not reachable in the fixture graph.
	transport := &fakeTransport{online: true}
	h, updates := newTestHandler(t, transport, Options{})

	// Act
	job := pickupJob(5)
	job.TargetNode = domain.Node{ID: 99, Type: domain.NodeShelf}
	h.Assign(job)

	// Assert
	published := drainUpdates(updates)
	require.Len(t, published, 1)
	assert.Equal(t, domain.StatusFailed, published[0].Status)
}

func TestRobotHandlerSetActiveGatesDispatch(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, _ := newTestHandler(t, transport, Options{})
	h.SetActive(false)

	// Act
	h.Assign(pickupJob(5))
	require.Empty(t, transport.sentGoals())

	h.SetActive(true)

	// Assert
	assert.Len(t, transport.sentGoals(), 1)
}

func TestRobotHandlerRemoveQueuedJobSkipsCurrent(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, _ := newTestHandler(t, transport, Options{})
	current := pickupJob(5)
	queued := pickupJob(6)
	h.Assign(current)
	h.Assign(queued)

	// Act + Assert
	assert.False(t, h.RemoveQueuedJob(current.ID), "executing job is out of reach")
	assert.True(t, h.RemoveQueuedJob(queued.ID))
	assert.False(t, h.RemoveQueuedJob(queued.ID), "already removed")
	assert.Empty(t, h.Queue())
}

func TestRobotHandlerFreeCell(t *testing.T) {
	// Arrange: one occupied cell.
	transport := &fakeTransport{online: true}
	h, _ := newTestHandler(t, transport, Options{})
	h.Assign(pickupJob(5))
	transport.settleLast(domain.GoalSucceeded)
	require.NotNil(t, h.Cells()[0].Holding)

	// Act + Assert
	assert.False(t, h.FreeCell(-1))
	assert.False(t, h.FreeCell(2))
	assert.True(t, h.FreeCell(0))
	assert.Nil(t, h.Cells()[0].Holding)
}

func TestRobotHandlerAutoFreeOnDelivery(t *testing.T) {
	// Arrange: pickup and delivery bound by one request, auto-free enabled.
	transport := &fakeTransport{online: true}
	h, _ := newTestHandler(t, transport, Options{AutoFreeOnDelivery: true})

	requestID := uuid.New()
	pickup := domain.Job{
		ID: uuid.New(), Operation: domain.OpPickup,
		TargetNode: domain.Node{ID: 5}, RequestID: &requestID, Robot: "carrier-1",
	}
	delivery := domain.Job{
		ID: uuid.New(), Operation: domain.OpDelivery,
		TargetNode: domain.Node{ID: 6}, RequestID: &requestID, Robot: "carrier-1",
	}

	// Act
	h.Assign(pickup)
	transport.settleLast(domain.GoalSucceeded)
	require.NotNil(t, h.Cells()[0].Holding)

	h.Assign(delivery)
	goals := transport.sentGoals()
	require.Len(t, goals, 2)
	assert.Equal(t, domain.CellUnused, goals[1].RobotCell)
	transport.settleLast(domain.GoalSucceeded)

	// Assert
	assert.Nil(t, h.Cells()[0].Holding, "cell released when the delivery completed")
}

func TestRobotHandlerSnapshotIsACopy(t *testing.T) {
	// Arrange
	transport := &fakeTransport{online: true}
	h, _ := newTestHandler(t, transport, Options{})
	h.OnPose(domain.Pose{X: 1.5, Y: -2.0})

	// Act
	snap := h.Snapshot()
	snap.Cells[0].Holding = &uuid.UUID{}
	snap.Name = "mutated"

	// Assert
	assert.Nil(t, h.Cells()[0].Holding)
	assert.Equal(t, "carrier-1", h.Snapshot().Name)
	assert.Equal(t, domain.ConnOnline, h.Snapshot().ConnectionStatus)
	require.NotNil(t, h.Snapshot().Pose)
	assert.Equal(t, 1.5, h.Snapshot().Pose.X)
}
