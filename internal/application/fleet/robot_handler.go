package fleet

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// RobotSpec is the typed configuration for one robot.
type RobotSpec struct {
	Name        string
	Host        string
	Port        int
	CellHeights []float64
}

// TransportFactory builds the command channel for one robot. The handler is
// handed to the transport as its telemetry sink.
type TransportFactory func(spec RobotSpec, sink domain.TelemetrySink) domain.RobotTransport

// Options tune handler behavior shared across the fleet.
type Options struct {
	// AutoFreeOnDelivery releases the request's cell when its DELIVERY
	// completes. Off by default: cells are freed by explicit operator
	// action only.
	AutoFreeOnDelivery bool
	Metrics            Recorder
}

// RobotHandler owns one robot: its transport, its FIFO job queue, its cells
// and its action state machine. All mutable state is guarded by mu; it is
// written both from API calls and from transport callbacks, which arrive on
// the transport's reader goroutine.
type RobotHandler struct {
	name     string
	oracle   domain.RouteOracle
	updates  chan<- domain.Job
	metrics  Recorder
	autoFree bool

	transport domain.RobotTransport

	mu           sync.Mutex
	active       bool
	actionStatus domain.RobotActionStatus
	cells        []domain.RobotCell
	currentJob   *domain.Job
	currentCell  int
	queue        []domain.Job
	// requestCell remembers which cell a request's pickup landed in, so a
	// later delivery can release it in auto-free mode.
	requestCell map[uuid.UUID]int

	pose      *domain.Pose
	tag       *domain.Tag
	piggyback *domain.PiggybackState
}

// NewRobotHandler builds the handler and its transport. The updates channel
// is the shared status-update channel drained by the warehouse controller;
// sends block when it is full, updates are never dropped.
func NewRobotHandler(spec RobotSpec, factory TransportFactory, oracle domain.RouteOracle, updates chan<- domain.Job, opts Options) *RobotHandler {
	cells := make([]domain.RobotCell, len(spec.CellHeights))
	for i, height := range spec.CellHeights {
		cells[i] = domain.RobotCell{Height: height}
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = NoopRecorder{}
	}

	h := &RobotHandler{
		name:         spec.Name,
		oracle:       oracle,
		updates:      updates,
		metrics:      metrics,
		autoFree:     opts.AutoFreeOnDelivery,
		active:       true,
		actionStatus: domain.ActionIdle,
		cells:        cells,
		currentCell:  domain.CellUnused,
		requestCell:  make(map[uuid.UUID]int),
	}
	h.transport = factory(spec, h)
	return h
}

// Name returns the robot's configured name.
func (h *RobotHandler) Name() string { return h.name }

// Assign appends the job to the queue and attempts a dispatch.
func (h *RobotHandler) Assign(job domain.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queue = append(h.queue, job)
	h.metrics.SetQueueDepth(h.name, len(h.queue))
	h.triggerLocked()
}

// Trigger promotes the queue head to current job when the robot is ready.
// It is idempotent: when any precondition fails it has no effect.
func (h *RobotHandler) Trigger() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.triggerLocked()
}

func (h *RobotHandler) triggerLocked() {
	if !h.active ||
		!h.transport.Connected() ||
		h.currentJob != nil ||
		len(h.queue) == 0 ||
		!h.actionStatus.Ready() {
		return
	}

	job := h.queue[0]
	h.queue = h.queue[1:]
	h.metrics.SetQueueDepth(h.name, len(h.queue))
	h.currentJob = &job

	if job.Operation == domain.OpPickup {
		idx, ok := h.freeCellLocked()
		if !ok {
			h.failCurrentLocked(&domain.NoFreeCellError{Robot: h.name})
			return
		}
		h.currentCell = idx
	} else {
		h.currentCell = domain.CellUnused
	}

	if err := h.sendJobLocked(); err != nil {
		h.failCurrentLocked(err)
	}
}

// freeCellLocked walks the cells in index order and returns the first free one.
func (h *RobotHandler) freeCellLocked() (int, bool) {
	for i, cell := range h.cells {
		if !cell.Occupied() {
			return i, true
		}
	}
	return 0, false
}

// sendJobLocked resolves the path for the current job and hands the goal to
// the transport. On success the robot is OPERATING and the job IN_PROGRESS.
func (h *RobotHandler) sendJobLocked() error {
	job := h.currentJob
	ctx := context.Background()

	if h.tag == nil {
		return &domain.UnknownStartTagError{Robot: h.name}
	}
	start, err := h.oracle.GetNodeByTagID(ctx, h.tag.ID)
	if err != nil {
		return err
	}
	if start == nil {
		return &domain.UnknownStartTagError{Robot: h.name}
	}

	pathIDs, err := h.oracle.GetShortestPathByID(ctx, start.ID, job.TargetNode.ID)
	if err != nil {
		return err
	}
	if len(pathIDs) == 0 {
		return &domain.NoPathError{From: start.ID, To: job.TargetNode.ID}
	}
	nodes, err := h.oracle.GetNodesByIDs(ctx, pathIDs)
	if err != nil {
		return err
	}

	goal := domain.Goal{
		Nodes:     nodes,
		Operation: job.Operation,
		RobotCell: h.currentCell,
	}
	err = h.transport.SendGoal(goal, domain.GoalCallbacks{
		OnResult:   h.onGoalResult,
		OnFeedback: func() {},
		OnError:    h.onGoalError,
	})
	if err != nil {
		return err
	}

	h.actionStatus = domain.ActionOperating
	job.Status = domain.StatusInProgress
	h.publishLocked(*job)
	h.metrics.RecordDispatch(h.name, job.Operation)
	slog.Info("job dispatched",
		"robot", h.name,
		"job", job.ID,
		"operation", job.Operation.String(),
		"target", job.TargetNode.ID,
		"cell", h.currentCell)
	return nil
}

// failCurrentLocked is the synchronous dispatch failure path: the robot goes
// to ERROR, the job fails terminally, and the current slot is cleared. The
// queue keeps accumulating but does not drain until ClearError.
func (h *RobotHandler) failCurrentLocked(cause error) {
	job := h.currentJob
	h.actionStatus = domain.ActionError
	job.Status = domain.StatusFailed
	h.publishLocked(*job)
	h.metrics.RecordTerminal(h.name, job.Operation, job.Status)
	h.currentCell = domain.CellUnused
	h.currentJob = nil
	slog.Error("job dispatch failed", "robot", h.name, "job", job.ID, "error", cause)
}

func (h *RobotHandler) onGoalResult(status domain.GoalStatus) {
	switch {
	case status == domain.GoalSucceeded:
		h.finish(domain.ActionSucceeded, domain.StatusCompleted)
	case status.Canceled():
		h.finish(domain.ActionCanceled, domain.StatusCanceled)
	default:
		h.finish(domain.ActionError, domain.StatusFailed)
	}
}

func (h *RobotHandler) onGoalError(err error) {
	slog.Error("transport fault during goal", "robot", h.name, "error", err)
	h.finish(domain.ActionError, domain.StatusFailed)
}

// finish applies a terminal transport outcome to the current job: record the
// cell holding on completed pickups, clear the current slot, publish the
// terminal status, and try the next queued job.
func (h *RobotHandler) finish(action domain.RobotActionStatus, status domain.OrderStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	job := h.currentJob
	if job == nil {
		// Late transport callback after a synchronous failure already
		// cleared the slot.
		return
	}

	h.actionStatus = action
	job.Status = status

	if status == domain.StatusCompleted && job.Operation == domain.OpPickup && h.currentCell != domain.CellUnused {
		id := job.ID
		h.cells[h.currentCell].Holding = &id
		if job.RequestID != nil {
			h.requestCell[*job.RequestID] = h.currentCell
		}
	}
	if h.autoFree && status == domain.StatusCompleted && job.Operation == domain.OpDelivery && job.RequestID != nil {
		if idx, ok := h.requestCell[*job.RequestID]; ok {
			h.cells[idx].Holding = nil
			delete(h.requestCell, *job.RequestID)
		}
	}

	h.currentCell = domain.CellUnused
	h.currentJob = nil

	h.publishLocked(*job)
	h.metrics.RecordTerminal(h.name, job.Operation, status)
	h.metrics.SetCellsOccupied(h.name, h.occupiedLocked())
	slog.Info("job finished", "robot", h.name, "job", job.ID, "status", status.String())

	h.triggerLocked()
}

func (h *RobotHandler) occupiedLocked() int {
	n := 0
	for _, c := range h.cells {
		if c.Occupied() {
			n++
		}
	}
	return n
}

// publishLocked hands a status update to the drainer. The channel is
// bounded; when it is full the send blocks rather than dropping the update.
func (h *RobotHandler) publishLocked(job domain.Job) {
	h.updates <- job
}

// ClearError returns the robot from ERROR to IDLE and resumes the queue.
// It is a no-op in any other state.
func (h *RobotHandler) ClearError() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.actionStatus != domain.ActionError {
		return false
	}
	h.actionStatus = domain.ActionIdle
	h.triggerLocked()
	return true
}

// SetActive marks the robot available or unavailable. Disabling does not
// cancel the current job; it only blocks future dispatches.
func (h *RobotHandler) SetActive(active bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active = active
	if active {
		h.triggerLocked()
	}
}

// FreeCell clears the holding of one cell. Operator action; reports false
// for an out-of-range index.
func (h *RobotHandler) FreeCell(index int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.cells) {
		return false
	}
	h.cells[index].Holding = nil
	h.metrics.SetCellsOccupied(h.name, h.occupiedLocked())
	return true
}

// RemoveQueuedJob removes a waiting job by id. It never touches the current
// job; cancelling an executing job needs a transport-level cancel, which is
// not supported.
func (h *RobotHandler) RemoveQueuedJob(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, job := range h.queue {
		if job.ID == id {
			h.queue = append(h.queue[:i], h.queue[i+1:]...)
			h.metrics.SetQueueDepth(h.name, len(h.queue))
			return true
		}
	}
	return false
}

// CurrentJob returns a copy of the executing job, nil when idle.
func (h *RobotHandler) CurrentJob() *domain.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.currentJob == nil {
		return nil
	}
	job := *h.currentJob
	return &job
}

// Queue returns a copy of the waiting jobs in dispatch order.
func (h *RobotHandler) Queue() []domain.Job {
	h.mu.Lock()
	defer h.mu.Unlock()
	queue := make([]domain.Job, len(h.queue))
	copy(queue, h.queue)
	return queue
}

// Cells returns a copy of the cell array.
func (h *RobotHandler) Cells() []domain.RobotCell {
	h.mu.Lock()
	defer h.mu.Unlock()
	cells := make([]domain.RobotCell, len(h.cells))
	copy(cells, h.cells)
	return cells
}

// Snapshot produces the read-only view served by the query layer.
func (h *RobotHandler) Snapshot() domain.RobotSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	snap := domain.RobotSnapshot{
		Name:         h.name,
		Active:       h.active,
		ActionStatus: h.actionStatus,
		Cells:        make([]domain.RobotCell, len(h.cells)),
		Queue:        make([]domain.Job, len(h.queue)),
	}
	copy(snap.Cells, h.cells)
	copy(snap.Queue, h.queue)
	if h.transport.Connected() {
		snap.ConnectionStatus = domain.ConnOnline
	} else {
		snap.ConnectionStatus = domain.ConnOffline
	}
	if h.currentJob != nil {
		job := *h.currentJob
		snap.CurrentJob = &job
	}
	if h.pose != nil {
		p := *h.pose
		snap.Pose = &p
	}
	if h.tag != nil {
		t := *h.tag
		snap.Tag = &t
	}
	if h.piggyback != nil {
		p := *h.piggyback
		snap.Piggyback = &p
	}
	return snap
}

// Close tears down the transport. In-flight goals settle in whatever
// terminal status the transport reports before the socket drops.
func (h *RobotHandler) Close() error {
	return h.transport.Close()
}

// OnPose implements fleet.TelemetrySink.
func (h *RobotHandler) OnPose(p domain.Pose) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pose = &p
}

// OnTag implements fleet.TelemetrySink.
func (h *RobotHandler) OnTag(t domain.Tag) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tag = &t
}

// OnPiggyback implements fleet.TelemetrySink.
func (h *RobotHandler) OnPiggyback(p domain.PiggybackState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.piggyback = &p
}

// OnConnection implements fleet.TelemetrySink. A reconnect may unblock jobs
// queued while the robot was offline.
func (h *RobotHandler) OnConnection(online bool) {
	h.metrics.SetConnected(h.name, online)
	if online {
		h.Trigger()
	}
}
