package fleet

import (
	"log/slog"

	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// FleetHandler groups the per-robot handlers and routes fleet-level calls to
// the right one. Every method is a no-op (or returns the zero answer) for an
// unknown robot name.
type FleetHandler struct {
	handlers map[string]*RobotHandler
}

// NewFleetHandler builds one handler per robot spec. All handlers share the
// status-update channel and the route oracle.
func NewFleetHandler(specs []RobotSpec, factory TransportFactory, oracle domain.RouteOracle, updates chan<- domain.Job, opts Options) *FleetHandler {
	handlers := make(map[string]*RobotHandler, len(specs))
	for _, spec := range specs {
		handlers[spec.Name] = NewRobotHandler(spec, factory, oracle, updates, opts)
	}
	return &FleetHandler{handlers: handlers}
}

// HasRobot reports whether a handler exists for the name.
func (f *FleetHandler) HasRobot(name string) bool {
	_, ok := f.handlers[name]
	return ok
}

// AssignJob queues the job on the named robot.
func (f *FleetHandler) AssignJob(name string, job domain.Job) {
	h, ok := f.handlers[name]
	if !ok {
		return
	}
	h.Assign(job)
}

// GetRobot returns a snapshot of the named robot, nil when unknown.
func (f *FleetHandler) GetRobot(name string) *domain.RobotSnapshot {
	h, ok := f.handlers[name]
	if !ok {
		return nil
	}
	snap := h.Snapshot()
	return &snap
}

// GetRobots returns snapshots of every robot in the fleet.
func (f *FleetHandler) GetRobots() []domain.RobotSnapshot {
	snaps := make([]domain.RobotSnapshot, 0, len(f.handlers))
	for _, h := range f.handlers {
		snaps = append(snaps, h.Snapshot())
	}
	return snaps
}

// GetRobotCells returns the named robot's cells, nil when unknown.
func (f *FleetHandler) GetRobotCells(name string) []domain.RobotCell {
	h, ok := f.handlers[name]
	if !ok {
		return nil
	}
	return h.Cells()
}

// GetCurrentJob returns the executing job of the named robot, nil when the
// robot is unknown or idle.
func (f *FleetHandler) GetCurrentJob(name string) *domain.Job {
	h, ok := f.handlers[name]
	if !ok {
		return nil
	}
	return h.CurrentJob()
}

// GetJobQueue returns the waiting jobs of the named robot.
func (f *FleetHandler) GetJobQueue(name string) []domain.Job {
	h, ok := f.handlers[name]
	if !ok {
		return nil
	}
	return h.Queue()
}

// RemoveQueuedJob removes a waiting job by id. The current job is never
// touched.
func (f *FleetHandler) RemoveQueuedJob(name string, id uuid.UUID) bool {
	h, ok := f.handlers[name]
	if !ok {
		return false
	}
	return h.RemoveQueuedJob(id)
}

// FreeCell clears one cell's holding on the named robot.
func (f *FleetHandler) FreeCell(name string, index int) bool {
	h, ok := f.handlers[name]
	if !ok {
		return false
	}
	return h.FreeCell(index)
}

// SetActive enables or disables the named robot.
func (f *FleetHandler) SetActive(name string, active bool) bool {
	h, ok := f.handlers[name]
	if !ok {
		return false
	}
	h.SetActive(active)
	return true
}

// ClearError recovers the named robot from ERROR.
func (f *FleetHandler) ClearError(name string) bool {
	h, ok := f.handlers[name]
	if !ok {
		return false
	}
	return h.ClearError()
}

// Shutdown tears down every robot transport.
func (f *FleetHandler) Shutdown() {
	for name, h := range f.handlers {
		if err := h.Close(); err != nil {
			slog.Warn("transport close failed", "robot", name, "error", err)
		}
	}
}
