package fleet

import domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"

// Recorder observes fleet activity. The Prometheus adapter implements it;
// NoopRecorder is used when metrics are disabled.
type Recorder interface {
	RecordDispatch(robot string, op domain.JobOperation)
	RecordTerminal(robot string, op domain.JobOperation, status domain.OrderStatus)
	SetQueueDepth(robot string, depth int)
	SetCellsOccupied(robot string, count int)
	SetConnected(robot string, online bool)
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

func (NoopRecorder) RecordDispatch(string, domain.JobOperation)                     {}
func (NoopRecorder) RecordTerminal(string, domain.JobOperation, domain.OrderStatus) {}
func (NoopRecorder) SetQueueDepth(string, int)                                      {}
func (NoopRecorder) SetCellsOccupied(string, int)                                   {}
func (NoopRecorder) SetConnected(string, bool)                                      {}
