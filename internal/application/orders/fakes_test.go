package orders

import (
	"context"
	"sync"

	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// fakeFleet records assignments instead of driving robots.
type fakeFleet struct {
	mu       sync.Mutex
	robots   map[string]bool
	assigned []domain.Job
	// queued marks job ids RemoveQueuedJob should report as removable.
	queued map[uuid.UUID]bool
}

func newFakeFleet(robots ...string) *fakeFleet {
	f := &fakeFleet{
		robots: make(map[string]bool),
		queued: make(map[uuid.UUID]bool),
	}
	for _, name := range robots {
		f.robots[name] = true
	}
	return f
}

func (f *fakeFleet) HasRobot(name string) bool {
	return f.robots[name]
}

func (f *fakeFleet) AssignJob(name string, job domain.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, job)
	f.queued[job.ID] = true
}

func (f *fakeFleet) GetCurrentJob(name string) *domain.Job {
	return nil
}

func (f *fakeFleet) RemoveQueuedJob(name string, id uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.queued[id] {
		return false
	}
	delete(f.queued, id)
	return true
}

func (f *fakeFleet) assignments() []domain.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobs := make([]domain.Job, len(f.assigned))
	copy(jobs, f.assigned)
	return jobs
}

// markExecuting makes RemoveQueuedJob report the job as out of reach, the
// way the real fleet does for a currently executing job.
func (f *fakeFleet) markExecuting(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.queued, id)
}

// fakeStore is a map-backed OrderStore.
type fakeStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]domain.Job
	requests map[uuid.UUID]domain.Request
	setErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:     make(map[uuid.UUID]domain.Job),
		requests: make(map[uuid.UUID]domain.Request),
	}
}

func (s *fakeStore) SetJob(ctx context.Context, job domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) SetRequest(ctx context.Context, req domain.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.requests[req.ID] = req
	return nil
}

func (s *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		return &job, nil
	}
	return nil, nil
}

func (s *fakeStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req, ok := s.requests[id]; ok {
		return &req, nil
	}
	return nil, nil
}

func (s *fakeStore) GetJobs(ctx context.Context) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]domain.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *fakeStore) GetRequests(ctx context.Context) ([]domain.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests := make([]domain.Request, 0, len(s.requests))
	for _, req := range s.requests {
		requests = append(requests, req)
	}
	return requests, nil
}

func (s *fakeStore) GetRequestStatus(ctx context.Context, req domain.Request) (domain.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pickup, pok := s.jobs[req.PickupID]
	delivery, dok := s.jobs[req.DeliveryID]
	if !pok || !dok {
		return 0, &domain.InconsistentStateError{RequestID: req.ID, Message: "referenced job missing from store"}
	}
	switch {
	case pickup.Status == domain.StatusFailed || delivery.Status == domain.StatusFailed:
		return domain.StatusFailed, nil
	case pickup.Status == domain.StatusCanceled || delivery.Status == domain.StatusCanceled:
		return domain.StatusCanceled, nil
	case pickup.Status == domain.StatusCompleted && delivery.Status == domain.StatusCompleted:
		return domain.StatusCompleted, nil
	case pickup.Status == domain.StatusInProgress || delivery.Status == domain.StatusInProgress:
		return domain.StatusInProgress, nil
	default:
		return domain.StatusQueuing, nil
	}
}

func (s *fakeStore) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *fakeStore) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *fakeStore) job(id uuid.UUID) (domain.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}
