package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/fleetgate/internal/application/orders"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// stubController returns canned results.
type stubController struct {
	jobResult orders.JobOrderResult
	job       *domain.Job
	jobErr    error
}

func (s *stubController) AcceptJobOrder(ctx context.Context, order orders.JobOrder) orders.JobOrderResult {
	return s.jobResult
}

func (s *stubController) AcceptRequestOrder(ctx context.Context, order orders.RequestOrder) orders.RequestOrderResult {
	return orders.RequestOrderResult{}
}

func (s *stubController) AcceptWarehouseOrder(ctx context.Context, order orders.WarehouseOrder) orders.WarehouseOrderResult {
	return orders.WarehouseOrderResult{}
}

func (s *stubController) CancelJobOrder(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	return s.job, s.jobErr
}

func (s *stubController) CancelJobOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Job, error) {
	return nil, nil
}

func (s *stubController) CancelRequestOrder(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	return nil, nil
}

func (s *stubController) CancelRequestOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Request, error) {
	return nil, nil
}

// stubFleet serves a single snapshot under one name.
type stubFleet struct {
	name string
	snap domain.RobotSnapshot
}

func (s *stubFleet) GetRobot(name string) *domain.RobotSnapshot {
	if name != s.name {
		return nil
	}
	snap := s.snap
	return &snap
}

func (s *stubFleet) GetRobots() []domain.RobotSnapshot { return []domain.RobotSnapshot{s.snap} }

func (s *stubFleet) GetRobotCells(name string) []domain.RobotCell {
	if name != s.name {
		return nil
	}
	return s.snap.Cells
}

func (s *stubFleet) GetCurrentJob(name string) *domain.Job { return nil }

func (s *stubFleet) GetJobQueue(name string) []domain.Job { return nil }

func (s *stubFleet) FreeCell(name string, index int) bool { return name == s.name && index == 0 }

func (s *stubFleet) SetActive(name string, active bool) bool { return name == s.name }

func (s *stubFleet) ClearError(name string) bool { return name == s.name }

// stubStore answers job and request lookups from maps.
type stubStore struct {
	jobs         map[uuid.UUID]domain.Job
	requests     map[uuid.UUID]domain.Request
	statuses     map[uuid.UUID]domain.OrderStatus
	inconsistent bool
}

func (s *stubStore) SetJob(ctx context.Context, job domain.Job) error { return nil }

func (s *stubStore) SetRequest(ctx context.Context, req domain.Request) error { return nil }

func (s *stubStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	if job, ok := s.jobs[id]; ok {
		return &job, nil
	}
	return nil, nil
}

func (s *stubStore) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	if req, ok := s.requests[id]; ok {
		return &req, nil
	}
	return nil, nil
}

func (s *stubStore) GetJobs(ctx context.Context) ([]domain.Job, error) { return nil, nil }

func (s *stubStore) GetRequests(ctx context.Context) ([]domain.Request, error) { return nil, nil }

func (s *stubStore) GetRequestStatus(ctx context.Context, req domain.Request) (domain.OrderStatus, error) {
	if s.inconsistent {
		return 0, &domain.InconsistentStateError{RequestID: req.ID, Message: "referenced job missing from store"}
	}
	return s.statuses[req.ID], nil
}

type failingPinger struct{}

func (failingPinger) Ping(ctx context.Context) error { return errors.New("connection refused") }

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func newTestServer(controller Controller, fleet Fleet, store domain.OrderStore, pinger Pinger) *httptest.Server {
	api := NewServer(controller, fleet, store, pinger, nil)
	return httptest.NewServer(api.Router())
}

func TestJobOrderEndpointStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		result   orders.JobOrderResult
		wantCode int
	}{
		{"accepted", orders.JobOrderResult{Success: true, Message: "job accepted"}, http.StatusCreated},
		{"rejected", orders.JobOrderResult{Message: "unknown robot"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(&stubController{jobResult: tt.result}, &stubFleet{}, &stubStore{}, okPinger{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/v1/orders/job", "application/json",
				strings.NewReader(`{"robot_name":"carrier-1","operation":1,"target":{"alias":"shelf-a"}}`))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			var result orders.JobOrderResult
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
			assert.Equal(t, tt.result.Message, result.Message)
		})
	}
}

func TestJobOrderEndpointRejectsBadBody(t *testing.T) {
	srv := newTestServer(&stubController{}, &stubFleet{}, &stubStore{}, okPinger{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/orders/job", "application/json",
		strings.NewReader(`{"robot_name":`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRobotEndpoints(t *testing.T) {
	fleet := &stubFleet{
		name: "carrier-1",
		snap: domain.RobotSnapshot{
			Name:  "carrier-1",
			Cells: []domain.RobotCell{{Height: 0.2}},
		},
	}
	srv := newTestServer(&stubController{}, fleet, &stubStore{}, okPinger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/robots/carrier-1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap domain.RobotSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "carrier-1", snap.Name)

	missing, err := http.Get(srv.URL + "/api/v1/robots/ghost")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestRequestStatusEndpoint(t *testing.T) {
	requestID := uuid.New()
	store := &stubStore{
		requests: map[uuid.UUID]domain.Request{
			requestID: {ID: requestID, PickupID: uuid.New(), DeliveryID: uuid.New(), Robot: "carrier-1"},
		},
		statuses: map[uuid.UUID]domain.OrderStatus{requestID: domain.StatusInProgress},
	}
	srv := newTestServer(&stubController{}, &stubFleet{}, store, okPinger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/requests/" + requestID.String() + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, float64(domain.StatusInProgress), body["status"])
	assert.Equal(t, "IN_PROGRESS", body["status_name"])
}

func TestRequestStatusInconsistentState(t *testing.T) {
	requestID := uuid.New()
	store := &stubStore{
		requests: map[uuid.UUID]domain.Request{
			requestID: {ID: requestID, Robot: "carrier-1"},
		},
		inconsistent: true,
	}
	srv := newTestServer(&stubController{}, &stubFleet{}, store, okPinger{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/requests/" + requestID.String() + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCancelJobEndpoint(t *testing.T) {
	job := domain.Job{ID: uuid.New(), Status: domain.StatusCanceled, Robot: "carrier-1"}
	srv := newTestServer(&stubController{job: &job}, &stubFleet{}, &stubStore{}, okPinger{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/jobs/"+job.ID.String()+"/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bad, err := http.Post(srv.URL+"/api/v1/jobs/not-a-uuid/cancel", "application/json", nil)
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestCancelJobEndpointUnknown(t *testing.T) {
	srv := newTestServer(&stubController{}, &stubFleet{}, &stubStore{}, okPinger{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/jobs/"+uuid.NewString()+"/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	healthy := newTestServer(&stubController{}, &stubFleet{}, &stubStore{}, okPinger{})
	defer healthy.Close()
	resp, err := http.Get(healthy.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	unhealthy := newTestServer(&stubController{}, &stubFleet{}, &stubStore{}, failingPinger{})
	defer unhealthy.Close()
	resp, err = http.Get(unhealthy.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSetActiveEndpoint(t *testing.T) {
	fleet := &stubFleet{name: "carrier-1"}
	srv := newTestServer(&stubController{}, fleet, &stubStore{}, okPinger{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/robots/carrier-1/active", "application/json",
		strings.NewReader(`{"active":false}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Post(srv.URL+"/api/v1/robots/ghost/active", "application/json",
		strings.NewReader(`{"active":true}`))
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
