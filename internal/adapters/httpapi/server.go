// Package httpapi exposes the orchestrator over HTTP: order admission and
// cancellation, job and request lookups, and robot fleet operations.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrescamacho/fleetgate/internal/application/orders"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// Controller is the slice of the warehouse controller the API serves.
type Controller interface {
	AcceptJobOrder(ctx context.Context, order orders.JobOrder) orders.JobOrderResult
	AcceptRequestOrder(ctx context.Context, order orders.RequestOrder) orders.RequestOrderResult
	AcceptWarehouseOrder(ctx context.Context, order orders.WarehouseOrder) orders.WarehouseOrderResult
	CancelJobOrder(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	CancelJobOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Job, error)
	CancelRequestOrder(ctx context.Context, id uuid.UUID) (*domain.Request, error)
	CancelRequestOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Request, error)
}

// Fleet is the slice of the fleet handler the API serves.
type Fleet interface {
	GetRobot(name string) *domain.RobotSnapshot
	GetRobots() []domain.RobotSnapshot
	GetRobotCells(name string) []domain.RobotCell
	GetCurrentJob(name string) *domain.Job
	GetJobQueue(name string) []domain.Job
	FreeCell(name string, index int) bool
	SetActive(name string, active bool) bool
	ClearError(name string) bool
}

// Pinger is anything with a liveness probe, in practice the order store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server bundles the API dependencies behind a chi router.
type Server struct {
	controller Controller
	fleet      Fleet
	store      domain.OrderStore
	pinger     Pinger
	registry   *prometheus.Registry
}

// NewServer wires the API against its collaborators. The registry may be
// nil, in which case no metrics endpoint is mounted.
func NewServer(controller Controller, fleet Fleet, store domain.OrderStore, pinger Pinger, registry *prometheus.Registry) *Server {
	return &Server{
		controller: controller,
		fleet:      fleet,
		store:      store,
		pinger:     pinger,
		registry:   registry,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/job", s.handleJobOrder)
			r.Post("/request", s.handleRequestOrder)
			r.Post("/warehouse", s.handleWarehouseOrder)
			r.Post("/job/cancel", s.handleCancelJobs)
			r.Post("/request/cancel", s.handleCancelRequests)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Post("/{id}/cancel", s.handleCancelJob)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", s.handleListRequests)
			r.Get("/{id}", s.handleGetRequest)
			r.Get("/{id}/status", s.handleRequestStatus)
			r.Post("/{id}/cancel", s.handleCancelRequest)
		})

		r.Route("/robots", func(r chi.Router) {
			r.Get("/", s.handleListRobots)
			r.Get("/{name}", s.handleGetRobot)
			r.Get("/{name}/cells", s.handleRobotCells)
			r.Get("/{name}/queue", s.handleRobotQueue)
			r.Post("/{name}/active", s.handleSetActive)
			r.Post("/{name}/clear-error", s.handleClearError)
			r.Post("/{name}/free-cell", s.handleFreeCell)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "order store unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
