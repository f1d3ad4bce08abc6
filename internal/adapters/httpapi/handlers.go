package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/andrescamacho/fleetgate/internal/application/orders"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// Order admission.

func (s *Server) handleJobOrder(w http.ResponseWriter, r *http.Request) {
	var order orders.JobOrder
	if !decodeBody(w, r, &order) {
		return
	}
	result := s.controller.AcceptJobOrder(r.Context(), order)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) handleRequestOrder(w http.ResponseWriter, r *http.Request) {
	var order orders.RequestOrder
	if !decodeBody(w, r, &order) {
		return
	}
	result := s.controller.AcceptRequestOrder(r.Context(), order)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (s *Server) handleWarehouseOrder(w http.ResponseWriter, r *http.Request) {
	var order orders.WarehouseOrder
	if !decodeBody(w, r, &order) {
		return
	}
	result := s.controller.AcceptWarehouseOrder(r.Context(), order)
	status := http.StatusCreated
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// Cancellation.

type cancelBatch struct {
	IDs []uuid.UUID `json:"ids"`
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	job, err := s.controller.CancelJobOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJobs(w http.ResponseWriter, r *http.Request) {
	var batch cancelBatch
	if !decodeBody(w, r, &batch) {
		return
	}
	jobs, err := s.controller.CancelJobOrders(r.Context(), batch.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	request, err := s.controller.CancelRequestOrder(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleCancelRequests(w http.ResponseWriter, r *http.Request) {
	var batch cancelBatch
	if !decodeBody(w, r, &batch) {
		return
	}
	requests, err := s.controller.CancelRequestOrders(r.Context(), batch.IDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

// Job and request lookups.

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.GetJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.GetRequests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	request, err := s.store.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	writeJSON(w, http.StatusOK, request)
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	request, err := s.store.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if request == nil {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	status, err := s.store.GetRequestStatus(r.Context(), *request)
	if err != nil {
		var inconsistent *domain.InconsistentStateError
		if errors.As(err, &inconsistent) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request_uuid": request.ID,
		"status":       status,
		"status_name":  status.String(),
	})
}

// Robot fleet operations.

func (s *Server) handleListRobots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.fleet.GetRobots())
}

func (s *Server) handleGetRobot(w http.ResponseWriter, r *http.Request) {
	snap := s.fleet.GetRobot(chi.URLParam(r, "name"))
	if snap == nil {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRobotCells(w http.ResponseWriter, r *http.Request) {
	cells := s.fleet.GetRobotCells(chi.URLParam(r, "name"))
	if cells == nil {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

func (s *Server) handleRobotQueue(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.fleet.GetRobot(name) == nil {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current": s.fleet.GetCurrentJob(name),
		"queued":  s.fleet.GetJobQueue(name),
	})
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Active bool `json:"active"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	name := chi.URLParam(r, "name")
	if !s.fleet.SetActive(name, body.Active) {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"robot": name, "active": body.Active})
}

func (s *Server) handleClearError(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.fleet.GetRobot(name) == nil {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	cleared := s.fleet.ClearError(name)
	writeJSON(w, http.StatusOK, map[string]any{"robot": name, "cleared": cleared})
}

func (s *Server) handleFreeCell(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Index int `json:"index"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	name := chi.URLParam(r, "name")
	if s.fleet.GetRobot(name) == nil {
		writeError(w, http.StatusNotFound, "robot not found")
		return
	}
	if !s.fleet.FreeCell(name, body.Index) {
		writeError(w, http.StatusUnprocessableEntity, "cell index out of range or already free")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"robot": name, "index": body.Index})
}
