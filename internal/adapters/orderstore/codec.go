package orderstore

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// Records are stored as flat hashes of strings. Enum values are stored as
// their integer wire codes and the target node as embedded JSON, so the
// hashes stay readable from redis-cli and from non-Go consumers.

func encodeJob(job domain.Job) (map[string]string, error) {
	node, err := json.Marshal(job.TargetNode)
	if err != nil {
		return nil, fmt.Errorf("marshal target node: %w", err)
	}
	request := ""
	if job.RequestID != nil {
		request = job.RequestID.String()
	}
	return map[string]string{
		"status":         strconv.Itoa(int(job.Status)),
		"operation":      strconv.Itoa(int(job.Operation)),
		"target_node":    string(node),
		"request":        request,
		"handling_robot": job.Robot,
	}, nil
}

func decodeJob(id uuid.UUID, data map[string]string) (*domain.Job, error) {
	if len(data) == 0 {
		return nil, nil
	}
	status, err := strconv.Atoi(data["status"])
	if err != nil {
		return nil, fmt.Errorf("job %s: bad status %q", id, data["status"])
	}
	operation, err := strconv.Atoi(data["operation"])
	if err != nil {
		return nil, fmt.Errorf("job %s: bad operation %q", id, data["operation"])
	}
	var node domain.Node
	if err := json.Unmarshal([]byte(data["target_node"]), &node); err != nil {
		return nil, fmt.Errorf("job %s: bad target node: %w", id, err)
	}
	var requestID *uuid.UUID
	if raw := data["request"]; raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("job %s: bad request uuid %q", id, raw)
		}
		requestID = &parsed
	}
	return &domain.Job{
		ID:         id,
		Status:     domain.OrderStatus(status),
		Operation:  domain.JobOperation(operation),
		TargetNode: node,
		RequestID:  requestID,
		Robot:      data["handling_robot"],
	}, nil
}

func encodeRequest(req domain.Request) map[string]string {
	return map[string]string{
		"pickup":         req.PickupID.String(),
		"delivery":       req.DeliveryID.String(),
		"handling_robot": req.Robot,
	}
}

func decodeRequest(id uuid.UUID, data map[string]string) (*domain.Request, error) {
	if len(data) == 0 {
		return nil, nil
	}
	pickup, err := uuid.Parse(data["pickup"])
	if err != nil {
		return nil, fmt.Errorf("request %s: bad pickup uuid %q", id, data["pickup"])
	}
	delivery, err := uuid.Parse(data["delivery"])
	if err != nil {
		return nil, fmt.Errorf("request %s: bad delivery uuid %q", id, data["delivery"])
	}
	return &domain.Request{
		ID:         id,
		PickupID:   pickup,
		DeliveryID: delivery,
		Robot:      data["handling_robot"],
	}, nil
}
