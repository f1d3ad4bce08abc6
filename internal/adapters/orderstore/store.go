package orderstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

const (
	jobKeyPrefix     = "job:"
	requestKeyPrefix = "request:"
	robotKeyPrefix   = "robot:"
	updateSuffix     = ":update"
	updatePayload    = "updated"
)

// Store persists jobs and requests as Redis hashes and notifies watchers on
// a pub/sub channel per record. It has no locking of its own: concurrent
// writers of the same key race, so callers serialize writes per id (the
// owning robot handler for job status, a single writer for creation).
type Store struct {
	rdb *redis.Client
}

// New wraps an existing Redis client.
func New(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Ping checks the store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func jobKey(id uuid.UUID) string     { return jobKeyPrefix + id.String() }
func requestKey(id uuid.UUID) string { return requestKeyPrefix + id.String() }

// SetJob upserts the job hash and publishes job:{id}:update.
func (s *Store) SetJob(ctx context.Context, job domain.Job) error {
	data, err := encodeJob(job)
	if err != nil {
		return err
	}
	key := jobKey(job.ID)
	if err := s.rdb.HSet(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.rdb.Publish(ctx, key+updateSuffix, updatePayload).Err()
}

// SetRequest upserts the request hash and publishes request:{id}:update.
func (s *Store) SetRequest(ctx context.Context, req domain.Request) error {
	key := requestKey(req.ID)
	if err := s.rdb.HSet(ctx, key, encodeRequest(req)).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.rdb.Publish(ctx, key+updateSuffix, updatePayload).Err()
}

// GetJob fetches one job, nil when the key is absent.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	data, err := s.rdb.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", jobKey(id), err)
	}
	return decodeJob(id, data)
}

// GetRequest fetches one request, nil when the key is absent.
func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	data, err := s.rdb.HGetAll(ctx, requestKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", requestKey(id), err)
	}
	return decodeRequest(id, data)
}

// GetJobs scans every job hash. Records that vanish mid-scan or fail to
// parse are skipped, not errored.
func (s *Store) GetJobs(ctx context.Context) ([]domain.Job, error) {
	keys, err := s.scanKeys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	jobs := make([]domain.Job, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, jobKeyPrefix))
		if err != nil {
			continue
		}
		data, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		job, err := decodeJob(id, data)
		if err != nil {
			slog.Warn("skipping unparseable job record", "key", key, "error", err)
			continue
		}
		if job != nil {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

// GetRequests scans every request hash, skipping unparseable records.
func (s *Store) GetRequests(ctx context.Context) ([]domain.Request, error) {
	keys, err := s.scanKeys(ctx, requestKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	requests := make([]domain.Request, 0, len(keys))
	for _, key := range keys {
		id, err := uuid.Parse(strings.TrimPrefix(key, requestKeyPrefix))
		if err != nil {
			continue
		}
		data, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		req, err := decodeRequest(id, data)
		if err != nil {
			slog.Warn("skipping unparseable request record", "key", key, "error", err)
			continue
		}
		if req != nil {
			requests = append(requests, *req)
		}
	}
	return requests, nil
}

// GetRequestStatus derives the request's status from its two member jobs.
// Precedence, first match wins: FAILED, CANCELED, both COMPLETED,
// IN_PROGRESS, otherwise QUEUING.
func (s *Store) GetRequestStatus(ctx context.Context, req domain.Request) (domain.OrderStatus, error) {
	pickup, err := s.GetJob(ctx, req.PickupID)
	if err != nil {
		return 0, err
	}
	delivery, err := s.GetJob(ctx, req.DeliveryID)
	if err != nil {
		return 0, err
	}
	if pickup == nil || delivery == nil {
		return 0, &domain.InconsistentStateError{
			RequestID: req.ID,
			Message:   "referenced job missing from store",
		}
	}
	return DeriveRequestStatus(pickup.Status, delivery.Status), nil
}

// DeriveRequestStatus applies the precedence table over the two job statuses.
func DeriveRequestStatus(pickup, delivery domain.OrderStatus) domain.OrderStatus {
	switch {
	case pickup == domain.StatusFailed || delivery == domain.StatusFailed:
		return domain.StatusFailed
	case pickup == domain.StatusCanceled || delivery == domain.StatusCanceled:
		return domain.StatusCanceled
	case pickup == domain.StatusCompleted && delivery == domain.StatusCompleted:
		return domain.StatusCompleted
	case pickup == domain.StatusInProgress || delivery == domain.StatusInProgress:
		return domain.StatusInProgress
	default:
		return domain.StatusQueuing
	}
}

// MirrorRobot writes a robot snapshot hash for dashboard consumers and
// publishes robot:{name}:update. Best effort: the snapshot is derived state
// and the fleet handler remains authoritative.
func (s *Store) MirrorRobot(ctx context.Context, snap domain.RobotSnapshot) error {
	cells, err := json.Marshal(snap.Cells)
	if err != nil {
		return fmt.Errorf("marshal cells: %w", err)
	}
	queue := make([]string, len(snap.Queue))
	for i, job := range snap.Queue {
		queue[i] = job.ID.String()
	}
	queueJSON, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("marshal queue: %w", err)
	}
	current := ""
	if snap.CurrentJob != nil {
		current = snap.CurrentJob.ID.String()
	}
	data := map[string]string{
		"name":              snap.Name,
		"active":            fmt.Sprintf("%t", snap.Active),
		"connection_status": fmt.Sprintf("%d", int(snap.ConnectionStatus)),
		"action_status":     fmt.Sprintf("%d", int(snap.ActionStatus)),
		"cells":             string(cells),
		"current_job":       current,
		"queue":             string(queueJSON),
	}
	key := robotKeyPrefix + snap.Name
	if err := s.rdb.HSet(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return s.rdb.Publish(ctx, key+updateSuffix, updatePayload).Err()
}

func (s *Store) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}
