package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

const storeWriteTimeout = 5 * time.Second

// WarehouseController admits orders, decomposes them into per-robot jobs,
// and drains the shared status-update channel back into the order store.
// The drainer goroutine is owned by the controller and runs until Close.
type WarehouseController struct {
	store  domain.OrderStore
	fleet  Fleet
	oracle domain.RouteOracle

	updates <-chan domain.Job
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewWarehouseController starts the status-update drainer immediately. The
// updates channel is the receive side of the channel the robot handlers
// publish to.
func NewWarehouseController(updates <-chan domain.Job, fleet Fleet, store domain.OrderStore, oracle domain.RouteOracle) *WarehouseController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &WarehouseController{
		store:   store,
		fleet:   fleet,
		oracle:  oracle,
		updates: updates,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.drain(ctx)
	return c
}

// Close stops the drainer and waits for it to exit.
func (c *WarehouseController) Close() {
	c.cancel()
	<-c.done
}

// drain writes every status update to the store. Store failures are logged
// and skipped; the handler state remains authoritative.
func (c *WarehouseController) drain(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-c.updates:
			wctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
			if err := c.store.SetJob(wctx, job); err != nil {
				slog.Error("failed to persist job status update",
					"job", job.ID, "status", job.Status.String(), "error", err)
			} else {
				slog.Debug("persisted job status update",
					"job", job.ID, "status", job.Status.String())
			}
			cancel()
		}
	}
}

// resolveNode resolves a node ref by id or alias, nil when unknown.
func (c *WarehouseController) resolveNode(ctx context.Context, ref NodeRef) (*domain.Node, error) {
	switch {
	case ref.ID != nil:
		return c.oracle.GetNodeByID(ctx, *ref.ID)
	case ref.Alias != nil:
		return c.oracle.GetNodeByAlias(ctx, *ref.Alias)
	default:
		return nil, nil
	}
}

// AcceptJobOrder validates and persists a single job, then queues it.
func (c *WarehouseController) AcceptJobOrder(ctx context.Context, order JobOrder) JobOrderResult {
	if order.Target.IsZero() {
		return JobOrderResult{Message: "either target node id or alias must be provided"}
	}
	target, err := c.resolveNode(ctx, order.Target)
	if err != nil {
		return JobOrderResult{Message: fmt.Sprintf("node lookup failed: %v", err)}
	}
	if target == nil {
		return JobOrderResult{Message: "target node not found"}
	}
	if !c.fleet.HasRobot(order.Robot) {
		return JobOrderResult{Message: fmt.Sprintf("unknown robot %q", order.Robot)}
	}
	if order.Operation == domain.OpTravel && target.Type != domain.NodeWaypoint {
		return JobOrderResult{Message: fmt.Sprintf("TRAVEL target node %d is %s, not WAYPOINT", target.ID, target.Type)}
	}

	job := domain.Job{
		ID:         uuid.New(),
		Status:     domain.StatusQueuing,
		Operation:  order.Operation,
		TargetNode: *target,
		Robot:      order.Robot,
	}
	if err := c.store.SetJob(ctx, job); err != nil {
		return JobOrderResult{Message: fmt.Sprintf("unable to store job: %v", err)}
	}

	c.fleet.AssignJob(order.Robot, job)
	return JobOrderResult{Success: true, Message: "job accepted", Job: &job}
}

// AcceptRequestOrder creates a pickup and a delivery job bound by one
// request and queues them, pickup first, on the chosen robot.
func (c *WarehouseController) AcceptRequestOrder(ctx context.Context, order RequestOrder) RequestOrderResult {
	if !c.fleet.HasRobot(order.Robot) {
		return RequestOrderResult{Message: fmt.Sprintf("unknown robot %q", order.Robot)}
	}

	var nodes [2]domain.Node
	for i, ref := range []NodeRef{order.Pickup, order.Delivery} {
		node, err := c.resolveNode(ctx, ref)
		if err != nil {
			return RequestOrderResult{Message: fmt.Sprintf("node lookup failed: %v", err)}
		}
		if node == nil {
			return RequestOrderResult{Message: "pickup or delivery node not found"}
		}
		nodes[i] = *node
	}

	requestID := uuid.New()
	pickup := domain.Job{
		ID:         uuid.New(),
		Status:     domain.StatusQueuing,
		Operation:  domain.OpPickup,
		TargetNode: nodes[0],
		RequestID:  &requestID,
		Robot:      order.Robot,
	}
	delivery := domain.Job{
		ID:         uuid.New(),
		Status:     domain.StatusQueuing,
		Operation:  domain.OpDelivery,
		TargetNode: nodes[1],
		RequestID:  &requestID,
		Robot:      order.Robot,
	}
	request := domain.Request{
		ID:         requestID,
		PickupID:   pickup.ID,
		DeliveryID: delivery.ID,
		Robot:      order.Robot,
	}

	// Write order matters: a partial write is tolerated, the derived
	// request status surfaces the inconsistency on read.
	if err := c.store.SetJob(ctx, pickup); err != nil {
		return RequestOrderResult{Message: fmt.Sprintf("unable to store pickup job: %v", err)}
	}
	if err := c.store.SetJob(ctx, delivery); err != nil {
		return RequestOrderResult{Message: fmt.Sprintf("unable to store delivery job: %v", err)}
	}
	if err := c.store.SetRequest(ctx, request); err != nil {
		return RequestOrderResult{Message: fmt.Sprintf("unable to store request: %v", err)}
	}

	// The robot's FIFO guarantees the pickup dispatches before the delivery.
	c.fleet.AssignJob(order.Robot, pickup)
	c.fleet.AssignJob(order.Robot, delivery)

	return RequestOrderResult{Success: true, Message: "request accepted", Request: &request}
}

// warehousePlan is the decomposition scratch state for one warehouse order.
type warehousePlan struct {
	nodeToRobot  map[int]string
	nodePosition map[string]map[int]int
	jobRoutes    map[string][]*domain.Job
	routeOrder   []string
}

// AcceptWarehouseOrder decomposes a multi-robot order: every request's
// pickup and delivery must fall on the same robot's route, jobs are placed
// at their route positions, and unclaimed route slots are skipped.
func (c *WarehouseController) AcceptWarehouseOrder(ctx context.Context, order WarehouseOrder) WarehouseOrderResult {
	plan, errResult := c.buildPlan(ctx, order)
	if errResult != nil {
		return *errResult
	}

	// Validate every request before persisting anything: a rejected order
	// must leave the store untouched.
	type placement struct {
		robot        string
		pickupNode   domain.Node
		deliveryNode domain.Node
		pickupPos    int
		deliveryPos  int
	}
	placements := make([]placement, 0, len(order.Requests))
	for i, req := range order.Requests {
		pickupNode, err := c.resolveNode(ctx, req.Pickup)
		if err != nil || pickupNode == nil {
			return WarehouseOrderResult{Message: fmt.Sprintf("request %d: pickup node not found", i)}
		}
		deliveryNode, err := c.resolveNode(ctx, req.Delivery)
		if err != nil || deliveryNode == nil {
			return WarehouseOrderResult{Message: fmt.Sprintf("request %d: delivery node not found", i)}
		}
		pickupRobot, ok := plan.nodeToRobot[pickupNode.ID]
		if !ok {
			return WarehouseOrderResult{Message: fmt.Sprintf("request %d: pickup node %d is not on any assignment route", i, pickupNode.ID)}
		}
		deliveryRobot, ok := plan.nodeToRobot[deliveryNode.ID]
		if !ok {
			return WarehouseOrderResult{Message: fmt.Sprintf("request %d: delivery node %d is not on any assignment route", i, deliveryNode.ID)}
		}
		if pickupRobot != deliveryRobot {
			return WarehouseOrderResult{Message: fmt.Sprintf("request %d: pickup is routed to %s but delivery to %s", i, pickupRobot, deliveryRobot)}
		}
		placements = append(placements, placement{
			robot:        pickupRobot,
			pickupNode:   *pickupNode,
			deliveryNode: *deliveryNode,
			pickupPos:    plan.nodePosition[pickupRobot][pickupNode.ID],
			deliveryPos:  plan.nodePosition[deliveryRobot][deliveryNode.ID],
		})
	}

	requests := make([]domain.Request, 0, len(placements))
	for _, p := range placements {
		requestID := uuid.New()
		pickup := domain.Job{
			ID:         uuid.New(),
			Status:     domain.StatusQueuing,
			Operation:  domain.OpPickup,
			TargetNode: p.pickupNode,
			RequestID:  &requestID,
			Robot:      p.robot,
		}
		delivery := domain.Job{
			ID:         uuid.New(),
			Status:     domain.StatusQueuing,
			Operation:  domain.OpDelivery,
			TargetNode: p.deliveryNode,
			RequestID:  &requestID,
			Robot:      p.robot,
		}
		request := domain.Request{
			ID:         requestID,
			PickupID:   pickup.ID,
			DeliveryID: delivery.ID,
			Robot:      p.robot,
		}
		if err := c.store.SetJob(ctx, pickup); err != nil {
			return WarehouseOrderResult{Message: fmt.Sprintf("unable to store pickup job: %v", err)}
		}
		if err := c.store.SetJob(ctx, delivery); err != nil {
			return WarehouseOrderResult{Message: fmt.Sprintf("unable to store delivery job: %v", err)}
		}
		if err := c.store.SetRequest(ctx, request); err != nil {
			return WarehouseOrderResult{Message: fmt.Sprintf("unable to store request: %v", err)}
		}

		plan.jobRoutes[p.robot][p.pickupPos] = &pickup
		plan.jobRoutes[p.robot][p.deliveryPos] = &delivery
		requests = append(requests, request)
	}

	// Enqueue per robot in route order. Slots not claimed by any request
	// stay empty; no TRAVEL jobs are materialized for them.
	for _, robot := range plan.routeOrder {
		for _, job := range plan.jobRoutes[robot] {
			if job != nil {
				c.fleet.AssignJob(robot, *job)
			}
		}
	}

	return WarehouseOrderResult{
		Success:  true,
		Message:  fmt.Sprintf("warehouse order accepted, %d requests created", len(requests)),
		Requests: requests,
	}
}

// buildPlan resolves every assignment route and maps node → robot and
// node → route position. A node claimed by two assignments is ill-defined.
func (c *WarehouseController) buildPlan(ctx context.Context, order WarehouseOrder) (*warehousePlan, *WarehouseOrderResult) {
	plan := &warehousePlan{
		nodeToRobot:  make(map[int]string),
		nodePosition: make(map[string]map[int]int),
		jobRoutes:    make(map[string][]*domain.Job),
	}
	for _, a := range order.Assignments {
		if !c.fleet.HasRobot(a.Robot) {
			return nil, &WarehouseOrderResult{Message: fmt.Sprintf("unknown robot %q", a.Robot)}
		}
		if _, dup := plan.nodePosition[a.Robot]; dup {
			return nil, &WarehouseOrderResult{Message: fmt.Sprintf("robot %q appears in two assignments", a.Robot)}
		}
		plan.nodePosition[a.Robot] = make(map[int]int, len(a.Route))
		plan.jobRoutes[a.Robot] = make([]*domain.Job, len(a.Route))
		plan.routeOrder = append(plan.routeOrder, a.Robot)

		for pos, ref := range a.Route {
			node, err := c.resolveNode(ctx, ref)
			if err != nil || node == nil {
				return nil, &WarehouseOrderResult{Message: fmt.Sprintf("assignment %s: route node %d not found", a.Robot, pos)}
			}
			if owner, taken := plan.nodeToRobot[node.ID]; taken {
				return nil, &WarehouseOrderResult{Message: fmt.Sprintf("node %d claimed by both %s and %s", node.ID, owner, a.Robot)}
			}
			plan.nodeToRobot[node.ID] = a.Robot
			plan.nodePosition[a.Robot][node.ID] = pos
		}
	}
	return plan, nil
}

// CancelJobOrder cancels a waiting job. A terminal job is returned
// unchanged; so is the robot's currently executing job, which this
// operation does not touch. Returns nil when the job is unknown.
func (c *WarehouseController) CancelJobOrder(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := c.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if job.Status.IsTerminal() {
		return job, nil
	}
	if !c.fleet.RemoveQueuedJob(job.Robot, job.ID) {
		// Not in the queue: either executing right now or already drained.
		// Either way it is out of this operation's reach.
		return job, nil
	}
	job.Status = domain.StatusCanceled
	if err := c.store.SetJob(ctx, *job); err != nil {
		return nil, err
	}
	return job, nil
}

// CancelJobOrders maps CancelJobOrder over the ids, skipping unknown ones.
func (c *WarehouseController) CancelJobOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Job, error) {
	jobs := make([]domain.Job, 0, len(ids))
	for _, id := range ids {
		job, err := c.CancelJobOrder(ctx, id)
		if err != nil {
			return jobs, err
		}
		if job != nil {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

// CancelRequestOrder cancels both member jobs of a request. Returns nil
// when the request is unknown.
func (c *WarehouseController) CancelRequestOrder(ctx context.Context, id uuid.UUID) (*domain.Request, error) {
	request, err := c.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, nil
	}
	if _, err := c.CancelJobOrder(ctx, request.PickupID); err != nil {
		return nil, err
	}
	if _, err := c.CancelJobOrder(ctx, request.DeliveryID); err != nil {
		return nil, err
	}
	return request, nil
}

// CancelRequestOrders maps CancelRequestOrder over the ids, skipping
// unknown ones.
func (c *WarehouseController) CancelRequestOrders(ctx context.Context, ids []uuid.UUID) ([]domain.Request, error) {
	requests := make([]domain.Request, 0, len(ids))
	for _, id := range ids {
		request, err := c.CancelRequestOrder(ctx, id)
		if err != nil {
			return requests, err
		}
		if request != nil {
			requests = append(requests, *request)
		}
	}
	return requests, nil
}
