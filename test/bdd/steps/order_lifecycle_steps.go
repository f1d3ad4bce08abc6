package steps

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cucumber/godog"
	"github.com/redis/go-redis/v9"

	"github.com/andrescamacho/fleetgate/internal/adapters/orderstore"
	"github.com/andrescamacho/fleetgate/internal/adapters/routeoracle"
	appfleet "github.com/andrescamacho/fleetgate/internal/application/fleet"
	"github.com/andrescamacho/fleetgate/internal/application/orders"
	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// scriptedTransport queues goals from the handler and settles them when the
// scenario says so.
type scriptedTransport struct {
	mu     sync.Mutex
	online bool
	goals  []domain.Goal
	cbs    []domain.GoalCallbacks
}

func (t *scriptedTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.online
}

func (t *scriptedTransport) SendGoal(goal domain.Goal, cb domain.GoalCallbacks) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.online {
		return fmt.Errorf("transport offline")
	}
	t.goals = append(t.goals, goal)
	t.cbs = append(t.cbs, cb)
	return nil
}

func (t *scriptedTransport) Close() error { return nil }

func (t *scriptedTransport) settleLast(status domain.GoalStatus) error {
	t.mu.Lock()
	if len(t.cbs) == 0 {
		t.mu.Unlock()
		return fmt.Errorf("no goal in flight")
	}
	cb := t.cbs[len(t.cbs)-1]
	t.mu.Unlock()
	cb.OnResult(status)
	return nil
}

type orderLifecycleContext struct {
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	store     *orderstore.Store
	oracle    *routeoracle.Memory
	transport *scriptedTransport
	sink      domain.TelemetrySink
	fleet     *appfleet.FleetHandler
	ctrl      *orders.WarehouseController

	jobResult     *orders.JobOrderResult
	requestResult *orders.RequestOrderResult
}

func (c *orderLifecycleContext) reset() error {
	mr, err := miniredis.Run()
	if err != nil {
		return err
	}
	c.mr = mr
	c.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c.store = orderstore.New(c.rdb)
	c.oracle = routeoracle.NewMemory()
	c.transport = &scriptedTransport{online: true}
	c.jobResult = nil
	c.requestResult = nil
	return nil
}

func (c *orderLifecycleContext) teardown() {
	if c.ctrl != nil {
		c.ctrl.Close()
		c.ctrl = nil
	}
	if c.fleet != nil {
		c.fleet.Shutdown()
		c.fleet = nil
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.mr != nil {
		c.mr.Close()
	}
}

// Givens.

func (c *orderLifecycleContext) warehouseGraph(table *godog.Table) error {
	types := map[string]domain.NodeType{
		"WAYPOINT": domain.NodeWaypoint,
		"CONVEYOR": domain.NodeConveyor,
		"SHELF":    domain.NodeShelf,
		"CELL":     domain.NodeCell,
		"DEPOT":    domain.NodeDepot,
	}
	var ids []int
	for _, row := range table.Rows[1:] {
		id, err := strconv.Atoi(row.Cells[0].Value)
		if err != nil {
			return fmt.Errorf("bad node id %q", row.Cells[0].Value)
		}
		nodeType, ok := types[row.Cells[3].Value]
		if !ok {
			return fmt.Errorf("bad node type %q", row.Cells[3].Value)
		}
		c.oracle.AddNode(domain.Node{
			ID:    id,
			Alias: row.Cells[1].Value,
			TagID: row.Cells[2].Value,
			Type:  nodeType,
		})
		ids = append(ids, id)
	}
	// Fixture graph: every node pair is directly connected.
	for _, from := range ids {
		for _, to := range ids {
			if from != to {
				c.oracle.AddPath(from, to, []int{from, to})
			}
		}
	}
	return nil
}

func (c *orderLifecycleContext) robotDockedAtTag(name, tag string) error {
	// The factory hands each handler to its transport as the telemetry
	// sink; keep it so the scenario can feed tags the way rosbridge would.
	factory := func(spec appfleet.RobotSpec, sink domain.TelemetrySink) domain.RobotTransport {
		c.sink = sink
		return c.transport
	}
	updates := make(chan domain.Job, 64)
	c.fleet = appfleet.NewFleetHandler([]appfleet.RobotSpec{
		{Name: name, CellHeights: []float64{0.2, 0.6}},
	}, factory, c.oracle, updates, appfleet.Options{})
	c.ctrl = orders.NewWarehouseController(updates, c.fleet, c.store, c.oracle)

	node, err := c.oracle.GetNodeByTagID(context.Background(), tag)
	if err != nil {
		return err
	}
	if node == nil {
		return fmt.Errorf("tag %q is not in the graph", tag)
	}
	c.sink.OnTag(domain.Tag{At: time.Now(), ID: tag})
	return nil
}

func (c *orderLifecycleContext) robotOffline() error {
	c.transport.mu.Lock()
	c.transport.online = false
	c.transport.mu.Unlock()
	return nil
}

// Whens.

func (c *orderLifecycleContext) placeJobOrder(operation, robot, alias string) error {
	ops := map[string]domain.JobOperation{
		"TRAVEL":   domain.OpTravel,
		"PICKUP":   domain.OpPickup,
		"DELIVERY": domain.OpDelivery,
	}
	op, ok := ops[operation]
	if !ok {
		return fmt.Errorf("bad operation %q", operation)
	}
	result := c.ctrl.AcceptJobOrder(context.Background(), orders.JobOrder{
		Robot:     robot,
		Operation: op,
		Target:    orders.NodeRef{Alias: &alias},
	})
	c.jobResult = &result
	return nil
}

func (c *orderLifecycleContext) placeRequestOrder(robot, pickup, delivery string) error {
	result := c.ctrl.AcceptRequestOrder(context.Background(), orders.RequestOrder{
		Robot:    robot,
		Pickup:   orders.NodeRef{Alias: &pickup},
		Delivery: orders.NodeRef{Alias: &delivery},
	})
	c.requestResult = &result
	return nil
}

func (c *orderLifecycleContext) robotCompletesGoal() error {
	return c.transport.settleLast(domain.GoalSucceeded)
}

func (c *orderLifecycleContext) robotAbortsGoal() error {
	return c.transport.settleLast(domain.GoalAborted)
}

func (c *orderLifecycleContext) cancelAdmittedJob() error {
	if c.jobResult == nil || c.jobResult.Job == nil {
		return fmt.Errorf("no admitted job to cancel")
	}
	job, err := c.ctrl.CancelJobOrder(context.Background(), c.jobResult.Job.ID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job vanished")
	}
	return nil
}

// Thens.

func (c *orderLifecycleContext) jobOrderAccepted() error {
	if c.jobResult == nil || !c.jobResult.Success {
		return fmt.Errorf("job order was not accepted: %+v", c.jobResult)
	}
	return nil
}

func (c *orderLifecycleContext) jobOrderRejected() error {
	if c.jobResult == nil || c.jobResult.Success {
		return fmt.Errorf("job order was not rejected")
	}
	return nil
}

func (c *orderLifecycleContext) requestOrderAccepted() error {
	if c.requestResult == nil || !c.requestResult.Success {
		return fmt.Errorf("request order was not accepted: %+v", c.requestResult)
	}
	return nil
}

func (c *orderLifecycleContext) robotReceivesGoal(operation, alias string) error {
	ops := map[string]domain.JobOperation{
		"TRAVEL":   domain.OpTravel,
		"PICKUP":   domain.OpPickup,
		"DELIVERY": domain.OpDelivery,
	}
	op, ok := ops[operation]
	if !ok {
		return fmt.Errorf("bad operation %q", operation)
	}
	node, err := c.oracle.GetNodeByAlias(context.Background(), alias)
	if err != nil || node == nil {
		return fmt.Errorf("alias %q is not in the graph", alias)
	}

	c.transport.mu.Lock()
	defer c.transport.mu.Unlock()
	if len(c.transport.goals) == 0 {
		return fmt.Errorf("no goal was sent")
	}
	goal := c.transport.goals[len(c.transport.goals)-1]
	if goal.Operation != op {
		return fmt.Errorf("last goal is %s, want %s", goal.Operation, op)
	}
	last := goal.Nodes[len(goal.Nodes)-1]
	if last.ID != node.ID {
		return fmt.Errorf("last goal targets node %d, want %d", last.ID, node.ID)
	}
	return nil
}

func (c *orderLifecycleContext) requestStatusIs(want string) error {
	if c.requestResult == nil || c.requestResult.Request == nil {
		return fmt.Errorf("no admitted request")
	}
	return c.eventually(func() error {
		status, err := c.store.GetRequestStatus(context.Background(), *c.requestResult.Request)
		if err != nil {
			return err
		}
		if status.String() != want {
			return fmt.Errorf("request status is %s, want %s", status, want)
		}
		return nil
	})
}

func (c *orderLifecycleContext) jobStatusIs(want string) error {
	if c.jobResult == nil || c.jobResult.Job == nil {
		return fmt.Errorf("no admitted job")
	}
	return c.eventually(func() error {
		job, err := c.store.GetJob(context.Background(), c.jobResult.Job.ID)
		if err != nil {
			return err
		}
		if job == nil {
			return fmt.Errorf("job missing from store")
		}
		if job.Status.String() != want {
			return fmt.Errorf("job status is %s, want %s", job.Status, want)
		}
		return nil
	})
}

func (c *orderLifecycleContext) robotHoldsItems(count int) error {
	snaps := c.fleet.GetRobots()
	if len(snaps) != 1 {
		return fmt.Errorf("expected one robot, got %d", len(snaps))
	}
	held := 0
	for _, cell := range snaps[0].Cells {
		if cell.Occupied() {
			held++
		}
	}
	if held != count {
		return fmt.Errorf("robot holds %d items, want %d", held, count)
	}
	return nil
}

// eventually retries the check while the controller's drainer catches up.
func (c *orderLifecycleContext) eventually(check func() error) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := check()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// InitializeOrderLifecycleScenario registers the order lifecycle steps.
func InitializeOrderLifecycleScenario(sc *godog.ScenarioContext) {
	c := &orderLifecycleContext{}

	sc.Before(func(ctx context.Context, scenario *godog.Scenario) (context.Context, error) {
		return ctx, c.reset()
	})
	sc.After(func(ctx context.Context, scenario *godog.Scenario, err error) (context.Context, error) {
		c.teardown()
		return ctx, nil
	})

	sc.Given(`^the warehouse graph:$`, c.warehouseGraph)
	sc.Given(`^a robot "([^"]*)" docked at tag "([^"]*)"$`, c.robotDockedAtTag)
	sc.Given(`^the robot transport is offline$`, c.robotOffline)

	sc.When(`^I place a (TRAVEL|PICKUP|DELIVERY) job order for robot "([^"]*)" targeting "([^"]*)"$`, c.placeJobOrder)
	sc.When(`^I place a request order for robot "([^"]*)" picking up at "([^"]*)" and delivering to "([^"]*)"$`, c.placeRequestOrder)
	sc.When(`^the robot completes the current goal$`, c.robotCompletesGoal)
	sc.When(`^the robot aborts the current goal$`, c.robotAbortsGoal)
	sc.When(`^I cancel the admitted job$`, c.cancelAdmittedJob)

	sc.Then(`^the job order is accepted$`, c.jobOrderAccepted)
	sc.Then(`^the job order is rejected$`, c.jobOrderRejected)
	sc.Then(`^the request order is accepted$`, c.requestOrderAccepted)
	sc.Then(`^the robot receives a (TRAVEL|PICKUP|DELIVERY) goal targeting "([^"]*)"$`, c.robotReceivesGoal)
	sc.Then(`^the request status becomes "([^"]*)"$`, c.requestStatusIs)
	sc.Then(`^the job status becomes "([^"]*)"$`, c.jobStatusIs)
	sc.Then(`^the robot holds (\d+) items?$`, c.robotHoldsItems)
}
