package rosbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

const dialTimeout = 5 * time.Second

// Client is a rosbridge websocket connection to one robot. A supervisor
// goroutine keeps redialing while the robot is unreachable; goal and
// telemetry callbacks fire on the reader goroutine.
type Client struct {
	name    string
	url     string
	sink    domain.TelemetrySink
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	conn    *websocket.Conn
	online  bool
	pending map[string]domain.GoalCallbacks
	seq     uint64
}

// New starts the connection supervisor and returns immediately; the client
// reports offline until the first successful dial.
func New(name, host string, port int, sink domain.TelemetrySink) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		name: name,
		url:  fmt.Sprintf("ws://%s:%d", host, port),
		sink: sink,
		// One dial a second at most, so an unreachable robot does not
		// spin the supervisor.
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]domain.GoalCallbacks),
	}
	go c.supervise()
	return c
}

// Connected implements fleet.RobotTransport.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Close implements fleet.RobotTransport. Pending goals receive an error.
func (c *Client) Close() error {
	c.cancel()
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// SendGoal implements fleet.RobotTransport. The goal is published on the
// warehouse command goal topic; the terminal callback fires when the result
// topic reports this goal id.
func (c *Client) SendGoal(goal domain.Goal, cb domain.GoalCallbacks) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.online || c.conn == nil {
		return fmt.Errorf("robot %s is offline", c.name)
	}

	c.seq++
	id := fmt.Sprintf("%s_goal_%d_%d", c.name, time.Now().UnixNano(), c.seq)
	msg, err := json.Marshal(actionGoal{
		GoalID: goalID{ID: id},
		Goal: commandGoal{
			Nodes:     goal.Nodes,
			Operation: int(goal.Operation),
			RobotCell: goal.RobotCell,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal goal: %w", err)
	}

	c.pending[id] = cb
	err = c.conn.WriteJSON(envelope{Op: opPublish, Topic: goalTopic, Msg: msg})
	if err != nil {
		delete(c.pending, id)
		return fmt.Errorf("publish goal: %w", err)
	}
	return nil
}

// supervise dials until the client is closed, pacing attempts through the
// rate limiter, and runs the read loop for each live connection.
func (c *Client) supervise() {
	for {
		if err := c.limiter.Wait(c.ctx); err != nil {
			return
		}

		dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
		conn, _, err := dialer.DialContext(c.ctx, c.url, nil)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			slog.Debug("rosbridge dial failed", "robot", c.name, "url", c.url, "error", err)
			continue
		}

		if err := c.setup(conn); err != nil {
			slog.Warn("rosbridge setup failed", "robot", c.name, "error", err)
			conn.Close()
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.online = true
		c.mu.Unlock()
		slog.Info("robot connected", "robot", c.name, "url", c.url)
		c.sink.OnConnection(true)

		c.readLoop(conn)

		c.dropConnection(conn)
		if c.ctx.Err() != nil {
			return
		}
	}
}

// setup advertises the goal topic and subscribes to the action and
// telemetry topics.
func (c *Client) setup(conn *websocket.Conn) error {
	messages := []envelope{
		{Op: opAdvertise, Topic: goalTopic, Type: goalType},
		{Op: opAdvertise, Topic: cancelTopic, Type: "actionlib_msgs/GoalID"},
		{Op: opSubscribe, Topic: resultTopic, Type: resultType},
		{Op: opSubscribe, Topic: feedbackTopic, Type: feedbackType},
		{Op: opSubscribe, Topic: odomTopic, Type: odomType},
		{Op: opSubscribe, Topic: qrTopic, Type: qrType},
		{Op: opSubscribe, Topic: piggybackTopic, Type: piggyType},
	}
	for _, msg := range messages {
		if err := conn.WriteJSON(msg); err != nil {
			return err
		}
	}
	return nil
}

// dropConnection marks the client offline and fails every pending goal.
func (c *Client) dropConnection(conn *websocket.Conn) {
	conn.Close()

	c.mu.Lock()
	c.conn = nil
	c.online = false
	pending := c.pending
	c.pending = make(map[string]domain.GoalCallbacks)
	c.mu.Unlock()

	slog.Warn("robot disconnected", "robot", c.name)
	c.sink.OnConnection(false)
	for _, cb := range pending {
		if cb.OnError != nil {
			cb.OnError(fmt.Errorf("connection to robot %s lost", c.name))
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return
		}
		if env.Op != opPublish {
			continue
		}
		switch env.Topic {
		case resultTopic:
			c.handleResult(env.Msg)
		case feedbackTopic:
			c.handleFeedback(env.Msg)
		case odomTopic:
			c.handleOdometry(env.Msg)
		case qrTopic:
			c.handleTag(env.Msg)
		case piggybackTopic:
			c.handlePiggyback(env.Msg)
		}
	}
}

func (c *Client) handleResult(raw json.RawMessage) {
	var result actionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		slog.Warn("bad action result", "robot", c.name, "error", err)
		return
	}

	c.mu.Lock()
	cb, ok := c.pending[result.Status.GoalID.ID]
	if ok {
		delete(c.pending, result.Status.GoalID.ID)
	}
	c.mu.Unlock()
	if !ok {
		slog.Warn("result for unknown goal", "robot", c.name, "goal", result.Status.GoalID.ID)
		return
	}
	if cb.OnResult != nil {
		cb.OnResult(domain.GoalStatus(result.Status.Status))
	}
}

func (c *Client) handleFeedback(raw json.RawMessage) {
	var feedback actionFeedback
	if err := json.Unmarshal(raw, &feedback); err != nil {
		return
	}

	c.mu.Lock()
	cb, ok := c.pending[feedback.Status.GoalID.ID]
	c.mu.Unlock()
	if ok && cb.OnFeedback != nil {
		cb.OnFeedback()
	}
}

func (c *Client) handleOdometry(raw json.RawMessage) {
	var odom odometry
	if err := json.Unmarshal(raw, &odom); err != nil {
		return
	}
	c.sink.OnPose(domain.Pose{
		At:    time.Now(),
		X:     odom.Pose.Pose.Position.X,
		Y:     odom.Pose.Pose.Position.Y,
		Theta: yaw(odom.Pose.Pose.Orientation),
	})
}

func (c *Client) handleTag(raw json.RawMessage) {
	var msg stringMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Data == "" {
		return
	}
	c.sink.OnTag(domain.Tag{At: time.Now(), ID: msg.Data})
}

func (c *Client) handlePiggyback(raw json.RawMessage) {
	var joints jointState
	if err := json.Unmarshal(raw, &joints); err != nil {
		return
	}
	c.sink.OnPiggyback(domain.PiggybackState{
		At:        time.Now(),
		Lift:      joints.jointPosition("lift"),
		Turntable: joints.jointPosition("turntable"),
		Slide:     joints.jointPosition("slide"),
		HookLeft:  joints.jointPosition("hook_left"),
		HookRight: joints.jointPosition("hook_right"),
	})
}
