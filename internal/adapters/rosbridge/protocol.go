package rosbridge

import (
	"encoding/json"
	"math"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

// Wire shapes for the rosbridge JSON protocol and the warehouse command
// action topics. Topic and type names match the robot side.

const (
	opAdvertise = "advertise"
	opSubscribe = "subscribe"
	opPublish   = "publish"

	goalTopic     = "/warehouse_command/goal"
	resultTopic   = "/warehouse_command/result"
	feedbackTopic = "/warehouse_command/feedback"
	cancelTopic   = "/warehouse_command/cancel"

	odomTopic      = "/odom_qr"
	qrTopic        = "/qr_id"
	piggybackTopic = "/piggyback_state"

	goalType     = "warehouse_server/WarehouseCommandActionGoal"
	resultType   = "warehouse_server/WarehouseCommandActionResult"
	feedbackType = "warehouse_server/WarehouseCommandActionFeedback"
	odomType     = "nav_msgs/Odometry"
	qrType       = "std_msgs/String"
	piggyType    = "sensor_msgs/JointState"
)

type envelope struct {
	Op    string          `json:"op"`
	Topic string          `json:"topic,omitempty"`
	Type  string          `json:"type,omitempty"`
	Msg   json.RawMessage `json:"msg,omitempty"`
}

type goalID struct {
	ID string `json:"id"`
}

type actionGoal struct {
	GoalID goalID      `json:"goal_id"`
	Goal   commandGoal `json:"goal"`
}

type commandGoal struct {
	Nodes     []domain.Node `json:"nodes"`
	Operation int           `json:"operation"`
	RobotCell int           `json:"robot_cell"`
}

type actionStatus struct {
	GoalID goalID `json:"goal_id"`
	Status int    `json:"status"`
}

type actionResult struct {
	Status actionStatus    `json:"status"`
	Result json.RawMessage `json:"result"`
}

type actionFeedback struct {
	Status   actionStatus    `json:"status"`
	Feedback json.RawMessage `json:"feedback"`
}

type stringMsg struct {
	Data string `json:"data"`
}

type quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type odometry struct {
	Pose struct {
		Pose struct {
			Position    point      `json:"position"`
			Orientation quaternion `json:"orientation"`
		} `json:"pose"`
	} `json:"pose"`
}

type jointState struct {
	Name     []string  `json:"name"`
	Position []float64 `json:"position"`
}

// yaw extracts the heading angle from an orientation quaternion.
func yaw(q quaternion) float64 {
	return math.Atan2(
		2.0*(q.W*q.Z+q.X*q.Y),
		1.0-2.0*(q.Y*q.Y+q.Z*q.Z),
	)
}

// jointPosition returns the named joint's position, 0 when absent.
func (j jointState) jointPosition(name string) float64 {
	for i, n := range j.Name {
		if n == name && i < len(j.Position) {
			return j.Position[i]
		}
	}
	return 0
}
