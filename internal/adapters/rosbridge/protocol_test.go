package rosbridge

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/andrescamacho/fleetgate/internal/domain/fleet"
)

func TestYaw(t *testing.T) {
	// Identity quaternion: no rotation.
	assert.InDelta(t, 0, yaw(quaternion{W: 1}), 1e-9)

	// 90 degrees around z.
	q := quaternion{Z: math.Sin(math.Pi / 4), W: math.Cos(math.Pi / 4)}
	assert.InDelta(t, math.Pi/2, yaw(q), 1e-9)

	// 180 degrees around z.
	assert.InDelta(t, math.Pi, yaw(quaternion{Z: 1}), 1e-9)
}

func TestJointPosition(t *testing.T) {
	joints := jointState{
		Name:     []string{"lift", "turntable", "slide"},
		Position: []float64{0.4, 1.57},
	}

	assert.Equal(t, 0.4, joints.jointPosition("lift"))
	assert.Equal(t, 1.57, joints.jointPosition("turntable"))
	assert.Equal(t, 0.0, joints.jointPosition("slide"), "name without a position entry")
	assert.Equal(t, 0.0, joints.jointPosition("hook_left"))
}

func TestGoalWireShape(t *testing.T) {
	// Arrange
	goal := actionGoal{
		GoalID: goalID{ID: "carrier-1_goal_42_1"},
		Goal: commandGoal{
			Nodes: []domain.Node{
				{ID: 1, Type: domain.NodeWaypoint},
				{ID: 5, Alias: "shelf-a", Type: domain.NodeShelf},
			},
			Operation: int(domain.OpPickup),
			RobotCell: 0,
		},
	}

	// Act
	raw, err := json.Marshal(goal)
	require.NoError(t, err)

	// Assert: field names and enum codes match the action definition.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "carrier-1_goal_42_1", decoded["goal_id"].(map[string]any)["id"])
	inner := decoded["goal"].(map[string]any)
	assert.Equal(t, float64(1), inner["operation"])
	assert.Equal(t, float64(0), inner["robot_cell"])
	nodes := inner["nodes"].([]any)
	require.Len(t, nodes, 2)
	assert.Equal(t, float64(2), nodes[1].(map[string]any)["node_type"])
}

func TestResultEnvelopeParsing(t *testing.T) {
	raw := []byte(`{
		"op": "publish",
		"topic": "/warehouse_command/result",
		"msg": {"status": {"goal_id": {"id": "g-1"}, "status": 3}, "result": {}}
	}`)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, opPublish, env.Op)
	assert.Equal(t, resultTopic, env.Topic)

	var result actionResult
	require.NoError(t, json.Unmarshal(env.Msg, &result))
	assert.Equal(t, "g-1", result.Status.GoalID.ID)
	assert.Equal(t, domain.GoalSucceeded, domain.GoalStatus(result.Status.Status))
}
