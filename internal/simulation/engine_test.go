package simulation_test

import (
	"encoding/json"
	"testing"

	"ars-backend/internal/simulation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greetingGraph() *simulation.Graph {
	return &simulation.Graph{
		ScenarioID: 1,
		Nodes: []simulation.Node{
			{NodeID: "start", NodeType: "start", Name: "Start"},
			{NodeID: "welcome", NodeType: "message", Name: "Welcome", Config: map[string]interface{}{
				"text": "Welcome to customer support",
			}},
			{NodeID: "menu", NodeType: "branch", Name: "Main menu", Config: map[string]interface{}{
				"branches": []interface{}{
					map[string]interface{}{"key": "1", "label": "Billing", "target": "ask_phone"},
					map[string]interface{}{"key": "2", "label": "Agent", "target": "agent"},
				},
			}},
			{NodeID: "ask_phone", NodeType: "input", Name: "Ask phone", Config: map[string]interface{}{
				"input_type": "phone",
				"prompt":     "Enter your phone number",
			}},
			{NodeID: "agent", NodeType: "transfer", Name: "To agent", Config: map[string]interface{}{
				"target": "billing_team",
			}},
			{NodeID: "bye", NodeType: "end", Name: "Goodbye"},
		},
		Connections: []simulation.Connection{
			{SourceNodeID: "start", TargetNodeID: "welcome"},
			{SourceNodeID: "welcome", TargetNodeID: "menu"},
			{SourceNodeID: "ask_phone", TargetNodeID: "bye"},
		},
	}
}

func TestEngineWalksHappyPath(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	state, err := engine.Start("start")
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusActive, state.Status)
	assert.Equal(t, "start", state.CurrentNode.NodeID)
	require.Len(t, state.AvailableActions, 1)
	assert.Equal(t, "continue", state.AvailableActions[0].Type)

	state, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "welcome", state.CurrentNode.NodeID)

	state, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "menu", state.CurrentNode.NodeID)
	assert.Len(t, state.AvailableActions, 2)

	state, err = engine.Execute("select", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "ask_phone", state.CurrentNode.NodeID)
	assert.Equal(t, "1", state.SessionData["branch_menu_selection"])

	state, err = engine.Execute("input", "010-1234-5678", nil)
	require.NoError(t, err)
	assert.Equal(t, "bye", state.CurrentNode.NodeID)
	assert.Equal(t, "010-1234-5678", state.SessionData["input_ask_phone"])

	state, err = engine.Execute("end", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusCompleted, state.Status)
	assert.Contains(t, state.SessionData, "completion_time")
}

func TestEngineTransferEndsSession(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("start")
	require.NoError(t, err)
	_, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)
	_, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)

	state, err := engine.Execute("select", "2", nil)
	require.NoError(t, err)
	assert.Equal(t, "agent", state.CurrentNode.NodeID)

	state, err = engine.Execute("transfer", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusTransferred, state.Status)
	assert.Equal(t, "billing_team", state.SessionData["transfer_target"])

	_, err = engine.Execute("continue", nil, nil)
	assert.ErrorIs(t, err, simulation.ErrNotActive)
}

func TestEngineRejectsInvalidBranch(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("menu")
	require.NoError(t, err)

	_, err = engine.Execute("select", "9", nil)
	assert.ErrorIs(t, err, simulation.ErrInvalidBranch)

	// Session survives a rejected action.
	state := engine.State()
	assert.Equal(t, simulation.StatusActive, state.Status)
	assert.Equal(t, "menu", state.CurrentNode.NodeID)
}

func TestEngineRejectsInvalidInput(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("ask_phone")
	require.NoError(t, err)

	_, err = engine.Execute("input", "not a phone", nil)
	assert.ErrorIs(t, err, simulation.ErrInvalidInput)

	_, err = engine.Execute("input", "02-555-1234", nil)
	assert.NoError(t, err)
}

func TestEngineRejectsWrongActionForNodeType(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("welcome")
	require.NoError(t, err)

	_, err = engine.Execute("select", "1", nil)
	assert.ErrorIs(t, err, simulation.ErrUnknownAction)
}

func TestEngineDeadEndCompletes(t *testing.T) {
	graph := &simulation.Graph{
		ScenarioID: 2,
		Nodes: []simulation.Node{
			{NodeID: "start", NodeType: "start", Name: "Start"},
			{NodeID: "only", NodeType: "message", Name: "Only", Config: map[string]interface{}{"text": "hi"}},
		},
		Connections: []simulation.Connection{
			{SourceNodeID: "start", TargetNodeID: "only"},
		},
	}
	engine := simulation.NewEngine(graph)

	_, err := engine.Start("start")
	require.NoError(t, err)
	_, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)

	state, err := engine.Execute("continue", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, simulation.StatusCompleted, state.Status)
}

func TestEngineHistoryRecordsEveryAction(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("start")
	require.NoError(t, err)

	_, _ = engine.Execute("continue", nil, nil)
	_, _ = engine.Execute("continue", nil, nil)
	_, _ = engine.Execute("select", "99", nil) // rejected, still recorded

	history := engine.History()
	require.Len(t, history, 3)
	assert.Equal(t, "start", history[0].NodeID)
	assert.Equal(t, "select", history[2].ActionType)
}

func TestEngineRestart(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("start")
	require.NoError(t, err)
	_, err = engine.Execute("continue", nil, nil)
	require.NoError(t, err)

	state, err := engine.Restart()
	require.NoError(t, err)
	assert.Equal(t, "start", state.CurrentNode.NodeID)
	assert.Empty(t, state.SessionData)
	assert.Empty(t, engine.History())
}

func TestEngineStateSnapshotsSessionData(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("ask_phone")
	require.NoError(t, err)

	before := engine.State()
	before.SessionData["injected"] = true

	_, err = engine.Execute("input", "010-1234-5678", nil)
	require.NoError(t, err)

	after := engine.State()
	assert.NotContains(t, after.SessionData, "injected")
	assert.NotContains(t, before.SessionData, "input_ask_phone")
}

func TestEngineStateSafeWhileExecuting(t *testing.T) {
	engine := simulation.NewEngine(&simulation.Graph{
		ScenarioID: 3,
		Nodes: []simulation.Node{
			{NodeID: "ask", NodeType: "input", Name: "Ask", Config: map[string]interface{}{"input_type": "text"}},
		},
		Connections: []simulation.Connection{
			{SourceNodeID: "ask", TargetNodeID: "ask"},
		},
	})

	_, err := engine.Start("ask")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_, _ = engine.Execute("input", "hello", nil)
		}
	}()

	// Serializing a returned state must not race with writes to the live
	// session map.
	for i := 0; i < 500; i++ {
		state := engine.State()
		_, err := json.Marshal(state)
		require.NoError(t, err)
	}
	<-done
}

func TestEngineStartUnknownNode(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	_, err := engine.Start("missing")
	assert.ErrorIs(t, err, simulation.ErrNodeNotFound)
}

func TestEngineStartAtExplicitNode(t *testing.T) {
	engine := simulation.NewEngine(greetingGraph())

	state, err := engine.Start("menu")
	require.NoError(t, err)
	assert.Equal(t, "menu", state.CurrentNode.NodeID)
	assert.Len(t, state.AvailableActions, 2)
}
