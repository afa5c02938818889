package simulation_test

import (
	"testing"

	"ars-backend/internal/simulation"

	"github.com/stretchr/testify/assert"
)

func TestValidateGraphAcceptsCompleteFlow(t *testing.T) {
	result := simulation.ValidateGraph(greetingGraph())

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateGraphNoStartNode(t *testing.T) {
	graph := &simulation.Graph{
		Nodes: []simulation.Node{
			{NodeID: "msg", NodeType: "message", Name: "Msg"},
		},
	}

	result := simulation.ValidateGraph(graph)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "scenario has no start node")
}

func TestValidateGraphDanglingConnection(t *testing.T) {
	graph := &simulation.Graph{
		Nodes: []simulation.Node{
			{NodeID: "start", NodeType: "start", Name: "Start"},
			{NodeID: "end", NodeType: "end", Name: "End"},
		},
		Connections: []simulation.Connection{
			{SourceNodeID: "start", TargetNodeID: "ghost"},
		},
	}

	result := simulation.ValidateGraph(graph)

	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "connection references unknown target node: ghost")
}

func TestValidateGraphWarnings(t *testing.T) {
	graph := &simulation.Graph{
		Nodes: []simulation.Node{
			{NodeID: "start", NodeType: "start", Name: "Start"},
			{NodeID: "start2", NodeType: "start", Name: "Second start"},
			{NodeID: "lonely", NodeType: "message", Name: "Lonely"},
		},
		Connections: []simulation.Connection{
			{SourceNodeID: "start", TargetNodeID: "start2"},
		},
	}

	result := simulation.ValidateGraph(graph)

	// Warnings alone do not fail validation.
	assert.True(t, result.IsValid)
	assert.Contains(t, result.Warnings, "scenario has more than one start node")
	assert.Contains(t, result.Warnings, "scenario has no end node")
	assert.Contains(t, result.Warnings, "node is not connected: lonely")
}
