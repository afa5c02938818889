package simulation

import "fmt"

type ValidationResult struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ValidateGraph checks the structural soundness of a scenario flowchart
// before it is simulated or deployed. Missing start nodes and dangling
// connections are errors; everything else is a warning.
func ValidateGraph(g *Graph) ValidationResult {
	result := ValidationResult{
		Errors:   []string{},
		Warnings: []string{},
	}

	startCount := 0
	endCount := 0
	nodeIDs := make(map[string]bool, len(g.Nodes))

	for _, n := range g.Nodes {
		nodeIDs[n.NodeID] = true
		switch n.NodeType {
		case "start":
			startCount++
		case "end":
			endCount++
		}
	}

	if startCount == 0 {
		result.Errors = append(result.Errors, "scenario has no start node")
	} else if startCount > 1 {
		result.Warnings = append(result.Warnings, "scenario has more than one start node")
	}

	if endCount == 0 {
		result.Warnings = append(result.Warnings, "scenario has no end node")
	}

	connected := make(map[string]bool)
	for _, conn := range g.Connections {
		if !nodeIDs[conn.SourceNodeID] {
			result.Errors = append(result.Errors, fmt.Sprintf("connection references unknown source node: %s", conn.SourceNodeID))
		}
		if !nodeIDs[conn.TargetNodeID] {
			result.Errors = append(result.Errors, fmt.Sprintf("connection references unknown target node: %s", conn.TargetNodeID))
		}
		connected[conn.SourceNodeID] = true
		connected[conn.TargetNodeID] = true
	}

	if len(g.Nodes) > 1 {
		for _, n := range g.Nodes {
			if !connected[n.NodeID] {
				result.Warnings = append(result.Warnings, fmt.Sprintf("node is not connected: %s", n.NodeID))
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	return result
}
