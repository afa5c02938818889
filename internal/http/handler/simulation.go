package handler

import (
	"errors"

	"ars-backend/internal/config"
	"ars-backend/internal/simulation"

	"github.com/gofiber/fiber/v2"
)

// Simulations holds every live session. In-memory by design: a restart ends
// all running simulations.
var Simulations = simulation.NewRegistry()

// StartSimulation - load the scenario graph and open a session at its start node
func StartSimulation(c *fiber.Ctx) error {
	var req struct {
		ScenarioID  int64  `json:"scenario_id"`
		StartNodeID string `json:"start_node_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ScenarioID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scenario_id is required",
		})
	}

	var scenarioID int64
	err := config.DB.QueryRow("SELECT id FROM scenarios WHERE id = ?", req.ScenarioID).Scan(&scenarioID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	graph, err := loadScenarioGraph(scenarioID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load scenario graph",
		})
	}

	// An explicit start node lets callers simulate from the middle of a flow.
	startNodeID := req.StartNodeID
	if startNodeID == "" {
		startNodeID, err = graph.StartNodeID()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Scenario has no start node",
			})
		}
	} else if graph.Node(startNodeID) == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "start_node_id does not exist in this scenario",
		})
	}

	engine := simulation.NewEngine(graph)
	state, err := engine.Start(startNodeID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start simulation",
		})
	}

	simulationID := Simulations.Add(engine)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"simulation_id": simulationID,
			"scenario_id":   scenarioID,
			"state":         state,
		},
	})
}

// GetSimulationState
func GetSimulationState(c *fiber.Ctx) error {
	engine, ok := Simulations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Simulation not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    engine.State(),
	})
}

// ExecuteSimulationAction - drive the session one step
func ExecuteSimulationAction(c *fiber.Ctx) error {
	engine, ok := Simulations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Simulation not found",
		})
	}

	var req struct {
		ActionType string                 `json:"action_type"`
		Value      interface{}            `json:"value"`
		Extra      map[string]interface{} `json:"extra"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ActionType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action_type is required",
		})
	}

	state, err := engine.Execute(req.ActionType, req.Value, req.Extra)
	if err != nil {
		status := fiber.StatusBadRequest
		if errors.Is(err, simulation.ErrNotActive) {
			status = fiber.StatusConflict
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    state,
	})
}

// ResetSimulation - restart the session at the scenario's start node
func ResetSimulation(c *fiber.Ctx) error {
	engine, ok := Simulations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Simulation not found",
		})
	}

	state, err := engine.Restart()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Scenario has no start node",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Simulation reset",
		"data":    state,
	})
}

// StopSimulation - discard the session
func StopSimulation(c *fiber.Ctx) error {
	if !Simulations.Remove(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Simulation not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Simulation stopped",
	})
}

// GetSimulationHistory - every action taken this session, in order
func GetSimulationHistory(c *fiber.Ctx) error {
	engine, ok := Simulations.Get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Simulation not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"history":        engine.History(),
			"execution_time": engine.Elapsed(),
		},
	})
}
