package handler

import (
	"ars-backend/internal/config"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func fetchScenarioConnections(scenarioID int64) ([]models.ConnectionResponse, error) {
	rows, err := config.DB.Query(`
		SELECT id, scenario_id, source_node_id, target_node_id, ` + "`condition`" + `, label, created_at
		FROM scenario_connections
		WHERE scenario_id = ?
		ORDER BY created_at
	`, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	connections := []models.ConnectionResponse{}
	for rows.Next() {
		var conn models.ScenarioConnection
		err := rows.Scan(
			&conn.ID,
			&conn.ScenarioID,
			&conn.SourceNodeID,
			&conn.TargetNodeID,
			&conn.Condition,
			&conn.Label,
			&conn.CreatedAt,
		)
		if err != nil {
			continue
		}
		connections = append(connections, models.ToConnectionResponse(conn))
	}

	return connections, nil
}

// GetScenarioConnections - list connections of a scenario
func GetScenarioConnections(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	connections, err := fetchScenarioConnections(scenarioID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch connections",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    connections,
	})
}

// CreateScenarioConnection - connect two existing nodes (manager and up)
func CreateScenarioConnection(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	var req models.CreateConnectionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.SourceNodeID == "" || req.TargetNodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "source_node_id and target_node_id are required",
		})
	}

	// Both endpoints must be nodes of this scenario.
	for _, nodeID := range []string{req.SourceNodeID, req.TargetNodeID} {
		var count int
		err := config.DB.QueryRow(
			"SELECT COUNT(*) FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?",
			scenarioID, nodeID,
		).Scan(&count)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to validate connection",
			})
		}
		if count == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Node not found in scenario: " + nodeID,
			})
		}
	}

	query := "INSERT INTO scenario_connections (scenario_id, source_node_id, target_node_id, `condition`, label) VALUES (?, ?, ?, ?, ?)"
	result, err := config.DB.Exec(query,
		scenarioID, req.SourceNodeID, req.TargetNodeID,
		nullableJSON(req.Condition), nullableString(req.Label),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create connection",
		})
	}

	id, _ := result.LastInsertId()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Connection created",
		"data": models.ConnectionResponse{
			ID:           id,
			SourceNodeID: req.SourceNodeID,
			TargetNodeID: req.TargetNodeID,
			Condition:    req.Condition,
			Label:        req.Label,
		},
	})
}

// DeleteScenarioConnection - remove a connection by its numeric ID
func DeleteScenarioConnection(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	result, err := config.DB.Exec(
		"DELETE FROM scenario_connections WHERE id = ? AND scenario_id = ?",
		c.Params("connectionId"), scenarioID,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete connection",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Connection not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Connection deleted",
	})
}
