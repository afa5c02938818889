package handler

import (
	"database/sql"
	"encoding/json"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

func fetchScenarioNodes(scenarioID int64) ([]models.NodeResponse, error) {
	rows, err := config.DB.Query(`
		SELECT id, scenario_id, node_id, node_type, name, position_x, position_y, config, created_at, updated_at
		FROM scenario_nodes
		WHERE scenario_id = ?
		ORDER BY created_at
	`, scenarioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := []models.NodeResponse{}
	for rows.Next() {
		var n models.ScenarioNode
		err := rows.Scan(
			&n.ID,
			&n.ScenarioID,
			&n.NodeID,
			&n.NodeType,
			&n.Name,
			&n.PositionX,
			&n.PositionY,
			&n.Config,
			&n.CreatedAt,
			&n.UpdatedAt,
		)
		if err != nil {
			continue
		}
		nodes = append(nodes, models.ToNodeResponse(n))
	}

	return nodes, nil
}

func scenarioExists(id string) (int64, bool) {
	var scenarioID int64
	err := config.DB.QueryRow("SELECT id FROM scenarios WHERE id = ?", id).Scan(&scenarioID)
	return scenarioID, err == nil
}

// GetScenarioNodes - list the nodes of a scenario
func GetScenarioNodes(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	nodes, err := fetchScenarioNodes(scenarioID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario nodes",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    nodes,
	})
}

// CreateScenarioNode - add a node to a scenario (manager and up)
func CreateScenarioNode(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	var req models.CreateNodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.NodeID == "" || req.NodeType == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "node_id, node_type and name are required",
		})
	}

	if !helper.IsValidNodeID(req.NodeID) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "node_id may only contain letters, digits and underscores",
		})
	}

	if !models.IsValidNodeType(req.NodeType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "node_type must be start, message, branch, transfer, end or input",
		})
	}

	if err := helper.ValidateNodeConfig(req.NodeType, req.Config); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var count int
	err := config.DB.QueryRow(
		"SELECT COUNT(*) FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?",
		scenarioID, req.NodeID,
	).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate node",
		})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A node with this node_id already exists in the scenario",
		})
	}

	query := `
		INSERT INTO scenario_nodes (scenario_id, node_id, node_type, name, position_x, position_y, config)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		scenarioID, req.NodeID, req.NodeType, req.Name, req.PositionX, req.PositionY,
		nullableJSON(req.Config),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create node",
		})
	}

	id, _ := result.LastInsertId()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Node created",
		"data": models.NodeResponse{
			ID:        id,
			NodeID:    req.NodeID,
			NodeType:  req.NodeType,
			Name:      req.Name,
			PositionX: req.PositionX,
			PositionY: req.PositionY,
			Config:    models.NullJSON(sql.NullString{String: string(req.Config), Valid: len(req.Config) > 0}),
		},
	})
}

// UpdateScenarioNode - update a node's name, position or config
func UpdateScenarioNode(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	nodeID := c.Params("nodeId")

	var nodeType string
	var dbID int64
	err := config.DB.QueryRow(
		"SELECT id, node_type FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?",
		scenarioID, nodeID,
	).Scan(&dbID, &nodeType)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Node not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch node",
		})
	}

	var req struct {
		Name      string          `json:"name"`
		PositionX *int            `json:"position_x"`
		PositionY *int            `json:"position_y"`
		Config    json.RawMessage `json:"config"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	query := "UPDATE scenario_nodes SET "
	args := []interface{}{}
	updates := []string{}

	if req.Name != "" {
		updates = append(updates, "name = ?")
		args = append(args, req.Name)
	}
	if req.PositionX != nil {
		updates = append(updates, "position_x = ?")
		args = append(args, *req.PositionX)
	}
	if req.PositionY != nil {
		updates = append(updates, "position_y = ?")
		args = append(args, *req.PositionY)
	}
	if len(req.Config) > 0 {
		if err := helper.ValidateNodeConfig(nodeType, req.Config); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		updates = append(updates, "config = ?")
		args = append(args, string(req.Config))
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	for i, update := range updates {
		if i > 0 {
			query += ", "
		}
		query += update
	}
	query += " WHERE id = ?"
	args = append(args, dbID)

	_, err = config.DB.Exec(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update node",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Node updated",
	})
}

// DeleteScenarioNode - remove a node and its connections
func DeleteScenarioNode(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	nodeID := c.Params("nodeId")

	result, err := config.DB.Exec(
		"DELETE FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?",
		scenarioID, nodeID,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete node",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Node not found",
		})
	}

	// Connections touching the node go with it.
	config.DB.Exec(
		"DELETE FROM scenario_connections WHERE scenario_id = ? AND (source_node_id = ? OR target_node_id = ?)",
		scenarioID, nodeID, nodeID,
	)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Node deleted",
	})
}
