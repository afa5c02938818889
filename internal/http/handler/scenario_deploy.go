package handler

import (
	"encoding/json"
	"time"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"
	"ars-backend/internal/simulation"

	"github.com/gofiber/fiber/v2"
)

// loadScenarioGraph builds the in-memory graph the simulation engine and the
// validator work on. Node configs stored as JSON text are decoded here once.
func loadScenarioGraph(scenarioID int64) (*simulation.Graph, error) {
	nodes, err := fetchScenarioNodes(scenarioID)
	if err != nil {
		return nil, err
	}

	connections, err := fetchScenarioConnections(scenarioID)
	if err != nil {
		return nil, err
	}

	graph := &simulation.Graph{ScenarioID: scenarioID}

	for _, n := range nodes {
		cfg := map[string]interface{}{}
		if len(n.Config) > 0 {
			_ = json.Unmarshal(n.Config, &cfg)
		}
		graph.Nodes = append(graph.Nodes, simulation.Node{
			NodeID:   n.NodeID,
			NodeType: n.NodeType,
			Name:     n.Name,
			Config:   cfg,
		})
	}

	for _, conn := range connections {
		graph.Connections = append(graph.Connections, simulation.Connection{
			SourceNodeID: conn.SourceNodeID,
			TargetNodeID: conn.TargetNodeID,
			Label:        conn.Label,
		})
	}

	return graph, nil
}

// ValidateScenario - structural check of the flowchart without deploying it
func ValidateScenario(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
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

	return c.JSON(fiber.Map{
		"success": true,
		"data":    simulation.ValidateGraph(graph),
	})
}

// DeployScenario - promote a testing scenario to active and snapshot it
func DeployScenario(c *fiber.Ctx) error {
	scenario, err := fetchScenario(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	if scenario.Status != models.ScenarioStatusTesting {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only scenarios in testing status can be deployed",
		})
	}

	graph, err := loadScenarioGraph(scenario.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load scenario graph",
		})
	}

	validation := simulation.ValidateGraph(graph)
	if !validation.IsValid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Scenario failed validation",
			"detail": validation,
		})
	}

	var req struct {
		Notes string `json:"notes"`
	}
	_ = c.BodyParser(&req)

	snapshot, err := json.Marshal(graph)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to snapshot scenario",
		})
	}

	userID := c.Locals("user_id")

	tx, err := config.DB.Begin()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deploy scenario",
		})
	}

	now := time.Now()
	_, err = tx.Exec(
		"UPDATE scenarios SET status = ?, deployed_at = ?, updated_by = ? WHERE id = ?",
		models.ScenarioStatusActive, now, userID, scenario.ID,
	)
	if err == nil {
		_, err = tx.Exec(
			"INSERT INTO scenario_versions (scenario_id, version, snapshot, notes, created_by) VALUES (?, ?, ?, ?, ?)",
			scenario.ID, scenario.Version, string(snapshot), nullableString(req.Notes), userID,
		)
	}
	if err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deploy scenario",
		})
	}
	if err := tx.Commit(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deploy scenario",
		})
	}

	helper.WriteAuditLog(c, "deploy", "scenario", c.Params("id"),
		fiber.Map{"status": scenario.Status},
		fiber.Map{"status": models.ScenarioStatusActive, "version": scenario.Version},
	)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Scenario deployed",
		"data": fiber.Map{
			"id":          scenario.ID,
			"status":      models.ScenarioStatusActive,
			"version":     scenario.Version,
			"deployed_at": now,
		},
	})
}

// ListScenarioVersions - deployment snapshots, newest first
func ListScenarioVersions(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	rows, err := config.DB.Query(`
		SELECT id, scenario_id, version, notes, created_by, created_at
		FROM scenario_versions
		WHERE scenario_id = ?
		ORDER BY created_at DESC
	`, scenarioID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch versions",
		})
	}
	defer rows.Close()

	versions := []fiber.Map{}
	for rows.Next() {
		var v models.ScenarioVersion
		err := rows.Scan(&v.ID, &v.ScenarioID, &v.Version, &v.Notes, &v.CreatedBy, &v.CreatedAt)
		if err != nil {
			continue
		}

		entry := fiber.Map{
			"id":         v.ID,
			"version":    v.Version,
			"created_at": v.CreatedAt,
		}
		if v.Notes.Valid {
			entry["notes"] = v.Notes.String
		}
		if v.CreatedBy.Valid {
			entry["created_by"] = v.CreatedBy.Int64
		}
		versions = append(versions, entry)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    versions,
	})
}

// GetScenarioVersion - single snapshot with the full graph payload
func GetScenarioVersion(c *fiber.Ctx) error {
	scenarioID, ok := scenarioExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}

	var v models.ScenarioVersion
	err := config.DB.QueryRow(`
		SELECT id, scenario_id, version, snapshot, notes, created_by, created_at
		FROM scenario_versions
		WHERE id = ? AND scenario_id = ?
	`, c.Params("versionId"), scenarioID).Scan(
		&v.ID, &v.ScenarioID, &v.Version, &v.Snapshot, &v.Notes, &v.CreatedBy, &v.CreatedAt,
	)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Version not found",
		})
	}

	entry := fiber.Map{
		"id":         v.ID,
		"version":    v.Version,
		"snapshot":   json.RawMessage(v.Snapshot),
		"created_at": v.CreatedAt,
	}
	if v.Notes.Valid {
		entry["notes"] = v.Notes.String
	}
	if v.CreatedBy.Valid {
		entry["created_by"] = v.CreatedBy.Int64
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entry,
	})
}
