package handler

import (
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const scenarioColumns = `id, name, description, category, version, status, deployed_at, is_template, metadata, created_by, updated_by, created_at, updated_at`

func scanScenarioRow(scan func(dest ...interface{}) error) (models.Scenario, error) {
	var s models.Scenario
	err := scan(
		&s.ID,
		&s.Name,
		&s.Description,
		&s.Category,
		&s.Version,
		&s.Status,
		&s.DeployedAt,
		&s.IsTemplate,
		&s.Metadata,
		&s.CreatedBy,
		&s.UpdatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

func fetchScenario(id string) (models.Scenario, error) {
	row := config.DB.QueryRow("SELECT "+scenarioColumns+" FROM scenarios WHERE id = ?", id)
	return scanScenarioRow(row.Scan)
}

// GetAllScenarios - search scenarios with filters and pagination
func GetAllScenarios(c *fiber.Ctx) error {
	search := c.Query("search")
	category := c.Query("category")
	status := c.Query("status")
	createdBy := c.Query("created_by")
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := " WHERE 1=1"
	args := []interface{}{}

	if search != "" {
		like := "%" + strings.TrimSpace(search) + "%"
		where += " AND (name LIKE ? OR description LIKE ?)"
		args = append(args, like, like)
	}
	if category != "" {
		where += " AND category = ?"
		args = append(args, category)
	}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}
	if createdBy != "" {
		where += " AND created_by = ?"
		args = append(args, createdBy)
	}

	var totalData int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM scenarios"+where, args...).Scan(&totalData)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count scenarios",
		})
	}

	query := "SELECT " + scenarioColumns + " FROM scenarios" + where + " ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenarios",
		})
	}
	defer rows.Close()

	scenarios := []models.ScenarioResponse{}
	for rows.Next() {
		s, err := scanScenarioRow(rows.Scan)
		if err != nil {
			continue
		}
		scenarios = append(scenarios, models.ToScenarioResponse(s))
	}

	totalPages := (totalData + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scenarios,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total_data":  totalData,
			"total_pages": totalPages,
		},
	})
}

// GetScenarioByID - scenario detail including nodes and connections
func GetScenarioByID(c *fiber.Ctx) error {
	id := c.Params("id")

	scenario, err := fetchScenario(id)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario",
		})
	}

	nodes, err := fetchScenarioNodes(scenario.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario nodes",
		})
	}

	connections, err := fetchScenarioConnections(scenario.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario connections",
		})
	}

	detail := models.ScenarioDetailResponse{
		ScenarioResponse: models.ToScenarioResponse(scenario),
		Nodes:            nodes,
		Connections:      connections,
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    detail,
	})
}

// CreateScenario - create a scenario (manager and up)
func CreateScenario(c *fiber.Ctx) error {
	var req models.CreateScenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}

	if req.Version == "" {
		req.Version = "1.0"
	}
	if !helper.IsValidVersion(req.Version) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Version must look like 1.0 or 2.1.3",
		})
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM scenarios WHERE name = ? AND version = ?", req.Name, req.Version).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate scenario",
		})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A scenario with this name and version already exists",
		})
	}

	userID, _ := c.Locals("user_id").(int64)

	query := `
		INSERT INTO scenarios (name, description, category, version, status, is_template, metadata, created_by, updated_by)
		VALUES (?, ?, ?, ?, 'draft', ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		req.Name,
		nullableString(req.Description),
		nullableString(req.Category),
		req.Version,
		req.IsTemplate,
		nullableJSON(req.Metadata),
		userID,
		userID,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create scenario",
		})
	}

	id, _ := result.LastInsertId()
	scenario, _ := fetchScenario(strconv.FormatInt(id, 10))

	helper.WriteAuditLog(c, "create", "scenario", strconv.FormatInt(id, 10), nil, fiber.Map{
		"name":    req.Name,
		"version": req.Version,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Scenario created",
		"data":    models.ToScenarioResponse(scenario),
	})
}

// UpdateScenario - partial update (manager and up)
func UpdateScenario(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Category    string          `json:"category"`
		Status      string          `json:"status"`
		IsTemplate  *bool           `json:"is_template"`
		Metadata    json.RawMessage `json:"metadata"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	old, err := fetchScenario(id)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario",
		})
	}

	query := "UPDATE scenarios SET "
	args := []interface{}{}
	updates := []string{}

	if req.Name != "" {
		var count int
		config.DB.QueryRow(
			"SELECT COUNT(*) FROM scenarios WHERE name = ? AND version = ? AND id != ?",
			req.Name, old.Version, id,
		).Scan(&count)
		if count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "A scenario with this name and version already exists",
			})
		}
		updates = append(updates, "name = ?")
		args = append(args, req.Name)
	}

	if req.Description != "" {
		updates = append(updates, "description = ?")
		args = append(args, req.Description)
	}

	if req.Category != "" {
		updates = append(updates, "category = ?")
		args = append(args, req.Category)
	}

	if req.Status != "" {
		if !models.IsValidScenarioStatus(req.Status) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid scenario status",
			})
		}
		updates = append(updates, "status = ?")
		args = append(args, req.Status)
	}

	if req.IsTemplate != nil {
		updates = append(updates, "is_template = ?")
		args = append(args, *req.IsTemplate)
	}

	if len(req.Metadata) > 0 {
		updates = append(updates, "metadata = ?")
		args = append(args, string(req.Metadata))
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	userID, _ := c.Locals("user_id").(int64)
	updates = append(updates, "updated_by = ?")
	args = append(args, userID)

	query += strings.Join(updates, ", ") + " WHERE id = ?"
	args = append(args, id)

	_, err = config.DB.Exec(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update scenario",
		})
	}

	scenario, _ := fetchScenario(id)

	helper.WriteAuditLog(c, "update", "scenario", id, models.ToScenarioResponse(old), models.ToScenarioResponse(scenario))

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Scenario updated",
		"data":    models.ToScenarioResponse(scenario),
	})
}

// DeleteScenario - archived scenarios only (admin)
func DeleteScenario(c *fiber.Ctx) error {
	id := c.Params("id")

	scenario, err := fetchScenario(id)
	if err == sql.ErrNoRows {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scenario",
		})
	}

	if scenario.Status != models.ScenarioStatusArchived {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only archived scenarios can be deleted",
		})
	}

	// Child rows first; no FK cascades in the schema.
	config.DB.Exec("DELETE FROM scenario_connections WHERE scenario_id = ?", scenario.ID)
	config.DB.Exec("DELETE FROM scenario_nodes WHERE scenario_id = ?", scenario.ID)
	config.DB.Exec("DELETE FROM scenario_versions WHERE scenario_id = ?", scenario.ID)

	_, err = config.DB.Exec("DELETE FROM scenarios WHERE id = ?", scenario.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete scenario",
		})
	}

	helper.WriteAuditLog(c, "delete", "scenario", id, models.ToScenarioResponse(scenario), nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Scenario deleted",
	})
}
