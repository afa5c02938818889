package handler

import (
	"strconv"
	"strings"
	"time"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const deploymentColumns = "id, scenario_id, environment, version, status, rollback_version, error_message, config, deployed_by, started_at, completed_at, created_at, updated_at"

func scanDeploymentRow(scan func(dest ...interface{}) error) (models.Deployment, error) {
	var d models.Deployment
	err := scan(
		&d.ID,
		&d.ScenarioID,
		&d.Environment,
		&d.Version,
		&d.Status,
		&d.RollbackVersion,
		&d.ErrorMessage,
		&d.Config,
		&d.DeployedBy,
		&d.StartedAt,
		&d.CompletedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// GetAllDeployments - list with environment/status/scenario filters + pagination
func GetAllDeployments(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{"1=1"}
	args := []interface{}{}

	if env := c.Query("environment"); env != "" {
		where = append(where, "environment = ?")
		args = append(args, env)
	}
	if status := c.Query("status"); status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if scenarioID := c.Query("scenario_id"); scenarioID != "" {
		where = append(where, "scenario_id = ?")
		args = append(args, scenarioID)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM deployments WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count deployments",
		})
	}

	query := "SELECT " + deploymentColumns + " FROM deployments WHERE " + whereClause +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch deployments",
		})
	}
	defer rows.Close()

	deployments := []models.DeploymentResponse{}
	for rows.Next() {
		d, err := scanDeploymentRow(rows.Scan)
		if err != nil {
			continue
		}
		deployments = append(deployments, models.ToDeploymentResponse(d))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    deployments,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// GetDeploymentByID
func GetDeploymentByID(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+deploymentColumns+" FROM deployments WHERE id = ?", c.Params("id"))
	d, err := scanDeploymentRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deployment not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToDeploymentResponse(d),
	})
}

// CreateDeployment - records a release of an active scenario to an environment
func CreateDeployment(c *fiber.Ctx) error {
	var req models.CreateDeploymentRequest
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
	if !models.IsValidEnvironment(req.Environment) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "environment must be one of: development, staging, production",
		})
	}

	var version, status string
	err := config.DB.QueryRow("SELECT version, status FROM scenarios WHERE id = ?", req.ScenarioID).Scan(&version, &status)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Scenario not found",
		})
	}
	if req.Environment == "production" && status != models.ScenarioStatusActive {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only active scenarios can be deployed to production",
		})
	}

	// An in-flight deployment to the same environment blocks a new one.
	var inflight int
	err = config.DB.QueryRow(
		"SELECT COUNT(*) FROM deployments WHERE scenario_id = ? AND environment = ? AND status IN (?, ?)",
		req.ScenarioID, req.Environment,
		models.DeploymentStatusPending, models.DeploymentStatusDeploying,
	).Scan(&inflight)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check deployments",
		})
	}
	if inflight > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "A deployment to this environment is already in progress",
		})
	}

	// The previous deployed version becomes the rollback target.
	var rollbackVersion interface{}
	var previous string
	err = config.DB.QueryRow(`
		SELECT version FROM deployments
		WHERE scenario_id = ? AND environment = ? AND status = ?
		ORDER BY completed_at DESC LIMIT 1
	`, req.ScenarioID, req.Environment, models.DeploymentStatusDeployed).Scan(&previous)
	if err == nil {
		rollbackVersion = previous
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO deployments (scenario_id, environment, version, status, rollback_version, config, deployed_by, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		req.ScenarioID, req.Environment, version, models.DeploymentStatusDeployed,
		rollbackVersion, nullableJSON(req.Config), c.Locals("user_id"), now, now,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create deployment",
		})
	}

	id, _ := result.LastInsertId()

	helper.WriteAuditLog(c, "deploy", "deployment", strconv.FormatInt(id, 10), nil, fiber.Map{
		"scenario_id": req.ScenarioID,
		"environment": req.Environment,
		"version":     version,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Deployment recorded",
		"data": fiber.Map{
			"id":          id,
			"environment": req.Environment,
			"version":     version,
			"status":      models.DeploymentStatusDeployed,
		},
	})
}

// RollbackDeployment - flips a deployed release back to its rollback version
func RollbackDeployment(c *fiber.Ctx) error {
	id := c.Params("id")

	row := config.DB.QueryRow("SELECT "+deploymentColumns+" FROM deployments WHERE id = ?", id)
	d, err := scanDeploymentRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Deployment not found",
		})
	}

	if d.Status != models.DeploymentStatusDeployed {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only deployed releases can be rolled back",
		})
	}
	if !d.RollbackVersion.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Deployment has no rollback version",
		})
	}

	_, err = config.DB.Exec(
		"UPDATE deployments SET status = ?, completed_at = ? WHERE id = ?",
		models.DeploymentStatusRolledBack, time.Now().Unix(), id,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to roll back deployment",
		})
	}

	helper.WriteAuditLog(c, "rollback", "deployment", id,
		fiber.Map{"status": d.Status, "version": d.Version},
		fiber.Map{"status": models.DeploymentStatusRolledBack, "version": d.RollbackVersion.String},
	)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Deployment rolled back",
		"data": fiber.Map{
			"id":               d.ID,
			"rollback_version": d.RollbackVersion.String,
			"status":           models.DeploymentStatusRolledBack,
		},
	})
}
