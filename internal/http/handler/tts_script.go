package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const scriptColumns = "id, scenario_id, node_id, text_content, voice_actor_id, voice_settings, created_by, created_at, updated_at"

func scanScriptRow(scan func(dest ...interface{}) error) (models.TTSScript, error) {
	var s models.TTSScript
	err := scan(
		&s.ID,
		&s.ScenarioID,
		&s.NodeID,
		&s.TextContent,
		&s.VoiceActorID,
		&s.VoiceSettings,
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// GetAllScripts - list with scenario/node filters + pagination
func GetAllScripts(c *fiber.Ctx) error {
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

	if scenarioID := c.Query("scenario_id"); scenarioID != "" {
		where = append(where, "scenario_id = ?")
		args = append(args, scenarioID)
	}
	if nodeID := c.Query("node_id"); nodeID != "" {
		where = append(where, "node_id = ?")
		args = append(args, nodeID)
	}
	if search := c.Query("search"); search != "" {
		where = append(where, "text_content LIKE ?")
		args = append(args, "%"+search+"%")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_scripts WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count scripts",
		})
	}

	query := "SELECT " + scriptColumns + " FROM tts_scripts WHERE " + whereClause +
		" ORDER BY updated_at DESC LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch scripts",
		})
	}
	defer rows.Close()

	scripts := []models.ScriptResponse{}
	for rows.Next() {
		script, err := scanScriptRow(rows.Scan)
		if err != nil {
			continue
		}
		scripts = append(scripts, models.ToScriptResponse(script))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    scripts,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// GetScriptByID
func GetScriptByID(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+scriptColumns+" FROM tts_scripts WHERE id = ?", c.Params("id"))
	script, err := scanScriptRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Script not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToScriptResponse(script),
	})
}

func validateScriptText(text string) (int, string) {
	if text == "" {
		return fiber.StatusBadRequest, "text_content is required"
	}
	maxLen := config.GetEnvInt("TTS_MAX_TEXT_LENGTH", 1000)
	if len([]rune(text)) > maxLen {
		return fiber.StatusBadRequest, "text_content exceeds " + strconv.Itoa(maxLen) + " characters"
	}
	return 0, ""
}

// CreateScript - the text must belong to an existing scenario node
func CreateScript(c *fiber.Ctx) error {
	var req models.CreateScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if status, msg := validateScriptText(req.TextContent); status != 0 {
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	if req.ScenarioID == 0 || req.NodeID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scenario_id and node_id are required",
		})
	}

	var count int
	err := config.DB.QueryRow(
		"SELECT COUNT(*) FROM scenario_nodes WHERE scenario_id = ? AND node_id = ?",
		req.ScenarioID, req.NodeID,
	).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate scenario node",
		})
	}
	if count == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Scenario node not found",
		})
	}

	if len(req.VoiceSettings) > 0 {
		if err := helper.ValidateVoiceSettings(req.VoiceSettings); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	query := `
		INSERT INTO tts_scripts (scenario_id, node_id, text_content, voice_actor_id, voice_settings, created_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		req.ScenarioID, req.NodeID, req.TextContent,
		req.VoiceActorID, nullableJSON(req.VoiceSettings), c.Locals("user_id"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create script",
		})
	}

	id, _ := result.LastInsertId()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Script created",
		"data":    fiber.Map{"id": id},
	})
}

// UpdateScript - partial update of text and voice settings
func UpdateScript(c *fiber.Ctx) error {
	id := c.Params("id")

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_scripts WHERE id = ?", id).Scan(&count)
	if err != nil || count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Script not found",
		})
	}

	var req struct {
		TextContent   *string         `json:"text_content"`
		VoiceActorID  *int64          `json:"voice_actor_id"`
		VoiceSettings json.RawMessage `json:"voice_settings"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updates := []string{}
	args := []interface{}{}

	if req.TextContent != nil {
		if status, msg := validateScriptText(*req.TextContent); status != 0 {
			return c.Status(status).JSON(fiber.Map{"error": msg})
		}
		updates = append(updates, "text_content = ?")
		args = append(args, *req.TextContent)
	}
	if req.VoiceActorID != nil {
		updates = append(updates, "voice_actor_id = ?")
		args = append(args, *req.VoiceActorID)
	}
	if len(req.VoiceSettings) > 0 {
		if err := helper.ValidateVoiceSettings(req.VoiceSettings); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		updates = append(updates, "voice_settings = ?")
		args = append(args, string(req.VoiceSettings))
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	args = append(args, id)
	query := "UPDATE tts_scripts SET " + strings.Join(updates, ", ") + " WHERE id = ?"
	if _, err := config.DB.Exec(query, args...); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update script",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Script updated",
	})
}

// DeleteScript - refused while generations reference it
func DeleteScript(c *fiber.Ctx) error {
	id := c.Params("id")

	var generationCount int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_generations WHERE script_id = ?", id).Scan(&generationCount)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check generations",
		})
	}
	if generationCount > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Script has generations and cannot be deleted",
		})
	}

	result, err := config.DB.Exec("DELETE FROM tts_scripts WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete script",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Script not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Script deleted",
	})
}
