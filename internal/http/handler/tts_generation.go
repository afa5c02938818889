package handler

import (
	"errors"
	"strconv"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"
	"ars-backend/internal/ttsengine"

	"github.com/gofiber/fiber/v2"
)

// TTSPool is wired in main before the server starts serving.
var TTSPool *ttsengine.Pool

const generationColumns = "id, script_id, voice_model_id, audio_file_path, file_size, duration, quality_score, status, error_message, generation_params, requested_by, started_at, completed_at, created_at, updated_at"

func scanGenerationRow(scan func(dest ...interface{}) error) (models.TTSGeneration, error) {
	var g models.TTSGeneration
	err := scan(
		&g.ID,
		&g.ScriptID,
		&g.VoiceModelID,
		&g.AudioFilePath,
		&g.FileSize,
		&g.Duration,
		&g.QualityScore,
		&g.Status,
		&g.ErrorMessage,
		&g.GenerationParams,
		&g.RequestedBy,
		&g.StartedAt,
		&g.CompletedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	return g, err
}

// CreateGeneration - queue one script for synthesis
func CreateGeneration(c *fiber.Ctx) error {
	var req models.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Route form POST /tts/scripts/:id/generate carries the script in the path.
	if id := c.Params("id"); id != "" {
		scriptID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid script ID",
			})
		}
		req.ScriptID = scriptID
	}

	if req.ScriptID == 0 || req.VoiceModelID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "script_id and voice_model_id are required",
		})
	}

	var scriptCount int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_scripts WHERE id = ?", req.ScriptID).Scan(&scriptCount)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to validate script",
		})
	}
	if scriptCount == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Script not found",
		})
	}

	// Only models the training pipeline marked ready can synthesize.
	var modelStatus string
	err = config.DB.QueryRow("SELECT status FROM voice_models WHERE id = ?", req.VoiceModelID).Scan(&modelStatus)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice model not found",
		})
	}
	if modelStatus != models.ModelStatusReady {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Voice model is not ready (status: " + modelStatus + ")",
		})
	}

	query := `
		INSERT INTO tts_generations (script_id, voice_model_id, status, generation_params, requested_by)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		req.ScriptID, req.VoiceModelID, models.GenerationStatusPending,
		nullableJSON(req.GenerationParams), c.Locals("user_id"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create generation",
		})
	}

	id, _ := result.LastInsertId()

	if err := TTSPool.Enqueue(id); err != nil {
		_, _ = config.DB.Exec(
			"UPDATE tts_generations SET status = ?, error_message = ? WHERE id = ?",
			models.GenerationStatusFailed, err.Error(), id,
		)
		status := fiber.StatusInternalServerError
		if errors.Is(err, ttsengine.ErrQueueFull) {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"error": "Failed to queue generation: " + err.Error(),
		})
	}

	helper.WriteAuditLog(c, "generate", "tts_generation", strconv.FormatInt(id, 10), nil, fiber.Map{
		"script_id":      req.ScriptID,
		"voice_model_id": req.VoiceModelID,
	})

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success": true,
		"message": "Generation queued",
		"data": fiber.Map{
			"id":     id,
			"status": models.GenerationStatusPending,
		},
	})
}

// GetAllGenerations - list with status/script/model/requester filters + pagination
func GetAllGenerations(c *fiber.Ctx) error {
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

	if status := c.Query("status"); status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if scriptID := c.Query("script_id"); scriptID != "" {
		where = append(where, "script_id = ?")
		args = append(args, scriptID)
	}
	if modelID := c.Query("voice_model_id"); modelID != "" {
		where = append(where, "voice_model_id = ?")
		args = append(args, modelID)
	}
	if requestedBy := c.Query("requested_by"); requestedBy != "" {
		where = append(where, "requested_by = ?")
		args = append(args, requestedBy)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_generations WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count generations",
		})
	}

	query := "SELECT " + generationColumns + " FROM tts_generations WHERE " + whereClause +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch generations",
		})
	}
	defer rows.Close()

	generations := []models.GenerationResponse{}
	for rows.Next() {
		g, err := scanGenerationRow(rows.Scan)
		if err != nil {
			continue
		}
		generations = append(generations, models.ToGenerationResponse(g))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    generations,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// GetGenerationByID
func GetGenerationByID(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+generationColumns+" FROM tts_generations WHERE id = ?", c.Params("id"))
	g, err := scanGenerationRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToGenerationResponse(g),
	})
}

// DownloadGeneration - serve the rendered audio of a completed generation
func DownloadGeneration(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+generationColumns+" FROM tts_generations WHERE id = ?", c.Params("id"))
	g, err := scanGenerationRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	if g.Status != models.GenerationStatusCompleted || !g.AudioFilePath.Valid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Generation is not completed",
		})
	}

	c.Set("Content-Disposition", `attachment; filename="tts_`+c.Params("id")+`.wav"`)
	return c.SendFile(g.AudioFilePath.String)
}

// CancelGeneration - pending jobs are cancelled outright; processing jobs are
// marked so the result is discarded when the worker reports back.
func CancelGeneration(c *fiber.Ctx) error {
	id := c.Params("id")

	var status string
	err := config.DB.QueryRow("SELECT status FROM tts_generations WHERE id = ?", id).Scan(&status)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Generation not found",
		})
	}

	if status != models.GenerationStatusPending && status != models.GenerationStatusProcessing {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only pending or processing generations can be cancelled",
		})
	}

	_, err = config.DB.Exec(
		"UPDATE tts_generations SET status = ? WHERE id = ? AND status IN (?, ?)",
		models.GenerationStatusCancelled, id,
		models.GenerationStatusPending, models.GenerationStatusProcessing,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel generation",
		})
	}

	helper.WriteAuditLog(c, "cancel", "tts_generation", id, fiber.Map{"status": status}, fiber.Map{
		"status": models.GenerationStatusCancelled,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Generation cancelled",
	})
}
