package handler

import (
	"fmt"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const voiceModelColumns = "id, voice_actor_id, model_name, model_path, model_version, training_data_duration, quality_score, status, config, created_at, updated_at"

func scanVoiceModelRow(scan func(dest ...interface{}) error) (models.VoiceModel, error) {
	var m models.VoiceModel
	err := scan(
		&m.ID,
		&m.VoiceActorID,
		&m.ModelName,
		&m.ModelPath,
		&m.ModelVersion,
		&m.TrainingDataDuration,
		&m.QualityScore,
		&m.Status,
		&m.Config,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func fetchVoiceModels(actorID int64) ([]models.VoiceModelResponse, error) {
	rows, err := config.DB.Query(
		"SELECT "+voiceModelColumns+" FROM voice_models WHERE voice_actor_id = ? ORDER BY created_at DESC",
		actorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	voiceModels := []models.VoiceModelResponse{}
	for rows.Next() {
		m, err := scanVoiceModelRow(rows.Scan)
		if err != nil {
			continue
		}
		voiceModels = append(voiceModels, models.ToVoiceModelResponse(m))
	}

	return voiceModels, nil
}

func voiceActorExists(id string) (int64, bool) {
	var actorID int64
	err := config.DB.QueryRow("SELECT id FROM voice_actors WHERE id = ?", id).Scan(&actorID)
	return actorID, err == nil
}

// GetVoiceModels - models of one actor, optional status filter
func GetVoiceModels(c *fiber.Ctx) error {
	actorID, ok := voiceActorExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	status := c.Query("status")
	if status != "" && !models.IsValidModelStatus(status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid model status",
		})
	}

	query := "SELECT " + voiceModelColumns + " FROM voice_models WHERE voice_actor_id = ?"
	args := []interface{}{actorID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := config.DB.Query(query, args...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch voice models",
		})
	}
	defer rows.Close()

	voiceModels := []models.VoiceModelResponse{}
	for rows.Next() {
		m, err := scanVoiceModelRow(rows.Scan)
		if err != nil {
			continue
		}
		voiceModels = append(voiceModels, models.ToVoiceModelResponse(m))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    voiceModels,
	})
}

// CreateVoiceModel - registers a model in training status; the path on disk
// is derived from the actor and the version so the engine can locate it.
func CreateVoiceModel(c *fiber.Ctx) error {
	actorID, ok := voiceActorExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	var req models.CreateVoiceModelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.ModelName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "model_name is required",
		})
	}
	if req.ModelVersion == "" {
		req.ModelVersion = "1.0"
	}
	if !helper.IsValidVersion(req.ModelVersion) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "model_version must look like 1.0 or 1.0.0",
		})
	}

	var count int
	err := config.DB.QueryRow(
		"SELECT COUNT(*) FROM voice_models WHERE voice_actor_id = ? AND model_name = ? AND model_version = ?",
		actorID, req.ModelName, req.ModelVersion,
	).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check voice model",
		})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Model name and version already exist for this actor",
		})
	}

	modelPath := fmt.Sprintf("%s/actor_%d/%s_v%s.pth",
		config.GetEnv("MODEL_DIR", "./models"), actorID,
		strings.ReplaceAll(req.ModelName, " ", "_"), req.ModelVersion,
	)

	query := `
		INSERT INTO voice_models (voice_actor_id, model_name, model_path, model_version, training_data_duration, status, config)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		actorID, req.ModelName, modelPath, req.ModelVersion,
		req.TrainingDataDuration, models.ModelStatusTraining, nullableJSON(req.Config),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create voice model",
		})
	}

	id, _ := result.LastInsertId()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Voice model registered",
		"data": fiber.Map{
			"id":         id,
			"model_path": modelPath,
			"status":     models.ModelStatusTraining,
		},
	})
}

// UpdateVoiceModelStatus - training pipeline callback; also records quality
func UpdateVoiceModelStatus(c *fiber.Ctx) error {
	var req struct {
		Status       string   `json:"status"`
		QualityScore *float64 `json:"quality_score"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if !models.IsValidModelStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Status must be one of: training, ready, error, deprecated",
		})
	}
	if req.QualityScore != nil && (*req.QualityScore < 0 || *req.QualityScore > 1) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "quality_score must be between 0 and 1",
		})
	}

	updates := []string{"status = ?"}
	args := []interface{}{req.Status}
	if req.QualityScore != nil {
		updates = append(updates, "quality_score = ?")
		args = append(args, *req.QualityScore)
	}

	args = append(args, c.Params("modelId"))
	result, err := config.DB.Exec(
		"UPDATE voice_models SET "+strings.Join(updates, ", ")+" WHERE id = ?", args...,
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update voice model",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice model not found",
		})
	}

	helper.WriteAuditLog(c, "update", "voice_model", c.Params("modelId"), nil, req)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice model updated",
	})
}
