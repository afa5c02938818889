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

const voiceActorColumns = "id, name, gender, age_range, language, description, characteristics, sample_audio_url, is_active, created_by, created_at, updated_at"

func scanVoiceActorRow(scan func(dest ...interface{}) error) (models.VoiceActor, error) {
	var a models.VoiceActor
	err := scan(
		&a.ID,
		&a.Name,
		&a.Gender,
		&a.AgeRange,
		&a.Language,
		&a.Description,
		&a.Characteristics,
		&a.SampleAudioURL,
		&a.IsActive,
		&a.CreatedBy,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// GetAllVoiceActors - list with search + language/gender/is_active filters
func GetAllVoiceActors(c *fiber.Ctx) error {
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

	if search := c.Query("search"); search != "" {
		where = append(where, "(name LIKE ? OR description LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if language := c.Query("language"); language != "" {
		where = append(where, "language = ?")
		args = append(args, language)
	}
	if gender := c.Query("gender"); gender != "" {
		where = append(where, "gender = ?")
		args = append(args, gender)
	}
	if isActive := c.Query("is_active"); isActive != "" {
		where = append(where, "is_active = ?")
		args = append(args, isActive == "true")
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM voice_actors WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count voice actors",
		})
	}

	query := "SELECT " + voiceActorColumns + " FROM voice_actors WHERE " + whereClause +
		" ORDER BY name LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch voice actors",
		})
	}
	defer rows.Close()

	actors := []models.VoiceActorResponse{}
	for rows.Next() {
		actor, err := scanVoiceActorRow(rows.Scan)
		if err != nil {
			continue
		}
		actors = append(actors, models.ToVoiceActorResponse(actor))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    actors,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// GetVoiceActorByID - actor detail including its models and sample count
func GetVoiceActorByID(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+voiceActorColumns+" FROM voice_actors WHERE id = ?", c.Params("id"))
	actor, err := scanVoiceActorRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	var sampleCount int
	_ = config.DB.QueryRow("SELECT COUNT(*) FROM voice_samples WHERE voice_actor_id = ?", actor.ID).Scan(&sampleCount)

	voiceModels, err := fetchVoiceModels(actor.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch voice models",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"actor":        models.ToVoiceActorResponse(actor),
			"models":       voiceModels,
			"sample_count": sampleCount,
		},
	})
}

// CreateVoiceActor - manager and up
func CreateVoiceActor(c *fiber.Ctx) error {
	var req models.CreateVoiceActorRequest
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
	if req.Gender != "" && !models.IsValidGender(req.Gender) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Gender must be one of: male, female, neutral",
		})
	}
	if req.AgeRange != "" && !models.IsValidAgeRange(req.AgeRange) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid age range",
		})
	}
	if req.Language == "" {
		req.Language = "ko"
	}

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM voice_actors WHERE name = ?", req.Name).Scan(&count)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to check voice actor name",
		})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Voice actor name already exists",
		})
	}

	query := `
		INSERT INTO voice_actors (name, gender, age_range, language, description, characteristics, sample_audio_url, is_active, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
	`
	result, err := config.DB.Exec(query,
		req.Name, nullableString(req.Gender), nullableString(req.AgeRange), req.Language,
		nullableString(req.Description), nullableJSON(req.Characteristics),
		nullableString(req.SampleAudioURL), c.Locals("user_id"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create voice actor",
		})
	}

	id, _ := result.LastInsertId()

	helper.WriteAuditLog(c, "create", "voice_actor", strconv.FormatInt(id, 10), nil, req)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Voice actor created",
		"data":    fiber.Map{"id": id, "name": req.Name},
	})
}

// UpdateVoiceActor - partial update, manager and up
func UpdateVoiceActor(c *fiber.Ctx) error {
	id := c.Params("id")

	row := config.DB.QueryRow("SELECT "+voiceActorColumns+" FROM voice_actors WHERE id = ?", id)
	existing, err := scanVoiceActorRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	var req struct {
		Name            *string         `json:"name"`
		Gender          *string         `json:"gender"`
		AgeRange        *string         `json:"age_range"`
		Language        *string         `json:"language"`
		Description     *string         `json:"description"`
		Characteristics json.RawMessage `json:"characteristics"`
		SampleAudioURL  *string         `json:"sample_audio_url"`
		IsActive        *bool           `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updates := []string{}
	args := []interface{}{}

	if req.Name != nil && *req.Name != "" {
		var count int
		err := config.DB.QueryRow("SELECT COUNT(*) FROM voice_actors WHERE name = ? AND id != ?", *req.Name, id).Scan(&count)
		if err == nil && count > 0 {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Voice actor name already exists",
			})
		}
		updates = append(updates, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Gender != nil {
		if !models.IsValidGender(*req.Gender) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Gender must be one of: male, female, neutral",
			})
		}
		updates = append(updates, "gender = ?")
		args = append(args, *req.Gender)
	}
	if req.AgeRange != nil {
		if !models.IsValidAgeRange(*req.AgeRange) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid age range",
			})
		}
		updates = append(updates, "age_range = ?")
		args = append(args, *req.AgeRange)
	}
	if req.Language != nil && *req.Language != "" {
		updates = append(updates, "language = ?")
		args = append(args, *req.Language)
	}
	if req.Description != nil {
		updates = append(updates, "description = ?")
		args = append(args, nullableString(*req.Description))
	}
	if len(req.Characteristics) > 0 {
		updates = append(updates, "characteristics = ?")
		args = append(args, string(req.Characteristics))
	}
	if req.SampleAudioURL != nil {
		updates = append(updates, "sample_audio_url = ?")
		args = append(args, nullableString(*req.SampleAudioURL))
	}
	if req.IsActive != nil {
		updates = append(updates, "is_active = ?")
		args = append(args, *req.IsActive)
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	args = append(args, id)
	query := "UPDATE voice_actors SET " + strings.Join(updates, ", ") + " WHERE id = ?"
	if _, err := config.DB.Exec(query, args...); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update voice actor",
		})
	}

	helper.WriteAuditLog(c, "update", "voice_actor", id, models.ToVoiceActorResponse(existing), req)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice actor updated",
	})
}

// DeactivateVoiceActor - soft delete; models and samples are kept
func DeactivateVoiceActor(c *fiber.Ctx) error {
	id := c.Params("id")

	result, err := config.DB.Exec("UPDATE voice_actors SET is_active = 0 WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to deactivate voice actor",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	helper.WriteAuditLog(c, "deactivate", "voice_actor", id, nil, fiber.Map{"is_active": false})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice actor deactivated",
	})
}
