package handler

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// GetVoiceSamples - samples of one actor, newest first
func GetVoiceSamples(c *fiber.Ctx) error {
	actorID, ok := voiceActorExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	rows, err := config.DB.Query(`
		SELECT id, voice_actor_id, text_content, audio_file_path, duration, sample_rate, file_size, uploaded_by, created_at
		FROM voice_samples
		WHERE voice_actor_id = ?
		ORDER BY created_at DESC
	`, actorID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch voice samples",
		})
	}
	defer rows.Close()

	samples := []models.VoiceSampleResponse{}
	for rows.Next() {
		var s models.VoiceSample
		err := rows.Scan(
			&s.ID, &s.VoiceActorID, &s.TextContent, &s.AudioFilePath,
			&s.Duration, &s.SampleRate, &s.FileSize, &s.UploadedBy, &s.CreatedAt,
		)
		if err != nil {
			continue
		}
		samples = append(samples, models.ToVoiceSampleResponse(s))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    samples,
	})
}

// UploadVoiceSample - multipart upload of one training sample
func UploadVoiceSample(c *fiber.Ctx) error {
	actorID, ok := voiceActorExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	textContent := c.FormValue("text_content")
	if textContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "text_content is required",
		})
	}

	sampleRate := 22050
	if v := c.FormValue("sample_rate"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 8000 || parsed > 48000 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "sample_rate must be between 8000 and 48000",
			})
		}
		sampleRate = parsed
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Audio file is required",
		})
	}

	if !helper.IsAllowedAudioFile(file.Filename) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Only .wav, .mp3, .flac and .ogg files are allowed",
		})
	}

	maxSize := config.GetEnvInt64("MAX_FILE_SIZE", 50*1024*1024)
	if file.Size > maxSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("File exceeds the %d byte limit", maxSize),
		})
	}

	sampleDir := filepath.Join(config.GetEnv("UPLOAD_DIR", "./uploads"), "samples")
	if err := os.MkdirAll(sampleDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to prepare upload directory",
		})
	}

	storedName := uuid.NewString() + filepath.Ext(file.Filename)
	storedPath := filepath.Join(sampleDir, storedName)
	if err := c.SaveFile(file, storedPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store audio file",
		})
	}

	query := `
		INSERT INTO voice_samples (voice_actor_id, text_content, audio_file_path, sample_rate, file_size, uploaded_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		actorID, textContent, storedPath, sampleRate, file.Size, c.Locals("user_id"),
	)
	if err != nil {
		os.Remove(storedPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save voice sample",
		})
	}

	id, _ := result.LastInsertId()

	helper.WriteAuditLog(c, "upload", "voice_sample", strconv.FormatInt(id, 10), nil, fiber.Map{
		"voice_actor_id": actorID,
		"file_name":      file.Filename,
		"file_size":      file.Size,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Voice sample uploaded",
		"data": fiber.Map{
			"id":              id,
			"audio_file_path": storedPath,
			"sample_rate":     sampleRate,
		},
	})
}

// DeleteVoiceSample - removes the row and the file on disk
func DeleteVoiceSample(c *fiber.Ctx) error {
	actorID, ok := voiceActorExists(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice actor not found",
		})
	}

	var audioPath string
	err := config.DB.QueryRow(
		"SELECT audio_file_path FROM voice_samples WHERE id = ? AND voice_actor_id = ?",
		c.Params("sampleId"), actorID,
	).Scan(&audioPath)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voice sample not found",
		})
	}

	if _, err := config.DB.Exec("DELETE FROM voice_samples WHERE id = ?", c.Params("sampleId")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete voice sample",
		})
	}

	if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
		log.Printf("[voice] failed to remove sample file %s: %v", audioPath, err)
	}

	helper.WriteAuditLog(c, "delete", "voice_sample", c.Params("sampleId"), fiber.Map{
		"audio_file_path": audioPath,
	}, nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Voice sample deleted",
	})
}
