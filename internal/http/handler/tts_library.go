package handler

import (
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const libraryColumns = "id, name, text_content, category, tags, voice_actor_id, audio_file_path, usage_count, is_public, created_by, created_at, updated_at"

func scanLibraryRow(scan func(dest ...interface{}) error) (models.TTSLibraryItem, error) {
	var item models.TTSLibraryItem
	err := scan(
		&item.ID,
		&item.Name,
		&item.TextContent,
		&item.Category,
		&item.Tags,
		&item.VoiceActorID,
		&item.AudioFilePath,
		&item.UsageCount,
		&item.IsPublic,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

// GetLibraryItems - reusable phrases, most used first
func GetLibraryItems(c *fiber.Ctx) error {
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
		where = append(where, "(name LIKE ? OR text_content LIKE ? OR tags LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if category := c.Query("category"); category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}

	// Private items are visible to their owner only.
	where = append(where, "(is_public = 1 OR created_by = ?)")
	args = append(args, c.Locals("user_id"))

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_library WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count library items",
		})
	}

	query := "SELECT " + libraryColumns + " FROM tts_library WHERE " + whereClause +
		" ORDER BY usage_count DESC, updated_at DESC LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch library items",
		})
	}
	defer rows.Close()

	items := []models.LibraryItemResponse{}
	for rows.Next() {
		item, err := scanLibraryRow(rows.Scan)
		if err != nil {
			continue
		}
		items = append(items, models.ToLibraryItemResponse(item))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// CreateLibraryItem
func CreateLibraryItem(c *fiber.Ctx) error {
	var req models.CreateLibraryItemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Name == "" || req.TextContent == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name and text_content are required",
		})
	}

	query := `
		INSERT INTO tts_library (name, text_content, category, tags, voice_actor_id, is_public, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		req.Name, req.TextContent, nullableString(req.Category), nullableString(req.Tags),
		req.VoiceActorID, req.IsPublic, c.Locals("user_id"),
	)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create library item",
		})
	}

	id, _ := result.LastInsertId()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Library item created",
		"data":    fiber.Map{"id": id},
	})
}

// UpdateLibraryItem - partial update
func UpdateLibraryItem(c *fiber.Ctx) error {
	id := c.Params("id")

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tts_library WHERE id = ?", id).Scan(&count)
	if err != nil || count == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Library item not found",
		})
	}

	var req struct {
		Name        *string `json:"name"`
		TextContent *string `json:"text_content"`
		Category    *string `json:"category"`
		Tags        *string `json:"tags"`
		IsPublic    *bool   `json:"is_public"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	updates := []string{}
	args := []interface{}{}

	if req.Name != nil && *req.Name != "" {
		updates = append(updates, "name = ?")
		args = append(args, *req.Name)
	}
	if req.TextContent != nil && *req.TextContent != "" {
		updates = append(updates, "text_content = ?")
		args = append(args, *req.TextContent)
	}
	if req.Category != nil {
		updates = append(updates, "category = ?")
		args = append(args, nullableString(*req.Category))
	}
	if req.Tags != nil {
		updates = append(updates, "tags = ?")
		args = append(args, nullableString(*req.Tags))
	}
	if req.IsPublic != nil {
		updates = append(updates, "is_public = ?")
		args = append(args, *req.IsPublic)
	}

	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No fields to update",
		})
	}

	args = append(args, id)
	query := "UPDATE tts_library SET " + strings.Join(updates, ", ") + " WHERE id = ?"
	if _, err := config.DB.Exec(query, args...); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update library item",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Library item updated",
	})
}

// UseLibraryItem - bumps the usage counter and returns the item
func UseLibraryItem(c *fiber.Ctx) error {
	id := c.Params("id")

	result, err := config.DB.Exec("UPDATE tts_library SET usage_count = usage_count + 1 WHERE id = ?", id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record usage",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Library item not found",
		})
	}

	row := config.DB.QueryRow("SELECT "+libraryColumns+" FROM tts_library WHERE id = ?", id)
	item, err := scanLibraryRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch library item",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    models.ToLibraryItemResponse(item),
	})
}

// DeleteLibraryItem
func DeleteLibraryItem(c *fiber.Ctx) error {
	result, err := config.DB.Exec("DELETE FROM tts_library WHERE id = ?", c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete library item",
		})
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Library item not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Library item deleted",
	})
}
