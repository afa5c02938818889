package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"ars-backend/internal/config"
	"ars-backend/internal/helper"
	"ars-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const fileColumns = "id, file_id, original_filename, file_path, file_size, content_type, file_hash, category, description, download_count, uploaded_by, created_at, updated_at"

func scanFileRow(scan func(dest ...interface{}) error) (models.FileRecord, error) {
	var f models.FileRecord
	err := scan(
		&f.ID,
		&f.FileID,
		&f.OriginalFilename,
		&f.FilePath,
		&f.FileSize,
		&f.ContentType,
		&f.FileHash,
		&f.Category,
		&f.Description,
		&f.DownloadCount,
		&f.UploadedBy,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	return f, err
}

// UploadFile - stores the file under a UUID name and records its sha256
func UploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	maxSize := config.GetEnvInt64("MAX_FILE_SIZE", 50*1024*1024)
	if file.Size > maxSize {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
			"error": fmt.Sprintf("File exceeds the %d byte limit", maxSize),
		})
	}

	category := c.FormValue("category", "general")
	description := c.FormValue("description")

	fileID := uuid.NewString()
	uploadDir := filepath.Join(config.GetEnv("UPLOAD_DIR", "./uploads"), "files")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to prepare upload directory",
		})
	}

	storedPath := filepath.Join(uploadDir, fileID+filepath.Ext(file.Filename))
	if err := c.SaveFile(file, storedPath); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store file",
		})
	}

	fileHash, err := hashFile(storedPath)
	if err != nil {
		os.Remove(storedPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to hash file",
		})
	}

	contentType := file.Header.Get("Content-Type")

	query := `
		INSERT INTO files (file_id, original_filename, file_path, file_size, content_type, file_hash, category, description, uploaded_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := config.DB.Exec(query,
		fileID, file.Filename, storedPath, file.Size,
		nullableString(contentType), fileHash, category,
		nullableString(description), c.Locals("user_id"),
	)
	if err != nil {
		os.Remove(storedPath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file record",
		})
	}

	id, _ := result.LastInsertId()

	helper.WriteAuditLog(c, "upload", "file", fileID, nil, fiber.Map{
		"original_filename": file.Filename,
		"file_size":         file.Size,
		"category":          category,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "File uploaded",
		"data": fiber.Map{
			"id":        id,
			"file_id":   fileID,
			"file_hash": fileHash,
		},
	})
}

// GetAllFiles - list with category/search filters + pagination
func GetAllFiles(c *fiber.Ctx) error {
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

	if category := c.Query("category"); category != "" {
		where = append(where, "category = ?")
		args = append(args, category)
	}
	if search := c.Query("search"); search != "" {
		where = append(where, "(original_filename LIKE ? OR description LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM files WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count files",
		})
	}

	query := "SELECT " + fileColumns + " FROM files WHERE " + whereClause +
		" ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := config.DB.Query(query, append(args, limit, offset)...)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch files",
		})
	}
	defer rows.Close()

	files := []models.FileRecordResponse{}
	for rows.Next() {
		f, err := scanFileRow(rows.Scan)
		if err != nil {
			continue
		}
		files = append(files, models.ToFileRecordResponse(f))
	}

	totalPages := (total + limit - 1) / limit

	return c.JSON(fiber.Map{
		"success": true,
		"data":    files,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// DownloadFile - looked up by its public UUID, bumps download_count
func DownloadFile(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+fileColumns+" FROM files WHERE file_id = ?", c.Params("fileId"))
	f, err := scanFileRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	}

	if _, err := os.Stat(f.FilePath); err != nil {
		return c.Status(fiber.StatusGone).JSON(fiber.Map{
			"error": "File is no longer available",
		})
	}

	_, _ = config.DB.Exec("UPDATE files SET download_count = download_count + 1 WHERE id = ?", f.ID)

	helper.WriteAuditLog(c, "download", "file", f.FileID, nil, fiber.Map{
		"original_filename": f.OriginalFilename,
	})

	c.Set("Content-Disposition", `attachment; filename="`+f.OriginalFilename+`"`)
	if f.ContentType.Valid {
		c.Set("Content-Type", f.ContentType.String)
	}
	return c.SendFile(f.FilePath)
}

// DeleteFile - removes the record and the file on disk
func DeleteFile(c *fiber.Ctx) error {
	row := config.DB.QueryRow("SELECT "+fileColumns+" FROM files WHERE file_id = ?", c.Params("fileId"))
	f, err := scanFileRow(row.Scan)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "File not found",
		})
	}

	if _, err := config.DB.Exec("DELETE FROM files WHERE id = ?", f.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete file",
		})
	}

	if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) {
		log.Printf("[files] failed to remove %s: %v", f.FilePath, err)
	}

	helper.WriteAuditLog(c, "delete", "file", f.FileID, fiber.Map{
		"original_filename": f.OriginalFilename,
		"file_size":         f.FileSize,
	}, nil)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "File deleted",
	})
}

func hashFile(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
