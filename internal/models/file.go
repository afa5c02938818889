package models

import (
	"database/sql"
	"time"
)

type FileRecord struct {
	ID               int64
	FileID           string // UUID
	OriginalFilename string
	FilePath         string
	FileSize         int64
	ContentType      sql.NullString
	FileHash         string // sha256 hex
	Category         string
	Description      sql.NullString
	DownloadCount    int
	UploadedBy       sql.NullInt64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type FileRecordResponse struct {
	ID               int64     `json:"id"`
	FileID           string    `json:"file_id"`
	OriginalFilename string    `json:"original_filename"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type,omitempty"`
	FileHash         string    `json:"file_hash"`
	Category         string    `json:"category"`
	Description      string    `json:"description,omitempty"`
	DownloadCount    int       `json:"download_count"`
	UploadedBy       *int64    `json:"uploaded_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func ToFileRecordResponse(f FileRecord) FileRecordResponse {
	resp := FileRecordResponse{
		ID:               f.ID,
		FileID:           f.FileID,
		OriginalFilename: f.OriginalFilename,
		FileSize:         f.FileSize,
		FileHash:         f.FileHash,
		Category:         f.Category,
		DownloadCount:    f.DownloadCount,
		CreatedAt:        f.CreatedAt,
	}

	if f.ContentType.Valid {
		resp.ContentType = f.ContentType.String
	}
	if f.Description.Valid {
		resp.Description = f.Description.String
	}
	if f.UploadedBy.Valid {
		resp.UploadedBy = &f.UploadedBy.Int64
	}

	return resp
}
