package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// TTS generation states.
const (
	GenerationStatusPending    = "pending"
	GenerationStatusProcessing = "processing"
	GenerationStatusCompleted  = "completed"
	GenerationStatusFailed     = "failed"
	GenerationStatusCancelled  = "cancelled"
)

type TTSScript struct {
	ID            int64
	ScenarioID    int64
	NodeID        string
	TextContent   string
	VoiceActorID  sql.NullInt64
	VoiceSettings sql.NullString // JSON column
	CreatedBy     sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TTSGeneration struct {
	ID               int64
	ScriptID         int64
	VoiceModelID     sql.NullInt64
	AudioFilePath    sql.NullString
	FileSize         sql.NullInt64
	Duration         sql.NullFloat64
	QualityScore     sql.NullFloat64
	Status           string
	ErrorMessage     sql.NullString
	GenerationParams sql.NullString // JSON column
	RequestedBy      sql.NullInt64
	StartedAt        sql.NullInt64 // unix seconds
	CompletedAt      sql.NullInt64 // unix seconds
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type TTSLibraryItem struct {
	ID            int64
	Name          string
	TextContent   string
	Category      sql.NullString
	Tags          sql.NullString
	VoiceActorID  sql.NullInt64
	AudioFilePath sql.NullString
	UsageCount    int
	IsPublic      bool
	CreatedBy     sql.NullInt64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateScriptRequest struct {
	ScenarioID    int64           `json:"scenario_id"`
	NodeID        string          `json:"node_id"`
	TextContent   string          `json:"text_content"`
	VoiceActorID  *int64          `json:"voice_actor_id"`
	VoiceSettings json.RawMessage `json:"voice_settings"`
}

type GenerateRequest struct {
	ScriptID         int64           `json:"script_id"`
	VoiceModelID     int64           `json:"voice_model_id"`
	GenerationParams json.RawMessage `json:"generation_params"`
}

type CreateLibraryItemRequest struct {
	Name         string `json:"name"`
	TextContent  string `json:"text_content"`
	Category     string `json:"category"`
	Tags         string `json:"tags"`
	VoiceActorID *int64 `json:"voice_actor_id"`
	IsPublic     bool   `json:"is_public"`
}

type ScriptResponse struct {
	ID            int64           `json:"id"`
	ScenarioID    int64           `json:"scenario_id"`
	NodeID        string          `json:"node_id"`
	TextContent   string          `json:"text_content"`
	VoiceActorID  *int64          `json:"voice_actor_id,omitempty"`
	VoiceSettings json.RawMessage `json:"voice_settings"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type GenerationResponse struct {
	ID               int64           `json:"id"`
	ScriptID         int64           `json:"script_id"`
	VoiceModelID     *int64          `json:"voice_model_id,omitempty"`
	AudioFilePath    string          `json:"audio_file_path,omitempty"`
	FileSize         *int64          `json:"file_size,omitempty"`
	Duration         *float64        `json:"duration,omitempty"`
	QualityScore     *float64        `json:"quality_score,omitempty"`
	Status           string          `json:"status"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	GenerationParams json.RawMessage `json:"generation_params"`
	RequestedBy      *int64          `json:"requested_by,omitempty"`
	StartedAt        *int64          `json:"started_at,omitempty"`
	CompletedAt      *int64          `json:"completed_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

type LibraryItemResponse struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	TextContent   string    `json:"text_content"`
	Category      string    `json:"category,omitempty"`
	Tags          string    `json:"tags,omitempty"`
	VoiceActorID  *int64    `json:"voice_actor_id,omitempty"`
	AudioFilePath string    `json:"audio_file_path,omitempty"`
	UsageCount    int       `json:"usage_count"`
	IsPublic      bool      `json:"is_public"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func ToScriptResponse(s TTSScript) ScriptResponse {
	resp := ScriptResponse{
		ID:            s.ID,
		ScenarioID:    s.ScenarioID,
		NodeID:        s.NodeID,
		TextContent:   s.TextContent,
		VoiceSettings: NullJSON(s.VoiceSettings),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	if s.VoiceActorID.Valid {
		resp.VoiceActorID = &s.VoiceActorID.Int64
	}

	return resp
}

func ToGenerationResponse(g TTSGeneration) GenerationResponse {
	resp := GenerationResponse{
		ID:               g.ID,
		ScriptID:         g.ScriptID,
		Status:           g.Status,
		GenerationParams: NullJSON(g.GenerationParams),
		CreatedAt:        g.CreatedAt,
	}

	if g.VoiceModelID.Valid {
		resp.VoiceModelID = &g.VoiceModelID.Int64
	}
	if g.AudioFilePath.Valid {
		resp.AudioFilePath = g.AudioFilePath.String
	}
	if g.FileSize.Valid {
		resp.FileSize = &g.FileSize.Int64
	}
	if g.Duration.Valid {
		resp.Duration = &g.Duration.Float64
	}
	if g.QualityScore.Valid {
		resp.QualityScore = &g.QualityScore.Float64
	}
	if g.ErrorMessage.Valid {
		resp.ErrorMessage = g.ErrorMessage.String
	}
	if g.RequestedBy.Valid {
		resp.RequestedBy = &g.RequestedBy.Int64
	}
	if g.StartedAt.Valid {
		resp.StartedAt = &g.StartedAt.Int64
	}
	if g.CompletedAt.Valid {
		resp.CompletedAt = &g.CompletedAt.Int64
	}

	return resp
}

func ToLibraryItemResponse(item TTSLibraryItem) LibraryItemResponse {
	resp := LibraryItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		TextContent: item.TextContent,
		UsageCount:  item.UsageCount,
		IsPublic:    item.IsPublic,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}

	if item.Category.Valid {
		resp.Category = item.Category.String
	}
	if item.Tags.Valid {
		resp.Tags = item.Tags.String
	}
	if item.VoiceActorID.Valid {
		resp.VoiceActorID = &item.VoiceActorID.Int64
	}
	if item.AudioFilePath.Valid {
		resp.AudioFilePath = item.AudioFilePath.String
	}

	return resp
}
