package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Voice model lifecycle states.
const (
	ModelStatusTraining   = "training"
	ModelStatusReady      = "ready"
	ModelStatusError      = "error"
	ModelStatusDeprecated = "deprecated"
)

func IsValidModelStatus(status string) bool {
	switch status {
	case ModelStatusTraining, ModelStatusReady, ModelStatusError, ModelStatusDeprecated:
		return true
	}
	return false
}

func IsValidGender(gender string) bool {
	switch gender {
	case "male", "female", "neutral":
		return true
	}
	return false
}

func IsValidAgeRange(ageRange string) bool {
	switch ageRange {
	case "child", "20s", "30s", "40s", "50s", "senior":
		return true
	}
	return false
}

type VoiceActor struct {
	ID              int64
	Name            string
	Gender          sql.NullString
	AgeRange        sql.NullString
	Language        string
	Description     sql.NullString
	Characteristics sql.NullString // JSON column
	SampleAudioURL  sql.NullString
	IsActive        bool
	CreatedBy       sql.NullInt64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type VoiceModel struct {
	ID                   int64
	VoiceActorID         int64
	ModelName            string
	ModelPath            string
	ModelVersion         string
	TrainingDataDuration sql.NullInt64
	QualityScore         sql.NullFloat64
	Status               string
	Config               sql.NullString // JSON column
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type VoiceSample struct {
	ID            int64
	VoiceActorID  int64
	TextContent   string
	AudioFilePath string
	Duration      sql.NullFloat64
	SampleRate    int
	FileSize      sql.NullInt64
	UploadedBy    sql.NullInt64
	CreatedAt     time.Time
}

type CreateVoiceActorRequest struct {
	Name            string          `json:"name"`
	Gender          string          `json:"gender"`
	AgeRange        string          `json:"age_range"`
	Language        string          `json:"language"`
	Description     string          `json:"description"`
	Characteristics json.RawMessage `json:"characteristics"`
	SampleAudioURL  string          `json:"sample_audio_url"`
}

type CreateVoiceModelRequest struct {
	ModelName            string          `json:"model_name"`
	ModelVersion         string          `json:"model_version"`
	TrainingDataDuration *int64          `json:"training_data_duration"`
	Config               json.RawMessage `json:"config"`
}

type VoiceActorResponse struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Gender          string          `json:"gender,omitempty"`
	AgeRange        string          `json:"age_range,omitempty"`
	Language        string          `json:"language"`
	Description     string          `json:"description,omitempty"`
	Characteristics json.RawMessage `json:"characteristics"`
	SampleAudioURL  string          `json:"sample_audio_url,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type VoiceModelResponse struct {
	ID                   int64           `json:"id"`
	VoiceActorID         int64           `json:"voice_actor_id"`
	ModelName            string          `json:"model_name"`
	ModelPath            string          `json:"model_path"`
	ModelVersion         string          `json:"model_version"`
	TrainingDataDuration *int64          `json:"training_data_duration,omitempty"`
	QualityScore         *float64        `json:"quality_score,omitempty"`
	Status               string          `json:"status"`
	Config               json.RawMessage `json:"config"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

type VoiceSampleResponse struct {
	ID            int64     `json:"id"`
	VoiceActorID  int64     `json:"voice_actor_id"`
	TextContent   string    `json:"text_content"`
	AudioFilePath string    `json:"audio_file_path"`
	Duration      *float64  `json:"duration,omitempty"`
	SampleRate    int       `json:"sample_rate"`
	FileSize      *int64    `json:"file_size,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func ToVoiceActorResponse(a VoiceActor) VoiceActorResponse {
	resp := VoiceActorResponse{
		ID:              a.ID,
		Name:            a.Name,
		Language:        a.Language,
		Characteristics: NullJSON(a.Characteristics),
		IsActive:        a.IsActive,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}

	if a.Gender.Valid {
		resp.Gender = a.Gender.String
	}
	if a.AgeRange.Valid {
		resp.AgeRange = a.AgeRange.String
	}
	if a.Description.Valid {
		resp.Description = a.Description.String
	}
	if a.SampleAudioURL.Valid {
		resp.SampleAudioURL = a.SampleAudioURL.String
	}

	return resp
}

func ToVoiceModelResponse(m VoiceModel) VoiceModelResponse {
	resp := VoiceModelResponse{
		ID:           m.ID,
		VoiceActorID: m.VoiceActorID,
		ModelName:    m.ModelName,
		ModelPath:    m.ModelPath,
		ModelVersion: m.ModelVersion,
		Status:       m.Status,
		Config:       NullJSON(m.Config),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	if m.TrainingDataDuration.Valid {
		resp.TrainingDataDuration = &m.TrainingDataDuration.Int64
	}
	if m.QualityScore.Valid {
		resp.QualityScore = &m.QualityScore.Float64
	}

	return resp
}

func ToVoiceSampleResponse(s VoiceSample) VoiceSampleResponse {
	resp := VoiceSampleResponse{
		ID:            s.ID,
		VoiceActorID:  s.VoiceActorID,
		TextContent:   s.TextContent,
		AudioFilePath: s.AudioFilePath,
		SampleRate:    s.SampleRate,
		CreatedAt:     s.CreatedAt,
	}

	if s.Duration.Valid {
		resp.Duration = &s.Duration.Float64
	}
	if s.FileSize.Valid {
		resp.FileSize = &s.FileSize.Int64
	}

	return resp
}
