package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

const (
	DeploymentStatusPending    = "pending"
	DeploymentStatusDeploying  = "deploying"
	DeploymentStatusDeployed   = "deployed"
	DeploymentStatusFailed     = "failed"
	DeploymentStatusRolledBack = "rolled_back"
)

func IsValidEnvironment(env string) bool {
	switch env {
	case "development", "staging", "production":
		return true
	}
	return false
}

type Deployment struct {
	ID              int64
	ScenarioID      sql.NullInt64
	Environment     string
	Version         string
	Status          string
	RollbackVersion sql.NullString
	ErrorMessage    sql.NullString
	Config          sql.NullString // JSON column
	DeployedBy      sql.NullInt64
	StartedAt       sql.NullInt64 // unix seconds
	CompletedAt     sql.NullInt64 // unix seconds
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type CreateDeploymentRequest struct {
	ScenarioID  int64           `json:"scenario_id"`
	Environment string          `json:"environment"`
	Config      json.RawMessage `json:"config"`
}

type DeploymentResponse struct {
	ID              int64           `json:"id"`
	ScenarioID      *int64          `json:"scenario_id,omitempty"`
	Environment     string          `json:"environment"`
	Version         string          `json:"version"`
	Status          string          `json:"status"`
	RollbackVersion string          `json:"rollback_version,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	Config          json.RawMessage `json:"config"`
	DeployedBy      *int64          `json:"deployed_by,omitempty"`
	StartedAt       *int64          `json:"started_at,omitempty"`
	CompletedAt     *int64          `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

func ToDeploymentResponse(d Deployment) DeploymentResponse {
	resp := DeploymentResponse{
		ID:          d.ID,
		Environment: d.Environment,
		Version:     d.Version,
		Status:      d.Status,
		Config:      NullJSON(d.Config),
		CreatedAt:   d.CreatedAt,
	}

	if d.ScenarioID.Valid {
		resp.ScenarioID = &d.ScenarioID.Int64
	}
	if d.RollbackVersion.Valid {
		resp.RollbackVersion = d.RollbackVersion.String
	}
	if d.ErrorMessage.Valid {
		resp.ErrorMessage = d.ErrorMessage.String
	}
	if d.DeployedBy.Valid {
		resp.DeployedBy = &d.DeployedBy.Int64
	}
	if d.StartedAt.Valid {
		resp.StartedAt = &d.StartedAt.Int64
	}
	if d.CompletedAt.Valid {
		resp.CompletedAt = &d.CompletedAt.Int64
	}

	return resp
}
