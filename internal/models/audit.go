package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           int64
	UserID       sql.NullInt64
	Action       string
	ResourceType string
	ResourceID   sql.NullString
	OldValues    sql.NullString // JSON column
	NewValues    sql.NullString // JSON column
	IPAddress    sql.NullString
	UserAgent    sql.NullString
	CreatedAt    time.Time
}

type AuditLogResponse struct {
	ID           int64           `json:"id"`
	UserID       *int64          `json:"user_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	OldValues    json.RawMessage `json:"old_values,omitempty"`
	NewValues    json.RawMessage `json:"new_values,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func ToAuditLogResponse(a AuditLog) AuditLogResponse {
	resp := AuditLogResponse{
		ID:           a.ID,
		Action:       a.Action,
		ResourceType: a.ResourceType,
		CreatedAt:    a.CreatedAt,
	}

	if a.UserID.Valid {
		resp.UserID = &a.UserID.Int64
	}
	if a.ResourceID.Valid {
		resp.ResourceID = a.ResourceID.String
	}
	if a.OldValues.Valid {
		resp.OldValues = json.RawMessage(a.OldValues.String)
	}
	if a.NewValues.Valid {
		resp.NewValues = json.RawMessage(a.NewValues.String)
	}
	if a.IPAddress.Valid {
		resp.IPAddress = a.IPAddress.String
	}
	if a.UserAgent.Valid {
		resp.UserAgent = a.UserAgent.String
	}

	return resp
}
