package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Scenario lifecycle states.
const (
	ScenarioStatusDraft    = "draft"
	ScenarioStatusTesting  = "testing"
	ScenarioStatusActive   = "active"
	ScenarioStatusInactive = "inactive"
	ScenarioStatusArchived = "archived"
)

func IsValidScenarioStatus(status string) bool {
	switch status {
	case ScenarioStatusDraft, ScenarioStatusTesting, ScenarioStatusActive,
		ScenarioStatusInactive, ScenarioStatusArchived:
		return true
	}
	return false
}

// ARS flowchart node types.
const (
	NodeTypeStart    = "start"
	NodeTypeMessage  = "message"
	NodeTypeBranch   = "branch"
	NodeTypeTransfer = "transfer"
	NodeTypeEnd      = "end"
	NodeTypeInput    = "input"
)

func IsValidNodeType(nodeType string) bool {
	switch nodeType {
	case NodeTypeStart, NodeTypeMessage, NodeTypeBranch,
		NodeTypeTransfer, NodeTypeEnd, NodeTypeInput:
		return true
	}
	return false
}

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
*/
type Scenario struct {
	ID          int64
	Name        string
	Description sql.NullString
	Category    sql.NullString
	Version     string
	Status      string
	DeployedAt  sql.NullTime
	IsTemplate  bool
	Metadata    sql.NullString // JSON column
	CreatedBy   sql.NullInt64
	UpdatedBy   sql.NullInt64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ScenarioNode struct {
	ID         int64
	ScenarioID int64
	NodeID     string
	NodeType   string
	Name       string
	PositionX  int
	PositionY  int
	Config     sql.NullString // JSON column
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ScenarioConnection struct {
	ID           int64
	ScenarioID   int64
	SourceNodeID string
	TargetNodeID string
	Condition    sql.NullString // JSON column
	Label        sql.NullString
	CreatedAt    time.Time
}

type ScenarioVersion struct {
	ID         int64
	ScenarioID int64
	Version    string
	Snapshot   string // JSON column
	Notes      sql.NullString
	CreatedBy  sql.NullInt64
	CreatedAt  time.Time
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type CreateScenarioRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Version     string          `json:"version"`
	IsTemplate  bool            `json:"is_template"`
	Metadata    json.RawMessage `json:"metadata"`
}

type CreateNodeRequest struct {
	NodeID    string          `json:"node_id"`
	NodeType  string          `json:"node_type"`
	Name      string          `json:"name"`
	PositionX int             `json:"position_x"`
	PositionY int             `json:"position_y"`
	Config    json.RawMessage `json:"config"`
}

type CreateConnectionRequest struct {
	SourceNodeID string          `json:"source_node_id"`
	TargetNodeID string          `json:"target_node_id"`
	Condition    json.RawMessage `json:"condition"`
	Label        string          `json:"label"`
}

/*
|--------------------------------------------------------------------------
| RESPONSE DTO
|--------------------------------------------------------------------------
*/
type ScenarioResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Version     string          `json:"version"`
	Status      string          `json:"status"`
	DeployedAt  *time.Time      `json:"deployed_at,omitempty"`
	IsTemplate  bool            `json:"is_template"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedBy   *int64          `json:"created_by,omitempty"`
	UpdatedBy   *int64          `json:"updated_by,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type NodeResponse struct {
	ID        int64           `json:"id"`
	NodeID    string          `json:"node_id"`
	NodeType  string          `json:"node_type"`
	Name      string          `json:"name"`
	PositionX int             `json:"position_x"`
	PositionY int             `json:"position_y"`
	Config    json.RawMessage `json:"config"`
}

type ConnectionResponse struct {
	ID           int64           `json:"id"`
	SourceNodeID string          `json:"source_node_id"`
	TargetNodeID string          `json:"target_node_id"`
	Condition    json.RawMessage `json:"condition,omitempty"`
	Label        string          `json:"label"`
}

type ScenarioDetailResponse struct {
	ScenarioResponse
	Nodes       []NodeResponse       `json:"nodes"`
	Connections []ConnectionResponse `json:"connections"`
}

/*
|--------------------------------------------------------------------------
| MAPPER
|--------------------------------------------------------------------------
*/
func ToScenarioResponse(s Scenario) ScenarioResponse {
	resp := ScenarioResponse{
		ID:         s.ID,
		Name:       s.Name,
		Version:    s.Version,
		Status:     s.Status,
		IsTemplate: s.IsTemplate,
		Metadata:   NullJSON(s.Metadata),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}

	if s.Description.Valid {
		resp.Description = s.Description.String
	}
	if s.Category.Valid {
		resp.Category = s.Category.String
	}
	if s.DeployedAt.Valid {
		resp.DeployedAt = &s.DeployedAt.Time
	}
	if s.CreatedBy.Valid {
		resp.CreatedBy = &s.CreatedBy.Int64
	}
	if s.UpdatedBy.Valid {
		resp.UpdatedBy = &s.UpdatedBy.Int64
	}

	return resp
}

func ToNodeResponse(n ScenarioNode) NodeResponse {
	return NodeResponse{
		ID:        n.ID,
		NodeID:    n.NodeID,
		NodeType:  n.NodeType,
		Name:      n.Name,
		PositionX: n.PositionX,
		PositionY: n.PositionY,
		Config:    NullJSON(n.Config),
	}
}

func ToConnectionResponse(c ScenarioConnection) ConnectionResponse {
	resp := ConnectionResponse{
		ID:           c.ID,
		SourceNodeID: c.SourceNodeID,
		TargetNodeID: c.TargetNodeID,
	}

	if c.Condition.Valid {
		resp.Condition = json.RawMessage(c.Condition.String)
	}
	if c.Label.Valid {
		resp.Label = c.Label.String
	}

	return resp
}

// NullJSON converts a nullable JSON column into a RawMessage, falling back to
// an empty object so responses never carry SQL null artifacts.
func NullJSON(s sql.NullString) json.RawMessage {
	if s.Valid && s.String != "" {
		return json.RawMessage(s.String)
	}
	return json.RawMessage("{}")
}
