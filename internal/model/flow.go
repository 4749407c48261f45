package model

import (
	"encoding/json"
	"time"
)

// Flow is a persisted component graph.
type Flow struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FlowCreateRequest creates a flow. Data defaults to an empty graph.
type FlowCreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Data        json.RawMessage `json:"data"`
}

// EmptyGraph is the data of a flow created without one.
var EmptyGraph = json.RawMessage(`{"nodes":[],"edges":[]}`)

// ProcessRequest is the body of a flow run.
type ProcessRequest struct {
	Inputs     json.RawMessage           `json:"inputs"`
	Tweaks     map[string]map[string]any `json:"tweaks"`
	ClearCache bool                      `json:"clear_cache"`
	SessionID  string                    `json:"session_id"`
}

// ProcessResponse is the result of a flow run.
type ProcessResponse struct {
	Result    any    `json:"result"`
	SessionID string `json:"session_id"`
}
