// Package engine delegates flow execution to the graph execution engine.
package engine

import (
	"context"
	"encoding/json"
	"errors"
)

// Sentinel errors for engine runs.
var (
	ErrEngine           = errors.New("engine error")
	ErrNotConfigured    = errors.New("engine is not configured")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrReplayWindow     = errors.New("timestamp outside replay window")
)

// RunRequest is the payload sent to the engine for a single run.
type RunRequest struct {
	FlowID     string          `json:"flow_id"`
	Graph      json.RawMessage `json:"graph"`
	Inputs     json.RawMessage `json:"inputs,omitempty"`
	ClearCache bool            `json:"clear_cache"`
	SessionID  string          `json:"session_id"`
}

// RunResult is the engine's answer for a run.
type RunResult struct {
	Result    any    `json:"result"`
	SessionID string `json:"session_id"`
}

// Runner executes a flow graph.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (RunResult, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req RunRequest) (RunResult, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	return f(ctx, req)
}

// Unconfigured is used when no ENGINE_URL is set. Every run fails.
type Unconfigured struct{}

// Run always returns ErrNotConfigured.
func (Unconfigured) Run(context.Context, RunRequest) (RunResult, error) {
	return RunResult{}, ErrNotConfigured
}
