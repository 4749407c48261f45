// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Outcome labels shared by recorders.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusError    = "error"
	StatusDropped  = "dropped"

	// Code validation outcomes.
	StatusValid       = "valid"
	StatusSyntaxError = "syntax_error"
	StatusImportError = "import_error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Flow execution metrics
	IncFlowProcessed(status string) // success, not_found, error
	ObserveFlowDuration(duration time.Duration)
	IncFlowCacheHit()
	IncFlowCacheMiss()

	// Validation metrics
	IncCodeValidation(status string) // valid, syntax_error, import_error
	IncPromptValidation(variables int)

	// Auth and event metrics
	IncAuthFailure(reason string)
	IncEventPublished(status string) // success, dropped
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
