package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncFlowProcessed is a no-op.
func (n *NoopRecorder) IncFlowProcessed(status string) {}

// ObserveFlowDuration is a no-op.
func (n *NoopRecorder) ObserveFlowDuration(duration time.Duration) {}

// IncFlowCacheHit is a no-op.
func (n *NoopRecorder) IncFlowCacheHit() {}

// IncFlowCacheMiss is a no-op.
func (n *NoopRecorder) IncFlowCacheMiss() {}

// IncCodeValidation is a no-op.
func (n *NoopRecorder) IncCodeValidation(status string) {}

// IncPromptValidation is a no-op.
func (n *NoopRecorder) IncPromptValidation(variables int) {}

// IncAuthFailure is a no-op.
func (n *NoopRecorder) IncAuthFailure(reason string) {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(status string) {}
