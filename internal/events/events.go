// Package events publishes flow lifecycle events to a broker.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flowlet/flowlet/internal/metrics"
)

// Event types.
const (
	TypeFlowProcessed = "flow.processed"
	TypeFlowFailed    = "flow.failed"
)

// PublishTimeout is the max time to wait for a broker publish.
const PublishTimeout = 2 * time.Second

// Event describes one flow run.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	FlowID     string    `json:"flow_id"`
	UserID     string    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(typ, flowID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		FlowID:    flowID,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

// Publish is a no-op.
func (Noop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Noop) Close() error { return nil }

// Emitter publishes events without blocking request handling.
type Emitter struct {
	publisher Publisher
	logger    *slog.Logger
	metrics   metrics.Recorder
	timeout   time.Duration
}

// NewEmitter creates an Emitter over publisher.
func NewEmitter(publisher Publisher, logger *slog.Logger, recorder metrics.Recorder) *Emitter {
	if publisher == nil {
		publisher = Noop{}
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Emitter{
		publisher: publisher,
		logger:    logger.With("component", "events.emitter"),
		metrics:   recorder,
		timeout:   PublishTimeout,
	}
}

// Emit publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (e *Emitter) Emit(event Event) {
	go e.publish(event)
}

func (e *Emitter) publish(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("failed to publish flow event",
			"type", event.Type,
			"flow_id", event.FlowID,
			"error", err,
		)
		e.metrics.IncEventPublished(metrics.StatusDropped)
		return
	}

	e.logger.Debug("flow event published",
		"type", event.Type,
		"flow_id", event.FlowID,
		"event_id", event.ID,
	)
	e.metrics.IncEventPublished(metrics.StatusSuccess)
}

// Close closes the underlying publisher.
func (e *Emitter) Close() error {
	return e.publisher.Close()
}
