package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowlet/flowlet/internal/cache"
	"github.com/flowlet/flowlet/internal/engine"
	"github.com/flowlet/flowlet/internal/events"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/repository"
)

// Flow errors.
var (
	ErrFlowNotFound = errors.New("flow not found")
	ErrInvalidGraph = errors.New("invalid flow graph")
	ErrFlowName     = errors.New("flow name is required")
)

// FlowNotFoundError names the flow id that could not be resolved.
type FlowNotFoundError struct {
	ID string
}

func (e *FlowNotFoundError) Error() string {
	return fmt.Sprintf("Flow %s not found", e.ID)
}

// Is makes errors.Is(err, ErrFlowNotFound) match.
func (e *FlowNotFoundError) Is(target error) bool {
	return target == ErrFlowNotFound
}

// FlowService stores flows and delegates runs to the engine.
type FlowService struct {
	store   repository.Store
	cache   *cache.Cache
	runner  engine.Runner
	events  *events.Emitter
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewFlowService creates a FlowService. c may be nil when Redis is not configured.
func NewFlowService(store repository.Store, c *cache.Cache, runner engine.Runner, emitter *events.Emitter, logger *slog.Logger, recorder metrics.Recorder) *FlowService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if runner == nil {
		runner = engine.Unconfigured{}
	}
	if emitter == nil {
		emitter = events.NewEmitter(events.Noop{}, logger, recorder)
	}
	return &FlowService{
		store:   store,
		cache:   c,
		runner:  runner,
		events:  emitter,
		logger:  logger.With("component", "service.flow"),
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateFlow stores a new flow owned by userID.
func (s *FlowService) CreateFlow(ctx context.Context, userID string, req model.FlowCreateRequest) (*model.Flow, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrFlowName
	}

	data := req.Data
	if len(data) == 0 || string(data) == "null" {
		data = model.EmptyGraph
	}
	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}

	now := s.now().UTC()
	flow := &model.Flow{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: req.Description,
		Data:        data,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateFlow(ctx, flow); err != nil {
		return nil, fmt.Errorf("create flow: %w", err)
	}
	if s.cache != nil {
		// Clears a negative entry left by an earlier miss.
		_ = s.cache.SetFlow(ctx, flow)
	}
	return flow, nil
}

// GetUserFlow returns a flow owned by userID.
func (s *FlowService) GetUserFlow(ctx context.Context, userID, id string) (*model.Flow, error) {
	flow, err := s.resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if flow.UserID != userID {
		return nil, &FlowNotFoundError{ID: id}
	}
	return flow, nil
}

// ListFlows returns the flows owned by userID.
func (s *FlowService) ListFlows(ctx context.Context, userID string) ([]*model.Flow, error) {
	return s.store.ListFlowsByUserID(ctx, userID)
}

// DeleteFlow removes a flow owned by userID.
func (s *FlowService) DeleteFlow(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return &FlowNotFoundError{ID: id}
	}
	if err := s.store.DeleteFlow(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &FlowNotFoundError{ID: id}
		}
		return err
	}
	if s.cache != nil {
		if err := s.cache.DeleteFlow(ctx, id); err != nil {
			s.logger.Warn("failed to evict deleted flow", "flow_id", id, "error", err)
		}
	}
	return nil
}

// ProcessInput is a run request for one flow.
type ProcessInput struct {
	FlowID  string
	UserID  string
	Request model.ProcessRequest
}

// Process applies tweaks to the flow graph and runs it on the engine.
func (s *FlowService) Process(ctx context.Context, in ProcessInput) (*model.ProcessResponse, error) {
	start := s.now()

	flow, err := s.resolve(ctx, in.FlowID)
	if err != nil {
		if errors.Is(err, ErrFlowNotFound) {
			s.metrics.IncFlowProcessed(metrics.StatusNotFound)
		}
		return nil, err
	}

	graph, err := ApplyTweaks(flow.Data, in.Request.Tweaks)
	if err != nil {
		s.metrics.IncFlowProcessed(metrics.StatusError)
		return nil, err
	}

	sessionID := in.Request.SessionID
	if sessionID == "" {
		sessionID = SessionID(graph)
	}

	result, err := s.runner.Run(ctx, engine.RunRequest{
		FlowID:     flow.ID,
		Graph:      graph,
		Inputs:     in.Request.Inputs,
		ClearCache: in.Request.ClearCache,
		SessionID:  sessionID,
	})
	elapsed := s.now().Sub(start)
	s.metrics.ObserveFlowDuration(elapsed)

	event := events.NewEvent(events.TypeFlowProcessed, flow.ID)
	event.UserID = in.UserID
	event.SessionID = sessionID
	event.DurationMs = elapsed.Milliseconds()

	if err != nil {
		s.metrics.IncFlowProcessed(metrics.StatusError)
		event.Type = events.TypeFlowFailed
		event.Error = err.Error()
		s.events.Emit(event)
		s.logger.Error("flow run failed", "flow_id", flow.ID, "session_id", sessionID, "error", err)
		return nil, err
	}

	if result.SessionID != "" {
		sessionID = result.SessionID
		event.SessionID = sessionID
	}
	s.metrics.IncFlowProcessed(metrics.StatusSuccess)
	s.events.Emit(event)

	return &model.ProcessResponse{Result: result.Result, SessionID: sessionID}, nil
}

// resolve loads a flow through the cache. Unparsable ids are not found.
func (s *FlowService) resolve(ctx context.Context, id string) (*model.Flow, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, &FlowNotFoundError{ID: id}
	}

	if s.cache != nil {
		cached, err := s.cache.GetFlow(ctx, id)
		if err == nil {
			s.metrics.IncFlowCacheHit()
			return cached, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncFlowCacheMiss()
			if neg, _ := s.cache.IsNegativelyCached(ctx, id); neg {
				return nil, &FlowNotFoundError{ID: id}
			}
		} else {
			s.logger.Warn("flow cache unavailable", "flow_id", id, "error", err)
		}
	}

	flow, err := s.store.GetFlow(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegativeCache(ctx, id)
			}
			return nil, &FlowNotFoundError{ID: id}
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetFlow(ctx, flow); err != nil {
			s.logger.Warn("failed to cache flow", "flow_id", id, "error", err)
		}
	}
	return flow, nil
}
