package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/service"
)

// FlowHandler handles flow CRUD endpoints.
type FlowHandler struct {
	flows  *service.FlowService
	logger *slog.Logger
}

// NewFlowHandler creates a new FlowHandler.
func NewFlowHandler(flows *service.FlowService, logger *slog.Logger) *FlowHandler {
	return &FlowHandler{flows: flows, logger: logger}
}

// CreateFlow handles POST /api/v1/flows/
func (h *FlowHandler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req model.FlowCreateRequest
	if errs := decodeBody(r, &req, false, "name"); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	flow, err := h.flows.CreateFlow(r.Context(), auth.UserIDFromContext(r.Context()), req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("flow created",
		slog.String("flow_id", flow.ID),
		slog.String("user_id", flow.UserID),
	)
	writeJSON(w, http.StatusCreated, flow)
}

// ListFlows handles GET /api/v1/flows/
func (h *FlowHandler) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.flows.ListFlows(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if flows == nil {
		flows = []*model.Flow{}
	}
	writeJSON(w, http.StatusOK, flows)
}

// GetFlow handles GET /api/v1/flows/{id}
func (h *FlowHandler) GetFlow(w http.ResponseWriter, r *http.Request) {
	flow, err := h.flows.GetUserFlow(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flow)
}

// DeleteFlow handles DELETE /api/v1/flows/{id}
func (h *FlowHandler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.flows.DeleteFlow(r.Context(), auth.UserIDFromContext(r.Context()), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.logger.Info("flow deleted", slog.String("flow_id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Flow deleted successfully"})
}

// handleServiceError maps service errors to HTTP responses.
func (h *FlowHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrFlowNotFound):
		writeDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFlowName):
		writeValidationErrors(w, []FieldError{{Loc: []string{"body", "name"}, Msg: err.Error(), Type: "value_error"}})
	case errors.Is(err, service.ErrInvalidGraph):
		writeValidationErrors(w, []FieldError{{Loc: []string{"body", "data"}, Msg: err.Error(), Type: "value_error"}})
	default:
		h.logger.Error("unexpected service error", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
