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

// ProcessHandler runs stored flows.
type ProcessHandler struct {
	flows  *service.FlowService
	logger *slog.Logger
}

// NewProcessHandler creates a ProcessHandler.
func NewProcessHandler(flows *service.FlowService, logger *slog.Logger) *ProcessHandler {
	return &ProcessHandler{flows: flows, logger: logger}
}

// Process runs a flow with optional inputs and tweaks.
// POST /api/v1/process/{flow_id}
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	flowID := chi.URLParam(r, "flow_id")

	var req model.ProcessRequest
	if errs := decodeBody(r, &req, true); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.flows.Process(r.Context(), service.ProcessInput{
		FlowID:  flowID,
		UserID:  auth.UserIDFromContext(r.Context()),
		Request: req,
	})
	if err != nil {
		if errors.Is(err, service.ErrFlowNotFound) {
			writeDetail(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("flow processing failed",
			slog.String("flow_id", flowID),
			slog.String("error", err.Error()),
		)
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
