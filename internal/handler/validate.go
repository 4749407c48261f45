package handler

import (
	"log/slog"
	"net/http"

	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/prompt"
	"github.com/flowlet/flowlet/internal/validate"
)

// CodeRequest is the body of POST /api/v1/validate/code.
type CodeRequest struct {
	Code string `json:"code"`
}

// ValidateHandler serves the code and prompt validation endpoints.
type ValidateHandler struct {
	validator *validate.Validator
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// NewValidateHandler creates a ValidateHandler.
func NewValidateHandler(validator *validate.Validator, logger *slog.Logger, recorder metrics.Recorder) *ValidateHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ValidateHandler{validator: validator, logger: logger, metrics: recorder}
}

// Code checks a Python snippet for syntax errors and unresolvable imports.
// The snippet is never executed.
// POST /api/v1/validate/code
func (h *ValidateHandler) Code(w http.ResponseWriter, r *http.Request) {
	var req CodeRequest
	if errs := decodeBody(r, &req, false, "code"); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	report := h.validator.Code(r.Context(), req.Code)
	switch {
	case len(report.Function.Errors) > 0:
		h.metrics.IncCodeValidation(metrics.StatusSyntaxError)
	case len(report.Imports.Errors) > 0:
		h.metrics.IncCodeValidation(metrics.StatusImportError)
	default:
		h.metrics.IncCodeValidation(metrics.StatusValid)
	}
	writeJSON(w, http.StatusOK, report)
}

// Prompt extracts the input variables of a prompt template and updates the
// editor node's template fields.
// POST /api/v1/validate/prompt
func (h *ValidateHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req prompt.Request
	if errs := decodeBody(r, &req, false, "template"); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	resp := prompt.Validate(req)
	h.metrics.IncPromptValidation(len(resp.InputVariables))
	writeJSON(w, http.StatusOK, resp)
}
