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

// APIKeyHandler handles API key management endpoints.
type APIKeyHandler struct {
	logger *slog.Logger
	auth   *service.AuthService
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(logger *slog.Logger, authService *service.AuthService) *APIKeyHandler {
	return &APIKeyHandler{
		logger: logger,
		auth:   authService,
	}
}

// CreateAPIKey handles POST /api/v1/api_key
func (h *APIKeyHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var req model.APIKeyCreateRequest
	if errs := decodeBody(r, &req, true); errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	created, err := h.auth.CreateAPIKey(ctx, authCtx.UserID, req.Name)
	if err != nil {
		h.logger.Error("failed to create API key", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Failed to create API key")
		return
	}

	// The plaintext is returned once and never stored.
	writeJSON(w, http.StatusCreated, model.APIKeyCreateResponse{
		APIKeyResponse: created.Key.ToResponse(),
		APIKey:         created.Plaintext,
	})
}

// ListAPIKeys handles GET /api/v1/api_key
func (h *APIKeyHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	keys, err := h.auth.ListAPIKeys(ctx, authCtx.UserID)
	if err != nil {
		h.logger.Error("failed to list API keys", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Failed to list API keys")
		return
	}

	responses := make([]model.APIKeyResponse, 0, len(keys))
	for _, key := range keys {
		responses = append(responses, key.ToResponse())
	}

	writeJSON(w, http.StatusOK, model.APIKeyListResponse{
		TotalCount: len(responses),
		APIKeys:    responses,
	})
}

// RevokeAPIKey handles DELETE /api/v1/api_key/{key_id}
func (h *APIKeyHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authCtx := auth.AuthFromContext(ctx)
	if authCtx == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	keyID := chi.URLParam(r, "key_id")
	if err := h.auth.RevokeAPIKey(ctx, authCtx.UserID, keyID); err != nil {
		// Keys owned by other users also report 404.
		if errors.Is(err, service.ErrAPIKeyNotFound) {
			writeDetail(w, http.StatusNotFound, "API Key not found")
			return
		}
		h.logger.Error("failed to revoke API key", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Failed to revoke API key")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"detail": "API Key deleted"})
}
