package handler

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/service"
)

// LoginHandler issues access tokens.
type LoginHandler struct {
	logger *slog.Logger
	auth   *service.AuthService
}

// NewLoginHandler creates a LoginHandler.
func NewLoginHandler(logger *slog.Logger, authService *service.AuthService) *LoginHandler {
	return &LoginHandler{logger: logger, auth: authService}
}

// Login exchanges a username and password for a bearer token. Credentials
// may be sent as a form or as JSON.
// POST /api/v1/login
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, errs := parseLogin(r)
	if errs != nil {
		writeValidationErrors(w, errs)
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		h.logger.Error("login failed", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, model.NewTokenResponse(token))
}

// AutoLogin issues a superuser token when auto login is enabled.
// GET /api/v1/auto_login
func (h *LoginHandler) AutoLogin(w http.ResponseWriter, r *http.Request) {
	token, err := h.auth.AutoLoginToken(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrAutoLoginDisabled) {
			writeDetail(w, http.StatusBadRequest, "Auto login is disabled")
			return
		}
		h.logger.Error("auto login failed", slog.String("error", err.Error()))
		writeDetail(w, http.StatusInternalServerError, "Auto login failed")
		return
	}

	writeJSON(w, http.StatusOK, model.NewTokenResponse(token))
}

func parseLogin(r *http.Request) (model.LoginRequest, []FieldError) {
	var req model.LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/x-www-form-urlencoded" && mediaType != "multipart/form-data" {
		errs := decodeBody(r, &req, false, "username", "password")
		return req, errs
	}

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return req, []FieldError{{Loc: []string{"body"}, Msg: "invalid form body", Type: "value_error"}}
		}
	} else if err := r.ParseForm(); err != nil {
		return req, []FieldError{{Loc: []string{"body"}, Msg: "invalid form body", Type: "value_error"}}
	}

	var errs []FieldError
	for _, field := range []string{"username", "password"} {
		if _, ok := r.PostForm[field]; !ok {
			errs = append(errs, missingField(field))
		}
	}
	req.Username = r.PostForm.Get("username")
	req.Password = r.PostForm.Get("password")
	return req, errs
}
