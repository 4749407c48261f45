package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowlet/flowlet/internal/auth"
	"github.com/flowlet/flowlet/internal/cache"
	"github.com/flowlet/flowlet/internal/catalog"
	"github.com/flowlet/flowlet/internal/engine"
	"github.com/flowlet/flowlet/internal/metrics"
	"github.com/flowlet/flowlet/internal/middleware"
	"github.com/flowlet/flowlet/internal/model"
	"github.com/flowlet/flowlet/internal/pymod"
	"github.com/flowlet/flowlet/internal/repository"
	"github.com/flowlet/flowlet/internal/service"
	"github.com/flowlet/flowlet/internal/testutil"
	"github.com/flowlet/flowlet/internal/validate"
)

const (
	testUsername = "tester"
	testPassword = "correct horse battery"
	testAPIKey   = "random_key"
)

type envOptions struct {
	autoLogin bool
	runner    engine.Runner
	limiter   middleware.RateLimiter
	origins   []string
}

type testEnv struct {
	router   http.Handler
	store    repository.Store
	auth     *service.AuthService
	recorder *metrics.InMemoryRecorder
	user     *model.User
	flow     *model.Flow

	mu   sync.Mutex
	runs []engine.RunRequest
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.Open(ctx, "sqlite::memory:", repository.Options{Migrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	env := &testEnv{store: store, recorder: metrics.NewInMemory()}

	env.user = testutil.NewTestUser(t, testUsername, testPassword)
	require.NoError(t, store.CreateUser(ctx, env.user))
	require.NoError(t, store.CreateAPIKey(ctx, testutil.NewTestAPIKey(t, env.user.ID, testAPIKey)))
	env.flow = testutil.NewTestFlow(t, env.user.ID, map[string]any{
		"nodes": []any{},
		"edges": []any{},
	})
	require.NoError(t, store.CreateFlow(ctx, env.flow))

	runner := opts.runner
	if runner == nil {
		runner = engine.RunnerFunc(func(_ context.Context, req engine.RunRequest) (engine.RunResult, error) {
			env.mu.Lock()
			env.runs = append(env.runs, req)
			env.mu.Unlock()
			return engine.RunResult{Result: map[string]any{}, SessionID: "session_id_mock"}, nil
		})
	}

	env.auth = service.NewAuthService(store, nil, auth.NewTokenIssuer("test-secret", time.Hour), service.AuthConfig{
		AutoLogin:         opts.autoLogin,
		Superuser:         "admin",
		SuperuserPassword: "admin",
	}, logger, env.recorder)
	t.Cleanup(env.auth.Wait)
	flows := service.NewFlowService(store, nil, runner, nil, logger, env.recorder)

	cat, err := catalog.Load("")
	require.NoError(t, err)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = opts.origins

	env.router = NewRouter(RouterConfig{
		Logger:   logger,
		Root:     New(),
		Health:   NewHealthHandler(store, nil),
		Validate: NewValidateHandler(validate.New(pymod.Chain{pymod.Stdlib{}}, logger), logger, env.recorder),
		Catalog:  NewCatalogHandler(cat),
		Process:  NewProcessHandler(flows, logger),
		Login:    NewLoginHandler(logger, env.auth),
		APIKeys:  NewAPIKeyHandler(logger, env.auth),
		Flows:    NewFlowHandler(flows, logger),
		Recorder: env.recorder,
		Auth:     middleware.AuthConfig{Logger: logger, Authenticator: env.auth},
		RateLimit: middleware.RateLimitConfig{
			Logger:         logger,
			Limiter:        opts.limiter,
			PrincipalRPM:   60,
			PrincipalBurst: 10,
		},
		CORS:        cors,
		Security:    middleware.SecurityConfig{IsDevelopment: true},
		MaxBodySize: 1 << 20,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) bearer(t *testing.T) map[string]string {
	t.Helper()
	token, err := e.auth.Login(context.Background(), testUsername, testPassword)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var processBody = map[string]any{
	"inputs":      map[string]any{"key": "value"},
	"tweaks":      nil,
	"clear_cache": false,
	"session_id":  nil,
}

func TestProcess_InvalidAPIKey(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": "invalid_api_key"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid or missing API key"}`, rec.Body.String())
}

func TestProcess_MissingKeyWithoutAutoLogin(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid or missing API key"}`, rec.Body.String())
}

func TestProcess_MissingKeyWithAutoLogin(t *testing.T) {
	env := newTestEnv(t, envOptions{autoLogin: true})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, nil)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestProcess_UnknownFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	id := uuid.NewString()

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+id, processBody, map[string]string{"api-key": testAPIKey})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["detail"], "Flow "+id+" not found")
}

func TestProcess_Success(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": testAPIKey})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	assert.Equal(t, map[string]any{}, body["result"])
	assert.Equal(t, "session_id_mock", body["session_id"])

	env.mu.Lock()
	defer env.mu.Unlock()
	require.Len(t, env.runs, 1)
	assert.Equal(t, env.flow.ID, env.runs[0].FlowID)
	assert.JSONEq(t, `{"key":"value"}`, string(env.runs[0].Inputs))
}

func TestProcess_KeyHeaderVariants(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"x-api-key": testAPIKey})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID+"?x-api-key="+url.QueryEscape(testAPIKey), processBody, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcess_EmptyBody(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/process/"+env.flow.ID, nil)
	req.Header.Set("api-key", testAPIKey)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestProcess_RunnerError(t *testing.T) {
	env := newTestEnv(t, envOptions{runner: engine.RunnerFunc(func(context.Context, engine.RunRequest) (engine.RunResult, error) {
		return engine.RunResult{}, errors.New("LLM provider unavailable")
	})})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": testAPIKey})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeMap(t, rec)["detail"], "LLM provider unavailable")
}

type denyLimiter struct{}

func (denyLimiter) CheckPrincipalRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: false, RetryAfter: 2500 * time.Millisecond, ResetAt: time.Now().Add(3 * time.Second)}, nil
}

func (denyLimiter) CheckIPRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	return &cache.RateLimitResult{Allowed: true, Remaining: 1}, nil
}

func TestProcess_RateLimited(t *testing.T) {
	env := newTestEnv(t, envOptions{limiter: denyLimiter{}})

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": testAPIKey})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, "Rate limit exceeded. Retry after 3 seconds.", decodeMap(t, rec)["detail"])
}

func TestProcess_RateLimitedCrossOrigin(t *testing.T) {
	env := newTestEnv(t, envOptions{limiter: denyLimiter{}, origins: []string{"https://app.example.com"}})

	preflight := env.do(t, http.MethodOptions, "/api/v1/process/"+env.flow.ID, nil, map[string]string{
		"Origin":                         "https://app.example.com",
		"Access-Control-Request-Method":  http.MethodPost,
		"Access-Control-Request-Headers": "api-key, content-type",
	})
	require.Equal(t, http.StatusNoContent, preflight.Code)
	assert.Contains(t, preflight.Header().Get("Access-Control-Allow-Headers"), "api-key")

	rec := env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{
		"Origin":  "https://app.example.com",
		"api-key": testAPIKey,
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
}

func TestGetAll(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodGet, "/api/v1/all", nil, env.bearer(t))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeMap(t, rec)
	prompts, ok := body["prompts"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, prompts, "PromptTemplate")
	tools, ok := body["tools"].(map[string]any)
	require.True(t, ok)
	for _, name := range catalog.Required["tools"] {
		assert.Contains(t, tools, name)
	}
}

func TestGetAll_RequiresUser(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodGet, "/api/v1/all", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v1/all", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/all", nil, map[string]string{"api-key": testAPIKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidateCode(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	valid := "\nimport math\n\ndef square(x):\n    return x ** 2\n"
	missing := "\nimport non_existent_module\n\ndef square(x):\n    return x ** 2\n"
	broken := "\nimport math\n\ndef square(x)\n    return x ** 2\n"

	tests := []struct {
		name string
		body any
		code int
		want string
	}{
		{"valid", map[string]string{"code": valid}, http.StatusOK,
			`{"imports":{"errors":[]},"function":{"errors":[]}}`},
		{"missing module", map[string]string{"code": missing}, http.StatusOK,
			`{"imports":{"errors":["No module named 'non_existent_module'"]},"function":{"errors":[]}}`},
		{"syntax error", map[string]string{"code": broken}, http.StatusOK,
			`{"imports":{"errors":[]},"function":{"errors":["expected ':' (<unknown>, line 4)"]}}`},
		{"empty code", map[string]string{"code": ""}, http.StatusOK,
			`{"imports":{"errors":[]},"function":{"errors":[]}}`},
		{"wrong key", map[string]string{"invalid_key": valid}, http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","code"],"msg":"field required","type":"value_error.missing"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/validate/code", tt.body, nil)
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}

	snap := env.recorder.Snapshot()
	assert.Equal(t, uint64(2), snap.CodeValidations[metrics.StatusValid])
	assert.Equal(t, uint64(1), snap.CodeValidations[metrics.StatusImportError])
	assert.Equal(t, uint64(1), snap.CodeValidations[metrics.StatusSyntaxError])
}

func TestValidateCode_DeepNesting(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	code := "x = " + strings.Repeat("(", 500000) + "1" + strings.Repeat(")", 500000)
	rec := env.do(t, http.MethodPost, "/api/v1/validate/code", map[string]string{"code": code}, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"imports":{"errors":[]},"function":{"errors":["too many nested parentheses (<unknown>, line 1)"]}}`, rec.Body.String())
}

func TestValidateCode_MalformedJSON(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/validate/code", `{"code":`, nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ValidationErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Detail, 1)
	assert.Equal(t, []string{"body"}, body.Detail[0].Loc)
	assert.Equal(t, "value_error.jsondecode", body.Detail[0].Type)
}

func promptRequest(template string) map[string]any {
	return map[string]any{
		"name":     "string",
		"template": template,
		"frontend_node": map[string]any{
			"template":      map[string]any{},
			"description":   "string",
			"base_classes":  []string{"string"},
			"custom_fields": map[string]any{},
			"output_types":  []string{},
		},
	}
}

func TestValidatePrompt(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	validPrompt := "\nI want you to act as a naming consultant for new companies.\n\n" +
		"The name should be short, catchy and easy to remember.\n\n" +
		"What is a good name for a company that makes {product}?\n"

	tests := []struct {
		template string
		want     []string
	}{
		{validPrompt, []string{"product"}},
		{"This is an invalid prompt without any input variable.", []string{}},
		{"{color} is my favorite color.", []string{"color"}},
		{"The weather is {weather} today.", []string{"weather"}},
		{"This prompt has no variables.", []string{}},
		{"{a}, {b}, and {c} are variables.", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		rec := env.do(t, http.MethodPost, "/api/v1/validate/prompt", promptRequest(tt.template), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var body struct {
			InputVariables []string       `json:"input_variables"`
			FrontendNode   map[string]any `json:"frontend_node"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.want, body.InputVariables, tt.template)

		template, ok := body.FrontendNode["template"].(map[string]any)
		require.True(t, ok)
		for _, v := range tt.want {
			assert.Contains(t, template, v)
		}
	}
}

func TestValidatePrompt_MissingTemplate(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodPost, "/api/v1/validate/prompt", map[string]any{"name": "x"}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":[{"loc":["body","template"],"msg":"field required","type":"value_error.missing"}]}`, rec.Body.String())
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	t.Run("form", func(t *testing.T) {
		form := url.Values{"username": {testUsername}, "password": {testPassword}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decodeMap(t, rec)
		assert.Equal(t, "bearer", body["token_type"])
		assert.NotEmpty(t, body["access_token"])
	})

	t.Run("json", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": testUsername, "password": testPassword}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/login", map[string]string{"username": testUsername, "password": "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"detail":"Incorrect username or password"}`, rec.Body.String())
	})

	t.Run("missing password", func(t *testing.T) {
		form := url.Values{"username": {testUsername}}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAutoLogin(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		rec := env.do(t, http.MethodGet, "/api/v1/auto_login", nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"detail":"Auto login is disabled"}`, rec.Body.String())
	})

	t.Run("enabled", func(t *testing.T) {
		env := newTestEnv(t, envOptions{autoLogin: true})
		rec := env.do(t, http.MethodGet, "/api/v1/auto_login", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		token, _ := decodeMap(t, rec)["access_token"].(string)
		require.NotEmpty(t, token)

		rec = env.do(t, http.MethodGet, "/api/v1/all", nil, map[string]string{"Authorization": "Bearer " + token})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAPIKeyLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	headers := env.bearer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/api_key/", map[string]string{"name": "ci"}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.APIKeyCreateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.APIKey)
	assert.Equal(t, "ci", created.Name)

	rec = env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": created.APIKey})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/api_key/", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.APIKeyListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 2, list.TotalCount)
	assert.NotContains(t, rec.Body.String(), created.APIKey)

	rec = env.do(t, http.MethodDelete, "/api/v1/api_key/"+created.ID, nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/process/"+env.flow.ID, processBody, map[string]string{"api-key": created.APIKey})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/api_key/"+created.ID, nil, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlowCRUD(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	headers := env.bearer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/flows/", map[string]any{"name": "Summarizer"}, headers)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var flow model.Flow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flow))
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(flow.Data))

	rec = env.do(t, http.MethodGet, "/api/v1/flows/"+flow.ID, nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/flows/", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	var flows []model.Flow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &flows))
	assert.Len(t, flows, 2)

	rec = env.do(t, http.MethodDelete, "/api/v1/flows/"+flow.ID, nil, headers)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/flows/"+flow.ID, nil, headers)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Flow "+flow.ID+" not found", decodeMap(t, rec)["detail"])
}

func TestFlowCreate_Validation(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	headers := env.bearer(t)

	rec := env.do(t, http.MethodPost, "/api/v1/flows/", map[string]any{"description": "no name"}, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/flows/", map[string]any{"name": "x", "data": []int{1}}, headers)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_NotFoundAndHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rec := env.do(t, http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/readyz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Checks["database"])
	assert.Equal(t, "not configured", health.Checks["redis"])

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
