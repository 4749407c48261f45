package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultTimeout is the total request timeout for a single attempt.
	DefaultTimeout = 60 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second

	maxErrorBody = 512

	// HeaderIdempotencyKey is constant across the attempts of one run so
	// the engine can drop duplicates.
	HeaderIdempotencyKey = "Idempotency-Key"
)

// NewHTTPClient creates a client for engine calls. Redirects are not followed.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// HTTPRunner runs flows on a remote engine over HTTP.
type HTTPRunner struct {
	endpoint    string
	secret      string
	client      *http.Client
	logger      *slog.Logger
	maxAttempts int
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewHTTPRunner creates a runner posting to baseURL + "/run".
func NewHTTPRunner(baseURL, secret string, timeout time.Duration, logger *slog.Logger) *HTTPRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRunner{
		endpoint:    strings.TrimRight(baseURL, "/") + "/run",
		secret:      secret,
		client:      NewHTTPClient(timeout),
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Run sends the request. Connection failures and 502, 503 or 504 responses
// are retried; other errors, including a connection lost after the request
// was written, are not. All attempts carry the same idempotency key.
func (r *HTTPRunner) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return RunResult{}, fmt.Errorf("marshal run request: %w", err)
	}
	key := uuid.NewString()

	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			r.logger.Warn("retrying engine run",
				"flow_id", req.FlowID,
				"attempt", attempt+1,
				"delay", delay,
				"error", lastErr,
			)
			if err := r.sleep(ctx, delay); err != nil {
				return RunResult{}, err
			}
		}

		result, retryable, err := r.attempt(ctx, key, body)
		if err == nil {
			if result.SessionID == "" {
				result.SessionID = req.SessionID
			}
			return result, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			break
		}
	}
	return RunResult{}, lastErr
}

func (r *HTTPRunner) attempt(ctx context.Context, key string, body []byte) (RunResult, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return RunResult{}, false, fmt.Errorf("%w: create request: %v", ErrEngine, err)
	}

	ts := r.now().Unix()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "Flowlet/1.0")
	httpReq.Header.Set(HeaderIdempotencyKey, key)
	httpReq.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	if r.secret != "" {
		httpReq.Header.Set(HeaderSignature, Sign(r.secret, ts, body))
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return RunResult{}, false, err
		}
		return RunResult{}, isDialError(err), fmt.Errorf("%w: %v", ErrEngine, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return RunResult{}, false, fmt.Errorf("%w: read response: %v", ErrEngine, err)
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("%w: %s", ErrEngine, errorMessage(resp.StatusCode, respBody))
		return RunResult{}, retryableStatus(resp.StatusCode), err
	}

	var result RunResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return RunResult{}, false, fmt.Errorf("%w: decode response: %v", ErrEngine, err)
	}
	return result, false, nil
}

// isDialError reports whether the request failed before a connection was
// made, so the engine never saw it.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// errorMessage prefers the engine's {"detail": "..."} body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return payload.Detail
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = truncate(text, maxErrorBody) + "..."
	}
	if text == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, text)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
