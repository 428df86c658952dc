// Package api is the HTTP and websocket adapter of the plansync server.
// Client implements remote.Store and session.Authenticator.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/plansync/internal/client/remote"
	"github.com/iudanet/plansync/pkg/api"
)

const (
	defaultMaxRetries = 2
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 2 * time.Second
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	token      func() string
	logger     *slog.Logger
	baseURL    string
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// Option настраивает Client
type Option func(*Client)

// WithToken задает источник bearer токена (пустая строка - без авторизации)
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient заменяет HTTP клиент
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry задает число повторов при 429/5xx и сетевых ошибках и границы задержки
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register регистрирует нового пользователя
func (c *Client) Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error) {
	var resp api.RegisterResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/register", req, &resp); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login выполняет аутентификацию пользователя
func (c *Client) Login(ctx context.Context, req api.LoginRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	return &resp, nil
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/health", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("%w: server status %q", remote.ErrUnavailable, resp.Status)
	}
	return nil
}

// AutofixPermissions просит сервер добавить текущего пользователя в authorizedUsers workspace
func (c *Client) AutofixPermissions(ctx context.Context, workspace string) (*api.AutofixResponse, error) {
	var resp api.AutofixResponse
	path := "/api/v1/workspaces/" + escapeSegments(workspace) + "/permissions/autofix"
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return nil, fmt.Errorf("autofix request failed: %w", err)
	}
	return &resp, nil
}

// Authorize grants access through the server autofix endpoint. The server derives
// the identity from the token, so identity is only used for the error message.
func (c *Client) Authorize(ctx context.Context, workspace, identity string) error {
	resp, err := c.AutofixPermissions(ctx, workspace)
	if err != nil {
		return err
	}
	if !resp.Granted {
		return fmt.Errorf("%w: %s may not join workspace %s", remote.ErrPermissionDenied, identity, workspace)
	}
	return nil
}

// doJSON выполняет HTTP запрос, повторяя его при сетевых ошибках, 429 и 5xx
func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.bearer(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt < c.maxRetries {
				c.logger.Debug("Request failed, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
				if werr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); werr != nil {
					return werr
				}
				continue
			}
			return fmt.Errorf("%w: %v", remote.ErrUnavailable, err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if result == nil || len(respBody) == 0 {
				return nil
			}
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if retryable && attempt < c.maxRetries {
			c.logger.Debug("Server busy, retrying", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt+1)
			if werr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); werr != nil {
				return werr
			}
			continue
		}
		return newHTTPError(resp.StatusCode, respBody)
	}
}

func (c *Client) bearer() string {
	if c.token == nil {
		return ""
	}
	return c.token()
}

// retryDelay удваивает базовую задержку с каждой попыткой, Retry-After имеет приоритет
func (c *Client) retryDelay(attempt int, retryAfter string) time.Duration {
	maxDelay := c.maxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	if d := parseRetryAfter(retryAfter); d > 0 {
		return min(d, maxDelay)
	}
	delay := c.baseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := http.ParseTime(header); err == nil {
		if d := time.Until(ts); d > 0 {
			return d
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isStatus reports whether err is an HTTPError with the given status.
func isStatus(err error, status int) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.StatusCode == status
}
