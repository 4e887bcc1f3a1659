package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillm/fx-copilot/internal/domain"
	"github.com/kirillm/fx-copilot/pkg/utils"
	"golang.org/x/time/rate"
)

// APIError ответ сервиса с кодом 4xx
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("service returned %d: %s", e.Status, e.Detail)
}

// Client HTTP-клиент сервиса гардрейлов и исполнения
type Client struct {
	baseURL string
	userID  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *utils.Logger
}

// Options параметры клиента
type Options struct {
	BaseURL        string
	UserID         string
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	HTTPClient     *http.Client
}

// NewClient создает клиент
func NewClient(opts Options, logger *utils.Logger) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		userID:  opts.UserID,
		client:  httpClient,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}
}

// UserID идентификатор пользователя сервиса
func (c *Client) UserID() string {
	return c.userID
}

// do выполняет запрос и декодирует JSON-ответ в out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrServiceUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", domain.ErrServiceUnavailable, path, err)
	}

	if c.logger != nil {
		c.logger.Debug("[Service] %s %s -> %d (%v)", method, path, resp.StatusCode, time.Since(started).Round(time.Millisecond))
	}

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", domain.ErrServiceUnavailable, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return &APIError{Status: resp.StatusCode, Detail: extractDetail(data)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrMalformedPayload, path, err)
	}
	return nil
}

// extractDetail достает текст ошибки из {"detail": ...} или {"error": ...}
func extractDetail(data []byte) string {
	var body struct {
		Detail  interface{} `json:"detail"`
		Error   string      `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		switch {
		case body.Detail != nil:
			return fmt.Sprint(body.Detail)
		case body.Error != "":
			return body.Error
		case body.Message != "":
			return body.Message
		}
	}
	text := strings.TrimSpace(string(data))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// IsUnavailable true для сетевых ошибок, таймаутов и 5xx
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrServiceUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) userQuery() url.Values {
	return url.Values{"user_id": []string{c.userID}}
}
