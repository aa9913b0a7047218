// Package inventree reads parts, BOMs and purchasing data from an InvenTree
// server over its REST API.
package inventree

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

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/vsinha/ordercalc/pkg/domain/entities"
	"github.com/vsinha/ordercalc/pkg/infrastructure/metrics"
)

const (
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	defaultPageSize       = 500

	// maxErrorBody bounds how much of an error response ends up in logs
	maxErrorBody = 512
)

var errNotFound = errors.New("not found")

// Config holds connection settings for an InvenTree server. Zero values fall
// back to defaults; a negative MaxRetries disables retries.
type Config struct {
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	PageSize       int
}

// Client is an InvenTree API client. It implements
// repositories.InventoryGateway and is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	logger  *zap.Logger
	metrics *metrics.Recorder

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	pageSize       int
}

// NewClient validates cfg and creates a client. logger and recorder may be nil.
func NewClient(cfg Config, logger *zap.Logger, recorder *metrics.Recorder) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, &entities.ConfigurationError{Field: "inventree.url", Message: "must be set"}
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &entities.ConfigurationError{Field: "inventree.url", Message: fmt.Sprintf("invalid url %q", cfg.BaseURL)}
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, &entities.ConfigurationError{Field: "inventree.token", Message: "must be set"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:        base,
		token:          cfg.Token,
		http:           &http.Client{Timeout: cfg.Timeout},
		logger:         logger.With(zap.String("component", "inventree")),
		metrics:        recorder,
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		pageSize:       cfg.PageSize,
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = defaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if cfg.MaxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.initialBackoff <= 0 {
		c.initialBackoff = defaultInitialBackoff
	}
	if c.maxBackoff <= 0 {
		c.maxBackoff = defaultMaxBackoff
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	return c, nil
}

// endpoint resolves an API path against the base url
func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.MaxInterval = c.maxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)
}

// getJSON fetches rawURL and decodes the body into out. Transport failures,
// 429 and 5xx responses are retried with exponential backoff.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, out any) error {
	attempt := 0
	operation := func() error {
		attempt++
		return c.do(ctx, op, rawURL, out)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	c.metrics.GatewayCall(op, err)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) do(ctx context.Context, op, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(&entities.GatewayError{Operation: op, Cause: err})
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return &entities.GatewayError{Operation: op, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &entities.GatewayError{Operation: op, StatusCode: resp.StatusCode, Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &entities.GatewayError{Operation: op, StatusCode: resp.StatusCode, Cause: statusCause(resp.StatusCode, body)}
		if gwErr.Temporary() {
			return gwErr
		}
		return backoff.Permanent(gwErr)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(&entities.GatewayError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("decode response: %w", err),
		})
	}
	return nil
}

func statusCause(status int, body []byte) error {
	if status == http.StatusNotFound {
		return errNotFound
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errors.New(msg)
}

// page is the paginated list envelope returned when a limit is requested
type page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// fetchList walks every page of a list endpoint. Servers that ignore the
// limit parameter return a plain array, which is accepted as well.
func fetchList[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", fmt.Sprintf("%d", c.pageSize))

	var all []T
	next := c.endpoint(path, query)
	for next != "" {
		var raw json.RawMessage
		if err := c.getJSON(ctx, op, next, &raw); err != nil {
			return nil, err
		}

		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			var items []T
			if err := json.Unmarshal(trimmed, &items); err != nil {
				return nil, &entities.GatewayError{Operation: op, Cause: fmt.Errorf("decode list: %w", err)}
			}
			return append(all, items...), nil
		}

		var p page[T]
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, &entities.GatewayError{Operation: op, Cause: fmt.Errorf("decode page: %w", err)}
		}
		all = append(all, p.Results...)

		next = ""
		if p.Next != nil {
			next = *p.Next
		}
	}
	return all, nil
}
