// Package farmapi is the REST client for the farm-calendar service and the
// gatekeeper that issues its tokens.
package farmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/scibee/farmwiz/internal/config"
	"github.com/scibee/farmwiz/internal/logger"
)

// ErrUnauthenticated is returned when no token is set or the service
// rejects it.
var ErrUnauthenticated = errors.New("not authenticated")

// APIError is a non-2xx response.
type APIError struct {
	Op     string // e.g. "create parcel"
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return strings.TrimSpace(fmt.Sprintf("Failed to %s (%d) %s", e.Op, e.Status, e.Body))
}

// ResponseBody returns the raw response body.
func (e *APIError) ResponseBody() string {
	return e.Body
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthenticated
	}
	return nil
}

// Client talks to both services. A Client is safe for concurrent use;
// WithToken returns a copy bound to one user.
type Client struct {
	calendarURL   string
	gatekeeperURL string
	http          *http.Client
	token         string
	retries       uint64
	log           *logger.Logger
}

// New creates a client from the service URLs and timeout in cfg.
func New(cfg *config.Config) *Client {
	return &Client{
		calendarURL:   strings.TrimSuffix(cfg.FarmCalendarURL, "/"),
		gatekeeperURL: strings.TrimSuffix(cfg.GatekeeperURL, "/"),
		http:          &http.Client{Timeout: cfg.APITimeout},
		retries:       2,
		log:           logger.With("farmapi"),
	}
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token the client sends.
func (c *Client) Token() string {
	return c.token
}

type request struct {
	op     string
	method string
	url    string
	body   any
	token  string
	auth   bool // bearer token required
}

// do performs req and decodes a 2xx JSON body into out (when non-nil).
// GET requests are retried on transport errors and 5xx responses.
func (c *Client) do(ctx context.Context, req request, out any) error {
	if req.auth {
		if req.token == "" {
			req.token = c.token
		}
		if req.token == "" {
			if id, ok := IdentityFrom(ctx); ok {
				req.token = id.Token
			}
		}
		if req.token == "" {
			return ErrUnauthenticated
		}
	}

	var payload []byte
	if req.body != nil {
		var err error
		if payload, err = json.Marshal(req.body); err != nil {
			return fmt.Errorf("encoding %s request: %w", req.op, err)
		}
	}

	attempt := func() error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("building %s request: %w", req.op, err))
		}
		httpReq.Header.Set("Accept", "application/json")
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		if req.token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.token)
		}

		start := time.Now()
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return fmt.Errorf("%s: %w", req.op, err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading %s response: %w", req.op, err)
		}
		c.log.Debug("%s %s -> %d (%s)", req.method, req.url, resp.StatusCode, time.Since(start).Round(time.Millisecond))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{Op: req.op, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding %s response: %w", req.op, err))
		}
		return nil
	}

	if req.method != http.MethodGet || c.retries == 0 {
		err := attempt()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(200*time.Millisecond),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(b, c.retries), ctx))
}

func (c *Client) calendar(path string) string {
	return c.calendarURL + path
}

func (c *Client) gatekeeper(path string) string {
	return c.gatekeeperURL + path
}

// decodeList unwraps the list envelopes the service uses: a bare array, or
// an object carrying the array under items, results or data.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	for _, key := range []string{"items", "results", "data"} {
		inner, ok := envelope[key]
		if !ok || len(inner) == 0 || inner[0] != '[' {
			continue
		}
		var items []T
		if err := json.Unmarshal(inner, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, nil
}

func (c *Client) list(ctx context.Context, op, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, request{op: op, method: http.MethodGet, url: c.calendar(path), auth: true}, &raw)
	return raw, err
}

// Ping checks that both services answer. Any HTTP response counts; only
// transport failures are errors.
func (c *Client) Ping(ctx context.Context) error {
	for _, u := range []string{c.calendarURL + "/", c.gatekeeperURL + "/"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("building ping request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("reaching %s: %w", u, err)
		}
		_ = resp.Body.Close()
	}
	return nil
}
