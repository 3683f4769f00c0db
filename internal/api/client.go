// Package api is the HTTP client for the eTijucas REST backend. List
// endpoints answer {data: [...], meta: {...}}, single records {data: {...}},
// and errors a structured envelope decoded into *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/etijucas/offline/internal/model"
)

// Client talks to one tenant's API. The tenant token rides on every request
// so server-side partitioning matches the local cache partitioning.
type Client struct {
	baseURL string
	tenant  string
	hc      *http.Client
	log     *zap.Logger
}

// NewClient creates a client for baseURL scoped to the given tenant token.
func NewClient(baseURL, tenantToken string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tenant:  tenantToken,
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Tenant returns the tenant token this client is scoped to.
func (c *Client) Tenant() string { return c.tenant }

// HealthURL returns the endpoint the connectivity monitor probes.
func (c *Client) HealthURL() string { return c.baseURL + "/api/v1/health" }

type listEnvelope[T any] struct {
	Data []T        `json:"data"`
	Meta model.Meta `json:"meta"`
}

type itemEnvelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, idempotencyKey string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tenant", c.tenant)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		// The server deduplicates on this key, so a retry whose success
		// response was lost client-side cannot create a second resource.
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env errorEnvelope
		if jsonErr := json.Unmarshal(raw, &env); jsonErr == nil && env.Message != "" {
			apiErr.Message = env.Message
			apiErr.Code = env.Code
		}
		return nil, apiErr
	}
	return raw, nil
}

func getList[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, model.Meta, error) {
	raw, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return nil, model.Meta{}, err
	}
	var env listEnvelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, model.Meta{}, fmt.Errorf("decode list %s: %w", path, err)
	}
	return env.Data, env.Meta, nil
}

func getItem[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var env itemEnvelope[T]
	raw, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return env.Data, err
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env.Data, fmt.Errorf("decode item %s: %w", path, err)
	}
	return env.Data, nil
}

func postItem[T any](ctx context.Context, c *Client, path string, body any, idempotencyKey string) (T, error) {
	var env itemEnvelope[T]
	raw, err := c.do(ctx, http.MethodPost, path, nil, body, idempotencyKey)
	if err != nil {
		return env.Data, err
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return env.Data, fmt.Errorf("decode item %s: %w", path, err)
	}
	return env.Data, nil
}
