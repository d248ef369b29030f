// Package client is the HTTP client for the permission service's
// internal API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/digitlabs/pm-sys/internal/platform/config"
	"github.com/digitlabs/pm-sys/internal/platform/tracing"
)

// Client calls the permission service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client from configuration.
func NewClient(cfg *config.ServicesConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.PermissionBaseURL, "/"),
		http:    &http.Client{Timeout: cfg.CallTimeout},
	}
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// BindDefaultRole assigns the default user role to a fresh account.
func (c *Client) BindDefaultRole(ctx context.Context, userID int64) error {
	_, err := c.post(ctx, "/internal/roles/bind-default", map[string]any{"userId": userID})
	return err
}

// BindSuperAdminRole assigns the super admin role to the bootstrap
// account.
func (c *Client) BindSuperAdminRole(ctx context.Context, userID int64) error {
	_, err := c.post(ctx, "/internal/roles/bind-super-admin", map[string]any{"userId": userID})
	return err
}

// GetUserRole returns the role code bound to the user.
func (c *Client) GetUserRole(ctx context.Context, userID int64) (string, error) {
	data, err := c.get(ctx, fmt.Sprintf("/internal/users/%d/role", userID))
	if err != nil {
		return "", err
	}

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to decode role response: %w", err)
	}
	return payload.Role, nil
}

// GetUserIDsByRoles returns all user IDs holding any of the roles.
func (c *Client) GetUserIDsByRoles(ctx context.Context, roleCodes []string) ([]int64, error) {
	query := url.Values{"roles": []string{strings.Join(roleCodes, ",")}}
	data, err := c.get(ctx, "/internal/users/ids?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		UserIDs []int64 `json:"userIds"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode user ids response: %w", err)
	}
	return payload.UserIDs, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, span := tracing.StartSpan(ctx, "POST "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	data, err := c.do(req)
	if err != nil {
		span.RecordError(err)
	}
	return data, err
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, span := tracing.StartSpan(ctx, "GET "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	data, err := c.do(req)
	if err != nil {
		span.RecordError(err)
	}
	return data, err
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("permission service call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if env.Code != strconv.Itoa(http.StatusOK) {
		return nil, fmt.Errorf("permission service returned %s: %s", env.Code, env.Message)
	}
	return env.Data, nil
}
