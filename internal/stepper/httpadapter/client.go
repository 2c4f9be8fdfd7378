// Package httpadapter implements the stepper boundary against a host
// platform exposing a REST flow API: begin setup with ordered answer
// steps, delete an instance, patch options, and query options support.
package httpadapter

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

	"github.com/avelinec/hubsync/internal/stepper"
)

// Client talks to a host platform's flow API. All request failures are
// mapped onto the stepper error taxonomy so the reconciler never inspects
// HTTP details.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sets a bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client for the flow API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type beginRequest struct {
	Platform string           `json:"platform"`
	Answers  []map[string]any `json:"answers"`
}

type beginResponse struct {
	Handle string `json:"handle"`
}

type optionsRequest struct {
	Options []map[string]any `json:"options"`
}

type supportResponse struct {
	Supported bool `json:"supported"`
}

type apiError struct {
	Step    int    `json:"step"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

// Begin drives the platform's setup flow to completion.
func (c *Client) Begin(ctx context.Context, platform string, answers []map[string]any) (string, error) {
	body, err := c.do(ctx, http.MethodPost, "/flows", beginRequest{Platform: platform, Answers: answers}, platform)
	if err != nil {
		return "", err
	}

	var resp beginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &stepper.TransientError{Err: fmt.Errorf("malformed begin response: %w", err)}
	}
	if resp.Handle == "" {
		return "", &stepper.TransientError{Err: errors.New("begin response missing handle")}
	}
	return resp.Handle, nil
}

// Delete removes the instance for handle.
func (c *Client) Delete(ctx context.Context, handle string) error {
	_, err := c.do(ctx, http.MethodDelete, "/instances/"+handle, nil, "")
	return err
}

// UpdateOptions patches the instance's options.
func (c *Client) UpdateOptions(ctx context.Context, handle string, options []map[string]any) error {
	_, err := c.do(ctx, http.MethodPatch, "/instances/"+handle+"/options", optionsRequest{Options: options}, "")
	return err
}

// SupportsOptions queries whether the instance's platform exposes an
// options flow.
func (c *Client) SupportsOptions(ctx context.Context, handle string) (bool, error) {
	body, err := c.do(ctx, http.MethodGet, "/instances/"+handle+"/options/support", nil, "")
	if err != nil {
		return false, err
	}

	var resp supportResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, &stepper.TransientError{Err: fmt.Errorf("malformed support response: %w", err)}
	}
	return resp.Supported, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, platform string) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &stepper.TransientError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &stepper.TransientError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	return nil, c.mapError(resp.StatusCode, body, path, platform)
}

func (c *Client) mapError(status int, body []byte, path, platform string) error {
	var detail apiError
	_ = json.Unmarshal(body, &detail)

	switch {
	case status == http.StatusNotFound:
		return &stepper.NotFoundError{Handle: handleFromPath(path)}
	case status == http.StatusConflict:
		return &stepper.ConflictError{Platform: platform, Detail: detail.Detail}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return stepper.NewValidationError(platform, detail.Step, detail.Field, errors.New(detail.Message))
	case status >= 500:
		return &stepper.TransientError{Err: fmt.Errorf("host returned %d: %s", status, strings.TrimSpace(string(body)))}
	default:
		return fmt.Errorf("host returned unexpected status %d: %s", status, strings.TrimSpace(string(body)))
	}
}

func handleFromPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/instances/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
