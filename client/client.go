// Package client talks to the tracker REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracksync/logger"
	"tracksync/model"
)

const (
	trackersPath = "/trackers"
	healthPath   = "/health"
	eventsPath   = "/trackers/events"
)

// APIError is returned for any non-2xx response. Code and Message come from
// the server's error body when it sent one.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tracker API returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tracker API returned %d", e.StatusCode)
}

// IsNotFound reports whether the server answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// errorBody mirrors the server's error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client is a thin request/response wrapper around the tracker endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListTrackers fetches every tracker, in the server's order.
func (c *Client) ListTrackers(ctx context.Context) ([]model.BackendTracker, error) {
	var trackers []model.BackendTracker
	if err := c.do(ctx, http.MethodGet, trackersPath, nil, &trackers); err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	if trackers == nil {
		trackers = []model.BackendTracker{}
	}
	return trackers, nil
}

// GetTracker fetches one tracker.
func (c *Client) GetTracker(ctx context.Context, id int64) (*model.BackendTracker, error) {
	var tracker model.BackendTracker
	if err := c.do(ctx, http.MethodGet, trackerPath(id), nil, &tracker); err != nil {
		return nil, fmt.Errorf("get tracker %d: %w", id, err)
	}
	return &tracker, nil
}

// CreateTracker creates a tracker and returns it as stored.
func (c *Client) CreateTracker(ctx context.Context, req model.CreateTrackerRequest) (*model.BackendTracker, error) {
	var tracker model.BackendTracker
	if err := c.do(ctx, http.MethodPost, trackersPath, req, &tracker); err != nil {
		return nil, fmt.Errorf("create tracker: %w", err)
	}
	return &tracker, nil
}

// UpdateTracker applies req to tracker id and returns the stored result.
func (c *Client) UpdateTracker(ctx context.Context, id int64, req model.UpdateTrackerRequest) (*model.BackendTracker, error) {
	var tracker model.BackendTracker
	if err := c.do(ctx, http.MethodPut, trackerPath(id), req, &tracker); err != nil {
		return nil, fmt.Errorf("update tracker %d: %w", id, err)
	}
	return &tracker, nil
}

// DeleteTracker removes tracker id.
func (c *Client) DeleteTracker(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, trackerPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete tracker %d: %w", id, err)
	}
	return nil
}

// HealthCheck reports whether the API answers its health probe. It never
// returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		logger.Warn("health check request failed", logger.ErrorField(err))
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("health check failed", logger.String("url", c.baseURL), logger.ErrorField(err))
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func trackerPath(id int64) string {
	return fmt.Sprintf("%s/%d", trackersPath, id)
}

// do sends a JSON request and decodes a JSON response into out (when out is
// non-nil and the server sent a body).
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("tracker API request failed",
			logger.String("method", method),
			logger.String("path", path),
			logger.ErrorField(err))
		return err
	}
	defer resp.Body.Close()

	logger.Debug("tracker API request",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(data) == 0 {
		return apiErr
	}
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil {
		apiErr.Code = eb.Code
		apiErr.Message = eb.Message
		if apiErr.Message == "" {
			apiErr.Message = eb.Error
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	return apiErr
}
