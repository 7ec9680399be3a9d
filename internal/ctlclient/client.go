// Package ctlclient talks to a running dashboard: it reads the summary and
// the pipeline status and can trigger a new pipeline run.
package ctlclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

var ErrServiceUnavailable = errors.New("dashboard unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Summary struct {
	Summary  students.Summary       `json:"summary"`
	ByGender []students.GenderCount `json:"by_gender"`
	ByAge    []students.AgeAverage  `json:"by_age"`
}

type pipelineResponse struct {
	Status pipeline.Status `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:10000"
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var payload Summary
	if err := c.doJSON(ctx, http.MethodGet, "/api/summary", &payload); err != nil {
		return Summary{}, err
	}
	return payload, nil
}

func (c *Client) Status(ctx context.Context) (pipeline.Status, error) {
	var payload pipelineResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/pipeline", &payload); err != nil {
		return pipeline.Status{}, err
	}
	return payload.Status, nil
}

// Trigger starts a pipeline run. A run already in progress comes back as
// an *APIError with status 409.
func (c *Client) Trigger(ctx context.Context) (pipeline.Status, error) {
	var payload pipelineResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/pipeline/run", &payload); err != nil {
		return pipeline.Status{}, err
	}
	return payload.Status, nil
}

// Wait polls the pipeline status until it leaves the running state.
func (c *Client) Wait(ctx context.Context, interval time.Duration) (pipeline.Status, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx)
		if err != nil {
			return pipeline.Status{}, err
		}
		if status.State != pipeline.Running {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return status, ctx.Err()
		case <-ticker.C:
		}
	}
}

func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

func (c *Client) doJSON(ctx context.Context, method, path string, responseBody any) error {
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil && strings.TrimSpace(payload.Error) != "" {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	return json.NewDecoder(response.Body).Decode(responseBody)
}
