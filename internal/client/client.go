// Package client talks to a running mapty server over its REST API.
package client

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

	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

const maxAttempts = 3

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client sends requests to the mapty server.
type Client struct {
	serverURL  string
	apiKey     string
	httpClient *http.Client
	retryDelay time.Duration
}

// NewClient creates a client for serverURL. apiKey may be empty when the
// server does not require one.
func NewClient(serverURL, apiKey string) *Client {
	return &Client{
		serverURL:  strings.TrimRight(serverURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: time.Second,
	}
}

type coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SetPosition reports the user's position to the session.
func (c *Client) SetPosition(ctx context.Context, at workout.Coordinates) error {
	return c.do(ctx, http.MethodPost, "/api/v1/session/position", coordinates{at.Lat, at.Lng}, nil)
}

// PositionUnavailable reports a failed geolocation lookup.
func (c *Client) PositionUnavailable(ctx context.Context, reason string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/session/position", map[string]string{"error": reason}, nil)
}

// SelectPoint opens the workout form at a map point.
func (c *Client) SelectPoint(ctx context.Context, at workout.Coordinates) error {
	return c.do(ctx, http.MethodPost, "/api/v1/session/point", coordinates{at.Lat, at.Lng}, nil)
}

// Submit posts a workout form. Retries up to 3 times with exponential
// backoff on transport errors and 5xx responses; 4xx responses are returned
// immediately. A transport error after the server stored the workout can
// lead to a duplicate on retry.
func (c *Client) Submit(ctx context.Context, in form.Input) (render.View, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return render.View{}, fmt.Errorf("marshaling form: %w", err)
	}

	var lastErr error
	for attempt := range maxAttempts {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay << uint(attempt-1)):
			case <-ctx.Done():
				return render.View{}, ctx.Err()
			}
		}

		var view render.View
		err := c.send(ctx, http.MethodPost, "/api/v1/workouts", data, &view)
		if err == nil {
			return view, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return render.View{}, err
		}
		lastErr = err
	}

	return render.View{}, fmt.Errorf("after %d attempts: %w", maxAttempts, lastErr)
}

// Workouts lists the session's workouts in insertion order.
func (c *Client) Workouts(ctx context.Context) ([]workout.Workout, error) {
	var views []render.View
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts", nil, &views); err != nil {
		return nil, err
	}
	ws := make([]workout.Workout, len(views))
	for i, v := range views {
		ws[i] = v.Workout
	}
	return ws, nil
}

func (c *Client) Workout(ctx context.Context, id uuid.UUID) (workout.Workout, error) {
	var view render.View
	if err := c.do(ctx, http.MethodGet, "/api/v1/workouts/"+id.String(), nil, &view); err != nil {
		return workout.Workout{}, err
	}
	return view.Workout, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var data []byte
	if in != nil {
		var err error
		if data, err = json.Marshal(in); err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
	}
	return c.send(ctx, method, path, data, out)
}

func (c *Client) send(ctx context.Context, method, path string, data []byte, out any) error {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message, apiErr.Code = payload.Error, payload.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
