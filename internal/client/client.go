// Package client is a typed HTTP client for the frontier API.
package client

import (
	"bufio"
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

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/store"
	"github.com/seantiz/frontier/internal/sweep"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// ModelID is set when a launch was rejected for a specific model.
	ModelID string
	// Action and From are set when a control action was rejected.
	Action string
	From   string
}

func (e *APIError) Error() string {
	switch {
	case e.ModelID != "":
		return fmt.Sprintf("%s (model %s, HTTP %d)", e.Message, e.ModelID, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
	default:
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one frontier server.
type Client struct {
	baseURL string
	http    *http.Client
	// stream has no overall timeout; event streams live as long as the sweep.
	stream *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		stream:  &http.Client{},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		ModelID string `json:"model_id"`
		Action  string `json:"action"`
		From    string `json:"from"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if json.Unmarshal(data, &body) == nil {
		apiErr.Message = body.Error
		apiErr.ModelID = body.ModelID
		apiErr.Action = body.Action
		apiErr.From = body.From
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// LaunchSweep starts a sweep and returns its id.
func (c *Client) LaunchSweep(ctx context.Context, req sweep.LaunchRequest) (string, error) {
	var out struct {
		SweepID string `json:"sweep_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sweeps", req, &out); err != nil {
		return "", err
	}
	return out.SweepID, nil
}

// Sweep returns the latest snapshot of a sweep.
func (c *Client) Sweep(ctx context.Context, id string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := c.do(ctx, http.MethodGet, "/v1/sweeps/"+url.PathEscape(id), nil, &snap)
	return snap, err
}

// Sweeps lists every sweep, newest first.
func (c *Client) Sweeps(ctx context.Context) ([]model.Snapshot, error) {
	var snaps []model.Snapshot
	err := c.do(ctx, http.MethodGet, "/v1/sweeps", nil, &snaps)
	return snaps, err
}

// Pause requests a pause of a running sweep.
func (c *Client) Pause(ctx context.Context, id string) (model.Snapshot, error) {
	return c.control(ctx, id, model.ActionPause)
}

// Resume resumes a paused sweep.
func (c *Client) Resume(ctx context.Context, id string) (model.Snapshot, error) {
	return c.control(ctx, id, model.ActionResume)
}

// Cancel cancels a sweep.
func (c *Client) Cancel(ctx context.Context, id string) (model.Snapshot, error) {
	return c.control(ctx, id, model.ActionCancel)
}

func (c *Client) control(ctx context.Context, id, action string) (model.Snapshot, error) {
	var snap model.Snapshot
	err := c.do(ctx, http.MethodPost, "/v1/sweeps/"+url.PathEscape(id)+"/"+action, nil, &snap)
	return snap, err
}

// SweepRecords lists the evaluation records written by a sweep.
func (c *Client) SweepRecords(ctx context.Context, id string) ([]model.EvalRecord, error) {
	var records []model.EvalRecord
	err := c.do(ctx, http.MethodGet, "/v1/sweeps/"+url.PathEscape(id)+"/records", nil, &records)
	return records, err
}

// Watch streams snapshots of a sweep to fn until the sweep is terminal and
// drained, fn returns an error, or ctx is cancelled.
func (c *Client) Watch(ctx context.Context, id string, fn func(model.Snapshot) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sweeps/"+url.PathEscape(id)+"/events", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("open event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if event == "done" {
				return nil
			}
			if event != "snapshot" {
				continue
			}
			var snap model.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &snap); err != nil {
				return fmt.Errorf("decode snapshot: %w", err)
			}
			if err := fn(snap); err != nil {
				return err
			}
		case line == "":
			event = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return io.ErrUnexpectedEOF
}

// Models lists the registered models.
func (c *Client) Models(ctx context.Context) ([]model.Model, error) {
	var models []model.Model
	err := c.do(ctx, http.MethodGet, "/v1/models", nil, &models)
	return models, err
}

// AddModel registers a model.
func (c *Client) AddModel(ctx context.Context, m model.Model) (model.Model, error) {
	var out model.Model
	err := c.do(ctx, http.MethodPost, "/v1/models", m, &out)
	return out, err
}

// DeleteModel removes a model from the registry.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/models/"+url.PathEscape(id), nil, nil)
}

// Providers lists the configured providers.
func (c *Client) Providers(ctx context.Context) ([]provider.ProviderInfo, error) {
	var infos []provider.ProviderInfo
	err := c.do(ctx, http.MethodGet, "/v1/providers", nil, &infos)
	return infos, err
}

// Leaderboard returns the leaderboard, best accuracy first.
func (c *Client) Leaderboard(ctx context.Context) ([]store.LeaderboardEntry, error) {
	var entries []store.LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/v1/leaderboard", nil, &entries)
	return entries, err
}
