package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seantiz/frontier/internal/model"
)

// maxResponseBytes caps how much of a provider response body is read.
const maxResponseBytes = 8 << 20

// Client performs single scenario calls through the registry's adapters.
// It makes exactly one HTTP attempt per call; retries belong to the caller.
type Client struct {
	registry *Registry
	http     *http.Client
	timeout  time.Duration
}

// NewClient creates a client. A nil httpClient uses http.DefaultClient.
// timeout bounds each call; zero disables the per-call bound.
func NewClient(reg *Registry, httpClient *http.Client, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{registry: reg, http: httpClient, timeout: timeout}
}

// Complete sends prompt to model m and returns the parsed answer.
// Every failure is returned as a *Error.
func (c *Client) Complete(ctx context.Context, m model.Model, prompt string) (Response, error) {
	a, p, err := c.registry.Resolve(m.Provider)
	if err != nil {
		return Response{}, &Error{Provider: m.Provider, Class: ClassTerminal, Message: "resolve provider", Err: err}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := a.BuildRequest(ctx, p, m, prompt)
	if err != nil {
		return Response{}, &Error{Provider: p.Name, Class: ClassTerminal, Message: "build request", Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		msg := "request failed"
		if ctx.Err() == context.DeadlineExceeded {
			msg = fmt.Sprintf("request timed out after %s", c.timeout)
		}
		return Response{}, &Error{Provider: p.Name, Class: ClassTransient, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, &Error{Provider: p.Name, StatusCode: resp.StatusCode, Class: ClassTransient, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := a.ClassifyError(resp.StatusCode, resp.Header, body)
		perr.Provider = p.Name
		return Response{}, perr
	}

	out, err := a.ParseResponse(body)
	if err != nil {
		return Response{}, &Error{Provider: p.Name, StatusCode: resp.StatusCode, Class: ClassTerminal, Message: "malformed response", Err: err}
	}
	out.Latency = time.Since(start)
	return out, nil
}
