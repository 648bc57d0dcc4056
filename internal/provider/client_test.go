package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/provider"
)

func newClient(t *testing.T, family string, h http.HandlerFunc, timeout time.Duration) *provider.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "p", Family: family, BaseURL: ts.URL, APIKey: "key"})
	return provider.NewClient(reg, ts.Client(), timeout)
}

func TestClientCompleteOpenAI(t *testing.T) {
	c := newClient(t, provider.FamilyOpenAICompatible, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}],"usage":{"prompt_tokens":4,"completion_tokens":1}}`))
	}, 0)

	resp, err := c.Complete(context.Background(), model.Model{Provider: "p", Name: "llama"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 4, resp.Usage.InputTokens)
	assert.Greater(t, resp.Latency, time.Duration(0))
}

func TestClientCompleteRateLimited(t *testing.T) {
	c := newClient(t, provider.FamilyAnthropic, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "11")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}, 0)

	_, err := c.Complete(context.Background(), model.Model{Provider: "p", Name: "claude"}, "hello")
	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.ClassRateLimited, perr.Class)
	assert.Equal(t, 11*time.Second, perr.RetryAfter)
	assert.Equal(t, "p", perr.Provider)
}

func TestClientCompleteMalformed(t *testing.T) {
	c := newClient(t, provider.FamilyGemini, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}, 0)

	_, err := c.Complete(context.Background(), model.Model{Provider: "p", Name: "g"}, "hello")
	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.ClassTerminal, perr.Class)
	assert.Equal(t, "malformed response", perr.Message)
}

func TestClientCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newClient(t, provider.FamilyOpenAI, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	_, err := c.Complete(context.Background(), model.Model{Provider: "p", Name: "gpt"}, "hello")
	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.ClassTransient, perr.Class)
	assert.True(t, perr.Retryable())
}

func TestClientCompleteUnknownProvider(t *testing.T) {
	c := provider.NewClient(provider.NewDefaultRegistry(), nil, 0)

	_, err := c.Complete(context.Background(), model.Model{Provider: "ghost", Name: "m"}, "hello")
	perr, ok := provider.AsError(err)
	require.True(t, ok)
	assert.Equal(t, provider.ClassTerminal, perr.Class)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}
