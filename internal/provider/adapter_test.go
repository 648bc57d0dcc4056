package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/frontier/internal/model"
)

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestOpenAIBuildRequestChat(t *testing.T) {
	temp := 0.2
	p := Provider{Name: "openai", BaseURL: "https://api.example.com/v1/", APIKey: "sk", Headers: map[string]string{"OpenAI-Organization": "org"}}
	m := model.Model{Name: "gpt-4o", Temperature: &temp, MaxOutputTokens: 256}

	req, err := NewOpenAI().BuildRequest(context.Background(), p, m, "hi")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer sk", req.Header.Get("Authorization"))
	assert.Equal(t, "org", req.Header.Get("OpenAI-Organization"))

	body := decodeBody(t, req)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 0.2, body["temperature"])
	assert.Equal(t, 256.0, body["max_tokens"])
	assert.NotContains(t, body, "reasoning_effort")
	assert.NotContains(t, body, "max_completion_tokens")
}

func TestOpenAIBuildRequestReasoning(t *testing.T) {
	temp := 0.7
	m := model.Model{Name: "o3", Reasoning: true, ReasoningEffort: "high", Temperature: &temp, MaxOutputTokens: 2048}

	req, err := NewOpenAI().BuildRequest(context.Background(), Provider{BaseURL: "http://x", APIKey: "k"}, m, "hi")
	require.NoError(t, err)

	body := decodeBody(t, req)
	assert.Equal(t, "high", body["reasoning_effort"])
	assert.Equal(t, 2048.0, body["max_completion_tokens"])
	assert.NotContains(t, body, "temperature")
	assert.NotContains(t, body, "max_tokens")
}

func TestOpenAIParseResponse(t *testing.T) {
	resp, err := NewOpenAI().ParseResponse([]byte(`{"choices":[{"message":{"content":"42"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "42", resp.Answer)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3}, resp.Usage)

	_, err = NewOpenAI().ParseResponse([]byte(`{"choices":[]}`))
	assert.Error(t, err)
	_, err = NewOpenAI().ParseResponse([]byte(`<html>`))
	assert.Error(t, err)
}

func TestOpenAIClassifyError(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "7")
	e := NewOpenAI().ClassifyError(429, h, []byte(`{"error":{"message":"Rate limit reached. Please try again in 1.5s.","type":"requests"}}`))

	assert.Equal(t, ClassRateLimited, e.Class)
	assert.Equal(t, 7*time.Second, e.RetryAfter)
	assert.Equal(t, 1500*time.Millisecond, e.Hint)
	assert.Contains(t, e.Message, "Rate limit reached")
	assert.True(t, e.Retryable())

	e = NewOpenAI().ClassifyError(401, nil, []byte(`{"error":{"message":"Incorrect API key"}}`))
	assert.Equal(t, ClassTerminal, e.Class)
	assert.False(t, e.Retryable())
}

func TestOpenAICompatibleFamily(t *testing.T) {
	assert.Equal(t, FamilyOpenAICompatible, NewOpenAICompatible().Family())
	assert.Equal(t, FamilyOpenAI, NewOpenAI().Family())
}

func TestAnthropicBuildRequest(t *testing.T) {
	p := Provider{BaseURL: "https://api.anthropic.com", APIKey: "ak"}

	req, err := NewAnthropic().BuildRequest(context.Background(), p, model.Model{Name: "claude-x", MaxOutputTokens: 512}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "https://api.anthropic.com/v1/messages", req.URL.String())
	assert.Equal(t, "ak", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
	body := decodeBody(t, req)
	assert.Equal(t, 512.0, body["max_tokens"])
	assert.Equal(t, 0.0, body["temperature"])
	assert.NotContains(t, body, "thinking")

	req, err = NewAnthropic().BuildRequest(context.Background(), p, model.Model{Name: "claude-x", Reasoning: true, ReasoningEffort: "low", MaxOutputTokens: 512}, "hi")
	require.NoError(t, err)
	body = decodeBody(t, req)
	assert.NotContains(t, body, "temperature")
	thinking := body["thinking"].(map[string]any)
	assert.Equal(t, "enabled", thinking["type"])
	assert.Equal(t, 1024.0, thinking["budget_tokens"])
	assert.Equal(t, 1536.0, body["max_tokens"])
}

func TestAnthropicParseResponse(t *testing.T) {
	resp, err := NewAnthropic().ParseResponse([]byte(`{"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"Paris"}],"usage":{"input_tokens":9,"output_tokens":40}}`))
	require.NoError(t, err)
	assert.Equal(t, "Paris", resp.Answer)
	assert.Equal(t, Usage{InputTokens: 9, OutputTokens: 40}, resp.Usage)

	_, err = NewAnthropic().ParseResponse([]byte(`{"content":[]}`))
	assert.Error(t, err)
}

func TestAnthropicClassifyOverloaded(t *testing.T) {
	e := NewAnthropic().ClassifyError(529, nil, []byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	assert.Equal(t, ClassTransient, e.Class)
	assert.Equal(t, "overloaded_error: Overloaded", e.Message)
}

func TestGeminiBuildRequest(t *testing.T) {
	p := Provider{BaseURL: "https://generativelanguage.googleapis.com/v1beta", APIKey: "gk"}

	req, err := NewGemini().BuildRequest(context.Background(), p, model.Model{Name: "gemini-pro", Reasoning: true}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent", req.URL.String())
	assert.Equal(t, "gk", req.Header.Get("x-goog-api-key"))

	body := decodeBody(t, req)
	cfg := body["generationConfig"].(map[string]any)
	assert.NotContains(t, cfg, "temperature")
	assert.Equal(t, 4096.0, cfg["thinkingConfig"].(map[string]any)["thinkingBudget"])
	assert.Equal(t, float64(defaultMaxOutputTokens+4096), cfg["maxOutputTokens"])
}

func TestGeminiParseResponse(t *testing.T) {
	resp, err := NewGemini().ParseResponse([]byte(`{"candidates":[{"content":{"parts":[{"text":"thinking...","thought":true},{"text":"17"}]}}],"usageMetadata":{"promptTokenCount":5,"candidatesTokenCount":1,"thoughtsTokenCount":30}}`))
	require.NoError(t, err)
	assert.Equal(t, "17", resp.Answer)
	assert.Equal(t, Usage{InputTokens: 5, OutputTokens: 31}, resp.Usage)

	_, err = NewGemini().ParseResponse([]byte(`{"candidates":[]}`))
	assert.Error(t, err)
}

func TestGeminiClassifyResourceExhausted(t *testing.T) {
	body := `{"error":{"code":429,"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED","details":[{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"12s"}]}}`
	e := NewGemini().ClassifyError(429, nil, []byte(body))
	assert.Equal(t, ClassRateLimited, e.Class)
	assert.Equal(t, 12*time.Second, e.Hint)
	assert.Equal(t, "RESOURCE_EXHAUSTED: Quota exceeded", e.Message)
}
