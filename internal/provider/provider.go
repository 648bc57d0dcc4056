package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/seantiz/frontier/internal/model"
)

// Provider family constants.
const (
	FamilyOpenAI           = "openai"
	FamilyOpenAICompatible = "openai_compatible"
	FamilyAnthropic        = "anthropic"
	FamilyGemini           = "gemini"
)

// Adapter is the interface every provider family implements. Reasoning-effort
// handling is internal to each adapter; callers only see prompts and answers.
type Adapter interface {
	// Family names the wire protocol this adapter speaks.
	Family() string

	// BuildRequest translates a model config and scenario prompt into a
	// provider-native HTTP request bound to ctx.
	BuildRequest(ctx context.Context, p Provider, m model.Model, prompt string) (*http.Request, error)

	// ParseResponse extracts answer text and token usage from a 2xx response body.
	ParseResponse(body []byte) (Response, error)

	// ClassifyError turns a non-2xx response into a retryable or terminal error.
	ClassifyError(statusCode int, header http.Header, body []byte) *Error
}

// Provider is a configured endpoint of some adapter family.
type Provider struct {
	Name    string            `json:"name"`
	Family  string            `json:"family"`
	BaseURL string            `json:"base_url"`
	APIKey  string            `json:"-"`
	Headers map[string]string `json:"-"`
}

// Usage is the token accounting reported by a provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is a parsed provider answer.
type Response struct {
	Answer  string        `json:"answer"`
	Usage   Usage         `json:"usage"`
	Latency time.Duration `json:"latency"`
}

// defaultMaxOutputTokens applies when a model does not configure a limit.
const defaultMaxOutputTokens = 1024

func maxOutputTokens(m model.Model) int {
	if m.MaxOutputTokens > 0 {
		return m.MaxOutputTokens
	}
	return defaultMaxOutputTokens
}

func temperature(m model.Model) *float64 {
	if m.Temperature != nil {
		return m.Temperature
	}
	zero := 0.0
	return &zero
}

func reasoningEffort(m model.Model) string {
	if m.ReasoningEffort != "" {
		return m.ReasoningEffort
	}
	return "medium"
}

// thinkingBudget maps a reasoning effort onto a token budget for families that
// size reasoning in tokens rather than levels.
func thinkingBudget(effort string) int {
	switch effort {
	case "low", "minimal":
		return 1024
	case "high":
		return 16384
	default:
		return 4096
	}
}

func setHeaders(req *http.Request, p Provider) {
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
}
