package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/seantiz/frontier/internal/model"
)

const anthropicVersion = "2023-06-01"

// Anthropic speaks the messages protocol.
type Anthropic struct{}

// NewAnthropic returns the Anthropic-style adapter.
func NewAnthropic() *Anthropic {
	return &Anthropic{}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []openAIMessage    `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Thinking    *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Family implements Adapter.
func (a *Anthropic) Family() string {
	return FamilyAnthropic
}

// BuildRequest implements Adapter. Reasoning models get an extended thinking
// budget sized from their effort level; max_tokens then covers budget plus answer.
func (a *Anthropic) BuildRequest(ctx context.Context, p Provider, m model.Model, prompt string) (*http.Request, error) {
	body := anthropicRequest{
		Model:     m.Name,
		MaxTokens: maxOutputTokens(m),
		Messages:  []openAIMessage{{Role: "user", Content: prompt}},
	}
	if m.Reasoning {
		budget := thinkingBudget(reasoningEffort(m))
		body.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
		body.MaxTokens += budget
	} else {
		body.Temperature = temperature(m)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimSuffix(p.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	setHeaders(req, p)
	req.Header.Set("x-api-key", p.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

// ParseResponse implements Adapter. Thinking blocks are skipped.
func (a *Anthropic) ParseResponse(body []byte) (Response, error) {
	var r anthropicResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, fmt.Errorf("decode message: %w", err)
	}
	var parts []string
	for _, c := range r.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}
	if len(parts) == 0 {
		return Response{}, errors.New("message has no text content")
	}
	return Response{
		Answer: strings.Join(parts, ""),
		Usage: Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
		},
	}, nil
}

// ClassifyError implements Adapter. 529 overloaded_error is transient.
func (a *Anthropic) ClassifyError(statusCode int, header http.Header, body []byte) *Error {
	var e anthropicError
	var msg string
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Type + ": " + e.Error.Message
	}
	return newHTTPError(statusCode, header, body, msg)
}
