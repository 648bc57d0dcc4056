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

// OpenAI speaks the chat-completions protocol. The same adapter serves
// third-party OpenAI-compatible endpoints under a different family name.
type OpenAI struct {
	family string
}

// NewOpenAI returns the adapter for OpenAI itself.
func NewOpenAI() *OpenAI {
	return &OpenAI{family: FamilyOpenAI}
}

// NewOpenAICompatible returns the adapter for third-party OpenAI-compatible APIs.
func NewOpenAICompatible() *OpenAI {
	return &OpenAI{family: FamilyOpenAICompatible}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	// Reasoning models take max_completion_tokens and reasoning_effort instead.
	MaxCompletionTokens int    `json:"max_completion_tokens,omitempty"`
	ReasoningEffort     string `json:"reasoning_effort,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Family implements Adapter.
func (o *OpenAI) Family() string {
	return o.family
}

// BuildRequest implements Adapter.
func (o *OpenAI) BuildRequest(ctx context.Context, p Provider, m model.Model, prompt string) (*http.Request, error) {
	body := openAIRequest{
		Model:    m.Name,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	}
	if m.Reasoning {
		body.ReasoningEffort = reasoningEffort(m)
		body.MaxCompletionTokens = maxOutputTokens(m)
	} else {
		body.Temperature = temperature(m)
		body.MaxTokens = maxOutputTokens(m)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimSuffix(p.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	setHeaders(req, p)
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	return req, nil
}

// ParseResponse implements Adapter.
func (o *OpenAI) ParseResponse(body []byte) (Response, error) {
	var r openAIResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(r.Choices) == 0 {
		return Response{}, errors.New("chat completion has no choices")
	}
	return Response{
		Answer: r.Choices[0].Message.Content,
		Usage: Usage{
			InputTokens:  r.Usage.PromptTokens,
			OutputTokens: r.Usage.CompletionTokens,
		},
	}, nil
}

// ClassifyError implements Adapter.
func (o *OpenAI) ClassifyError(statusCode int, header http.Header, body []byte) *Error {
	var e openAIError
	var msg string
	if json.Unmarshal(body, &e) == nil {
		msg = e.Error.Message
	}
	return newHTTPError(statusCode, header, body, msg)
}
