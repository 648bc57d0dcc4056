package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/seantiz/frontier/internal/model"
)

// Gemini speaks the generateContent protocol.
type Gemini struct{}

// NewGemini returns the Gemini-style adapter.
func NewGemini() *Gemini {
	return &Gemini{}
}

type geminiPart struct {
	Text    string `json:"text"`
	Thought bool   `json:"thought,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiGenerationConfig struct {
	Temperature     *float64              `json:"temperature,omitempty"`
	MaxOutputTokens int                   `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *geminiThinkingConfig `json:"thinkingConfig,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	} `json:"usageMetadata"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Family implements Adapter.
func (g *Gemini) Family() string {
	return FamilyGemini
}

// BuildRequest implements Adapter.
func (g *Gemini) BuildRequest(ctx context.Context, p Provider, m model.Model, prompt string) (*http.Request, error) {
	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: maxOutputTokens(m),
		},
	}
	if m.Reasoning {
		budget := thinkingBudget(reasoningEffort(m))
		body.GenerationConfig.ThinkingConfig = &geminiThinkingConfig{ThinkingBudget: budget}
		body.GenerationConfig.MaxOutputTokens += budget
	} else {
		body.GenerationConfig.Temperature = temperature(m)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := strings.TrimSuffix(p.BaseURL, "/") + "/models/" + url.PathEscape(m.Name) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	setHeaders(req, p)
	req.Header.Set("x-goog-api-key", p.APIKey)
	return req, nil
}

// ParseResponse implements Adapter. Thought parts are skipped; thinking tokens
// count as output.
func (g *Gemini) ParseResponse(body []byte) (Response, error) {
	var r geminiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Response{}, fmt.Errorf("decode generateContent: %w", err)
	}
	if len(r.Candidates) == 0 {
		return Response{}, errors.New("response has no candidates")
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if !part.Thought {
			b.WriteString(part.Text)
		}
	}
	return Response{
		Answer: b.String(),
		Usage: Usage{
			InputTokens:  r.UsageMetadata.PromptTokenCount,
			OutputTokens: r.UsageMetadata.CandidatesTokenCount + r.UsageMetadata.ThoughtsTokenCount,
		},
	}, nil
}

// ClassifyError implements Adapter. RESOURCE_EXHAUSTED carries its retry delay
// in the body's RetryInfo detail, which the body hint parser picks up.
func (g *Gemini) ClassifyError(statusCode int, header http.Header, body []byte) *Error {
	var e geminiError
	var msg string
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		msg = e.Error.Status + ": " + e.Error.Message
	}
	return newHTTPError(statusCode, header, body, msg)
}
