// Package mockprovider serves OpenAI-compatible and Anthropic-style chat
// endpoints backed by a Go function, for local runs and tests.
package mockprovider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

// AnswerFunc produces the completion text for a prompt.
type AnswerFunc func(prompt string) string

// Options configures a mock provider.
type Options struct {
	// APIKey, when set, is required on every request.
	APIKey string
	// Answer defaults to echoing "ok".
	Answer AnswerFunc
	// Latency is slept before every response.
	Latency time.Duration
	// RateLimitEvery makes every Nth request fail with 429.
	RateLimitEvery int
	// RetryAfter is sent with rate-limited responses when positive.
	RetryAfter time.Duration
}

// Server is a mock provider that speaks both wire formats.
type Server struct {
	opts     Options
	router   *chi.Mux
	requests atomic.Int64
	limited  atomic.Int64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

// New creates a mock provider. OpenAI-compatible requests are served at
// /chat/completions and /v1/chat/completions, Anthropic-style ones at /v1/messages.
func New(opts Options) *Server {
	if opts.Answer == nil {
		opts.Answer = func(string) string { return "ok" }
	}
	s := &Server{opts: opts, router: chi.NewRouter()}
	s.router.Post("/chat/completions", s.handleChat)
	s.router.Post("/v1/chat/completions", s.handleChat)
	s.router.Post("/v1/messages", s.handleMessages)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Requests returns how many requests the server has received.
func (s *Server) Requests() int {
	return int(s.requests.Load())
}

// RateLimited returns how many requests were answered with 429.
func (s *Server) RateLimited() int {
	return int(s.limited.Load())
}

// admit applies auth, latency and rate limiting. It reports whether the
// request should be answered.
func (s *Server) admit(w http.ResponseWriter, r *http.Request, key string, errBody func(kind, msg string) any) bool {
	n := s.requests.Add(1)

	if s.opts.APIKey != "" && key != s.opts.APIKey {
		writeJSON(w, http.StatusUnauthorized, errBody("authentication_error", "invalid api key"))
		return false
	}
	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-r.Context().Done():
			return false
		}
	}
	if s.opts.RateLimitEvery > 0 && n%int64(s.opts.RateLimitEvery) == 0 {
		s.limited.Add(1)
		if s.opts.RetryAfter > 0 {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(s.opts.RetryAfter.Seconds())))
		}
		writeJSON(w, http.StatusTooManyRequests, errBody("rate_limit_error", "rate limit exceeded"))
		return false
	}
	return true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, errBody func(kind, msg string) any) (chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeJSON(w, http.StatusBadRequest, errBody("invalid_request_error", "messages are required"))
		return req, false
	}
	return req, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	errBody := func(kind, msg string) any {
		return map[string]any{"error": map[string]string{"type": kind, "message": msg}}
	}
	key := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !s.admit(w, r, key, errBody) {
		return
	}
	req, ok := s.decode(w, r, errBody)
	if !ok {
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	answer := s.opts.Answer(prompt)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     fmt.Sprintf("chatcmpl-%d", s.Requests()),
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       chatMessage{Role: "assistant", Content: answer},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{
			"prompt_tokens":     tokens(prompt),
			"completion_tokens": tokens(answer),
		},
	})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	errBody := func(kind, msg string) any {
		return map[string]any{"type": "error", "error": map[string]string{"type": kind, "message": msg}}
	}
	if !s.admit(w, r, r.Header.Get("x-api-key"), errBody) {
		return
	}
	req, ok := s.decode(w, r, errBody)
	if !ok {
		return
	}

	prompt := req.Messages[len(req.Messages)-1].Content
	answer := s.opts.Answer(prompt)
	writeJSON(w, http.StatusOK, map[string]any{
		"id":          fmt.Sprintf("msg_%d", s.Requests()),
		"type":        "message",
		"role":        "assistant",
		"model":       req.Model,
		"content":     []map[string]string{{"type": "text", "text": answer}},
		"stop_reason": "end_turn",
		"usage": map[string]int{
			"input_tokens":  tokens(prompt),
			"output_tokens": tokens(answer),
		},
	})
}

// tokens approximates a token count as one token per four bytes.
func tokens(s string) int {
	return (len(s) + 3) / 4
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
