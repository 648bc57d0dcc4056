package model

import "time"

// Model is a registered model configuration served by a provider.
type Model struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	// Name is the provider-native model name sent on the wire.
	Name            string   `json:"name"`
	Reasoning       bool     `json:"reasoning"`
	ReasoningEffort string   `json:"reasoning_effort,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens"`
	// Pricing in USD per million tokens.
	InputCostPerMTok  float64   `json:"input_cost_per_mtok"`
	OutputCostPerMTok float64   `json:"output_cost_per_mtok"`
	CreatedAt         time.Time `json:"created_at"`
}

// Cost returns the USD cost of the given token usage.
func (m *Model) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*m.InputCostPerMTok + float64(outputTokens)*m.OutputCostPerMTok) / 1e6
}

// VisibilityPublic marks evaluation records readable by leaderboard views.
const VisibilityPublic = "public"

// EvalRecord is the persisted result of one completed model run.
type EvalRecord struct {
	ID            string    `json:"id"`
	TraceID       string    `json:"trace_id"`
	SweepID       string    `json:"sweep_id"`
	ModelID       string    `json:"model_id"`
	Provider      string    `json:"provider"`
	Visibility    string    `json:"visibility"`
	Status        string    `json:"status"`
	ScenarioCount int       `json:"scenario_count"`
	Correct       int       `json:"correct"`
	Errors        int       `json:"errors"`
	Accuracy      float64   `json:"accuracy"`
	AvgLatencyMS  float64   `json:"avg_latency_ms"`
	InputTokens   int       `json:"input_tokens"`
	OutputTokens  int       `json:"output_tokens"`
	CostUSD       float64   `json:"cost_usd"`
	Seed          int64     `json:"seed"`
	SuiteDigest   string    `json:"suite_digest"`
	CreatedAt     time.Time `json:"created_at"`
}
