package model

import (
	"errors"
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewRecordIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRecordID()
		if seen[id] {
			t.Fatalf("NewRecordID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestTraceID(t *testing.T) {
	if got := TraceID("01SWEEP", "gpt-4o"); got != "01SWEEP/gpt-4o" {
		t.Errorf("TraceID = %q, want %q", got, "01SWEEP/gpt-4o")
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{SweepPending, SweepRunning, true},
		{SweepPending, SweepPaused, false},
		{SweepPending, SweepCancelled, false},
		{SweepRunning, SweepPaused, true},
		{SweepRunning, SweepCancelled, true},
		{SweepRunning, SweepFinished, true},
		{SweepRunning, SweepRunning, false},
		{SweepPaused, SweepRunning, true},
		{SweepPaused, SweepCancelled, true},
		{SweepPaused, SweepPaused, false},
		{SweepPaused, SweepFinished, false},
		{SweepFinished, SweepPaused, false},
		{SweepCancelled, SweepRunning, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestActionTarget(t *testing.T) {
	tests := []struct {
		action string
		want   string
		ok     bool
	}{
		{ActionPause, SweepPaused, true},
		{ActionResume, SweepRunning, true},
		{ActionCancel, SweepCancelled, true},
		{"restart", "", false},
	}
	for _, tt := range tests {
		got, ok := ActionTarget(tt.action)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ActionTarget(%q) = (%q, %v), want (%q, %v)", tt.action, got, ok, tt.want, tt.ok)
		}
	}
}

func TestModelRunRecord(t *testing.T) {
	r := &ModelRun{ModelID: "m1", Status: RunRunning}
	r.Record(ScenarioResult{Correct: true, LatencyMS: 100, InputTokens: 10, OutputTokens: 2})
	r.Record(ScenarioResult{Correct: false, LatencyMS: 300, InputTokens: 10, OutputTokens: 4})
	r.Record(ScenarioResult{Err: errors.New("rate_limited")})

	if r.Total != 3 || r.Correct != 1 || r.Errors != 1 {
		t.Fatalf("tallies = total %d correct %d errors %d, want 3/1/1", r.Total, r.Correct, r.Errors)
	}
	if got := r.Accuracy(); got < 0.333 || got > 0.334 {
		t.Errorf("Accuracy = %v, want 1/3", got)
	}
	if got := r.AvgLatencyMS(); got != 200 {
		t.Errorf("AvgLatencyMS = %v, want 200", got)
	}
	if r.InputTokens != 20 || r.OutputTokens != 6 {
		t.Errorf("tokens = %d/%d, want 20/6", r.InputTokens, r.OutputTokens)
	}
}

func TestModelRunAccuracyEmpty(t *testing.T) {
	r := &ModelRun{}
	if r.Accuracy() != 0 || r.AvgLatencyMS() != 0 {
		t.Error("empty run should report zero accuracy and latency")
	}
}

func TestModelCost(t *testing.T) {
	m := &Model{InputCostPerMTok: 2.5, OutputCostPerMTok: 10}
	if got := m.Cost(1_000_000, 500_000); got != 7.5 {
		t.Errorf("Cost = %v, want 7.5", got)
	}
}
