package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand/v2"
)

// SuiteSize is the scenario count of a full benchmark suite.
const SuiteSize = 300

// ErrEmptyPrompt is returned when a source yields a scenario without a prompt.
var ErrEmptyPrompt = errors.New("scenario has empty prompt")

// Scenario is one benchmark test case.
type Scenario struct {
	ID       string `json:"id" yaml:"id"`
	Category string `json:"category" yaml:"category"`
	Prompt   string `json:"prompt" yaml:"prompt"`
	Expected string `json:"expected" yaml:"expected"`
}

// Set is the ordered scenario suite shared by every model run of a sweep.
type Set struct {
	Seed      int64
	Scenarios []Scenario
	// Digest is the SHA-256 of the ordered scenario ids and prompts.
	Digest string
}

// Len returns the number of scenarios in the set.
func (s *Set) Len() int {
	return len(s.Scenarios)
}

// Source produces the ordered scenarios of a suite for a seed.
type Source interface {
	Scenarios(seed int64, n int) ([]Scenario, error)
}

// Loader loads scenario sets from a Source.
type Loader struct {
	source Source
}

// NewLoader creates a loader backed by src.
func NewLoader(src Source) *Loader {
	return &Loader{source: src}
}

// Load returns exactly n scenarios for seed. The returned set must be treated
// as read-only; it is shared across workers.
func (l *Loader) Load(seed int64, n int) (*Set, error) {
	if n <= 0 {
		return nil, fmt.Errorf("scenario count must be positive, got %d", n)
	}
	scenarios, err := l.source.Scenarios(seed, n)
	if err != nil {
		return nil, fmt.Errorf("load scenarios: %w", err)
	}
	if len(scenarios) != n {
		return nil, fmt.Errorf("load scenarios: got %d, want %d", len(scenarios), n)
	}

	h := sha256.New()
	for _, sc := range scenarios {
		if sc.Prompt == "" {
			return nil, fmt.Errorf("scenario %q: %w", sc.ID, ErrEmptyPrompt)
		}
		h.Write([]byte(sc.ID))
		h.Write([]byte{0})
		h.Write([]byte(sc.Prompt))
		h.Write([]byte{'\n'})
	}

	return &Set{
		Seed:      seed,
		Scenarios: scenarios,
		Digest:    hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// newRand returns the deterministic generator for a seed.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}
