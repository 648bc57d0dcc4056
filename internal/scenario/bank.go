package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BankSource samples scenarios from a fixed bank, ordered by a seeded shuffle.
type BankSource struct {
	scenarios []Scenario
}

type bankFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadBank reads a YAML scenario bank from path.
func LoadBank(path string) (*BankSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario bank: %w", err)
	}
	return ParseBank(data)
}

// ParseBank decodes a YAML scenario bank document.
func ParseBank(data []byte) (*BankSource, error) {
	var f bankFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse scenario bank: %w", err)
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		if sc.ID == "" {
			return nil, fmt.Errorf("scenario[%d]: id is required", i)
		}
		if seen[sc.ID] {
			return nil, fmt.Errorf("scenario %q: duplicate id", sc.ID)
		}
		seen[sc.ID] = true
	}
	return &BankSource{scenarios: f.Scenarios}, nil
}

// Size returns the number of scenarios in the bank.
func (b *BankSource) Size() int {
	return len(b.scenarios)
}

// Scenarios returns n scenarios drawn from the bank in seed order.
func (b *BankSource) Scenarios(seed int64, n int) ([]Scenario, error) {
	if n > len(b.scenarios) {
		return nil, fmt.Errorf("scenario bank holds %d scenarios, need %d", len(b.scenarios), n)
	}
	out := make([]Scenario, len(b.scenarios))
	copy(out, b.scenarios)
	r := newRand(seed)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out[:n], nil
}
