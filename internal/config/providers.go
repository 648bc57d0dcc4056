package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderConfig is one entry of the provider table file.
type ProviderConfig struct {
	Name    string `yaml:"name"`
	Family  string `yaml:"family"`
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string            `yaml:"api_key_env"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// ProvidersFile is the top-level layout of providers.yaml.
type ProvidersFile struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadProviders reads and validates the provider table at path.
func LoadProviders(path string) ([]ProviderConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	return ParseProviders(data)
}

// ParseProviders decodes a provider table document.
func ParseProviders(data []byte) ([]ProviderConfig, error) {
	var f ProvidersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}

	seen := make(map[string]bool, len(f.Providers))
	for i, p := range f.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider[%d]: name is required", i)
		}
		if p.Family == "" {
			return nil, fmt.Errorf("provider %q: family is required", p.Name)
		}
		if p.BaseURL == "" {
			return nil, fmt.Errorf("provider %q: base_url is required", p.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("provider %q: duplicate name", p.Name)
		}
		seen[p.Name] = true
	}
	return f.Providers, nil
}
