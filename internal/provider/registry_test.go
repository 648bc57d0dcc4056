package provider_test

import (
	"errors"
	"testing"

	"github.com/seantiz/frontier/internal/config"
	"github.com/seantiz/frontier/internal/provider"
)

func TestRegistryRegisterAndList(t *testing.T) {
	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "openai", Family: provider.FamilyOpenAI, BaseURL: "http://o", APIKey: "k"})
	reg.RegisterProvider(provider.Provider{Name: "anthropic", Family: provider.FamilyAnthropic, BaseURL: "http://a"})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d providers, want 2", len(list))
	}
	if list[0].Name != "anthropic" || list[1].Name != "openai" {
		t.Errorf("List() not sorted by name: %v", list)
	}
	if list[0].HasCredential {
		t.Error("anthropic should report no credential")
	}
	if !list[1].HasCredential {
		t.Error("openai should report a credential")
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "claude", Family: provider.FamilyAnthropic, BaseURL: "http://a", APIKey: "k"})

	a, p, err := reg.Resolve("claude")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if a.Family() != provider.FamilyAnthropic {
		t.Errorf("adapter family = %q, want anthropic", a.Family())
	}
	if p.APIKey != "k" {
		t.Errorf("APIKey = %q, want k", p.APIKey)
	}
}

func TestRegistryResolveErrors(t *testing.T) {
	reg := provider.NewDefaultRegistry()
	reg.RegisterProvider(provider.Provider{Name: "nokey", Family: provider.FamilyOpenAI, BaseURL: "http://o"})
	reg.RegisterProvider(provider.Provider{Name: "alien", Family: "carrier-pigeon", BaseURL: "http://p", APIKey: "k"})

	tests := []struct {
		name string
		want error
	}{
		{"missing", provider.ErrUnknownProvider},
		{"nokey", provider.ErrMissingCredential},
		{"alien", provider.ErrUnknownFamily},
	}
	for _, tt := range tests {
		_, _, err := reg.Resolve(tt.name)
		if !errors.Is(err, tt.want) {
			t.Errorf("Resolve(%q) error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestRegistryLoadProviders(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "sk-test"}
	reg := provider.NewDefaultRegistry()
	reg.LoadProviders([]config.ProviderConfig{
		{Name: "openai", Family: provider.FamilyOpenAI, BaseURL: "http://o", APIKeyEnv: "OPENAI_API_KEY"},
		{Name: "gemini", Family: provider.FamilyGemini, BaseURL: "http://g", APIKeyEnv: "GEMINI_API_KEY"},
	}, func(k string) string { return env[k] })

	if _, p, err := reg.Resolve("openai"); err != nil || p.APIKey != "sk-test" {
		t.Errorf("Resolve(openai) = %+v, %v", p, err)
	}
	if _, _, err := reg.Resolve("gemini"); !errors.Is(err, provider.ErrMissingCredential) {
		t.Errorf("Resolve(gemini) error = %v, want ErrMissingCredential", err)
	}
}
