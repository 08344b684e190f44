package agent

import (
	"fmt"

	"filing_analyst/pkg/core/llm"
)

// ProvidersConfig selects which language-model provider serves each
// role. Roles with no override use the active provider.
type ProvidersConfig struct {
	ActiveProvider string                `yaml:"active_provider"`
	Roles          map[string]RoleConfig `yaml:"roles"`
}

// RoleConfig optionally overrides the provider for one role, e.g.
// "extraction" or "narrative".
type RoleConfig struct {
	Provider    string `yaml:"provider"`
	Description string `yaml:"description"`
}

// ProviderManager resolves role names to provider instances.
type ProviderManager struct {
	config    ProvidersConfig
	providers map[string]llm.Provider
}

func NewProviderManager(config ProvidersConfig) *ProviderManager {
	return &ProviderManager{
		config: config,
		providers: map[string]llm.Provider{
			"gemini":   &llm.GeminiProvider{},
			"deepseek": &llm.DeepSeekProvider{},
		},
	}
}

// ProviderFor returns the provider serving a role: the role override
// first, then the active provider, then gemini.
func (m *ProviderManager) ProviderFor(role string) llm.Provider {
	if roleConfig, ok := m.config.Roles[role]; ok && roleConfig.Provider != "" {
		if p, ok := m.providers[roleConfig.Provider]; ok {
			return p
		}
	}
	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["gemini"]
}

// SetActiveProvider switches the global default at runtime.
func (m *ProviderManager) SetActiveProvider(name string) error {
	if _, ok := m.providers[name]; !ok {
		return fmt.Errorf("provider %s not found", name)
	}
	m.config.ActiveProvider = name
	return nil
}

func (m *ProviderManager) ActiveProvider() string {
	return m.config.ActiveProvider
}
