package llm

// Model is a model offered by a provider
type Model struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SupportsVision bool   `json:"supportsVision"`
	// MaxTokens is 0 when the provider does not publish a limit
	MaxTokens int `json:"maxTokens,omitempty"`
}

// ProviderInfo describes a provider and its models
type ProviderInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	RequiresAPIKey bool    `json:"requiresApiKey"`
	SupportsVision bool    `json:"supportsVision"`
	Models         []Model `json:"models"`
}

var providers = []ProviderInfo{
	{
		ID:             OpenAI,
		Name:           "OpenAI",
		RequiresAPIKey: true,
		SupportsVision: true,
		Models: []Model{
			{ID: "gpt-4o", Name: "GPT-4o", SupportsVision: true, MaxTokens: 4096},
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini", SupportsVision: true, MaxTokens: 4096},
			{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", SupportsVision: true, MaxTokens: 4096},
		},
	},
	{
		ID:             Anthropic,
		Name:           "Anthropic (Claude)",
		RequiresAPIKey: true,
		SupportsVision: true,
		Models: []Model{
			{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet", SupportsVision: true, MaxTokens: 8096},
			{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus", SupportsVision: true, MaxTokens: 4096},
			{ID: "claude-3-sonnet-20240229", Name: "Claude 3 Sonnet", SupportsVision: true, MaxTokens: 4096},
			{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku", SupportsVision: true, MaxTokens: 4096},
		},
	},
	{
		ID:             Google,
		Name:           "Google (Gemini)",
		RequiresAPIKey: true,
		SupportsVision: true,
		Models: []Model{
			{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro", SupportsVision: true, MaxTokens: 8192},
			{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash", SupportsVision: true, MaxTokens: 8192},
		},
	},
	{
		ID:             Ollama,
		Name:           "Ollama (Local)",
		RequiresAPIKey: false,
		SupportsVision: true,
		Models: []Model{
			{ID: "llama3.2-vision", Name: "Llama 3.2 Vision", SupportsVision: true},
			{ID: "llava", Name: "LLaVA", SupportsVision: true},
			{ID: "bakllava", Name: "BakLLaVA", SupportsVision: true},
		},
	},
}

// Providers returns the supported providers
func Providers() []ProviderInfo {
	out := make([]ProviderInfo, len(providers))
	for i, p := range providers {
		out[i] = p
		out[i].Models = append([]Model(nil), p.Models...)
	}
	return out
}

// LookupProvider finds a provider by identifier
func LookupProvider(id string) (ProviderInfo, bool) {
	for _, p := range providers {
		if p.ID == id {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// LookupModel finds a model of a provider
func LookupModel(provider, id string) (Model, bool) {
	p, ok := LookupProvider(provider)
	if !ok {
		return Model{}, false
	}
	for _, m := range p.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}
