// Package config manages the application settings: the LLM provider used for
// image analysis and the highlight style. Settings are persisted as one JSON
// object through a storage.Store.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
)

// ErrInvalidConfig is returned when an imported document lacks the llm or
// highlight section, or when a value is out of range
var ErrInvalidConfig = errors.New("invalid config file format")

// DefaultVersion is the version stamped on new configurations
const DefaultVersion = "1.0.0"

// LLMConfig selects the analysis provider
type LLMConfig struct {
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	APIKey      string `json:"apiKey,omitempty"`
	APIEndpoint string `json:"apiEndpoint,omitempty"`
}

// HighlightConfig is the style of highlight rectangles
type HighlightConfig struct {
	FillColor   string  `json:"fillColor"`
	BorderColor string  `json:"borderColor"`
	Opacity     float64 `json:"opacity"`
}

// AppConfig is the persisted settings document
type AppConfig struct {
	LLM         LLMConfig       `json:"llm"`
	Highlight   HighlightConfig `json:"highlight"`
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
}

// Patch is a partial update. Nil sections are left unchanged.
type Patch struct {
	LLM       *LLMConfig
	Highlight *HighlightConfig
}

// Default returns the default configuration stamped with now
func Default(now time.Time) AppConfig {
	return AppConfig{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Highlight: HighlightConfig{
			FillColor:   "#ff0000",
			BorderColor: "#b00000",
			Opacity:     0.8,
		},
		Version:     DefaultVersion,
		LastUpdated: stamp(now),
	}
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Fill parses the fill colour
func (h HighlightConfig) Fill() (colorful.Color, error) {
	return colorful.Hex(h.FillColor)
}

// Border parses the border colour
func (h HighlightConfig) Border() (colorful.Color, error) {
	return colorful.Hex(h.BorderColor)
}

// Validate checks that both colours parse and the opacity is within [0, 1]
func (h HighlightConfig) Validate() error {
	if _, err := h.Fill(); err != nil {
		return fmt.Errorf("%w: fill color %q: %v", ErrInvalidConfig, h.FillColor, err)
	}
	if _, err := h.Border(); err != nil {
		return fmt.Errorf("%w: border color %q: %v", ErrInvalidConfig, h.BorderColor, err)
	}
	if math.IsNaN(h.Opacity) || h.Opacity < 0 || h.Opacity > 1 {
		return fmt.Errorf("%w: opacity %v out of range", ErrInvalidConfig, h.Opacity)
	}
	return nil
}

// FillCSS returns the fill colour as a CSS rgba() value carrying the opacity
func (h HighlightConfig) FillCSS() (string, error) {
	c, err := h.Fill()
	if err != nil {
		return "", err
	}
	return rgba(c, h.Opacity), nil
}

// BorderCSS returns the border colour as a CSS rgba() value carrying the
// opacity
func (h HighlightConfig) BorderCSS() (string, error) {
	c, err := h.Border()
	if err != nil {
		return "", err
	}
	return rgba(c, h.Opacity), nil
}

func rgba(c colorful.Color, alpha float64) string {
	r, g, b := c.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", r, g, b, alpha)
}

// Environment variables that override the stored LLM settings
const (
	EnvProvider = "PDFINSIGHTS_LLM_PROVIDER"
	EnvModel    = "PDFINSIGHTS_LLM_MODEL"
	EnvAPIKey   = "PDFINSIGHTS_LLM_API_KEY"
	EnvEndpoint = "PDFINSIGHTS_LLM_ENDPOINT"
)

// providerKeyEnv names the conventional key variable of each provider. It is
// consulted when no key is configured.
var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GEMINI_API_KEY",
}

// KeyFromEnv returns the key of provider from its conventional environment
// variable
func KeyFromEnv(provider string) string {
	if v := os.Getenv(EnvAPIKey); v != "" {
		return v
	}
	if name, ok := providerKeyEnv[provider]; ok {
		return os.Getenv(name)
	}
	return ""
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped. Variables already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Manager loads and saves the configuration
type Manager struct {
	store  storage.Store
	now    func() time.Time
	getenv func(string) string
	mu     sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source used for lastUpdated
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithEnv sets the environment lookup used by Effective
func WithEnv(getenv func(string) string) Option {
	return func(m *Manager) {
		m.getenv = getenv
	}
}

// NewManager creates a Manager backed by s
func NewManager(s storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:  s,
		now:    time.Now,
		getenv: os.Getenv,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load returns the stored configuration merged over the defaults. Sections
// present in storage replace the default section as a whole.
func (m *Manager) Load() (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() (AppConfig, error) {
	cfg := Default(m.now())
	var raw map[string]json.RawMessage
	ok, err := m.store.Load(storage.ConfigKey, &raw)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	if !ok {
		return cfg, nil
	}
	if err := merge(&cfg, raw); err != nil {
		return Default(m.now()), fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func merge(cfg *AppConfig, raw map[string]json.RawMessage) error {
	fields := map[string]any{
		"llm":         &cfg.LLM,
		"highlight":   &cfg.Highlight,
		"version":     &cfg.Version,
		"lastUpdated": &cfg.LastUpdated,
	}
	for key, dst := range fields {
		data, ok := raw[key]
		if !ok || string(data) == "null" {
			continue
		}
		switch d := dst.(type) {
		case *LLMConfig:
			*d = LLMConfig{}
		case *HighlightConfig:
			*d = HighlightConfig{}
		}
		if err := json.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

// Effective returns the loaded configuration with environment overrides
// applied. Overrides are never persisted.
func (m *Manager) Effective() (AppConfig, error) {
	cfg, err := m.Load()
	if err != nil {
		return cfg, err
	}
	if v := m.getenv(EnvProvider); v != "" {
		cfg.LLM.Provider = v
	}
	if v := m.getenv(EnvModel); v != "" {
		cfg.LLM.Model = v
	}
	if v := m.getenv(EnvEndpoint); v != "" {
		cfg.LLM.APIEndpoint = v
	}
	if v := m.getenv(EnvAPIKey); v != "" {
		cfg.LLM.APIKey = v
	} else if cfg.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = m.getenv(name)
		}
	}
	return cfg, nil
}

// Save applies p to the stored configuration, stamps lastUpdated and writes
// it back
func (m *Manager) Save(p Patch) (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, err := m.load()
	if err != nil {
		return cfg, err
	}
	if p.LLM != nil {
		cfg.LLM = *p.LLM
	}
	if p.Highlight != nil {
		if err := p.Highlight.Validate(); err != nil {
			return cfg, err
		}
		cfg.Highlight = *p.Highlight
	}
	cfg.LastUpdated = stamp(m.now())
	if err := m.store.Save(storage.ConfigKey, cfg); err != nil {
		return cfg, fmt.Errorf("failed to save config: %w", err)
	}
	return cfg, nil
}

// UpdateLLM replaces the LLM section
func (m *Manager) UpdateLLM(llm LLMConfig) (AppConfig, error) {
	return m.Save(Patch{LLM: &llm})
}

// UpdateHighlight replaces the highlight section
func (m *Manager) UpdateHighlight(h HighlightConfig) (AppConfig, error) {
	return m.Save(Patch{Highlight: &h})
}

// Export returns the stored configuration as indented JSON
func (m *Manager) Export() ([]byte, error) {
	cfg, err := m.Load()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(cfg, "", "  ")
}

// Import validates data and merges its llm and highlight sections into the
// stored configuration. Nothing is written when validation fails.
func (m *Manager) Import(data []byte) (AppConfig, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for _, key := range []string{"llm", "highlight"} {
		if v, ok := raw[key]; !ok || string(v) == "null" {
			return AppConfig{}, fmt.Errorf("%w: missing %s", ErrInvalidConfig, key)
		}
	}

	var in AppConfig
	if err := merge(&in, raw); err != nil {
		return AppConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := in.Highlight.Validate(); err != nil {
		return AppConfig{}, err
	}
	return m.Save(Patch{LLM: &in.LLM, Highlight: &in.Highlight})
}

// Reset writes the default configuration
func (m *Manager) Reset() (AppConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := Default(m.now())
	if err := m.store.Save(storage.ConfigKey, cfg); err != nil {
		return cfg, fmt.Errorf("failed to reset config: %w", err)
	}
	return cfg, nil
}
