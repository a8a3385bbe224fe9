// Package llm sends page images to vision language models for analysis.
// Each provider is reached through its own SDK, except Ollama which is
// called over its local HTTP API.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
)

// Provider identifiers
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Google    = "google"
	Ollama    = "ollama"
)

var (
	// ErrMissingKey is returned when a provider needs an API key and none is
	// configured
	ErrMissingKey = errors.New("API key is not configured")
	// ErrUnsupportedProvider is returned for unknown provider identifiers
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrDataURL is returned for image data URLs that are not base64 encoded
	ErrDataURL = errors.New("invalid image data URL format")
)

// DefaultPrompts are the suggested analysis prompts. The first is the
// default.
var DefaultPrompts = []string{
	"Describe this image in detail.",
	"What is the main subject of this image?",
	"Analyze the composition and visual elements of this image.",
	"Extract any text visible in this image.",
	"What are the key features or objects in this image?",
}

// Request is one image analysis
type Request struct {
	ImageDataURL string
	Prompt       string
	// Model overrides the configured model when set
	Model string
}

// Usage is the token accounting reported by the provider
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Response is the model's answer
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Error is a failed provider call
type Error struct {
	Provider string
	// Status is the HTTP status code, 0 when the request never got a response
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s API error: %s", providerName(e.Provider), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Analyzer analyzes images
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Response, error)
}

// KeyChecker reports whether the configured API key is accepted
type KeyChecker interface {
	CheckKey(ctx context.Context) (bool, error)
}

// AnalysisResult is a stored analysis of one page image
type AnalysisResult struct {
	ImageIndex int    `json:"imageIndex"`
	PageNumber int    `json:"pageNumber"`
	Analysis   string `json:"analysis"`
	Timestamp  string `json:"timestamp"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

// NewResult records resp as the analysis of image index on page
func NewResult(page, index int, provider string, resp *Response, at time.Time) AnalysisResult {
	return AnalysisResult{
		ImageIndex: index,
		PageNumber: page,
		Analysis:   resp.Content,
		Timestamp:  at.UTC().Format(time.RFC3339Nano),
		Provider:   provider,
		Model:      resp.Model,
	}
}

type settings struct {
	httpClient *http.Client
	log        logrus.FieldLogger
}

// Option configures a client
type Option func(*settings)

// WithHTTPClient sets the HTTP client used for provider calls
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// Client is an Analyzer bound to one provider configuration
type Client interface {
	Analyzer
	KeyChecker
	Provider() string
}

// New creates the client for cfg.Provider
func New(cfg config.LLMConfig, opts ...Option) (Client, error) {
	s := settings{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	info, ok := LookupProvider(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
	if info.RequiresAPIKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", info.Name, ErrMissingKey)
	}
	log := s.log.WithFields(logrus.Fields{"provider": cfg.Provider, "model": cfg.Model})

	switch cfg.Provider {
	case OpenAI:
		return newOpenAI(cfg, s.httpClient, log), nil
	case Anthropic:
		return newAnthropic(cfg, s.httpClient, log), nil
	case Google:
		return newGoogle(cfg, s.httpClient, log), nil
	case Ollama:
		return newOllama(cfg, s.httpClient, log), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
}

// CheckKey tests the API key of cfg against its provider. Transport
// failures are reported as a rejected key.
func CheckKey(ctx context.Context, cfg config.LLMConfig, opts ...Option) bool {
	c, err := New(cfg, opts...)
	if err != nil {
		return false
	}
	ok, err := c.CheckKey(ctx)
	if err != nil {
		return false
	}
	return ok
}

// ParseDataURL splits a base64 data URL into its media type and payload
func ParseDataURL(dataURL string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", nil, ErrDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrDataURL
	}
	mediaType, ok = strings.CutSuffix(meta, ";base64")
	if !ok || mediaType == "" {
		return "", nil, ErrDataURL
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDataURL, err)
	}
	return mediaType, data, nil
}

func model(cfg config.LLMConfig, req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return cfg.Model
}

func providerName(id string) string {
	if p, ok := LookupProvider(id); ok {
		return p.Name
	}
	return id
}
