package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
)

// DefaultOllamaEndpoint is the local Ollama server
const DefaultOllamaEndpoint = "http://localhost:11434"

type ollamaClient struct {
	cfg      config.LLMConfig
	endpoint string
	hc       *http.Client
	log      logrus.FieldLogger
}

func newOllama(cfg config.LLMConfig, hc *http.Client, log logrus.FieldLogger) *ollamaClient {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	return &ollamaClient{
		cfg:      cfg,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		hc:       hc,
		log:      log,
	}
}

func (c *ollamaClient) Provider() string {
	return Ollama
}

func (c *ollamaClient) client() (*api.Client, error) {
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, &Error{Provider: Ollama, Message: fmt.Sprintf("invalid endpoint %q", c.endpoint), Err: err}
	}
	return api.NewClient(base, c.hc), nil
}

func (c *ollamaClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	_, data, err := ParseDataURL(req.ImageDataURL)
	if err != nil {
		return nil, err
	}
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	m := model(c.cfg, req)
	c.log.WithFields(logrus.Fields{"model": m, "endpoint": c.endpoint}).Debug("sending image to Ollama")

	stream := false
	var out api.GenerateResponse
	err = client.Generate(ctx, &api.GenerateRequest{
		Model:  m,
		Prompt: req.Prompt,
		Images: []api.ImageData{data},
		Stream: &stream,
	}, func(r api.GenerateResponse) error {
		out = r
		return nil
	})
	if err != nil {
		return nil, ollamaError(err)
	}

	r := &Response{Content: out.Response, Model: out.Model}
	if out.PromptEvalCount > 0 || out.EvalCount > 0 {
		r.Usage = &Usage{
			PromptTokens:     out.PromptEvalCount,
			CompletionTokens: out.EvalCount,
			TotalTokens:      out.PromptEvalCount + out.EvalCount,
		}
	}
	return r, nil
}

// CheckKey reports whether the server lists its models. Ollama has no
// keys.
func (c *ollamaClient) CheckKey(ctx context.Context) (bool, error) {
	client, err := c.client()
	if err != nil {
		return false, err
	}
	if _, err := client.List(ctx); err != nil {
		var se api.StatusError
		if errors.As(err, &se) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func ollamaError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) {
		msg := se.ErrorMessage
		if msg == "" {
			msg = se.Status
		}
		return &Error{Provider: Ollama, Status: se.StatusCode, Message: msg, Err: err}
	}
	return &Error{Provider: Ollama, Message: err.Error(), Err: err}
}
