package llm

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
)

type googleClient struct {
	cfg config.LLMConfig
	hc  *http.Client
	log logrus.FieldLogger
}

func newGoogle(cfg config.LLMConfig, hc *http.Client, log logrus.FieldLogger) *googleClient {
	return &googleClient{cfg: cfg, hc: hc, log: log}
}

func (c *googleClient) Provider() string {
	return Google
}

func (c *googleClient) client(ctx context.Context) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.hc,
	}
	if c.cfg.APIEndpoint != "" {
		cc.HTTPOptions.BaseURL = c.cfg.APIEndpoint
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &Error{Provider: Google, Message: err.Error(), Err: err}
	}
	return client, nil
}

func (c *googleClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	mediaType, data, err := ParseDataURL(req.ImageDataURL)
	if err != nil {
		return nil, err
	}
	client, err := c.client(ctx)
	if err != nil {
		return nil, err
	}
	m := model(c.cfg, req)
	c.log.WithField("model", m).Debug("sending image to Gemini")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(req.Prompt),
			genai.NewPartFromBytes(data, mediaType),
		}, genai.RoleUser),
	}
	resp, err := client.Models.GenerateContent(ctx, m, contents, nil)
	if err != nil {
		return nil, googleError(err)
	}

	out := &Response{Content: resp.Text(), Model: m, Usage: &Usage{}}
	if resp.UsageMetadata != nil {
		out.Usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.Usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.Usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// CheckKey only checks that a key is present. An invalid key fails on the
// first analysis.
func (c *googleClient) CheckKey(ctx context.Context) (bool, error) {
	return c.cfg.APIKey != "", nil
}

func googleError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: Google, Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return &Error{Provider: Google, Message: err.Error(), Err: err}
}
