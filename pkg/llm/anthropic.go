package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
)

const (
	anthropicMaxTokens = 1024
	anthropicKeyModel  = "claude-3-haiku-20240307"
)

type anthropicClient struct {
	cfg    config.LLMConfig
	client anthropic.Client
	log    logrus.FieldLogger
}

func newAnthropic(cfg config.LLMConfig, hc *http.Client, log logrus.FieldLogger) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(hc),
	}
	if cfg.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.APIEndpoint))
	}
	return &anthropicClient{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		log:    log,
	}
}

func (c *anthropicClient) Provider() string {
	return Anthropic
}

func (c *anthropicClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	mediaType, data, err := ParseDataURL(req.ImageDataURL)
	if err != nil {
		return nil, err
	}
	m := model(c.cfg, req)
	c.log.WithField("model", m).Debug("sending image to Anthropic")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(m),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, base64.StdEncoding.EncodeToString(data)),
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	})
	if err != nil {
		return nil, anthropicError(err)
	}

	var text string
	for _, block := range message.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text = b.Text
			break
		}
	}

	in, out := int(message.Usage.InputTokens), int(message.Usage.OutputTokens)
	return &Response{
		Content: text,
		Model:   string(message.Model),
		Usage: &Usage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

// CheckKey sends a one token message. A 400 response still proves the key
// was accepted.
func (c *anthropicClient) CheckKey(ctx context.Context) (bool, error) {
	_, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(anthropicKeyModel),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("test")),
		},
	})
	if err == nil {
		return true, nil
	}
	var e *Error
	if errors.As(anthropicError(err), &e) && e.Status != 0 {
		return e.Status == http.StatusBadRequest, nil
	}
	return false, err
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &Error{Provider: Anthropic, Status: apiErr.StatusCode, Message: http.StatusText(apiErr.StatusCode), Err: err}
	}
	return &Error{Provider: Anthropic, Message: err.Error(), Err: err}
}
