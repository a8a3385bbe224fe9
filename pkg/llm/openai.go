package llm

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
)

const openAIMaxTokens = 1000

type openAIClient struct {
	cfg    config.LLMConfig
	client *openai.Client
	log    logrus.FieldLogger
}

func newOpenAI(cfg config.LLMConfig, hc *http.Client, log logrus.FieldLogger) *openAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.APIEndpoint != "" {
		oc.BaseURL = cfg.APIEndpoint
	}
	oc.HTTPClient = hc
	return &openAIClient{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		log:    log,
	}
}

func (c *openAIClient) Provider() string {
	return OpenAI
}

func (c *openAIClient) Analyze(ctx context.Context, req Request) (*Response, error) {
	m := model(c.cfg, req)
	c.log.WithField("model", m).Debug("sending image to OpenAI")

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: m,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: req.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: req.ImageDataURL,
						},
					},
				},
			},
		},
		MaxTokens: openAIMaxTokens,
	})
	if err != nil {
		return nil, openAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Provider: OpenAI, Message: "no choices in response"}
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// CheckKey lists the models visible to the key
func (c *openAIClient) CheckKey(ctx context.Context) (bool, error) {
	_, err := c.client.ListModels(ctx)
	if err == nil {
		return true, nil
	}
	var e *Error
	if errors.As(openAIError(err), &e) && e.Status != 0 {
		return false, nil
	}
	return false, err
}

func openAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Provider: OpenAI, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Provider: OpenAI, Status: reqErr.HTTPStatusCode, Message: http.StatusText(reqErr.HTTPStatusCode), Err: err}
	}
	return &Error{Provider: OpenAI, Message: err.Error(), Err: err}
}
