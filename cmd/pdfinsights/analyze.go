package main

import (
	"context"
	"time"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/llm"
)

// AnalyzeCmd describes an image of a page with the configured model
type AnalyzeCmd struct {
	PageArgs `embed:""`
	Image    int           `short:"i" required:"" help:"Index of the image on the page."`
	Prompt   string        `help:"Question to ask about the image. Defaults to a detailed description."`
	Provider string        `help:"Provider to use instead of the configured one."`
	Model    string        `help:"Model to use instead of the configured one."`
	Timeout  time.Duration `default:"2m" help:"Time limit of the request."`
}

func (c *AnalyzeCmd) Run(app *App) error {
	cfg, err := app.settings().Effective()
	if err != nil {
		return err
	}
	if c.Provider != "" && c.Provider != cfg.LLM.Provider {
		cfg.LLM.Provider = c.Provider
		cfg.LLM.Model = ""
		cfg.LLM.APIKey = config.KeyFromEnv(c.Provider)
	}
	if c.Model != "" {
		cfg.LLM.Model = c.Model
	}
	if cfg.LLM.Model == "" {
		if info, ok := llm.LookupProvider(cfg.LLM.Provider); ok && len(info.Models) > 0 {
			cfg.LLM.Model = info.Models[0].ID
		}
	}

	client, err := llm.New(cfg.LLM, llm.WithLogger(app.log))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()
	w, err := c.show(ctx, app)
	if err != nil {
		return err
	}
	defer w.Close()

	result, err := w.Session.Analyze(ctx, client, c.Image, c.Prompt)
	if err != nil {
		return err
	}
	if app.JSON {
		return app.printJSON(result)
	}
	app.printf("%s / %s, page %d image %d\n\n%s\n", result.Provider, result.Model, result.PageNumber, result.ImageIndex, result.Analysis)
	return nil
}
