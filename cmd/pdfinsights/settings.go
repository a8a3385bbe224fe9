package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/llm"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
)

// ConfigCmd groups the settings commands
type ConfigCmd struct {
	Show     ConfigShowCmd     `cmd:"" default:"1" help:"Show the settings."`
	Set      ConfigSetCmd      `cmd:"" help:"Change settings."`
	Export   ConfigExportCmd   `cmd:"" help:"Write the stored settings as JSON."`
	Import   ConfigImportCmd   `cmd:"" help:"Replace the settings with a JSON export."`
	Reset    ConfigResetCmd    `cmd:"" help:"Restore the default settings."`
	CheckKey ConfigCheckKeyCmd `cmd:"" name:"check-key" help:"Test the API key against the provider."`
}

// ConfigShowCmd prints the settings with the API key masked
type ConfigShowCmd struct {
	Stored bool `help:"Ignore environment overrides."`
}

func (c *ConfigShowCmd) Run(app *App) error {
	m := app.settings()
	load := m.Effective
	if c.Stored {
		load = m.Load
	}
	cfg, err := load()
	if err != nil {
		return err
	}
	cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
	if app.JSON {
		return app.printJSON(cfg)
	}
	app.printf("provider:     %s\n", cfg.LLM.Provider)
	app.printf("model:        %s\n", cfg.LLM.Model)
	app.printf("api key:      %s\n", cfg.LLM.APIKey)
	if cfg.LLM.APIEndpoint != "" {
		app.printf("endpoint:     %s\n", cfg.LLM.APIEndpoint)
	}
	fill, _ := cfg.Highlight.FillCSS()
	border, _ := cfg.Highlight.BorderCSS()
	app.printf("fill color:   %s (%s)\n", cfg.Highlight.FillColor, fill)
	app.printf("border color: %s (%s)\n", cfg.Highlight.BorderColor, border)
	app.printf("opacity:      %g\n", cfg.Highlight.Opacity)
	if cfg.LastUpdated != "" {
		app.printf("updated:      %s\n", cfg.LastUpdated)
	}
	return nil
}

func mask(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// ConfigSetCmd updates the stored settings
type ConfigSetCmd struct {
	Provider string  `help:"Model provider."`
	Model    string  `help:"Model identifier."`
	APIKey   string  `name:"api-key" help:"API key of the provider."`
	Endpoint string  `help:"API endpoint, for local providers."`
	Fill     string  `help:"Highlight fill color, as #rrggbb."`
	Border   string  `help:"Highlight border color, as #rrggbb."`
	Opacity  float64 `default:"-1" help:"Highlight opacity between 0 and 1."`
}

func (c *ConfigSetCmd) Run(app *App) error {
	m := app.settings()
	cfg, err := m.Load()
	if err != nil {
		return err
	}

	var p config.Patch
	if c.Provider != "" || c.Model != "" || c.APIKey != "" || c.Endpoint != "" {
		l := cfg.LLM
		if c.Provider != "" && c.Provider != l.Provider {
			info, ok := llm.LookupProvider(c.Provider)
			if !ok {
				return fmt.Errorf("%w: %s", llm.ErrUnsupportedProvider, c.Provider)
			}
			l.Provider = info.ID
			l.Model = info.Models[0].ID
		}
		if c.Model != "" {
			if _, ok := llm.LookupModel(l.Provider, c.Model); !ok {
				app.log.WithField("model", c.Model).Warn("model is not in the provider catalogue")
			}
			l.Model = c.Model
		}
		if c.APIKey != "" {
			l.APIKey = c.APIKey
		}
		if c.Endpoint != "" {
			l.APIEndpoint = c.Endpoint
		}
		p.LLM = &l
	}
	if c.Fill != "" || c.Border != "" || c.Opacity >= 0 {
		h := cfg.Highlight
		if c.Fill != "" {
			h.FillColor = c.Fill
		}
		if c.Border != "" {
			h.BorderColor = c.Border
		}
		if c.Opacity >= 0 {
			h.Opacity = c.Opacity
		}
		p.Highlight = &h
	}
	if p.LLM == nil && p.Highlight == nil {
		return fmt.Errorf("nothing to change")
	}

	if _, err := m.Save(p); err != nil {
		return err
	}
	app.printf("settings saved\n")
	return nil
}

// ConfigExportCmd writes the stored settings
type ConfigExportCmd struct {
	Output string `short:"o" type:"path" help:"Output file. Defaults to standard output."`
}

func (c *ConfigExportCmd) Run(app *App) error {
	data, err := app.settings().Export()
	if err != nil {
		return err
	}
	if c.Output == "" {
		_, err = fmt.Fprintln(app.out, string(data))
		return err
	}
	return os.WriteFile(c.Output, data, 0o600)
}

// ConfigImportCmd replaces the settings with an export
type ConfigImportCmd struct {
	Input string `arg:"" type:"existingfile" help:"JSON export to import."`
}

func (c *ConfigImportCmd) Run(app *App) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}
	if _, err := app.settings().Import(data); err != nil {
		return err
	}
	app.printf("settings imported\n")
	return nil
}

// ConfigResetCmd restores the defaults
type ConfigResetCmd struct{}

func (c *ConfigResetCmd) Run(app *App) error {
	if _, err := app.settings().Reset(); err != nil {
		return err
	}
	app.printf("settings reset\n")
	return nil
}

// ConfigCheckKeyCmd tests the effective API key
type ConfigCheckKeyCmd struct {
	Timeout time.Duration `default:"30s" help:"Time limit of the check."`
}

func (c *ConfigCheckKeyCmd) Run(app *App) error {
	cfg, err := app.settings().Effective()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	ok := llm.CheckKey(ctx, cfg.LLM, llm.WithLogger(app.log))
	if app.JSON {
		return app.printJSON(map[string]any{"provider": cfg.LLM.Provider, "valid": ok})
	}
	if !ok {
		return fmt.Errorf("%s rejected the API key", cfg.LLM.Provider)
	}
	app.printf("%s accepted the API key\n", cfg.LLM.Provider)
	return nil
}

// StorageCmd groups the storage commands
type StorageCmd struct {
	Usage StorageUsageCmd `cmd:"" default:"1" help:"Show how much storage is used."`
	Prune StoragePruneCmd `cmd:"" help:"Drop the page object caches of older documents."`
	Clear StorageClearCmd `cmd:"" help:"Delete all stored data."`
}

// StorageUsageCmd prints the storage usage
type StorageUsageCmd struct {
	Quota int64 `default:"${quota}" help:"Size usage is measured against, in bytes."`
	Keys  bool  `help:"List the stored keys."`
}

func (c *StorageUsageCmd) Run(app *App) error {
	u, err := storage.UsageOf(app.store, c.Quota)
	if err != nil {
		return err
	}
	if app.JSON {
		return app.printJSON(u)
	}
	app.printf("%d of %d bytes used (%.1f%%)\n", u.Used, u.Total, u.Percentage)
	if !c.Keys {
		return nil
	}
	entries, err := app.store.Entries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		app.printf("%8d  %s  %s\n", e.Size, e.Updated.Format(time.DateTime), e.Key)
	}
	return nil
}

// StoragePruneCmd keeps the most recent image caches
type StoragePruneCmd struct {
	Keep int `default:"${keep}" help:"Number of documents whose page objects are kept."`
}

func (c *StoragePruneCmd) Run(app *App) error {
	removed, err := storage.Prune(app.store, c.Keep)
	if err != nil {
		return err
	}
	for _, k := range removed {
		app.log.WithField("key", k).Debug("removed")
	}
	app.printf("removed %d page object caches\n", len(removed))
	return nil
}

// StorageClearCmd deletes all application keys
type StorageClearCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *StorageClearCmd) Run(app *App) error {
	if !c.Yes {
		return fmt.Errorf("refusing to delete all stored data without --yes")
	}
	n, err := storage.ClearAll(app.store)
	if err != nil {
		return err
	}
	app.printf("deleted %d keys\n", n)
	return nil
}

// ProvidersCmd lists the provider catalogue
type ProvidersCmd struct{}

func (c *ProvidersCmd) Run(app *App) error {
	ps := llm.Providers()
	if app.JSON {
		return app.printJSON(ps)
	}
	for _, p := range ps {
		key := "no API key"
		if p.RequiresAPIKey {
			key = "API key required"
		}
		app.printf("%s (%s), %s\n", p.Name, p.ID, key)
		for _, m := range p.Models {
			app.printf("  %-28s %s\n", m.ID, m.Name)
		}
	}
	return nil
}
