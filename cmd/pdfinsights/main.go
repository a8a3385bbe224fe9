package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/page"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/viewer"
)

// Globals are flags shared by every command
type Globals struct {
	StoreDir string   `help:"Directory of the database holding comments, page objects and settings." type:"path" env:"PDFINSIGHTS_STORE"`
	EnvFile  []string `help:"Environment files to load." default:".env" type:"path"`
	Password string   `help:"Password of encrypted documents."`
	Scale    float64  `help:"Rendered pixels per point." default:"1"`
	Verbose  bool     `short:"v" help:"Log debug output."`
	JSON     bool     `help:"Print JSON instead of text."`
}

// CLI is the command tree
type CLI struct {
	Globals `embed:""`

	Info      InfoCmd      `cmd:"" help:"Show document metadata."`
	Text      TextCmd      `cmd:"" help:"Show the text fragments of a page and their offsets."`
	Objects   ObjectsCmd   `cmd:"" help:"List the text and image objects of a page."`
	Locate    LocateCmd    `cmd:"" help:"Compute the highlight rectangle of a page object."`
	Comment   CommentCmd   `cmd:"" help:"Manage comments."`
	Highlight HighlightCmd `cmd:"" help:"Compute the highlight rectangles of a comment."`
	Analyze   AnalyzeCmd   `cmd:"" help:"Describe a page image with a vision model."`
	Config    ConfigCmd    `cmd:"" help:"Manage settings."`
	Storage   StorageCmd   `cmd:"" help:"Inspect and clean stored data."`
	Providers ProvidersCmd `cmd:"" help:"List the supported model providers."`
}

// App carries what commands need to run
type App struct {
	*Globals
	log        *logrus.Logger
	store      storage.Store
	closeStore func() error
	out        io.Writer
}

func newApp(g *Globals) (*App, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if g.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := config.LoadDotEnv(g.EnvFile...); err != nil {
		return nil, err
	}

	dir := g.StoreDir
	if dir == "" {
		d, err := storage.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("no storage directory: %w", err)
		}
		dir = d
	}
	store, err := storage.OpenBoltStore(filepath.Join(dir, storage.DefaultFileName))
	if err != nil {
		return nil, err
	}
	log.WithField("path", store.Path()).Debug("using storage")

	return &App{Globals: g, log: log, store: store, closeStore: store.Close, out: os.Stdout}, nil
}

// Close releases the storage
func (a *App) Close() error {
	if a.closeStore == nil {
		return nil
	}
	return a.closeStore()
}

// open opens a document workspace
func (a *App) open(path string) (*pdfinsights.Workspace, error) {
	opts := []pdfinsights.Option{
		pdfinsights.WithStore(a.store),
		pdfinsights.WithLogger(a.log),
		pdfinsights.WithPageOptions(page.Options{Scale: a.Scale}),
		pdfinsights.WithSessionOptions(viewer.WithSettleDelay(viewer.DefaultSettleDelay)),
	}
	if a.Password != "" {
		opts = append(opts, pdfinsights.WithOpenOptions(pdfinsights.WithPassword(a.Password)))
	}
	return pdfinsights.Open(path, opts...)
}

func (a *App) settings() *config.Manager {
	return config.NewManager(a.store)
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("pdfinsights"),
		kong.Description("Annotate PDF text, re-locate comments and page objects, and describe page images."),
		kong.UsageOnError(),
		kong.Vars{
			"quota": strconv.Itoa(storage.DefaultQuota),
			"keep":  strconv.Itoa(storage.DefaultKeepImages),
		},
	)
	app, err := newApp(&cli.Globals)
	ctx.FatalIfErrorf(err)
	err = ctx.Run(app)
	if cerr := app.Close(); cerr != nil {
		app.log.WithError(cerr).Warn("failed to close storage")
	}
	ctx.FatalIfErrorf(err)
}
