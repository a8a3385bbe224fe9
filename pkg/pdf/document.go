package pdf

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/sirupsen/logrus"
)

// textSource supplies positioned text runs for a page (1-based).
type textSource interface {
	NumPage() int
	Runs(pageNumber int) ([]TextRun, error)
	Close() error
}

// PDFDocument implements the Document interface using pdfcpu for structure,
// content streams and images, and a text source for positioned glyph runs.
type PDFDocument struct {
	file     io.Closer
	ctx      *model.Context
	filepath string
	text     textSource
	pages    []*PDFCPUPage
	metadata Metadata
	log      logrus.FieldLogger
}

// OpenOption configures Open
type OpenOption func(*openConfig)

type openConfig struct {
	password string
	logger   logrus.FieldLogger
	strict   bool
}

// WithPassword sets the user and owner password for encrypted documents
func WithPassword(password string) OpenOption {
	return func(c *openConfig) {
		c.password = password
	}
}

// WithLogger sets the logger used while opening the document
func WithLogger(logger logrus.FieldLogger) OpenOption {
	return func(c *openConfig) {
		c.logger = logger
	}
}

// WithStrictValidation makes Open fail when pdfcpu validation fails
// instead of logging a warning
func WithStrictValidation(strict bool) OpenOption {
	return func(c *openConfig) {
		c.strict = strict
	}
}

// Open opens a PDF file and returns a Document
func Open(filepath string, opts ...OpenOption) (*PDFDocument, error) {
	cfg := &openConfig{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger.WithField("file", filepath)

	conf := model.NewDefaultConfiguration()
	if cfg.password != "" {
		conf.UserPW = cfg.password
		conf.OwnerPW = cfg.password
	}

	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		if cfg.strict {
			f.Close()
			return nil, fmt.Errorf("invalid PDF: %w", err)
		}
		log.WithError(err).Warn("pdf validation failed, continuing")
	}

	text, err := openTextSource(filepath)
	if err != nil {
		f.Close()
		return nil, err
	}

	doc := &PDFDocument{
		file:     f,
		ctx:      ctx,
		filepath: filepath,
		text:     text,
		log:      log,
	}

	doc.extractMetadata()

	if err := doc.initializePages(); err != nil {
		doc.Close()
		return nil, fmt.Errorf("failed to initialize pages: %w", err)
	}

	log.WithField("pages", len(doc.pages)).Debug("pdf opened")
	return doc, nil
}

// openTextSource tries ledongthuc/pdf first as it has the most accurate
// glyph positions, then falls back to dslipak/pdf.
func openTextSource(filepath string) (textSource, error) {
	src, err := openLedongthuc(filepath)
	if err == nil {
		return src, nil
	}
	fallback, ferr := openDslipak(filepath)
	if ferr == nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("failed to open text source: %w (fallback: %v)", err, ferr)
}

// extractMetadata extracts PDF metadata from the Info dictionary
func (d *PDFDocument) extractMetadata() {
	d.metadata = Metadata{NumPages: d.ctx.PageCount}
	if v := d.ctx.HeaderVersion; v != nil {
		d.metadata.Version = v.String()
	}

	if d.ctx.Info == nil {
		return
	}
	info, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil || info == nil {
		d.log.WithError(err).Debug("info dictionary not readable")
		return
	}

	d.metadata.Title = getStringFromDict(info, "Title")
	d.metadata.Author = getStringFromDict(info, "Author")
	d.metadata.Subject = getStringFromDict(info, "Subject")
	d.metadata.Keywords = getStringFromDict(info, "Keywords")
	d.metadata.Creator = getStringFromDict(info, "Creator")
	d.metadata.Producer = getStringFromDict(info, "Producer")
	d.metadata.CreationDate = getStringFromDict(info, "CreationDate")
	d.metadata.ModDate = getStringFromDict(info, "ModDate")
}

// initializePages initializes all pages in the document
func (d *PDFDocument) initializePages() error {
	pageCount := d.ctx.PageCount
	d.pages = make([]*PDFCPUPage, pageCount)

	for i := 1; i <= pageCount; i++ {
		page, err := NewPDFCPUPage(d.ctx, i, d.text)
		if err != nil {
			return fmt.Errorf("failed to create page %d: %w", i, err)
		}
		d.pages[i-1] = page
	}

	return nil
}

// GetMetadata returns the PDF metadata
func (d *PDFDocument) GetMetadata() Metadata {
	return d.metadata
}

// GetPage returns a specific page by index (0-based)
func (d *PDFDocument) GetPage(index int) (Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrPageRange, index, len(d.pages))
	}
	return d.pages[index], nil
}

// PageCount returns the total number of pages
func (d *PDFDocument) PageCount() int {
	return len(d.pages)
}

// Path returns the file the document was opened from
func (d *PDFDocument) Path() string {
	return d.filepath
}

// Close releases resources associated with the document
func (d *PDFDocument) Close() error {
	var err error
	if d.text != nil {
		err = d.text.Close()
	}
	if d.file != nil {
		if cerr := d.file.Close(); err == nil {
			err = cerr
		}
	}
	d.ctx = nil
	d.pages = nil
	return err
}

// Helper functions

func getStringFromDict(dict types.Dict, key string) string {
	if dict == nil {
		return ""
	}

	obj := dict[key]
	if obj == nil {
		return ""
	}

	switch v := obj.(type) {
	case types.StringLiteral:
		s, err := types.StringLiteralToString(v)
		if err != nil {
			return string(v)
		}
		return s
	case types.HexLiteral:
		s, err := types.HexLiteralToString(v)
		if err != nil {
			return string(v)
		}
		return s
	case types.Name:
		return string(v)
	default:
		return ""
	}
}
