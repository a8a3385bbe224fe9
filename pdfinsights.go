// Package pdfinsights opens PDF documents for annotation: text selections
// are stored as character offsets, comments and page objects are
// highlighted again after every render, and page images can be described
// by a vision language model.
package pdfinsights

import (
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/page"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/viewer"
)

// Re-export types for the public API
type (
	Document    = pdf.Document
	Page        = pdf.Page
	Metadata    = pdf.Metadata
	PageObjects = pdf.PageObjects
	Rect        = pdf.Rect
	OffsetRange = pdf.OffsetRange
	Comment     = annotation.Comment
	AppConfig   = config.AppConfig
	Session     = viewer.Session
)

// Re-export option functions
var (
	WithPassword         = pdf.WithPassword
	WithStrictValidation = pdf.WithStrictValidation
)

// Workspace is an open document with its session, settings and storage
type Workspace struct {
	Document Document
	Session  *viewer.Session
	Config   *config.Manager
	Store    storage.Store
	Name     string

	log logrus.FieldLogger
}

// Option configures a Workspace
type Option func(*options)

type options struct {
	store    storage.Store
	log      logrus.FieldLogger
	pageOpts page.Options
	openOpts []pdf.OpenOption
	session  []viewer.Option
}

// WithStore sets the persistence backend. The default keeps everything in
// memory.
func WithStore(s storage.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLogger sets the logger of every component
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithPageOptions sets the render scale and container origin
func WithPageOptions(p page.Options) Option {
	return func(o *options) {
		o.pageOpts = p
	}
}

// WithOpenOptions passes options to pdf.Open
func WithOpenOptions(opts ...pdf.OpenOption) Option {
	return func(o *options) {
		o.openOpts = append(o.openOpts, opts...)
	}
}

// WithSessionOptions passes extra options to the session
func WithSessionOptions(opts ...viewer.Option) Option {
	return func(o *options) {
		o.session = append(o.session, opts...)
	}
}

func collect(opts []Option) *options {
	o := &options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = storage.NewMemoryStore()
	}
	return o
}

// Open opens the PDF at path and restores its stored comments, page objects
// and analyses
func Open(path string, opts ...Option) (*Workspace, error) {
	o := collect(opts)
	doc, err := pdf.Open(path, append([]pdf.OpenOption{pdf.WithLogger(o.log)}, o.openOpts...)...)
	if err != nil {
		return nil, err
	}
	w, err := newWorkspace(doc, storage.DocumentName(path), o)
	if err != nil {
		doc.Close()
		return nil, err
	}
	return w, nil
}

// New wraps an already opened document. name scopes the stored data.
func New(doc Document, name string, opts ...Option) (*Workspace, error) {
	return newWorkspace(doc, name, collect(opts))
}

func newWorkspace(doc Document, name string, o *options) (*Workspace, error) {
	log := o.log.WithField("doc", name)
	docs := storage.Namespace(o.store, name, storage.WithLogger(log))
	renderer := page.NewRenderer(doc, page.WithLogger(log))

	sessionOpts := append([]viewer.Option{
		viewer.WithStorage(docs),
		viewer.WithPageOptions(o.pageOpts),
		viewer.WithLogger(log),
	}, o.session...)
	session := viewer.NewSession(renderer, sessionOpts...)
	if err := session.Restore(); err != nil {
		return nil, err
	}

	return &Workspace{
		Document: doc,
		Session:  session,
		Config:   config.NewManager(o.store),
		Store:    o.store,
		Name:     name,
		log:      log,
	}, nil
}

// Close stops the session and closes the document
func (w *Workspace) Close() error {
	w.Session.Close()
	w.log.Debug("workspace closed")
	return w.Document.Close()
}
