package storage

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// DefaultKeepImages is how many documents keep their image cache when
// storage is pruned
const DefaultKeepImages = 5

// Documents scopes a Store to one document
type Documents struct {
	store Store
	doc   string
	keep  int
	log   logrus.FieldLogger
}

// NamespaceOption configures Documents
type NamespaceOption func(*Documents)

// WithKeepImages sets how many image caches survive pruning
func WithKeepImages(n int) NamespaceOption {
	return func(d *Documents) {
		d.keep = n
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) NamespaceOption {
	return func(d *Documents) {
		d.log = log
	}
}

// Namespace returns the view of s for the document doc
func Namespace(s Store, doc string, opts ...NamespaceOption) *Documents {
	d := &Documents{
		store: s,
		doc:   doc,
		keep:  DefaultKeepImages,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DocumentName derives the namespace of a PDF from its path
func DocumentName(path string) string {
	return filepath.Base(path)
}

// Name returns the document name
func (d *Documents) Name() string {
	return d.doc
}

// Store returns the underlying store
func (d *Documents) Store() Store {
	return d.store
}

// SaveComments stores the comment list
func (d *Documents) SaveComments(v any) error {
	return d.save(CommentsKey(d.doc), v)
}

// LoadComments loads the comment list
func (d *Documents) LoadComments(v any) (bool, error) {
	return d.store.Load(CommentsKey(d.doc), v)
}

// SaveImages stores the page objects cache
func (d *Documents) SaveImages(v any) error {
	return d.save(ImagesKey(d.doc), v)
}

// LoadImages loads the page objects cache
func (d *Documents) LoadImages(v any) (bool, error) {
	return d.store.Load(ImagesKey(d.doc), v)
}

// SaveAnalyses stores the image analysis results
func (d *Documents) SaveAnalyses(v any) error {
	return d.save(AnalysesKey(d.doc), v)
}

// LoadAnalyses loads the image analysis results
func (d *Documents) LoadAnalyses(v any) (bool, error) {
	return d.store.Load(AnalysesKey(d.doc), v)
}

// save frees space by pruning old image caches when a write fails. The
// failed write is not retried.
func (d *Documents) save(key string, v any) error {
	err := d.store.Save(key, v)
	if err == nil {
		return nil
	}

	log := d.log.WithFields(logrus.Fields{"key": key, "doc": d.doc})
	log.WithError(err).Error("failed to save")
	removed, perr := Prune(d.store, d.keep)
	if perr != nil {
		log.WithError(perr).Warn("failed to prune old image caches")
	} else if len(removed) > 0 {
		log.WithField("removed", len(removed)).Info("pruned old image caches")
	}
	return err
}
