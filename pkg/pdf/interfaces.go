package pdf

import (
	"errors"
)

// ErrPageRange is returned when a page index is outside the document.
var ErrPageRange = errors.New("page index out of range")

// ErrNoXObject is returned when a resource name does not resolve to an XObject.
var ErrNoXObject = errors.New("xobject not found")

// Document represents an opened PDF document
type Document interface {
	// GetMetadata returns the PDF metadata
	GetMetadata() Metadata

	// GetPage returns a specific page by index (0-based)
	GetPage(index int) (Page, error)

	// PageCount returns the total number of pages
	PageCount() int

	// Close releases resources associated with the document
	Close() error
}

// Page represents a single page in a PDF document
type Page interface {
	XObjectResolver

	// GetPageNumber returns the page number (1-based)
	GetPageNumber() int

	// GetWidth returns the page width in points
	GetWidth() float64

	// GetHeight returns the page height in points
	GetHeight() float64

	// GetRotation returns the page rotation in degrees
	GetRotation() int

	// TextRuns returns the positioned glyph runs of the page in content order
	TextRuns() ([]TextRun, error)

	// Content returns the decoded, concatenated content streams of the page
	Content() ([]byte, error)

	// GetImage returns the encoded pixel data of the image XObject with the
	// given resource name
	GetImage(name string) (*Image, error)
}

// XObjectResolver looks up XObjects by resource name.
type XObjectResolver interface {
	XObject(name string) (*XObject, error)
}

// XObjectKind distinguishes image and form XObjects
type XObjectKind int

const (
	XObjectOther XObjectKind = iota
	XObjectImage
	XObjectForm
)

// XObject is a resolved external object. Matrix, Content and Resources are
// only set for forms; Resources resolves names used inside the form.
type XObject struct {
	Name      string
	Kind      XObjectKind
	Matrix    [6]float64
	Content   []byte
	Resources XObjectResolver
}

// Image is the encoded payload of an image XObject.
type Image struct {
	Name     string
	FileType string // "png", "jpg", "tif", ...
	Width    int
	Height   int
	Data     []byte
}
