package page

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/content"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/extractors"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/locate"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/textmap"
)

// Options describes how a page is shown
type Options struct {
	// Scale is rendered pixels per point; 0 means 1
	Scale float64
	// Origin is the top-left corner of the page container in client
	// coordinates
	Origin pdf.Point
}

// Render is one render pass of a page. Everything in it belongs to that
// pass; a later render of the same page gets a new Render with a new ID.
type Render struct {
	ID         uint64
	PageNumber int
	Viewport   locate.Viewport
	Origin     pdf.Point
	Rotation   int
	Fragments  []extractors.Fragment
	Index      *textmap.Index
	Operators  []content.Operator

	page   pdf.Page
	layout atomic.Pointer[textmap.GlyphLayout]
	ready  chan struct{}
	once   sync.Once
}

// Ready is closed once the text layout of the render is attached
func (r *Render) Ready() <-chan struct{} {
	return r.ready
}

// Layout returns the text layout, or nil while it is not attached yet
func (r *Render) Layout() *textmap.GlyphLayout {
	return r.layout.Load()
}

// TextFragments returns the fragments without geometry
func (r *Render) TextFragments() []pdf.TextFragment {
	return extractors.TextFragments(r.Fragments)
}

// Scale returns rendered pixels per point
func (r *Render) Scale() float64 {
	return r.Viewport.Scale()
}

// Detach marks the render as superseded. Geometry requests against it fail
// from then on.
func (r *Render) Detach() {
	r.attach(nil)
	if l := r.Layout(); l != nil {
		l.Detach()
	}
}

func (r *Render) attach(l *textmap.GlyphLayout) {
	r.once.Do(func() {
		if l != nil {
			r.layout.Store(l)
		}
		close(r.ready)
	})
}

// Renderer produces render passes for the pages of a document
type Renderer struct {
	doc       pdf.Document
	organizer *extractors.TextOrganizer
	async     bool
	nextID    atomic.Uint64
	log       logrus.FieldLogger
}

// RendererOption configures a Renderer
type RendererOption func(*Renderer)

// WithOrganizer sets the fragment builder
func WithOrganizer(to *extractors.TextOrganizer) RendererOption {
	return func(r *Renderer) {
		r.organizer = to
	}
}

// WithAsyncLayout attaches text layouts in the background. Callers must
// wait for Render.Ready before asking for geometry.
func WithAsyncLayout() RendererOption {
	return func(r *Renderer) {
		r.async = true
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) RendererOption {
	return func(r *Renderer) {
		r.log = log
	}
}

// NewRenderer creates a renderer for doc
func NewRenderer(doc pdf.Document, opts ...RendererOption) *Renderer {
	r := &Renderer{
		doc:       doc,
		organizer: extractors.NewTextOrganizer(),
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Document returns the rendered document
func (r *Renderer) Document() pdf.Document {
	return r.doc
}

// Render renders page pageNumber (1-based)
func (r *Renderer) Render(ctx context.Context, pageNumber int, opts Options) (*Render, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := r.doc.GetPage(pageNumber - 1)
	if err != nil {
		return nil, err
	}

	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	runs, err := p.TextRuns()
	if err != nil {
		return nil, fmt.Errorf("failed to read text of page %d: %w", pageNumber, err)
	}
	fragments := r.organizer.OrganizeFragments(runs)

	rd := &Render{
		ID:         r.nextID.Add(1),
		PageNumber: pageNumber,
		Viewport: locate.Viewport{
			Width:         p.GetWidth(),
			Height:        p.GetHeight(),
			RenderedWidth: p.GetWidth() * scale,
		},
		Origin:    opts.Origin,
		Rotation:  p.GetRotation(),
		Fragments: fragments,
		page:      p,
		ready:     make(chan struct{}),
	}
	rd.Index = textmap.NewIndex(extractors.TextFragments(fragments)).ForRender(rd.ID)

	data, err := p.Content()
	if err != nil {
		r.log.WithFields(logrus.Fields{"page": pageNumber, "render": rd.ID}).
			WithError(err).Warn("page content unavailable, no images tracked")
	} else {
		ops, err := content.BuildOperators(data, p)
		if err != nil {
			r.log.WithFields(logrus.Fields{"page": pageNumber, "render": rd.ID}).
				WithError(err).Warn("content stream truncated")
		}
		rd.Operators = ops
	}

	if r.async {
		go rd.attach(buildLayout(rd))
	} else {
		rd.attach(buildLayout(rd))
	}

	r.log.WithFields(logrus.Fields{
		"page":      pageNumber,
		"render":    rd.ID,
		"fragments": len(fragments),
		"operators": len(rd.Operators),
	}).Debug("page rendered")
	return rd, nil
}

// buildLayout places every fragment in client coordinates: page space is
// flipped to top-down, scaled and offset by the container origin
func buildLayout(rd *Render) *textmap.GlyphLayout {
	scale := rd.Scale()
	boxes := make([]textmap.GlyphBox, len(rd.Fragments))
	for i, f := range rd.Fragments {
		left := rd.Origin.X + f.BBox.X0*scale
		top := rd.Origin.Y + (rd.Viewport.Height-f.BBox.Y1)*scale
		adv := make([]float64, len(f.Advances))
		for j, a := range f.Advances {
			adv[j] = a * scale
		}
		boxes[i] = textmap.GlyphBox{
			Rect:     pdf.NewRect(left, top, f.BBox.Width()*scale, f.BBox.Height()*scale),
			Advances: adv,
		}
	}
	return textmap.NewGlyphLayout(rd.ID, boxes)
}
