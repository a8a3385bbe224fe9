package textmap

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

var (
	// ErrDetached is returned by a layout whose render has been superseded
	ErrDetached = errors.New("layout detached from current render")
	// ErrAnchor is returned for anchors outside the layout
	ErrAnchor = errors.New("anchor out of bounds")
)

// Anchor is a position between two characters of a fragment
type Anchor struct {
	Fragment int
	Offset   int
}

// Layout produces the client rectangles of the text between two anchors,
// the way a text range reports its visual boxes
type Layout interface {
	ClientRects(start, end Anchor) ([]pdf.Rect, error)
}

// GlyphBox is the client-space box of one fragment and the advance of each
// of its characters, in pixels
type GlyphBox struct {
	Rect     pdf.Rect
	Advances []float64
}

// GlyphLayout is a Layout backed by fragment boxes. It reports one
// rectangle per fragment touched by the range.
type GlyphLayout struct {
	renderID uint64
	boxes    []GlyphBox
	detached atomic.Bool
}

// NewGlyphLayout creates a layout for the given render pass
func NewGlyphLayout(renderID uint64, boxes []GlyphBox) *GlyphLayout {
	return &GlyphLayout{renderID: renderID, boxes: boxes}
}

// RenderID returns the render pass the layout belongs to
func (l *GlyphLayout) RenderID() uint64 {
	return l.renderID
}

// Len returns the number of fragment boxes
func (l *GlyphLayout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.boxes)
}

// Box returns the client box of fragment i
func (l *GlyphLayout) Box(i int) (pdf.Rect, bool) {
	if l == nil || i < 0 || i >= len(l.boxes) {
		return pdf.Rect{}, false
	}
	return l.boxes[i].Rect, true
}

// Detach marks the layout as superseded by a newer render
func (l *GlyphLayout) Detach() {
	if l == nil {
		return
	}
	l.detached.Store(true)
}

// Detached reports whether Detach was called. A nil layout counts as
// detached.
func (l *GlyphLayout) Detached() bool {
	return l == nil || l.detached.Load()
}

// ClientRects implements Layout. A range whose end precedes its start is
// collapsed and has no rectangles.
func (l *GlyphLayout) ClientRects(start, end Anchor) ([]pdf.Rect, error) {
	if l.Detached() {
		return nil, ErrDetached
	}
	if err := l.check(start); err != nil {
		return nil, err
	}
	if err := l.check(end); err != nil {
		return nil, err
	}
	if end.Fragment < start.Fragment || (end.Fragment == start.Fragment && end.Offset < start.Offset) {
		return nil, nil
	}

	var rects []pdf.Rect
	for f := start.Fragment; f <= end.Fragment; f++ {
		box := l.boxes[f]
		from, to := 0, len(box.Advances)
		if f == start.Fragment {
			from = start.Offset
		}
		if f == end.Fragment {
			to = end.Offset
		}
		x0 := box.Rect.Left + sum(box.Advances[:from])
		x1 := box.Rect.Left + sum(box.Advances[:to])
		if x1-x0 <= 0 {
			continue
		}
		rects = append(rects, pdf.NewRect(x0, box.Rect.Top, x1-x0, box.Rect.Height))
	}
	return rects, nil
}

func (l *GlyphLayout) check(a Anchor) error {
	if a.Fragment < 0 || a.Fragment >= len(l.boxes) {
		return fmt.Errorf("%w: fragment %d of %d", ErrAnchor, a.Fragment, len(l.boxes))
	}
	if a.Offset < 0 || a.Offset > len(l.boxes[a.Fragment].Advances) {
		return fmt.Errorf("%w: offset %d in fragment %d", ErrAnchor, a.Offset, a.Fragment)
	}
	return nil
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}
