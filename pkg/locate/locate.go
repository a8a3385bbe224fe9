// Package locate finds the current on-screen rectangle of a page object
// selected earlier, after the page may have been rendered again.
package locate

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Status tells callers whether a failed lookup is worth retrying
type Status int

const (
	// Found means Rects holds the object's rectangle
	Found Status = iota
	// NotFound means the object has no match in the current render, or
	// no usable position at all
	NotFound
	// Stale means the render the lookup ran against was superseded
	Stale
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not found"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Result is the outcome of a lookup
type Result struct {
	Rects  []pdf.Rect
	Status Status
}

// FragmentBoxes gives access to the client box of every fragment of the
// current render
type FragmentBoxes interface {
	Len() int
	Box(i int) (pdf.Rect, bool)
	Detached() bool
}

// Viewport describes the current rendering of a page
type Viewport struct {
	// Natural page size at scale 1, in points
	Width  float64
	Height float64
	// Width of the page as currently rendered, in pixels
	RenderedWidth float64
}

// Scale returns the rendered-to-natural size ratio
func (v Viewport) Scale() float64 {
	if v.Width == 0 {
		return 0
	}
	return v.RenderedWidth / v.Width
}

// Normalize prepares text for matching: NFC composed, whitespace removed,
// lower-cased
func Normalize(s string) string {
	s = norm.NFC.String(s)
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// Text finds target in the current fragments. Starting at each fragment i it
// concatenates normalized fragments i, i+1, ... until the text equals the
// normalized target, or grows longer than it. The boxes of the first
// matching window are united into one rectangle relative to container.
func Text(target string, fragments []pdf.TextFragment, boxes FragmentBoxes, container pdf.Point) Result {
	if boxes == nil || boxes.Detached() {
		return Result{Status: Stale}
	}
	want := Normalize(target)
	if want == "" {
		return Result{Status: NotFound}
	}

	normalized := make([]string, len(fragments))
	for i, f := range fragments {
		normalized[i] = Normalize(f.Content)
	}

	for i := range normalized {
		var acc strings.Builder
		for j := i; j < len(normalized); j++ {
			acc.WriteString(normalized[j])
			if acc.String() == want {
				return united(boxes, i, j, container)
			}
			if acc.Len() > len(want) {
				break
			}
		}
	}
	return Result{Status: NotFound}
}

func united(boxes FragmentBoxes, i, j int, container pdf.Point) Result {
	var out pdf.Rect
	for k := i; k <= j; k++ {
		box, ok := boxes.Box(k)
		if !ok {
			return Result{Status: Stale}
		}
		if k == i {
			out = box
		} else {
			out = out.Union(box)
		}
	}
	return Result{Rects: []pdf.Rect{out.Translate(container)}, Status: Found}
}

// Interactive reports whether an image may be offered for location
func Interactive(img pdf.PageImageObject) bool {
	return img.Locatable()
}

// Image converts the page-space bbox of img to pixels relative to the page
// container. The Y axis is flipped from PDF's bottom-up to top-down before
// scaling.
func Image(img pdf.PageImageObject, vp Viewport) Result {
	if !Interactive(img) {
		return Result{Status: NotFound}
	}
	scale := vp.Scale()
	if scale == 0 {
		return Result{Status: Stale}
	}

	b := img.BBox
	viewportY := vp.Height - b.Y - b.Height
	rect := pdf.NewRect(b.X*scale, viewportY*scale, b.Width*scale, b.Height*scale)
	return Result{Rects: []pdf.Rect{rect}, Status: Found}
}
