package content

import (
	"math"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Tracker replays an operator list and reports where each painted image
// lands in page space
type Tracker struct {
	stack *TransformStack
}

// NewTracker creates a tracker with an identity transform
func NewTracker() *Tracker {
	return &Tracker{stack: NewTransformStack()}
}

// Current returns the active cumulative transform
func (t *Tracker) Current() Matrix {
	return t.stack.Current()
}

// Underflows returns the number of restores that found the stack at its floor
func (t *Tracker) Underflows() int {
	return t.stack.Underflows()
}

// Apply executes a single operator against the transform stack. It returns
// true when the operator paints an image.
func (t *Tracker) Apply(op Operator) bool {
	switch op.Op {
	case OpSave:
		t.stack.Save()
	case OpRestore:
		t.stack.Restore()
	case OpTransform:
		if m, ok := toMatrix(op.Args); ok {
			t.stack.Concat(m)
		}
	case OpPaintImage, OpPaintInlineImage:
		return true
	}
	return false
}

// Replay runs ops from the current state and returns one image object per
// paint-image operator, in operator order
func (t *Tracker) Replay(ops []Operator) []pdf.PageImageObject {
	var images []pdf.PageImageObject
	for i, op := range ops {
		if !t.Apply(op) {
			continue
		}
		img := pdf.PageImageObject{
			Index:         len(images),
			OperatorIndex: i,
		}
		if m, name, ok := t.effective(op); ok {
			img.Transform = m
			img.BBox = bboxFromMatrix(m)
			img.SourceName = name
		}
		images = append(images, img)
	}
	return images
}

// TrackImages replays ops on a fresh tracker
func TrackImages(ops []Operator) ([]pdf.PageImageObject, int) {
	t := NewTracker()
	images := t.Replay(ops)
	return images, t.Underflows()
}

// effective resolves the transform a paint operator is drawn with. A name
// or inline image uses the current stack top; a six-number argument is used
// verbatim.
func (t *Tracker) effective(op Operator) (Matrix, string, bool) {
	if len(op.Args) == 0 {
		return Matrix{}, "", false
	}
	switch v := op.Args[0].(type) {
	case string:
		if v == "" {
			return Matrix{}, "", false
		}
		return t.stack.Current(), v, true
	case Name:
		if v == "" {
			return Matrix{}, "", false
		}
		return t.stack.Current(), string(v), true
	case InlineImage, *InlineImage:
		return t.stack.Current(), "", true
	case Matrix:
		return v, "", true
	case [6]float64:
		return Matrix(v), "", true
	case []float64:
		if len(v) >= 6 {
			var m Matrix
			copy(m[:], v[:6])
			return m, "", true
		}
	}
	return Matrix{}, "", false
}

func bboxFromMatrix(m Matrix) pdf.ImageBBox {
	return pdf.ImageBBox{
		X:      m[4],
		Y:      m[5],
		Width:  math.Abs(m[0]),
		Height: math.Abs(m[3]),
	}
}

// toMatrix accepts six numeric operands or a single six-element matrix
func toMatrix(args []interface{}) (Matrix, bool) {
	if len(args) == 1 {
		switch v := args[0].(type) {
		case Matrix:
			return v, true
		case [6]float64:
			return Matrix(v), true
		case []float64:
			if len(v) == 6 {
				var m Matrix
				copy(m[:], v)
				return m, true
			}
		}
		return Matrix{}, false
	}
	if len(args) != 6 {
		return Matrix{}, false
	}
	var m Matrix
	for i, a := range args {
		switch n := a.(type) {
		case float64:
			m[i] = n
		case int:
			m[i] = float64(n)
		default:
			return Matrix{}, false
		}
	}
	return m, true
}
