package extractors

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Share of the font size below and above the baseline covered by a
// fragment box
const (
	descentRatio = 0.2
	ascentRatio  = 0.8
)

// Fragment is a text fragment with its page-space geometry
type Fragment struct {
	pdf.TextFragment
	Font     string
	FontSize float64
	// Baseline origin in page space
	X, Y float64
	BBox pdf.BoundingBox
	// Advances holds the width of every rune of Content, in order
	Advances []float64
}

// Width returns the advance width of the whole fragment
func (f Fragment) Width() float64 {
	return f.BBox.Width()
}

// TextOrganizer groups positioned glyph runs into fragments and orders them
// for reading
type TextOrganizer struct {
	xTolerance float64 // Horizontal gap that still joins two runs
	yTolerance float64 // Baseline difference that still counts as one line
	sortLines  bool
}

// OrganizerOption configures a TextOrganizer
type OrganizerOption func(*TextOrganizer)

// WithTolerances sets the tolerances for run grouping
func WithTolerances(xTol, yTol float64) OrganizerOption {
	return func(to *TextOrganizer) {
		to.xTolerance = xTol
		to.yTolerance = yTol
	}
}

// WithContentOrder keeps fragments in content stream order instead of
// sorting them top to bottom, left to right
func WithContentOrder() OrganizerOption {
	return func(to *TextOrganizer) {
		to.sortLines = false
	}
}

// NewTextOrganizer creates a new text organizer with default tolerances
func NewTextOrganizer(opts ...OrganizerOption) *TextOrganizer {
	to := &TextOrganizer{
		xTolerance: 3.0,
		yTolerance: 3.0,
		sortLines:  true,
	}
	for _, opt := range opts {
		opt(to)
	}
	return to
}

// SetTolerances sets the tolerances for run grouping
func (to *TextOrganizer) SetTolerances(xTol, yTol float64) {
	to.xTolerance = xTol
	to.yTolerance = yTol
}

// OrganizeFragments builds fragments from runs. Consecutive runs are joined
// when they share font, size and baseline and are horizontally contiguous.
// OrderIndex is assigned after ordering.
func (to *TextOrganizer) OrganizeFragments(runs []pdf.TextRun) []Fragment {
	var fragments []Fragment
	var current *Fragment

	for _, run := range runs {
		if run.S == "" {
			continue
		}
		if current != nil && to.joins(current, run) {
			to.appendRun(current, run)
			continue
		}
		if current != nil {
			fragments = append(fragments, *current)
		}
		current = to.newFragment(run)
	}
	if current != nil {
		fragments = append(fragments, *current)
	}

	if to.sortLines {
		fragments = to.sortFragments(fragments)
	}
	for i := range fragments {
		fragments[i].OrderIndex = i
	}
	return fragments
}

// OrganizeText joins ordered fragments into plain text, one line per
// baseline
func (to *TextOrganizer) OrganizeText(fragments []Fragment) string {
	var result strings.Builder
	for i, f := range fragments {
		if i > 0 && math.Abs(f.Y-fragments[i-1].Y) > to.yTolerance {
			result.WriteString("\n")
		}
		result.WriteString(f.Content)
	}
	return result.String()
}

// TextFragments strips geometry from fragments
func TextFragments(fragments []Fragment) []pdf.TextFragment {
	out := make([]pdf.TextFragment, len(fragments))
	for i, f := range fragments {
		out[i] = f.TextFragment
	}
	return out
}

func (to *TextOrganizer) joins(f *Fragment, run pdf.TextRun) bool {
	if run.Font != f.Font || run.FontSize != f.FontSize {
		return false
	}
	if math.Abs(run.Y-f.Y) > to.yTolerance {
		return false
	}
	gap := run.X - f.BBox.X1
	return gap >= -to.xTolerance && gap <= to.xTolerance
}

func (to *TextOrganizer) newFragment(run pdf.TextRun) *Fragment {
	f := &Fragment{
		Font:     run.Font,
		FontSize: run.FontSize,
		X:        run.X,
		Y:        run.Y,
		BBox: pdf.BoundingBox{
			X0: run.X,
			Y0: run.Y - run.FontSize*descentRatio,
			X1: run.X,
			Y1: run.Y + run.FontSize*ascentRatio,
		},
	}
	to.appendRun(f, run)
	return f
}

// appendRun adds the glyphs of run, splitting its width evenly between them
func (to *TextOrganizer) appendRun(f *Fragment, run pdf.TextRun) {
	n := utf8.RuneCountInString(run.S)
	each := 0.0
	if n > 0 {
		each = math.Max(run.W, 0) / float64(n)
	}
	for range n {
		f.Advances = append(f.Advances, each)
	}
	f.Content += run.S
	f.BBox.X1 = max(f.BBox.X1, run.X+math.Max(run.W, 0))
}

// sortFragments orders fragments top to bottom, then left to right within
// a line
func (to *TextOrganizer) sortFragments(fragments []Fragment) []Fragment {
	if len(fragments) == 0 {
		return fragments
	}

	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	// PDF coordinates: Y increases upward
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var lines [][]Fragment
	var line []Fragment
	lineY := sorted[0].Y
	for _, f := range sorted {
		if math.Abs(f.Y-lineY) > to.yTolerance {
			lines = append(lines, line)
			line = nil
			lineY = f.Y
		}
		line = append(line, f)
	}
	lines = append(lines, line)

	out := sorted[:0]
	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool {
			return l[i].X < l[j].X
		})
		out = append(out, l...)
	}
	return out
}
