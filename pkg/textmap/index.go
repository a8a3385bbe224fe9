// Package textmap maps between character offsets in a page's text and the
// on-screen geometry of the fragments that render it.
//
// Offsets count Unicode code points over the concatenation of all fragment
// contents of one render pass. An Index is built per render and never
// updated; a new render gets a new Index.
package textmap

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Index is the offset table of one render pass
type Index struct {
	renderID  uint64
	fragments []pdf.TextFragment
	ranges    []pdf.OffsetRange
	text      string
	total     int
}

// NewIndex computes the half-open offset range of every fragment. Fragment
// i starts at the summed length of fragments 0..i-1. No whitespace is
// collapsed.
func NewIndex(fragments []pdf.TextFragment) *Index {
	idx := &Index{
		fragments: make([]pdf.TextFragment, len(fragments)),
		ranges:    make([]pdf.OffsetRange, len(fragments)),
	}
	copy(idx.fragments, fragments)

	var sb strings.Builder
	offset := 0
	for i, f := range fragments {
		n := utf8.RuneCountInString(f.Content)
		idx.ranges[i] = pdf.OffsetRange{Start: offset, End: offset + n}
		offset += n
		sb.WriteString(f.Content)
	}
	idx.text = sb.String()
	idx.total = offset
	return idx
}

// ForRender tags the index with the render pass it was built for
func (idx *Index) ForRender(id uint64) *Index {
	idx.renderID = id
	return idx
}

// RenderID returns the render pass the index belongs to
func (idx *Index) RenderID() uint64 {
	return idx.renderID
}

// Len returns the number of fragments
func (idx *Index) Len() int {
	return len(idx.ranges)
}

// Total returns the length of the page text
func (idx *Index) Total() int {
	return idx.total
}

// Text returns the concatenated page text
func (idx *Index) Text() string {
	return idx.text
}

// Range returns the offset range of fragment i
func (idx *Index) Range(i int) pdf.OffsetRange {
	return idx.ranges[i]
}

// Ranges returns a copy of all fragment ranges
func (idx *Index) Ranges() []pdf.OffsetRange {
	out := make([]pdf.OffsetRange, len(idx.ranges))
	copy(out, idx.ranges)
	return out
}

// Fragment returns fragment i
func (idx *Index) Fragment(i int) pdf.TextFragment {
	return idx.fragments[i]
}

// Find returns the first fragment whose range contains off, counting both
// ends as inside, or -1
func (idx *Index) Find(off int) int {
	if off < 0 || off > idx.total || len(idx.ranges) == 0 {
		return -1
	}
	i := sort.Search(len(idx.ranges), func(i int) bool {
		return idx.ranges[i].End >= off
	})
	if i == len(idx.ranges) || idx.ranges[i].Start > off {
		return -1
	}
	return i
}

// Slice returns the page text covered by r, clamped to the page
func (idx *Index) Slice(r pdf.OffsetRange) string {
	start := max(r.Start, 0)
	end := min(r.End, idx.total)
	if start >= end {
		return ""
	}
	runes := []rune(idx.text)
	return string(runes[start:end])
}
