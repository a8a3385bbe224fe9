package textmap

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

const charWidth = 10.0

var container = pdf.Point{X: 100, Y: 40}

func fragments(contents ...string) []pdf.TextFragment {
	out := make([]pdf.TextFragment, len(contents))
	for i, c := range contents {
		out[i] = pdf.TextFragment{Content: c, OrderIndex: i}
	}
	return out
}

// lineLayout lays the fragments out on one line starting at the container
// origin, charWidth pixels per character
func lineLayout(renderID uint64, frags []pdf.TextFragment) *GlyphLayout {
	var boxes []GlyphBox
	x := container.X
	for _, f := range frags {
		n := utf8.RuneCountInString(f.Content)
		adv := make([]float64, n)
		for i := range adv {
			adv[i] = charWidth
		}
		boxes = append(boxes, GlyphBox{
			Rect:     pdf.NewRect(x, container.Y+10, float64(n)*charWidth, 12),
			Advances: adv,
		})
		x += float64(n) * charWidth
	}
	return NewGlyphLayout(renderID, boxes)
}

func TestNewIndex(t *testing.T) {
	idx := NewIndex(fragments("Hello ", "World"))

	want := []pdf.OffsetRange{{Start: 0, End: 6}, {Start: 6, End: 11}}
	if diff := cmp.Diff(want, idx.Ranges()); diff != "" {
		t.Errorf("Ranges() mismatch (-want +got):\n%s", diff)
	}
	if idx.Total() != 11 {
		t.Errorf("Total() = %d, want 11", idx.Total())
	}
	if idx.Text() != "Hello World" {
		t.Errorf("Text() = %q", idx.Text())
	}
	if got := idx.Slice(pdf.OffsetRange{Start: 2, End: 8}); got != "llo Wo" {
		t.Errorf("Slice(2, 8) = %q, want %q", got, "llo Wo")
	}
}

func TestIndexMonotonic(t *testing.T) {
	idx := NewIndex(fragments("", "a", "  ", "héllo", "日本語", "", "\t\n", "z"))
	ranges := idx.Ranges()

	if ranges[0].Start != 0 {
		t.Errorf("first range starts at %d", ranges[0].Start)
	}
	for i := 0; i+1 < len(ranges); i++ {
		if ranges[i].End != ranges[i+1].Start {
			t.Errorf("range %d ends at %d but range %d starts at %d", i, ranges[i].End, i+1, ranges[i+1].Start)
		}
	}
	if last := ranges[len(ranges)-1]; last.End != idx.Total() {
		t.Errorf("last range ends at %d, total is %d", last.End, idx.Total())
	}
	if idx.Total() != utf8.RuneCountInString(idx.Text()) {
		t.Errorf("Total() = %d, text has %d runes", idx.Total(), utf8.RuneCountInString(idx.Text()))
	}
}

func TestIndexDeterministic(t *testing.T) {
	frags := fragments("one ", "two ", "three")
	a := NewIndex(frags)
	b := NewIndex(frags)
	if diff := cmp.Diff(a.Ranges(), b.Ranges()); diff != "" {
		t.Errorf("indexes differ (-a +b):\n%s", diff)
	}
}

func TestIndexFind(t *testing.T) {
	idx := NewIndex(fragments("Hello ", "", "World"))
	tests := []struct {
		off  int
		want int
	}{
		{0, 0},
		{3, 0},
		{6, 0}, // boundary belongs to the first fragment containing it
		{7, 2},
		{11, 2},
		{12, -1},
		{-1, -1},
	}
	for _, tt := range tests {
		if got := idx.Find(tt.off); got != tt.want {
			t.Errorf("Find(%d) = %d, want %d", tt.off, got, tt.want)
		}
	}

	if got := NewIndex(nil).Find(0); got != -1 {
		t.Errorf("Find on empty index = %d, want -1", got)
	}
}

func TestEncodeScenario(t *testing.T) {
	idx := NewIndex(fragments("Hello ", "World")).ForRender(7)
	sel := Selection{
		RenderID: 7,
		Start:    Endpoint{Fragment: 0, Offset: 2},
		End:      Endpoint{Fragment: 1, Offset: 2},
	}

	got := Encode(sel, idx)
	want := &pdf.OffsetRange{Start: 2, End: 8}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
	}
}

func TestEncode(t *testing.T) {
	idx := NewIndex(fragments("Hello ", "World", "!"))

	tests := []struct {
		name string
		sel  Selection
		want *pdf.OffsetRange
	}{
		{
			name: "reversed selection",
			sel:  Selection{Start: Endpoint{1, 3}, End: Endpoint{0, 1}},
			want: &pdf.OffsetRange{Start: 1, End: 9},
		},
		{
			name: "offsets clamped into fragment",
			sel:  Selection{Start: Endpoint{0, -4}, End: Endpoint{1, 99}},
			want: &pdf.OffsetRange{Start: 0, End: 11},
		},
		{
			name: "collapsed selection",
			sel:  Selection{Start: Endpoint{1, 2}, End: Endpoint{1, 2}},
			want: &pdf.OffsetRange{Start: 8, End: 8},
		},
		{
			name: "fallback to intersected fragments",
			sel:  Selection{Start: Unresolved, End: Endpoint{1, 2}, Intersected: []int{2, 1}},
			want: &pdf.OffsetRange{Start: 6, End: 12},
		},
		{
			name: "fallback ignores unknown fragments",
			sel:  Selection{Start: Unresolved, End: Unresolved, Intersected: []int{-1, 0, 42}},
			want: &pdf.OffsetRange{Start: 0, End: 6},
		},
		{
			name: "nothing resolves",
			sel:  Selection{Start: Unresolved, End: Endpoint{5, 0}},
			want: nil,
		},
		{
			name: "other render",
			sel:  Selection{RenderID: 3, Start: Endpoint{0, 0}, End: Endpoint{0, 1}},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.sel, idx)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
			if got != nil && (got.Start < 0 || got.Start > got.End || got.End > idx.Total()) {
				t.Errorf("Encode() = %+v outside [0, %d]", got, idx.Total())
			}
		})
	}
}

func TestDecodeScenario(t *testing.T) {
	frags := fragments("Hello ", "World")
	idx := NewIndex(frags).ForRender(1)
	layout := lineLayout(1, frags)

	got := Decode(pdf.OffsetRange{Start: 2, End: 8}, idx, layout, container)
	want := []pdf.Rect{
		pdf.NewRect(20, 10, 40, 12),
		pdf.NewRect(60, 10, 20, 12),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}

	// A fresh, identical render decodes the stored offsets the same way
	rerender := NewIndex(frags).ForRender(2)
	again := Decode(pdf.OffsetRange{Start: 2, End: 8}, rerender, lineLayout(2, frags), container)
	if len(again) == 0 {
		t.Fatal("Decode() after re-render returned no rectangles")
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("re-render mismatch (-first +second):\n%s", diff)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	frags := fragments("The ", "quick", " ", "brown fox")
	idx := NewIndex(frags)
	layout := lineLayout(0, frags)

	for s := 0; s <= idx.Total(); s++ {
		for e := s; e <= idx.Total(); e++ {
			sf, ef := idx.Find(s), idx.Find(e)
			sel := Selection{
				Start: Endpoint{Fragment: sf, Offset: s - idx.Range(sf).Start},
				End:   Endpoint{Fragment: ef, Offset: e - idx.Range(ef).Start},
			}
			r := Encode(sel, idx)
			if r == nil || r.Start != s || r.End != e {
				t.Fatalf("Encode(%d, %d) = %+v", s, e, r)
			}

			rects := Decode(*r, idx, layout, container)
			var covered float64
			for _, rect := range rects {
				covered += rect.Width
			}
			if covered != float64(e-s)*charWidth {
				t.Errorf("Decode(%d, %d) covers %v px, want %v", s, e, covered, float64(e-s)*charWidth)
			}
			if s < e && rects[0].Left != float64(s)*charWidth {
				t.Errorf("Decode(%d, %d) starts at %v, want %v", s, e, rects[0].Left, float64(s)*charWidth)
			}
		}
	}
}

func TestDecodeIdempotent(t *testing.T) {
	frags := fragments("alpha ", "beta ", "gamma")
	idx := NewIndex(frags)
	layout := lineLayout(0, frags)
	r := pdf.OffsetRange{Start: 3, End: 14}

	first := Decode(r, idx, layout, container)
	second := Decode(r, idx, layout, container)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("decodes differ (-first +second):\n%s", diff)
	}
}

func TestDecodeFailures(t *testing.T) {
	frags := fragments("Hello ", "World")
	idx := NewIndex(frags)

	tests := []struct {
		name    string
		r       pdf.OffsetRange
		layout  func() Layout
		wantErr error
	}{
		{
			name:    "past the end",
			r:       pdf.OffsetRange{Start: 2, End: 30},
			layout:  func() Layout { return lineLayout(0, frags) },
			wantErr: ErrAnchor,
		},
		{
			name:    "negative",
			r:       pdf.OffsetRange{Start: -1, End: 3},
			layout:  func() Layout { return lineLayout(0, frags) },
			wantErr: ErrAnchor,
		},
		{
			name: "detached layout",
			r:    pdf.OffsetRange{Start: 0, End: 3},
			layout: func() Layout {
				l := lineLayout(0, frags)
				l.Detach()
				return l
			},
			wantErr: ErrDetached,
		},
		{
			name:    "layout with fewer fragments",
			r:       pdf.OffsetRange{Start: 0, End: 9},
			layout:  func() Layout { return lineLayout(0, frags[:1]) },
			wantErr: ErrAnchor,
		},
		{
			name:    "no layout",
			r:       pdf.OffsetRange{Start: 0, End: 3},
			layout:  func() Layout { return nil },
			wantErr: ErrDetached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := tt.layout()
			rects, err := DecodeErr(tt.r, idx, layout, container)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeErr() error = %v, want %v", err, tt.wantErr)
			}
			if len(rects) != 0 {
				t.Errorf("DecodeErr() returned %d rectangles", len(rects))
			}
			if got := Decode(tt.r, idx, layout, container); len(got) != 0 {
				t.Errorf("Decode() returned %d rectangles", len(got))
			}
		})
	}
}

func TestGlyphLayoutCollapsedRange(t *testing.T) {
	frags := fragments("Hello ", "World")
	layout := lineLayout(0, frags)

	rects, err := layout.ClientRects(Anchor{1, 3}, Anchor{0, 2})
	if err != nil {
		t.Fatalf("ClientRects() error = %v", err)
	}
	if len(rects) != 0 {
		t.Errorf("reversed range produced %d rectangles", len(rects))
	}

	// A range ending at the start of a fragment does not touch it
	rects, err = layout.ClientRects(Anchor{0, 2}, Anchor{1, 0})
	if err != nil {
		t.Fatalf("ClientRects() error = %v", err)
	}
	if len(rects) != 1 {
		t.Errorf("got %d rectangles, want 1", len(rects))
	}
}
