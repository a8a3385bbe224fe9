package locate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

type staticBoxes struct {
	rects    []pdf.Rect
	detached bool
}

func (s staticBoxes) Len() int { return len(s.rects) }

func (s staticBoxes) Box(i int) (pdf.Rect, bool) {
	if i < 0 || i >= len(s.rects) {
		return pdf.Rect{}, false
	}
	return s.rects[i], true
}

func (s staticBoxes) Detached() bool { return s.detached }

func frags(contents ...string) []pdf.TextFragment {
	out := make([]pdf.TextFragment, len(contents))
	for i, c := range contents {
		out[i] = pdf.TextFragment{Content: c, OrderIndex: i}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Hello World":      "helloworld",
		"  Tab\tNew\nL ":   "tabnewl",
		"Cafe\u0301":       "caf\u00e9",
		"\u00c9COLE":       "\u00e9cole",
		"":                 "",
	}
	for in, want := range tests {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestText(t *testing.T) {
	fragments := frags("Intro ", "Hello ", "Wor", "ld", "!")
	boxes := staticBoxes{rects: []pdf.Rect{
		pdf.NewRect(100, 50, 60, 12),
		pdf.NewRect(100, 70, 60, 12),
		pdf.NewRect(160, 70, 30, 12),
		pdf.NewRect(190, 70, 20, 14),
		pdf.NewRect(210, 70, 10, 12),
	}}
	origin := pdf.Point{X: 100, Y: 40}

	tests := []struct {
		name   string
		target string
		want   Result
	}{
		{
			name:   "window across fragments",
			target: "hello world",
			want: Result{
				Rects:  []pdf.Rect{pdf.NewRect(0, 30, 110, 14)},
				Status: Found,
			},
		},
		{
			name:   "single fragment",
			target: "WOR",
			want: Result{
				Rects:  []pdf.Rect{pdf.NewRect(60, 30, 30, 12)},
				Status: Found,
			},
		},
		{
			name:   "partial fragment does not match",
			target: "ello",
			want:   Result{Status: NotFound},
		},
		{
			name:   "empty target",
			target: "   ",
			want:   Result{Status: NotFound},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text(tt.target, fragments, boxes, origin)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Text() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextFirstMatchWins(t *testing.T) {
	fragments := frags("ab", "ab")
	boxes := staticBoxes{rects: []pdf.Rect{
		pdf.NewRect(0, 0, 10, 10),
		pdf.NewRect(0, 20, 10, 10),
	}}
	got := Text("AB", fragments, boxes, pdf.Point{})
	if got.Status != Found || got.Rects[0].Top != 0 {
		t.Errorf("Text() = %+v, want the first fragment", got)
	}
}

func TestTextStale(t *testing.T) {
	fragments := frags("Hello")
	if got := Text("hello", fragments, staticBoxes{detached: true, rects: []pdf.Rect{{}}}, pdf.Point{}); got.Status != Stale {
		t.Errorf("detached boxes: Status = %v, want %v", got.Status, Stale)
	}
	if got := Text("hello", fragments, staticBoxes{}, pdf.Point{}); got.Status != Stale {
		t.Errorf("missing boxes: Status = %v, want %v", got.Status, Stale)
	}
}

func TestImage(t *testing.T) {
	img := pdf.PageImageObject{
		BBox: pdf.ImageBBox{X: 100, Y: 200, Width: 50, Height: 40},
	}
	vp := Viewport{Width: 612, Height: 792, RenderedWidth: 1224}

	got := Image(img, vp)
	// viewportY = 792 - 200 - 40 = 552, scale 2
	want := Result{
		Rects:  []pdf.Rect{pdf.NewRect(200, 1104, 100, 80)},
		Status: Found,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Image() mismatch (-want +got):\n%s", diff)
	}
}

func TestImageUnlocatable(t *testing.T) {
	img := pdf.PageImageObject{Index: 3}
	if Interactive(img) {
		t.Error("zero bbox image reported as interactive")
	}
	got := Image(img, Viewport{Width: 612, Height: 792, RenderedWidth: 612})
	if got.Status != NotFound || len(got.Rects) != 0 {
		t.Errorf("Image() = %+v, want not found", got)
	}
}

func TestImageNoViewport(t *testing.T) {
	img := pdf.PageImageObject{BBox: pdf.ImageBBox{X: 1, Y: 1, Width: 1, Height: 1}}
	if got := Image(img, Viewport{}); got.Status != Stale {
		t.Errorf("Status = %v, want %v", got.Status, Stale)
	}
}
