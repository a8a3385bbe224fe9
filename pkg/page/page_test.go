package page

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/tiff"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/textmap"
)

type fakePage struct {
	number  int
	width   float64
	height  float64
	runs    []pdf.TextRun
	content string
	xobjs   map[string]*pdf.XObject
	images  map[string]*pdf.Image
}

func (p *fakePage) GetPageNumber() int               { return p.number }
func (p *fakePage) GetWidth() float64                { return p.width }
func (p *fakePage) GetHeight() float64               { return p.height }
func (p *fakePage) GetRotation() int                 { return 0 }
func (p *fakePage) TextRuns() ([]pdf.TextRun, error) { return p.runs, nil }
func (p *fakePage) Content() ([]byte, error)         { return []byte(p.content), nil }

func (p *fakePage) XObject(name string) (*pdf.XObject, error) {
	if x, ok := p.xobjs[name]; ok {
		return x, nil
	}
	return nil, fmt.Errorf("%w: %q", pdf.ErrNoXObject, name)
}

func (p *fakePage) GetImage(name string) (*pdf.Image, error) {
	if img, ok := p.images[name]; ok {
		return img, nil
	}
	return nil, fmt.Errorf("%w: %q", pdf.ErrNoXObject, name)
}

type fakeDoc struct {
	pages []*fakePage
}

func (d *fakeDoc) GetMetadata() pdf.Metadata { return pdf.Metadata{NumPages: len(d.pages)} }
func (d *fakeDoc) PageCount() int            { return len(d.pages) }
func (d *fakeDoc) Close() error              { return nil }

func (d *fakeDoc) GetPage(index int) (pdf.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("%w: %d", pdf.ErrPageRange, index)
	}
	return d.pages[index], nil
}

func glyphRuns(font string, x, y, size, w float64, text string) []pdf.TextRun {
	var runs []pdf.TextRun
	for _, r := range text {
		runs = append(runs, pdf.TextRun{Font: font, FontSize: size, X: x, Y: y, W: w, S: string(r)})
		x += w
	}
	return runs
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testTIFF(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestDoc(t *testing.T) *fakeDoc {
	var runs []pdf.TextRun
	runs = append(runs, glyphRuns("F1", 72, 700, 10, 5, "Hello ")...)
	runs = append(runs, glyphRuns("F2", 102, 700, 10, 5, "World")...)

	return &fakeDoc{pages: []*fakePage{{
		number:  1,
		width:   612,
		height:  792,
		runs:    runs,
		content: "q 100 0 0 50 30 40 cm /Im1 Do Q q 10 0 0 10 0 0 cm /Im2 Do Q /Missing Do",
		xobjs: map[string]*pdf.XObject{
			"Im1": {Name: "Im1", Kind: pdf.XObjectImage},
			"Im2": {Name: "Im2", Kind: pdf.XObjectImage},
		},
		images: map[string]*pdf.Image{
			"Im1": {Name: "Im1", FileType: "png", Data: testPNG(t)},
			"Im2": {Name: "Im2", FileType: "tif", Data: testTIFF(t)},
		},
	}}}
}

func TestRender(t *testing.T) {
	r := NewRenderer(newTestDoc(t))
	rd, err := r.Render(context.Background(), 1, Options{Scale: 2, Origin: pdf.Point{X: 10, Y: 20}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if rd.Index.Text() != "Hello World" || rd.Index.Len() != 2 {
		t.Errorf("index text = %q with %d fragments", rd.Index.Text(), rd.Index.Len())
	}
	if rd.Index.RenderID() != rd.ID {
		t.Errorf("index render = %d, want %d", rd.Index.RenderID(), rd.ID)
	}

	select {
	case <-rd.Ready():
	default:
		t.Fatal("synchronous render not ready")
	}

	box, ok := rd.Layout().Box(0)
	if !ok {
		t.Fatal("no box for fragment 0")
	}
	// Box spans the baseline from -0.2 to +0.8 of the font size
	want := pdf.NewRect(10+72*2, 20+(792-708)*2, 30*2, 10*2)
	if diff := cmp.Diff(want, box, cmpApprox()); diff != "" {
		t.Errorf("fragment box mismatch (-want +got):\n%s", diff)
	}

	rects := textmap.Decode(pdf.OffsetRange{Start: 2, End: 8}, rd.Index, rd.Layout(), rd.Origin)
	if len(rects) != 2 {
		t.Fatalf("Decode() returned %d rectangles, want 2", len(rects))
	}
	if rects[0].Left != 72*2+2*5*2 {
		t.Errorf("first rectangle starts at %v", rects[0].Left)
	}

	next, err := r.Render(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if next.ID <= rd.ID {
		t.Errorf("render IDs not increasing: %d then %d", rd.ID, next.ID)
	}
}

func TestRenderPageRange(t *testing.T) {
	r := NewRenderer(newTestDoc(t))
	if _, err := r.Render(context.Background(), 2, Options{}); err == nil {
		t.Error("Render() of a missing page succeeded")
	}
}

func TestRenderAsyncAndDetach(t *testing.T) {
	r := NewRenderer(newTestDoc(t), WithAsyncLayout())
	rd, err := r.Render(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	select {
	case <-rd.Ready():
	case <-time.After(time.Second):
		t.Fatal("layout never attached")
	}
	if rd.Layout() == nil {
		t.Fatal("Layout() is nil after Ready")
	}

	rd.Detach()
	if !rd.Layout().Detached() {
		t.Error("layout still attached after Detach")
	}
	if rects := textmap.Decode(pdf.OffsetRange{Start: 0, End: 3}, rd.Index, rd.Layout(), rd.Origin); len(rects) != 0 {
		t.Errorf("detached render decoded %d rectangles", len(rects))
	}
}

func TestExtract(t *testing.T) {
	r := NewRenderer(newTestDoc(t))
	rd, err := r.Render(context.Background(), 1, Options{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	ex, err := r.Extract(context.Background(), rd)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	wantTexts := []pdf.TextObject{
		{Str: "Hello ", BBox: pdf.TextBBox{X: 72, Y: 700, FontHeight: 10}},
		{Str: "World", BBox: pdf.TextBBox{X: 102, Y: 700, FontHeight: 10}},
	}
	if diff := cmp.Diff(wantTexts, ex.Objects.Texts); diff != "" {
		t.Errorf("texts mismatch (-want +got):\n%s", diff)
	}

	images := ex.Objects.Images
	if len(images) != 3 {
		t.Fatalf("got %d images, want 3", len(images))
	}
	if diff := cmp.Diff(pdf.ImageBBox{X: 30, Y: 40, Width: 100, Height: 50}, images[0].BBox); diff != "" {
		t.Errorf("Im1 bbox mismatch (-want +got):\n%s", diff)
	}
	for i, img := range images[:2] {
		if !strings.HasPrefix(img.DataURL, "data:image/png;base64,") {
			t.Errorf("image %d DataURL = %.40q", i, img.DataURL)
		}
	}
	if images[2].SourceName != "Missing" || images[2].DataURL != "" {
		t.Errorf("unresolved image = %+v", images[2])
	}
	if ex.Underflows != 0 {
		t.Errorf("Underflows = %d", ex.Underflows)
	}
}

func TestDataURL(t *testing.T) {
	url, err := DataURL(&pdf.Image{Name: "t", FileType: "tif", Data: testTIFF(t)})
	if err != nil {
		t.Fatalf("DataURL() error = %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	if err != nil {
		t.Fatalf("payload is not base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("width = %d, want 3", img.Bounds().Dx())
	}

	if _, err := DataURL(&pdf.Image{Name: "bad", FileType: "jpg", Data: []byte("nope")}); err == nil {
		t.Error("DataURL() accepted garbage")
	}
	if _, err := DataURL(nil); err == nil {
		t.Error("DataURL(nil) succeeded")
	}
}

func cmpApprox() cmp.Option {
	return cmp.Comparer(func(a, b float64) bool {
		d := a - b
		return d < 1e-9 && d > -1e-9
	})
}
