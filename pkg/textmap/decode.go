package textmap

import (
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Decode rebuilds the rectangles covering r against the current render.
// Each end of r is anchored in the first fragment whose range contains it.
// Rectangles are translated so container is the origin. Decode never
// fails: anything it cannot resolve yields no rectangles.
func Decode(r pdf.OffsetRange, idx *Index, layout Layout, container pdf.Point) []pdf.Rect {
	rects, _ := DecodeErr(r, idx, layout, container)
	return rects
}

// DecodeErr is Decode that also reports why no rectangles were produced
func DecodeErr(r pdf.OffsetRange, idx *Index, layout Layout, container pdf.Point) ([]pdf.Rect, error) {
	if idx == nil || layout == nil {
		return nil, ErrDetached
	}
	if !r.Valid() {
		return nil, ErrAnchor
	}

	sf := idx.Find(r.Start)
	ef := idx.Find(r.End)
	if sf < 0 || ef < 0 {
		return nil, ErrAnchor
	}
	start := Anchor{Fragment: sf, Offset: r.Start - idx.Range(sf).Start}
	end := Anchor{Fragment: ef, Offset: r.End - idx.Range(ef).Start}

	client, err := layout.ClientRects(start, end)
	if err != nil {
		return nil, err
	}

	rects := make([]pdf.Rect, 0, len(client))
	for _, c := range client {
		rects = append(rects, c.Translate(container))
	}
	return rects, nil
}
