package textmap

import (
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Endpoint is one end of a live selection: a fragment of the current render
// and a character offset inside it. Fragment < 0 means the endpoint could
// not be tied to a fragment.
type Endpoint struct {
	Fragment int
	Offset   int
}

// Unresolved is an endpoint that does not refer to any fragment
var Unresolved = Endpoint{Fragment: -1}

// Selection is a live text selection against one render pass
type Selection struct {
	RenderID uint64
	Start    Endpoint
	End      Endpoint
	// Intersected lists the fragments touched by the selection, used when
	// an endpoint is unresolved
	Intersected []int
}

// Encode converts a selection into absolute offsets. It returns nil when the
// selection cannot be resolved or was taken against another render. A
// non-nil result satisfies 0 <= Start <= End <= idx.Total().
func Encode(sel Selection, idx *Index) *pdf.OffsetRange {
	if idx == nil || sel.RenderID != idx.RenderID() {
		return nil
	}

	start, okStart := absolute(sel.Start, idx)
	end, okEnd := absolute(sel.End, idx)
	if okStart && okEnd {
		if start > end {
			start, end = end, start
		}
		return &pdf.OffsetRange{Start: start, End: end}
	}

	first, last := -1, -1
	for _, i := range sel.Intersected {
		if i < 0 || i >= idx.Len() {
			continue
		}
		if first == -1 || i < first {
			first = i
		}
		if i > last {
			last = i
		}
	}
	if first == -1 {
		return nil
	}
	return &pdf.OffsetRange{Start: idx.Range(first).Start, End: idx.Range(last).End}
}

// absolute resolves an endpoint, clamping its local offset into the fragment
func absolute(ep Endpoint, idx *Index) (int, bool) {
	if ep.Fragment < 0 || ep.Fragment >= idx.Len() {
		return 0, false
	}
	r := idx.Range(ep.Fragment)
	local := min(max(ep.Offset, 0), r.Len())
	return r.Start + local, true
}
