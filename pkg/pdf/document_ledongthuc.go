package pdf

import (
	"fmt"
	"io"

	lpdf "github.com/ledongthuc/pdf"
)

// ledongthucSource reads positioned text runs with the ledongthuc/pdf library
type ledongthucSource struct {
	file   io.Closer
	reader *lpdf.Reader
}

// openLedongthuc opens a PDF file using the ledongthuc/pdf library
func openLedongthuc(filepath string) (*ledongthucSource, error) {
	f, r, err := lpdf.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with ledongthuc: %w", err)
	}
	return &ledongthucSource{file: f, reader: r}, nil
}

// NumPage returns the number of pages
func (s *ledongthucSource) NumPage() int {
	return s.reader.NumPage()
}

// Runs returns the text items of a page. The library reports one item per
// shown glyph, with X, Y at the baseline origin in page space.
func (s *ledongthucSource) Runs(pageNumber int) (runs []TextRun, err error) {
	if pageNumber < 1 || pageNumber > s.reader.NumPage() {
		return nil, fmt.Errorf("%w: page %d", ErrPageRange, pageNumber)
	}

	page := s.reader.Page(pageNumber)
	if page.V.IsNull() {
		return nil, nil
	}

	// The interpreter panics on malformed content streams
	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = fmt.Errorf("failed to read text of page %d: %v", pageNumber, r)
		}
	}()

	content := page.Content()
	runs = make([]TextRun, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		runs = append(runs, TextRun{
			Font:     t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			S:        t.S,
		})
	}
	return runs, nil
}

// Close releases the underlying file
func (s *ledongthucSource) Close() error {
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
