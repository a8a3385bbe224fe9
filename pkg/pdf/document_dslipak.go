package pdf

import (
	"fmt"

	gopdf "github.com/dslipak/pdf"
)

// dslipakSource reads positioned text runs with the dslipak/pdf library.
// It is used when ledongthuc/pdf cannot open a file.
type dslipakSource struct {
	reader *gopdf.Reader
}

// openDslipak opens a PDF file using the dslipak/pdf library
func openDslipak(filepath string) (*dslipakSource, error) {
	r, err := gopdf.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with dslipak: %w", err)
	}
	return &dslipakSource{reader: r}, nil
}

// NumPage returns the number of pages
func (s *dslipakSource) NumPage() int {
	return s.reader.NumPage()
}

// Runs returns the text items of a page
func (s *dslipakSource) Runs(pageNumber int) (runs []TextRun, err error) {
	if pageNumber < 1 || pageNumber > s.reader.NumPage() {
		return nil, fmt.Errorf("%w: page %d", ErrPageRange, pageNumber)
	}

	page := s.reader.Page(pageNumber)
	if page.V.IsNull() {
		return nil, nil
	}

	defer func() {
		if r := recover(); r != nil {
			runs = nil
			err = fmt.Errorf("failed to read text of page %d: %v", pageNumber, r)
		}
	}()

	for _, t := range page.Content().Text {
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

// Close is a no-op; the reader does not need explicit closing
func (s *dslipakSource) Close() error {
	return nil
}
