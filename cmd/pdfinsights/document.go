package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pyhub-apps/pdfinsights-golang"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/locate"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/textmap"
)

// PageArgs selects a document page
type PageArgs struct {
	File string `arg:"" type:"existingfile" help:"PDF file."`
	Page int    `short:"p" default:"1" help:"Page number, starting at 1."`
}

func (p PageArgs) show(ctx context.Context, app *App) (*pdfinsights.Workspace, error) {
	w, err := app.open(p.File)
	if err != nil {
		return nil, err
	}
	if err := w.Session.GoToPage(ctx, p.Page); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// InfoCmd prints document metadata
type InfoCmd struct {
	File string `arg:"" type:"existingfile" help:"PDF file."`
}

func (c *InfoCmd) Run(app *App) error {
	w, err := app.open(c.File)
	if err != nil {
		return err
	}
	defer w.Close()

	md := w.Document.GetMetadata()
	if app.JSON {
		return app.printJSON(md)
	}
	rows := [][2]string{
		{"Title", md.Title},
		{"Author", md.Author},
		{"Subject", md.Subject},
		{"Keywords", md.Keywords},
		{"Creator", md.Creator},
		{"Producer", md.Producer},
		{"Created", pdf.FormatDate(md.CreationDate)},
		{"Modified", pdf.FormatDate(md.ModDate)},
		{"PDF version", md.Version},
		{"Pages", fmt.Sprint(md.NumPages)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		app.printf("%-12s %s\n", r[0]+":", r[1])
	}
	return nil
}

// TextCmd prints the fragments of a page
type TextCmd struct {
	PageArgs `embed:""`
}

func (c *TextCmd) Run(app *App) error {
	w, err := c.show(context.Background(), app)
	if err != nil {
		return err
	}
	defer w.Close()

	idx := w.Session.Render().Index
	if app.JSON {
		type fragment struct {
			pdf.TextFragment
			Offsets pdf.OffsetRange `json:"offsets"`
		}
		out := make([]fragment, idx.Len())
		for i := range out {
			out[i] = fragment{TextFragment: idx.Fragment(i), Offsets: idx.Range(i)}
		}
		return app.printJSON(out)
	}
	for i := 0; i < idx.Len(); i++ {
		r := idx.Range(i)
		app.printf("%4d [%d,%d) %q\n", i, r.Start, r.End, idx.Fragment(i).Content)
	}
	return nil
}

// ObjectsCmd lists the page objects
type ObjectsCmd struct {
	PageArgs `embed:""`
	Cached bool `help:"Print the stored objects without rendering the page."`
}

func (c *ObjectsCmd) Run(app *App) error {
	if c.Cached {
		w, err := app.open(c.File)
		if err != nil {
			return err
		}
		defer w.Close()
		objs, ok := w.Session.Objects(c.Page)
		if !ok {
			return fmt.Errorf("no stored objects for page %d", c.Page)
		}
		return app.printObjects(objs)
	}

	w, err := c.show(context.Background(), app)
	if err != nil {
		return err
	}
	defer w.Close()
	ex := w.Session.Extraction()
	if ex.Underflows > 0 {
		app.log.WithField("underflows", ex.Underflows).Warn("content stream restores more states than it saves")
	}
	return app.printObjects(ex.Objects)
}

func (a *App) printObjects(objs pdf.PageObjects) error {
	if a.JSON {
		return a.printJSON(objs)
	}
	a.printf("Texts (%d)\n", len(objs.Texts))
	for i, t := range objs.Texts {
		a.printf("%4d (%.1f, %.1f) %q\n", i, t.BBox.X, t.BBox.Y, t.Str)
	}
	a.printf("Images (%d)\n", len(objs.Images))
	for i, img := range objs.Images {
		state := "located"
		if !locate.Interactive(img) {
			state = "unlocatable"
		}
		b := img.BBox
		a.printf("%4d %-8s op %-4d x=%.1f y=%.1f w=%.1f h=%.1f %s\n",
			i, img.SourceName, img.OperatorIndex, b.X, b.Y, b.Width, b.Height, state)
	}
	return nil
}

// LocateCmd re-locates a page object
type LocateCmd struct {
	PageArgs `embed:""`
	Text  int `xor:"object" default:"-1" help:"Index of a text object."`
	Image int `xor:"object" default:"-1" help:"Index of an image object."`
}

func (c *LocateCmd) Run(app *App) error {
	ctx := context.Background()
	w, err := c.show(ctx, app)
	if err != nil {
		return err
	}
	defer w.Close()

	switch {
	case c.Text >= 0:
		err = w.Session.SelectObject(pdf.ObjectTypeText, c.Text)
	case c.Image >= 0:
		err = w.Session.SelectObject(pdf.ObjectTypeImage, c.Image)
	default:
		return errors.New("one of --text or --image is required")
	}
	if err != nil {
		return err
	}
	return app.printRects(ctx, w)
}

// HighlightCmd rebuilds the rectangles of a stored comment
type HighlightCmd struct {
	PageArgs `embed:""`
	Comment int `short:"c" required:"" help:"Index of the comment among the comments of the page."`
}

func (c *HighlightCmd) Run(app *App) error {
	ctx := context.Background()
	w, err := c.show(ctx, app)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Session.SelectComment(c.Comment); err != nil {
		return err
	}
	return app.printRects(ctx, w)
}

func (a *App) printRects(ctx context.Context, w *pdfinsights.Workspace) error {
	if err := w.Session.Wait(ctx); err != nil {
		return err
	}
	rects, status := w.Session.Rects(), w.Session.Status()
	if a.JSON {
		return a.printJSON(struct {
			Status string     `json:"status"`
			Rects  []pdf.Rect `json:"rects"`
		}{status.String(), rects})
	}
	a.printf("%s\n", status)
	for _, r := range rects {
		a.printf("left=%.2f top=%.2f width=%.2f height=%.2f\n", r.Left, r.Top, r.Width, r.Height)
	}
	return nil
}

// selection builds the selection of r against the current render
func selection(w *pdfinsights.Workspace, r pdf.OffsetRange) (textmap.Selection, string, error) {
	rd := w.Session.Render()
	idx := rd.Index
	if !r.Valid() || r.End > idx.Total() {
		return textmap.Selection{}, "", fmt.Errorf("offsets %d..%d outside the page text of length %d", r.Start, r.End, idx.Total())
	}
	sf, ef := idx.Find(r.Start), idx.Find(r.End)
	if sf < 0 || ef < 0 {
		return textmap.Selection{}, "", fmt.Errorf("page %d has no text", w.Session.PageNumber())
	}
	sel := textmap.Selection{
		RenderID: rd.ID,
		Start:    textmap.Endpoint{Fragment: sf, Offset: r.Start - idx.Range(sf).Start},
		End:      textmap.Endpoint{Fragment: ef, Offset: r.End - idx.Range(ef).Start},
	}
	return sel, idx.Slice(r), nil
}

// findText returns the offsets of the first occurrence of s in the page text
func findText(w *pdfinsights.Workspace, s string) (pdf.OffsetRange, error) {
	text := w.Session.Render().Index.Text()
	i := strings.Index(text, s)
	if s == "" || i < 0 {
		return pdf.OffsetRange{}, fmt.Errorf("%q not found on page %d", s, w.Session.PageNumber())
	}
	start := utf8.RuneCountInString(text[:i])
	return pdf.OffsetRange{Start: start, End: start + utf8.RuneCountInString(s)}, nil
}
