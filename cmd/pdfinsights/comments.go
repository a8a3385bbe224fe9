package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// CommentCmd groups the comment commands
type CommentCmd struct {
	Add    CommentAddCmd    `cmd:"" help:"Comment a text range of a page."`
	List   CommentListCmd   `cmd:"" help:"List comments."`
	Export CommentExportCmd `cmd:"" help:"Write all comments as JSON."`
	Import CommentImportCmd `cmd:"" help:"Replace the comments with a JSON export."`
}

// CommentAddCmd comments a range given by offsets or by its text
type CommentAddCmd struct {
	PageArgs `embed:""`
	Start    int    `default:"-1" help:"Start offset in the page text."`
	End      int    `default:"-1" help:"End offset in the page text."`
	Text     string `help:"Comment the first occurrence of this text instead of an offset range."`
	Comment  string `short:"m" required:"" help:"Comment body."`
}

func (c *CommentAddCmd) Run(app *App) error {
	w, err := c.show(context.Background(), app)
	if err != nil {
		return err
	}
	defer w.Close()

	var r pdf.OffsetRange
	switch {
	case c.Text != "":
		if r, err = findText(w, c.Text); err != nil {
			return err
		}
	case c.Start >= 0 && c.End >= 0:
		r = pdf.OffsetRange{Start: c.Start, End: c.End}
	default:
		return errors.New("either --text or both --start and --end are required")
	}

	sel, text, err := selection(w, r)
	if err != nil {
		return err
	}
	if w.Session.HandleSelection(sel, text, false) == nil {
		return fmt.Errorf("selection %d..%d could not be resolved", r.Start, r.End)
	}
	added, err := w.Session.AddComment(c.Comment)
	if err != nil {
		return err
	}
	if !added {
		return errors.New("comment not added: empty selection or comment")
	}
	app.printf("comment added to page %d at %d..%d: %q\n", c.Page, r.Start, r.End, text)
	return nil
}

// CommentListCmd lists the comments of one page or of all pages
type CommentListCmd struct {
	File string `arg:"" type:"existingfile" help:"PDF file."`
	Page int    `short:"p" help:"Only list comments of this page."`
}

func (c *CommentListCmd) Run(app *App) error {
	w, err := app.open(c.File)
	if err != nil {
		return err
	}
	defer w.Close()

	comments := w.Session.Comments().All()
	if c.Page > 0 {
		comments = w.Session.Comments().ListForPage(c.Page)
	}
	if app.JSON {
		return app.printJSON(comments)
	}
	for i, cm := range comments {
		app.printf("%3d p.%d [%d,%d) %q: %s (%s)\n",
			i, cm.Page, cm.Offsets.Start, cm.Offsets.End, cm.Text, cm.Comment, cm.Timestamp)
	}
	return nil
}

// CommentExportCmd writes the comment list
type CommentExportCmd struct {
	File   string `arg:"" type:"existingfile" help:"PDF file."`
	Output string `short:"o" type:"path" help:"Output file. Defaults to standard output."`
}

func (c *CommentExportCmd) Run(app *App) error {
	w, err := app.open(c.File)
	if err != nil {
		return err
	}
	defer w.Close()

	data, err := w.Session.Comments().Serialize()
	if err != nil {
		return err
	}
	if c.Output == "" {
		_, err = fmt.Fprintln(app.out, string(data))
		return err
	}
	return os.WriteFile(c.Output, data, 0o644)
}

// CommentImportCmd replaces the comment list
type CommentImportCmd struct {
	File  string `arg:"" type:"existingfile" help:"PDF file."`
	Input string `arg:"" type:"existingfile" help:"JSON export to import."`
}

func (c *CommentImportCmd) Run(app *App) error {
	data, err := os.ReadFile(c.Input)
	if err != nil {
		return err
	}
	w, err := app.open(c.File)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Session.ImportComments(data); err != nil {
		return err
	}
	app.printf("imported %d comments\n", w.Session.Comments().Len())
	return nil
}
