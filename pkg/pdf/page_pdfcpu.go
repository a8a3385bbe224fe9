package pdf

import (
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFCPUPage implements the Page interface on top of a pdfcpu context
type PDFCPUPage struct {
	ctx        *model.Context
	pageNumber int
	pageDict   types.Dict
	resources  types.Dict
	width      float64
	height     float64
	rotation   int
	text       textSource

	imagesOnce sync.Once
	images     map[string]*Image
	imagesErr  error
}

// NewPDFCPUPage creates a new page using pdfcpu context
func NewPDFCPUPage(ctx *model.Context, pageNumber int, text textSource) (*PDFCPUPage, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}

	if pageNumber < 1 || pageNumber > ctx.PageCount {
		return nil, fmt.Errorf("page number %d out of range [1, %d]", pageNumber, ctx.PageCount)
	}

	// Get page dictionary and inherited attributes
	pageDict, _, attrs, err := ctx.PageDict(pageNumber, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dict: %w", err)
	}

	// Default US Letter size
	width, height := 612.0, 792.0
	if attrs != nil && attrs.MediaBox != nil {
		width = attrs.MediaBox.Width()
		height = attrs.MediaBox.Height()
	}

	page := &PDFCPUPage{
		ctx:        ctx,
		pageNumber: pageNumber,
		pageDict:   pageDict,
		width:      width,
		height:     height,
		text:       text,
	}

	// Inherited attributes first, then the page dict
	if attrs != nil {
		page.rotation = attrs.Rotate
		page.resources = attrs.Resources
	} else if rot := pageDict["Rotate"]; rot != nil {
		if rotInt, ok := rot.(types.Integer); ok {
			page.rotation = int(rotInt)
		}
	}
	if page.resources == nil {
		if res, err := ctx.DereferenceDict(pageDict["Resources"]); err == nil {
			page.resources = res
		}
	}

	return page, nil
}

// GetPageNumber returns the page number (1-based)
func (p *PDFCPUPage) GetPageNumber() int {
	return p.pageNumber
}

// GetWidth returns the page width
func (p *PDFCPUPage) GetWidth() float64 {
	return p.width
}

// GetHeight returns the page height
func (p *PDFCPUPage) GetHeight() float64 {
	return p.height
}

// GetRotation returns the page rotation in degrees
func (p *PDFCPUPage) GetRotation() int {
	return p.rotation
}

// TextRuns returns the positioned glyph runs reported by the text source
func (p *PDFCPUPage) TextRuns() ([]TextRun, error) {
	if p.text == nil {
		return nil, nil
	}
	return p.text.Runs(p.pageNumber)
}

// Content returns the decoded content streams of the page
func (p *PDFCPUPage) Content() ([]byte, error) {
	r, err := pdfcpu.ExtractPageContent(p.ctx, p.pageNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to extract content of page %d: %w", p.pageNumber, err)
	}
	if r == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of page %d: %w", p.pageNumber, err)
	}
	return data, nil
}

// XObject resolves an XObject in the page resources
func (p *PDFCPUPage) XObject(name string) (*XObject, error) {
	return resolveXObject(p.ctx, p.resources, name)
}

// GetImage returns the encoded payload of the named image XObject
func (p *PDFCPUPage) GetImage(name string) (*Image, error) {
	p.imagesOnce.Do(p.loadImages)
	if p.imagesErr != nil {
		return nil, p.imagesErr
	}
	img, ok := p.images[name]
	if !ok {
		return nil, fmt.Errorf("%w: image %q on page %d", ErrNoXObject, name, p.pageNumber)
	}
	return img, nil
}

// loadImages extracts all images of the page once
func (p *PDFCPUPage) loadImages() {
	extracted, err := pdfcpu.ExtractPageImages(p.ctx, p.pageNumber, false)
	if err != nil {
		p.imagesErr = fmt.Errorf("failed to extract images of page %d: %w", p.pageNumber, err)
		return
	}

	p.images = make(map[string]*Image, len(extracted))
	for _, img := range extracted {
		if img.Reader == nil {
			continue
		}
		data, err := io.ReadAll(img)
		if err != nil {
			continue
		}
		p.images[img.Name] = &Image{
			Name:     img.Name,
			FileType: img.FileType,
			Width:    img.Width,
			Height:   img.Height,
			Data:     data,
		}
	}
}

// formResolver resolves names against a form XObject's own resources
type formResolver struct {
	ctx       *model.Context
	resources types.Dict
}

func (r formResolver) XObject(name string) (*XObject, error) {
	return resolveXObject(r.ctx, r.resources, name)
}

// resolveXObject looks up name in the XObject subdictionary of resources
func resolveXObject(ctx *model.Context, resources types.Dict, name string) (*XObject, error) {
	if resources == nil {
		return nil, fmt.Errorf("%w: %q (no resources)", ErrNoXObject, name)
	}
	xobjects, err := ctx.DereferenceDict(resources["XObject"])
	if err != nil || xobjects == nil {
		return nil, fmt.Errorf("%w: %q (no XObject dictionary)", ErrNoXObject, name)
	}
	entry, ok := xobjects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoXObject, name)
	}

	sd, _, err := ctx.DereferenceStreamDict(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference xobject %q: %w", name, err)
	}
	if sd == nil {
		return nil, fmt.Errorf("%w: %q", ErrNoXObject, name)
	}

	xobj := &XObject{Name: name, Matrix: [6]float64{1, 0, 0, 1, 0, 0}}
	subtype := sd.Dict.NameEntry("Subtype")
	switch {
	case subtype == nil:
		xobj.Kind = XObjectOther
	case *subtype == "Image":
		xobj.Kind = XObjectImage
	case *subtype == "Form":
		xobj.Kind = XObjectForm
		if m := sd.Dict.ArrayEntry("Matrix"); len(m) == 6 {
			for i, v := range m {
				xobj.Matrix[i] = numberValue(v)
			}
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("failed to decode form %q: %w", name, err)
		}
		xobj.Content = sd.Content
		formRes, _ := ctx.DereferenceDict(sd.Dict["Resources"])
		if formRes == nil {
			formRes = resources
		}
		xobj.Resources = formResolver{ctx: ctx, resources: formRes}
	}

	return xobj, nil
}

func numberValue(o types.Object) float64 {
	switch v := o.(type) {
	case types.Float:
		return v.Value()
	case types.Integer:
		return float64(v.Value())
	}
	return 0
}
