package page

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/tiff"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/content"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// Extraction is the page objects list of one render
type Extraction struct {
	RenderID   uint64
	PageNumber int
	Objects    pdf.PageObjects
	// Underflows counts restores that found the transform stack empty
	Underflows int
}

// Extract builds the page objects list: one text object per fragment and
// one image object per paint-image operator. Pixel data is fetched for
// every locatable image with a resource name.
func (r *Renderer) Extract(ctx context.Context, rd *Render) (*Extraction, error) {
	texts := make([]pdf.TextObject, len(rd.Fragments))
	for i, f := range rd.Fragments {
		texts[i] = pdf.TextObject{
			Str: f.Content,
			BBox: pdf.TextBBox{
				X:          f.X,
				Y:          f.Y,
				FontHeight: f.FontSize,
			},
		}
	}

	tracker := content.NewTracker()
	images := tracker.Replay(rd.Operators)

	log := r.log.WithFields(logrus.Fields{"page": rd.PageNumber, "render": rd.ID})
	for i := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := &images[i]
		if img.SourceName == "" || !img.Locatable() {
			continue
		}
		data, err := rd.page.GetImage(img.SourceName)
		if err != nil {
			log.WithError(err).WithField("image", img.SourceName).Debug("no pixel data")
			continue
		}
		url, err := DataURL(data)
		if err != nil {
			log.WithError(err).WithField("image", img.SourceName).Debug("image not convertible")
			continue
		}
		img.DataURL = url
	}

	if n := tracker.Underflows(); n > 0 {
		log.WithField("underflows", n).Warn("unbalanced restore operators in content stream")
	}

	return &Extraction{
		RenderID:   rd.ID,
		PageNumber: rd.PageNumber,
		Objects:    pdf.PageObjects{Texts: texts, Images: images},
		Underflows: tracker.Underflows(),
	}, nil
}

// DataURL re-encodes an image payload as a base64 PNG data URL
func DataURL(img *pdf.Image) (string, error) {
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("empty image")
	}

	var decoded image.Image
	var err error
	switch strings.ToLower(img.FileType) {
	case "png":
		return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.Data), nil
	case "tif", "tiff":
		decoded, err = tiff.Decode(bytes.NewReader(img.Data))
	default:
		decoded, _, err = image.Decode(bytes.NewReader(img.Data))
	}
	if err != nil {
		return "", fmt.Errorf("failed to decode %s image %q: %w", img.FileType, img.Name, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return "", fmt.Errorf("failed to encode image %q: %w", img.Name, err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
