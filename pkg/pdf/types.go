package pdf

import (
	"regexp"
)

// ObjectType represents the type of a page object
type ObjectType string

const (
	ObjectTypeText  ObjectType = "text"
	ObjectTypeImage ObjectType = "image"
)

// BoundingBox represents a rectangular area in page space.
// Y grows upward, as in PDF user space.
type BoundingBox struct {
	X0 float64 // Left
	Y0 float64 // Bottom
	X1 float64 // Right
	Y1 float64 // Top
}

// Width returns the width of the bounding box
func (b BoundingBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the height of the bounding box
func (b BoundingBox) Height() float64 {
	return b.Y1 - b.Y0
}

// Contains checks if a point is within the bounding box
func (b BoundingBox) Contains(x, y float64) bool {
	return x >= b.X0 && x <= b.X1 && y >= b.Y0 && y <= b.Y1
}

// Intersects checks if two bounding boxes intersect
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return !(b.X1 < other.X0 || b.X0 > other.X1 || b.Y1 < other.Y0 || b.Y0 > other.Y1)
}

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Rect is a highlight rectangle in pixels, relative to the top-left corner
// of the page container at the time it was computed.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// NewRect builds a Rect from its top-left corner and size.
func NewRect(left, top, width, height float64) Rect {
	return Rect{
		Left:   left,
		Top:    top,
		Width:  width,
		Height: height,
		Right:  left + width,
		Bottom: top + height,
		X:      left,
		Y:      top,
	}
}

// Translate returns the rectangle moved by (-origin.X, -origin.Y).
func (r Rect) Translate(origin Point) Rect {
	return NewRect(r.Left-origin.X, r.Top-origin.Y, r.Width, r.Height)
}

// Union returns the smallest rectangle covering r and other.
func (r Rect) Union(other Rect) Rect {
	left := min(r.Left, other.Left)
	top := min(r.Top, other.Top)
	right := max(r.Right, other.Right)
	bottom := max(r.Bottom, other.Bottom)
	return NewRect(left, top, right-left, bottom-top)
}

// TextFragment is one atomic rendered text run of a page, in reading order.
type TextFragment struct {
	Content    string `json:"content"`
	OrderIndex int    `json:"orderIndex"`
}

// OffsetRange is a half-open [Start, End) interval of code points in the
// concatenated text of a page's fragments.
type OffsetRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of characters covered by the range
func (r OffsetRange) Len() int {
	return r.End - r.Start
}

// Valid reports whether 0 <= Start <= End.
func (r OffsetRange) Valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// ImageBBox is the page-space placement of a painted image.
type ImageBBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero reports whether the box carries no position at all.
func (b ImageBBox) IsZero() bool {
	return b.X == 0 && b.Y == 0 && b.Width == 0 && b.Height == 0
}

// PageImageObject is an image painted by the page's operator list.
type PageImageObject struct {
	Index         int        `json:"index"`
	OperatorIndex int        `json:"operatorIndex"`
	BBox          ImageBBox  `json:"bbox"`
	Transform     [6]float64 `json:"transform"`
	SourceName    string     `json:"name,omitempty"`
	DataURL       string     `json:"dataUrl,omitempty"`
}

// GetType returns the object type
func (i PageImageObject) GetType() ObjectType {
	return ObjectTypeImage
}

// Locatable reports whether the image has a usable position.
func (i PageImageObject) Locatable() bool {
	return !i.BBox.IsZero()
}

// TextBBox is the baseline origin of a text object in page space.
type TextBBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	FontHeight float64 `json:"fontHeight,omitempty"`
}

// TextObject is a text entry of the page objects list.
type TextObject struct {
	Str  string   `json:"str"`
	BBox TextBBox `json:"bbox"`
}

// GetType returns the object type
func (t TextObject) GetType() ObjectType {
	return ObjectTypeText
}

// PageObjects holds the text and image objects extracted from one page.
type PageObjects struct {
	Texts  []TextObject      `json:"texts"`
	Images []PageImageObject `json:"images"`
}

// Metadata represents PDF document metadata
type Metadata struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
	Version      string `json:"version,omitempty"`
	NumPages     int    `json:"numPages"`
}

var pdfDateRe = regexp.MustCompile(`^D:(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})?`)

// FormatDate renders a PDF date string (D:YYYYMMDDHHmmSS...) as
// "dd/mm/yyyy hh:mm". Strings that do not look like PDF dates are returned
// unchanged.
func FormatDate(s string) string {
	m := pdfDateRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	minute := m[5]
	if minute == "" {
		minute = "00"
	}
	return m[3] + "/" + m[2] + "/" + m[1] + " " + m[4] + ":" + minute
}

// TextRun is a positioned run of glyphs as reported by a text source.
// X, Y is the baseline origin in page space and W the advance width.
type TextRun struct {
	Font     string
	FontSize float64
	X        float64
	Y        float64
	W        float64
	S        string
}
