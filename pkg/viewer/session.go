// Package viewer holds the state of one open document: the current page,
// the pending text selection, the comments and the highlight rectangles.
//
// Geometry is computed after a settle delay, or as soon as the render
// signals its layout is attached. Every page change, selection and
// highlight request supersedes the decode still pending, so rectangles of
// an older state are never published.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/annotation"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/locate"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/page"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/textmap"
)

// DefaultSettleDelay bounds how long a deferred decode waits for the page
// layout
const DefaultSettleDelay = 100 * time.Millisecond

var (
	// ErrNoPage is returned before the first page is shown
	ErrNoPage = errors.New("no page is shown")
	// ErrNoSelection is returned when a comment is submitted without a
	// resolved selection
	ErrNoSelection = errors.New("no pending selection")
	// ErrObjectIndex is returned for unknown comment or object indices
	ErrObjectIndex = errors.New("object index out of range")
)

// Tool is the active interaction mode
type Tool int

const (
	ToolSelect Tool = iota
	ToolComment
	ToolStickyNote
)

func (t Tool) String() string {
	switch t {
	case ToolSelect:
		return "select"
	case ToolComment:
		return "comment"
	case ToolStickyNote:
		return "sticky-note"
	}
	return fmt.Sprintf("Tool(%d)", int(t))
}

// ParseTool parses a tool name
func ParseTool(s string) (Tool, error) {
	for _, t := range []Tool{ToolSelect, ToolComment, ToolStickyNote} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tool %q", s)
}

// Pending is the selection waiting for a comment
type Pending struct {
	Text    string
	Offsets *pdf.OffsetRange
}

// Session is the viewer state of one document. It is safe for concurrent
// use.
type Session struct {
	renderer *page.Renderer
	comments *annotation.Store
	docs     *storage.Documents
	pageOpts page.Options
	settle   time.Duration
	now      func() time.Time
	log      logrus.FieldLogger

	mu         sync.Mutex
	pageNumber int
	render     *page.Render
	extraction *page.Extraction
	objects    map[int]pdf.PageObjects
	analyses   []Analysis

	tool          Tool
	pending       Pending
	lastSelection string

	rects  []pdf.Rect
	status locate.Status
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session
type Option func(*Session)

// WithSettleDelay sets the longest wait for a page layout before geometry
// is computed
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) {
		s.settle = d
	}
}

// WithStorage persists comments, page objects and analyses
func WithStorage(docs *storage.Documents) Option {
	return func(s *Session) {
		s.docs = docs
	}
}

// WithComments sets the comment store
func WithComments(c *annotation.Store) Option {
	return func(s *Session) {
		s.comments = c
	}
}

// WithPageOptions sets the scale and container origin of rendered pages
func WithPageOptions(o page.Options) Option {
	return func(s *Session) {
		s.pageOpts = o
	}
}

// WithClock sets the time source of analysis timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithLogger sets the logger
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// NewSession creates a session showing no page yet
func NewSession(r *page.Renderer, opts ...Option) *Session {
	s := &Session{
		renderer: r,
		settle:   DefaultSettleDelay,
		now:      time.Now,
		log:      logrus.StandardLogger(),
		objects:  map[int]pdf.PageObjects{},
		status:   locate.NotFound,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.comments == nil {
		s.comments = annotation.NewStore()
	}
	return s
}

// Restore loads the persisted comments, page objects and analyses. State is
// only replaced by values that load and validate.
func (s *Session) Restore() error {
	if s.docs == nil {
		return nil
	}

	var raw json.RawMessage
	ok, err := s.docs.LoadComments(&raw)
	if err != nil {
		return err
	}
	if ok {
		if err := s.comments.Import(raw); err != nil {
			return fmt.Errorf("stored comments: %w", err)
		}
	}

	objects := map[int]pdf.PageObjects{}
	if _, err := s.docs.LoadImages(&objects); err != nil {
		return err
	}
	var analyses []Analysis
	if _, err := s.docs.LoadAnalyses(&analyses); err != nil {
		return err
	}

	s.mu.Lock()
	for n, o := range objects {
		s.objects[n] = o
	}
	s.analyses = analyses
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"doc":      s.docs.Name(),
		"comments": s.comments.Len(),
		"pages":    len(objects),
		"analyses": len(analyses),
	}).Debug("session restored")
	return nil
}

// PageCount returns the number of pages of the document
func (s *Session) PageCount() int {
	return s.renderer.Document().PageCount()
}

// PageNumber returns the page shown, 0 before the first GoToPage
func (s *Session) PageNumber() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageNumber
}

// Render returns the current render pass
func (s *Session) Render() *page.Render {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render
}

// GoToPage renders page n and extracts its objects. The new page is only
// published once extraction, image data included, has completed.
func (s *Session) GoToPage(ctx context.Context, n int) error {
	if n < 1 || n > s.PageCount() {
		return fmt.Errorf("%w: page %d of %d", pdf.ErrPageRange, n, s.PageCount())
	}

	s.mu.Lock()
	s.supersedeLocked()
	s.mu.Unlock()

	rd, err := s.renderer.Render(ctx, n, s.pageOpts)
	if err != nil {
		return err
	}
	ex, err := s.renderer.Extract(ctx, rd)
	if err != nil {
		rd.Detach()
		return err
	}

	s.mu.Lock()
	s.supersedeLocked()
	if s.render != nil {
		s.render.Detach()
	}
	s.pageNumber = n
	s.render = rd
	s.extraction = ex
	s.objects[n] = ex.Objects
	s.clearSelectionLocked()
	snapshot := s.objectsLocked()
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"page":   n,
		"render": rd.ID,
		"texts":  len(ex.Objects.Texts),
		"images": len(ex.Objects.Images),
	}).Info("page shown")

	if s.docs != nil {
		if err := s.docs.SaveImages(snapshot); err != nil {
			s.log.WithError(err).WithField("page", n).Warn("page objects not cached")
		}
	}
	return nil
}

// NextPage shows the following page
func (s *Session) NextPage(ctx context.Context) error {
	return s.GoToPage(ctx, s.PageNumber()+1)
}

// PreviousPage shows the preceding page
func (s *Session) PreviousPage(ctx context.Context) error {
	return s.GoToPage(ctx, s.PageNumber()-1)
}

// Objects returns the objects of page n, from the current session or from
// the persisted cache
func (s *Session) Objects(n int) (pdf.PageObjects, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[n]
	return o, ok
}

// Extraction returns the objects of the page shown
func (s *Session) Extraction() *page.Extraction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extraction
}

func (s *Session) objectsLocked() map[int]pdf.PageObjects {
	out := make(map[int]pdf.PageObjects, len(s.objects))
	for n, o := range s.objects {
		out[n] = o
	}
	return out
}

// Tool returns the active tool
func (s *Session) Tool() Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tool
}

// SetTool switches the active tool and drops the pending selection
func (s *Session) SetTool(t Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tool = t
	s.clearSelectionLocked()
}

// HandleSelection records a finished text selection. Selections only count
// with the select tool. An empty selection clears the pending one unless
// the user is interacting with the comment form. Repeating the last
// selection keeps its offsets. It returns the offsets waiting for a
// comment, nil when the selection could not be resolved.
func (s *Session) HandleSelection(sel textmap.Selection, text string, interacting bool) *pdf.OffsetRange {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tool != ToolSelect {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		if !interacting {
			s.clearSelectionLocked()
		}
		return nil
	}
	if text == s.lastSelection {
		return copyOffsets(s.pending.Offsets)
	}

	s.supersedeLocked()
	var idx *textmap.Index
	if s.render != nil {
		idx = s.render.Index
	}
	offsets := textmap.Encode(sel, idx)
	s.pending = Pending{Text: text, Offsets: offsets}
	s.lastSelection = text
	if offsets == nil {
		s.log.WithField("page", s.pageNumber).Debug("selection could not be resolved")
	}
	return copyOffsets(offsets)
}

func copyOffsets(r *pdf.OffsetRange) *pdf.OffsetRange {
	if r == nil {
		return nil
	}
	o := *r
	return &o
}

// Pending returns the selection waiting for a comment
func (s *Session) Pending() Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.pending
	p.Offsets = copyOffsets(p.Offsets)
	return p
}

func (s *Session) clearSelectionLocked() {
	s.pending = Pending{}
	s.lastSelection = ""
}

// AddComment attaches comment to the pending selection and clears it. The
// comment list is persisted afterwards; a failed save is returned but the
// comment stays in the session.
func (s *Session) AddComment(comment string) (bool, error) {
	s.mu.Lock()
	p := s.pending
	pageNumber := s.pageNumber
	if p.Text == "" || p.Offsets == nil {
		s.mu.Unlock()
		return false, ErrNoSelection
	}
	added := s.comments.Add(p.Text, comment, pageNumber, p.Offsets)
	if added {
		s.clearSelectionLocked()
	}
	s.mu.Unlock()

	if !added {
		return false, nil
	}
	s.log.WithFields(logrus.Fields{"page": pageNumber, "start": p.Offsets.Start, "end": p.Offsets.End}).Info("comment added")
	return true, s.saveComments()
}

// Comments returns the comment store
func (s *Session) Comments() *annotation.Store {
	return s.comments
}

// CommentsForPage returns the comments of the page shown
func (s *Session) CommentsForPage() []annotation.Comment {
	return s.comments.ListForPage(s.PageNumber())
}

// ImportComments replaces the comment list with data and persists it
func (s *Session) ImportComments(data []byte) error {
	if err := s.comments.Import(data); err != nil {
		return err
	}
	return s.saveComments()
}

func (s *Session) saveComments() error {
	if s.docs == nil {
		return nil
	}
	return s.docs.SaveComments(s.comments.All())
}
