package viewer

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/locate"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/page"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/textmap"
)

// Rects returns a copy of the current highlight rectangles
func (s *Session) Rects() []pdf.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pdf.Rect(nil), s.rects...)
}

// Status returns the outcome of the last completed highlight
func (s *Session) Status() locate.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ClearHighlight cancels any pending decode and removes the rectangles
func (s *Session) ClearHighlight() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
}

// SelectComment highlights comment i of the page shown
func (s *Session) SelectComment(i int) error {
	comments := s.CommentsForPage()
	if i < 0 || i >= len(comments) {
		return ErrObjectIndex
	}
	offsets := comments[i].Offsets

	return s.schedule("comment", func(rd *page.Render) locate.Result {
		rects, err := textmap.DecodeErr(offsets, rd.Index, layoutOf(rd), rd.Origin)
		switch {
		case errors.Is(err, textmap.ErrDetached):
			return locate.Result{Status: locate.Stale}
		case err != nil || len(rects) == 0:
			return locate.Result{Status: locate.NotFound}
		}
		return locate.Result{Rects: rects, Status: locate.Found}
	})
}

// SelectObject highlights text or image object i of the page shown.
// Unlocatable images are rejected.
func (s *Session) SelectObject(kind pdf.ObjectType, i int) error {
	s.mu.Lock()
	ex := s.extraction
	s.mu.Unlock()
	if ex == nil {
		return ErrNoPage
	}

	switch kind {
	case pdf.ObjectTypeText:
		if i < 0 || i >= len(ex.Objects.Texts) {
			return ErrObjectIndex
		}
		target := ex.Objects.Texts[i].Str
		return s.schedule("text", func(rd *page.Render) locate.Result {
			return locate.Text(target, rd.TextFragments(), rd.Layout(), rd.Origin)
		})
	case pdf.ObjectTypeImage:
		if i < 0 || i >= len(ex.Objects.Images) || !locate.Interactive(ex.Objects.Images[i]) {
			return ErrObjectIndex
		}
		img := ex.Objects.Images[i]
		return s.schedule("image", func(rd *page.Render) locate.Result {
			return locate.Image(img, rd.Viewport)
		})
	}
	return ErrObjectIndex
}

// Wait blocks until the pending decode, if any, has finished
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels pending work and detaches the current render
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	if s.render != nil {
		s.render.Detach()
	}
}

func layoutOf(rd *page.Render) textmap.Layout {
	if l := rd.Layout(); l != nil {
		return l
	}
	return nil
}

// supersedeLocked cancels the pending decode and clears the rectangles
func (s *Session) supersedeLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.rects = nil
	s.status = locate.NotFound
}

// schedule runs compute against the current render once its layout is
// attached or the settle delay has passed. The result is dropped when a
// newer request superseded this one in the meantime.
func (s *Session) schedule(what string, compute func(rd *page.Render) locate.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rd := s.render
	if rd == nil {
		return ErrNoPage
	}
	s.supersedeLocked()
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	log := s.log.WithFields(logrus.Fields{"page": rd.PageNumber, "render": rd.ID, "highlight": what})
	go func() {
		defer close(done)
		defer cancel()

		timer := time.NewTimer(s.settle)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			log.Debug("highlight cancelled")
			return
		case <-rd.Ready():
		case <-timer.C:
		}

		res := compute(rd)

		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen || ctx.Err() != nil {
			log.Debug("highlight superseded")
			return
		}
		s.rects = res.Rects
		s.status = res.Status
		if res.Status != locate.Found {
			log.WithField("status", res.Status).Debug("nothing to highlight")
		}
	}()
	return nil
}
