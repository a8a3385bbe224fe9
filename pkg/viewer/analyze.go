package viewer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/llm"
)

// Analysis is a stored image analysis
type Analysis = llm.AnalysisResult

// Analyze sends image i of the page shown to a. The result is recorded and
// persisted only when the call succeeds.
func (s *Session) Analyze(ctx context.Context, a llm.Analyzer, i int, prompt string) (Analysis, error) {
	s.mu.Lock()
	ex := s.extraction
	s.mu.Unlock()
	if ex == nil {
		return Analysis{}, ErrNoPage
	}
	if i < 0 || i >= len(ex.Objects.Images) {
		return Analysis{}, ErrObjectIndex
	}
	img := ex.Objects.Images[i]
	if img.DataURL == "" {
		return Analysis{}, fmt.Errorf("image %d of page %d has no pixel data", i, ex.PageNumber)
	}
	if prompt == "" {
		prompt = llm.DefaultPrompts[0]
	}

	provider := ""
	if c, ok := a.(interface{ Provider() string }); ok {
		provider = c.Provider()
	}
	log := s.log.WithFields(logrus.Fields{"page": ex.PageNumber, "image": i, "provider": provider})

	resp, err := a.Analyze(ctx, llm.Request{ImageDataURL: img.DataURL, Prompt: prompt})
	if err != nil {
		log.WithError(err).Error("image analysis failed")
		return Analysis{}, err
	}

	result := llm.NewResult(ex.PageNumber, img.Index, provider, resp, s.now())
	s.mu.Lock()
	s.analyses = append(s.analyses, result)
	snapshot := append([]Analysis(nil), s.analyses...)
	s.mu.Unlock()
	log.Info("image analyzed")

	if s.docs != nil {
		if err := s.docs.SaveAnalyses(snapshot); err != nil {
			return result, err
		}
	}
	return result, nil
}

// Analyses returns the recorded analyses, optionally only those of page
// (page > 0)
func (s *Session) Analyses(page int) []Analysis {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Analysis
	for _, a := range s.analyses {
		if page > 0 && a.PageNumber != page {
			continue
		}
		out = append(out, a)
	}
	return out
}
