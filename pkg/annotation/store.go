// Package annotation keeps the user comments of a document. Each comment is
// bound to a page and an offset range in that page's text.
package annotation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// ErrInvalidImport is returned when imported data is not a comment list
var ErrInvalidImport = errors.New("invalid comment import")

// TimestampLayout is ISO 8601 in UTC with milliseconds
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Comment is a note attached to a text range of a page
type Comment struct {
	Text      string          `json:"text"`
	Comment   string          `json:"comment"`
	Page      int             `json:"page"`
	Timestamp string          `json:"timestamp"`
	Offsets   pdf.OffsetRange `json:"offsets"`
}

// Store is an insertion-ordered comment list, safe for concurrent use
type Store struct {
	mu       sync.RWMutex
	comments []Comment
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty store
func NewStore(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a comment. It does nothing and returns false when text or
// comment is empty or offsets is nil.
func (s *Store) Add(text, comment string, page int, offsets *pdf.OffsetRange) bool {
	if text == "" || comment == "" || offsets == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments = append(s.comments, Comment{
		Text:      text,
		Comment:   comment,
		Page:      page,
		Timestamp: s.now().UTC().Format(TimestampLayout),
		Offsets:   *offsets,
	})
	return true
}

// ListForPage returns the comments of page in insertion order
func (s *Store) ListForPage(page int) []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Comment
	for _, c := range s.comments {
		if c.Page == page {
			out = append(out, c)
		}
	}
	return out
}

// All returns a copy of every comment
func (s *Store) All() []Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// Len returns the number of comments
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.comments)
}

// Serialize returns the full list as indented JSON. An empty store
// serializes to an empty array.
func (s *Store) Serialize() ([]byte, error) {
	all := s.All()
	return json.MarshalIndent(all, "", "  ")
}

// Import replaces the store content with a serialized list. Every element
// must carry the comment keys and an offsets object with start and end; on
// any error the store is left unchanged.
func (s *Store) Import(data []byte) error {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: expected an array of comments", ErrInvalidImport)
	}
	for i, item := range raw {
		if item == nil {
			return fmt.Errorf("%w: element %d is not an object", ErrInvalidImport, i)
		}
		for _, key := range []string{"text", "comment", "page", "offsets"} {
			if _, ok := item[key]; !ok {
				return fmt.Errorf("%w: element %d has no %q", ErrInvalidImport, i, key)
			}
		}
		var offsets map[string]json.RawMessage
		if err := json.Unmarshal(item["offsets"], &offsets); err != nil || offsets == nil {
			return fmt.Errorf("%w: element %d offsets is not an object", ErrInvalidImport, i)
		}
		for _, key := range []string{"start", "end"} {
			if _, ok := offsets[key]; !ok {
				return fmt.Errorf("%w: element %d offsets has no %q", ErrInvalidImport, i, key)
			}
		}
	}

	var comments []Comment
	if err := json.Unmarshal(data, &comments); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	for i, c := range comments {
		if !c.Offsets.Valid() {
			return fmt.Errorf("%w: element %d has offsets %d..%d", ErrInvalidImport, i, c.Offsets.Start, c.Offsets.End)
		}
	}

	s.mu.Lock()
	s.comments = comments
	s.mu.Unlock()
	return nil
}
