package annotation

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 5, 14, 7, 9, 123456789, time.FixedZone("CET", 3600))
}

func TestAddRejectsEmptyInput(t *testing.T) {
	s := NewStore()
	offsets := &pdf.OffsetRange{Start: 2, End: 8}

	tests := []struct {
		name    string
		text    string
		comment string
		offsets *pdf.OffsetRange
	}{
		{"empty comment", "llo Wo", "", offsets},
		{"empty text", "", "note", offsets},
		{"no offsets", "llo Wo", "note", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Len()
			if s.Add(tt.text, tt.comment, 1, tt.offsets) {
				t.Error("Add() returned true")
			}
			if s.Len() != before {
				t.Errorf("Len() = %d, want %d", s.Len(), before)
			}
		})
	}
}

func TestAddAndList(t *testing.T) {
	s := NewStore(WithClock(fixedClock))

	s.Add("first", "a", 1, &pdf.OffsetRange{Start: 0, End: 5})
	s.Add("second", "b", 2, &pdf.OffsetRange{Start: 3, End: 9})
	s.Add("third", "c", 1, &pdf.OffsetRange{Start: 6, End: 11})

	got := s.ListForPage(1)
	want := []Comment{
		{Text: "first", Comment: "a", Page: 1, Timestamp: "2024-03-05T13:07:09.123Z", Offsets: pdf.OffsetRange{Start: 0, End: 5}},
		{Text: "third", Comment: "c", Page: 1, Timestamp: "2024-03-05T13:07:09.123Z", Offsets: pdf.OffsetRange{Start: 6, End: 11}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListForPage(1) mismatch (-want +got):\n%s", diff)
	}
	if got := s.ListForPage(3); len(got) != 0 {
		t.Errorf("ListForPage(3) = %v", got)
	}
}

func TestAddCopiesOffsets(t *testing.T) {
	s := NewStore()
	offsets := &pdf.OffsetRange{Start: 1, End: 2}
	s.Add("x", "y", 1, offsets)
	offsets.End = 99

	if got := s.All()[0].Offsets.End; got != 2 {
		t.Errorf("stored offsets changed with caller's value: End = %d", got)
	}
}

func TestSerialize(t *testing.T) {
	s := NewStore(WithClock(fixedClock))
	empty, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	if string(empty) != "[]" {
		t.Errorf("empty Serialize() = %s, want []", empty)
	}

	s.Add("llo Wo", "greeting", 1, &pdf.OffsetRange{Start: 2, End: 8})
	data, err := s.Serialize()
	if err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}

	var generic []map[string]interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	want := []map[string]interface{}{{
		"text":      "llo Wo",
		"comment":   "greeting",
		"page":      1.0,
		"timestamp": "2024-03-05T13:07:09.123Z",
		"offsets":   map[string]interface{}{"start": 2.0, "end": 8.0},
	}}
	if diff := cmp.Diff(want, generic); diff != "" {
		t.Errorf("serialized form mismatch (-want +got):\n%s", diff)
	}

	again, _ := s.Serialize()
	if string(again) != string(data) {
		t.Error("Serialize() is not stable")
	}
}

func TestImport(t *testing.T) {
	s := NewStore(WithClock(fixedClock))
	s.Add("keep", "me", 1, &pdf.OffsetRange{Start: 0, End: 4})
	before := s.All()

	bad := []string{
		`{"text": "x"}`,
		`[{"text": "x", "comment": "y", "page": 1}]`,
		`[{"text": "x", "comment": "y", "page": "one", "offsets": {"start": 0, "end": 1}}]`,
		`[{"text": "x", "comment": "y", "page": 1, "offsets": {"start": 5, "end": 1}}]`,
		`not json`,
		`null`,
		`[null]`,
		`[{"text": "x", "comment": "y", "page": 1, "offsets": null}]`,
		`[{"text": "x", "comment": "y", "page": 1, "offsets": {"start": 0}}]`,
		`[{"text": "x", "comment": "y", "page": 1, "offsets": [0, 1]}]`,
	}
	for _, input := range bad {
		if err := s.Import([]byte(input)); !errors.Is(err, ErrInvalidImport) {
			t.Errorf("Import(%s) error = %v, want ErrInvalidImport", input, err)
		}
		if diff := cmp.Diff(before, s.All()); diff != "" {
			t.Errorf("store changed after rejected import (-before +after):\n%s", diff)
		}
	}

	src := NewStore(WithClock(fixedClock))
	src.Add("a", "b", 2, &pdf.OffsetRange{Start: 1, End: 3})
	src.Add("c", "d", 4, &pdf.OffsetRange{Start: 0, End: 0})
	data, _ := src.Serialize()

	if err := s.Import(data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if diff := cmp.Diff(src.All(), s.All()); diff != "" {
		t.Errorf("imported comments mismatch (-want +got):\n%s", diff)
	}

	if err := s.Import([]byte(`[]`)); err != nil {
		t.Fatalf("Import([]) error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after importing an empty list", s.Len())
	}
}

func TestConcurrentAdd(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Add("t", "c", i%3, &pdf.OffsetRange{Start: 0, End: 1})
			_ = s.ListForPage(1)
		}(i)
	}
	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
