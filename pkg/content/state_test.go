package content

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatrixMultiply(t *testing.T) {
	tests := []struct {
		name     string
		m, other Matrix
		want     Matrix
	}{
		{
			name:  "identity on the left",
			m:     IdentityMatrix(),
			other: Matrix{2, 0, 0, 3, 4, 5},
			want:  Matrix{2, 0, 0, 3, 4, 5},
		},
		{
			name:  "identity on the right",
			m:     Matrix{2, 0, 0, 3, 4, 5},
			other: IdentityMatrix(),
			want:  Matrix{2, 0, 0, 3, 4, 5},
		},
		{
			name:  "translate then scale",
			m:     Translate(5, 5),
			other: Scale(2, 2),
			want:  Matrix{2, 0, 0, 2, 10, 10},
		},
		{
			name:  "rotation by 90 degrees",
			m:     Matrix{0, 1, -1, 0, 0, 0},
			other: Translate(10, 20),
			want:  Matrix{0, 1, -1, 0, 10, 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Multiply(tt.other)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Multiply() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatrixTransform(t *testing.T) {
	m := Matrix{2, 0, 0, 2, 10, 20}
	x, y := m.Transform(1, 1)
	if x != 12 || y != 22 {
		t.Errorf("Transform(1, 1) = (%v, %v), want (12, 22)", x, y)
	}
}

func TestTransformStackComposition(t *testing.T) {
	s := NewTransformStack()
	s.Concat(Matrix{2, 0, 0, 2, 10, 10})
	s.Concat(Matrix{1, 0, 0, 1, 5, 5})

	want := Matrix{2, 0, 0, 2, 20, 20}
	if diff := cmp.Diff(want, s.Current()); diff != "" {
		t.Errorf("composed transform mismatch (-want +got):\n%s", diff)
	}

	// The same result from a single pre-composed matrix
	a := Matrix{2, 0, 0, 2, 10, 10}
	b := Matrix{1, 0, 0, 1, 5, 5}
	single := NewTransformStack()
	single.Concat(b.Multiply(a))
	if diff := cmp.Diff(s.Current(), single.Current()); diff != "" {
		t.Errorf("sequential and composed transforms differ (-seq +single):\n%s", diff)
	}
}

func TestTransformStackSaveRestore(t *testing.T) {
	matrices := []Matrix{
		{1, 0, 0, 1, 100, 200},
		{0, 1, -1, 0, 3, 4},
		{0.5, 0, 0, 0.25, -7, 9},
		{},
	}

	for _, m := range matrices {
		s := NewTransformStack()
		s.Concat(Matrix{3, 0, 0, 3, 1, 1})
		before := s.Current()
		depth := s.Depth()

		s.Save()
		s.Concat(m)
		s.Restore()

		if s.Current() != before {
			t.Errorf("after save/transform(%v)/restore: got %v, want %v", m, s.Current(), before)
		}
		if s.Depth() != depth {
			t.Errorf("depth = %d, want %d", s.Depth(), depth)
		}
	}
}

func TestTransformStackFloor(t *testing.T) {
	s := NewTransformStack()
	s.Restore()
	s.Restore()

	if s.Depth() != 1 {
		t.Fatalf("Depth() = %d, want 1", s.Depth())
	}
	if s.Current() != IdentityMatrix() {
		t.Errorf("Current() = %v, want identity", s.Current())
	}
	if s.Underflows() != 2 {
		t.Errorf("Underflows() = %d, want 2", s.Underflows())
	}

	s.Save()
	s.Restore()
	if s.Underflows() != 2 {
		t.Errorf("balanced restore counted as underflow: %d", s.Underflows())
	}
}
