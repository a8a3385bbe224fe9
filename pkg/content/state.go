package content

// Matrix is a 2D affine transform [a b c d e f], mapping (x, y) to
// (a*x + c*y + e, b*x + d*y + f).
type Matrix [6]float64

// IdentityMatrix returns an identity matrix
func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// Multiply returns m composed with other: applying the result is the same
// as applying m and then other. For a "cm" operator with operand M and
// current transform C, the new transform is M.Multiply(C).
func (m Matrix) Multiply(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Transform applies the matrix transformation to a point
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// Scale creates a scaling matrix
func Scale(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// Translate creates a translation matrix
func Translate(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// TransformStack mirrors save/restore nesting of the cumulative transform.
// It always holds at least one entry.
type TransformStack struct {
	stack      []Matrix
	underflows int
}

// NewTransformStack creates a stack seeded with the identity matrix
func NewTransformStack() *TransformStack {
	return &TransformStack{
		stack: []Matrix{IdentityMatrix()},
	}
}

// Current returns the active cumulative transform
func (s *TransformStack) Current() Matrix {
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of entries on the stack
func (s *TransformStack) Depth() int {
	return len(s.stack)
}

// Save pushes a copy of the current transform
func (s *TransformStack) Save() {
	s.stack = append(s.stack, s.Current())
}

// Restore pops the current transform. At the floor it does nothing and
// counts the unbalanced restore.
func (s *TransformStack) Restore() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
		return
	}
	s.underflows++
}

// Concat right-multiplies m into the current transform
func (s *TransformStack) Concat(m Matrix) {
	top := len(s.stack) - 1
	s.stack[top] = m.Multiply(s.stack[top])
}

// Underflows returns how many restores hit the floor
func (s *TransformStack) Underflows() int {
	return s.underflows
}
