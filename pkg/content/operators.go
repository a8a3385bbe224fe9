package content

import (
	"errors"
	"fmt"
	"io"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/pdf"
)

// OpCode identifies an operator relevant to transform tracking
type OpCode int

const (
	OpOther OpCode = iota
	OpSave
	OpRestore
	OpTransform
	OpPaintImage
	OpPaintInlineImage
)

func (o OpCode) String() string {
	switch o {
	case OpSave:
		return "save"
	case OpRestore:
		return "restore"
	case OpTransform:
		return "transform"
	case OpPaintImage:
		return "paintImage"
	case OpPaintInlineImage:
		return "paintInlineImage"
	default:
		return "other"
	}
}

// Operator is one entry of a page's operator list
type Operator struct {
	Op   OpCode
	Args []interface{}
	// Name is the raw content stream operator, e.g. "cm" or "Tj"
	Name string
}

// InlineImage is the argument of an inline image paint operator
type InlineImage struct {
	Width  float64
	Height float64
	Data   []byte
}

// MaxFormDepth bounds recursion into nested form XObjects
const MaxFormDepth = 8

// BuildOperators tokenizes decoded content and produces the operator list.
// Image XObjects become paint-image operators carrying the XObject name.
// Form XObjects are expanded in place as save, transform(/Matrix), the form's
// own operators, restore. res may be nil, in which case every Do is treated
// as an image reference.
func BuildOperators(data []byte, res pdf.XObjectResolver) ([]Operator, error) {
	b := &builder{}
	if err := b.build(data, res, 0); err != nil {
		return b.ops, err
	}
	return b.ops, nil
}

type builder struct {
	ops []Operator
}

func (b *builder) emit(op Operator) {
	b.ops = append(b.ops, op)
}

func (b *builder) build(data []byte, res pdf.XObjectResolver, depth int) error {
	lexer := NewContentLexer(data)
	var operands []interface{}
	var inline *InlineImage

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("content stream: %w", err)
		}

		if tok.Type == TokenOperand {
			operands = append(operands, tok.Value)
			continue
		}

		name, _ := tok.Value.(string)
		switch name {
		case "q":
			b.emit(Operator{Op: OpSave, Name: name})
		case "Q":
			b.emit(Operator{Op: OpRestore, Name: name})
		case "cm":
			if m, ok := matrixOperands(operands); ok {
				b.emit(Operator{Op: OpTransform, Args: m, Name: name})
			} else {
				b.emit(Operator{Op: OpOther, Args: operands, Name: name})
			}
		case "Do":
			b.paintXObject(operands, res, depth)
		case "BI":
			inline = &InlineImage{}
		case "ID":
			if inline == nil {
				inline = &InlineImage{}
			}
			inline.Width, inline.Height = inlineSize(operands)
			inline.Data = tok.Data
		case "EI":
			if inline != nil {
				b.emit(Operator{Op: OpPaintInlineImage, Args: []interface{}{*inline}, Name: "EI"})
				inline = nil
			}
		default:
			b.emit(Operator{Op: OpOther, Args: operands, Name: name})
		}
		operands = nil
	}
}

// paintXObject handles the Do operator
func (b *builder) paintXObject(operands []interface{}, res pdf.XObjectResolver, depth int) {
	var name string
	if len(operands) > 0 {
		if n, ok := operands[len(operands)-1].(Name); ok {
			name = string(n)
		}
	}
	if name == "" {
		// No usable name; the tracker reports a zero bbox
		b.emit(Operator{Op: OpPaintImage, Args: operands, Name: "Do"})
		return
	}
	if res == nil {
		b.emit(Operator{Op: OpPaintImage, Args: []interface{}{name}, Name: "Do"})
		return
	}

	xobj, err := res.XObject(name)
	if err != nil {
		// Unresolved references still paint at the current transform
		b.emit(Operator{Op: OpPaintImage, Args: []interface{}{name}, Name: "Do"})
		return
	}

	switch xobj.Kind {
	case pdf.XObjectImage:
		b.emit(Operator{Op: OpPaintImage, Args: []interface{}{name}, Name: "Do"})
	case pdf.XObjectForm:
		if depth >= MaxFormDepth {
			return
		}
		b.emit(Operator{Op: OpSave, Name: "q"})
		b.emit(Operator{Op: OpTransform, Args: matrixArgs(xobj.Matrix), Name: "cm"})
		// A broken form must not lose the operators read so far
		_ = b.build(xobj.Content, xobj.Resources, depth+1)
		b.emit(Operator{Op: OpRestore, Name: "Q"})
	default:
		b.emit(Operator{Op: OpOther, Args: []interface{}{name}, Name: "Do"})
	}
}

func matrixOperands(operands []interface{}) ([]interface{}, bool) {
	if len(operands) < 6 {
		return nil, false
	}
	args := make([]interface{}, 6)
	for i, v := range operands[len(operands)-6:] {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		args[i] = f
	}
	return args, true
}

func matrixArgs(m [6]float64) []interface{} {
	args := make([]interface{}, 6)
	for i, v := range m {
		args[i] = v
	}
	return args
}

// inlineSize reads /W and /H (or /Width and /Height) from the key-value
// operands between BI and ID
func inlineSize(operands []interface{}) (w, h float64) {
	for i := 0; i+1 < len(operands); i += 2 {
		key, ok := operands[i].(Name)
		if !ok {
			continue
		}
		v, ok := operands[i+1].(float64)
		if !ok {
			continue
		}
		switch key {
		case "W", "Width":
			w = v
		case "H", "Height":
			h = v
		}
	}
	return w, h
}
