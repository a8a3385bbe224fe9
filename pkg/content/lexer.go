package content

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// TokenType for content streams
type TokenType int

const (
	TokenOperator TokenType = iota
	TokenOperand
)

// Name is a PDF name operand, without the leading slash
type Name string

// Token represents a content stream token
type Token struct {
	Type  TokenType
	Value interface{}
	// Data holds the raw bytes of an inline image for the "ID" operator
	Data []byte
}

// ContentLexer splits a decoded content stream into operands and operators
type ContentLexer struct {
	data []byte
	pos  int
}

// NewContentLexer creates a new content lexer
func NewContentLexer(data []byte) *ContentLexer {
	return &ContentLexer{data: data, pos: 0}
}

// NextToken returns the next token from the content stream, or io.EOF
func (l *ContentLexer) NextToken() (*Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.data) {
		return nil, io.EOF
	}

	ch := l.data[l.pos]
	if isRegular(ch) && !isNumberStart(ch) {
		op := l.readKeyword()
		switch op {
		case "true":
			return &Token{Type: TokenOperand, Value: true}, nil
		case "false":
			return &Token{Type: TokenOperand, Value: false}, nil
		case "null":
			return &Token{Type: TokenOperand, Value: nil}, nil
		case "ID":
			return &Token{Type: TokenOperator, Value: op, Data: l.readInlineData()}, nil
		}
		return &Token{Type: TokenOperator, Value: op}, nil
	}

	v, err := l.readValue()
	if err != nil {
		return nil, err
	}
	return &Token{Type: TokenOperand, Value: v}, nil
}

// readValue reads one operand
func (l *ContentLexer) readValue() (interface{}, error) {
	l.skipWhitespace()
	if l.pos >= len(l.data) {
		return nil, io.ErrUnexpectedEOF
	}

	ch := l.data[l.pos]
	switch {
	case ch == '(':
		return l.readString()
	case ch == '<':
		if l.pos+1 < len(l.data) && l.data[l.pos+1] == '<' {
			return l.readDict()
		}
		return l.readHexString()
	case ch == '[':
		return l.readArray()
	case ch == '/':
		return l.readName(), nil
	case isNumberStart(ch):
		return l.readNumber()
	case isRegular(ch):
		switch kw := l.readKeyword(); kw {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		default:
			return nil, fmt.Errorf("unexpected keyword %q at %d", kw, l.pos)
		}
	default:
		l.pos++
		return nil, fmt.Errorf("unexpected character %q at %d", ch, l.pos-1)
	}
}

// skipWhitespace skips whitespace characters and comments
func (l *ContentLexer) skipWhitespace() {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		switch {
		case isWhitespace(ch):
			l.pos++
		case ch == '%':
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
		default:
			return
		}
	}
}

// readString reads a string literal
func (l *ContentLexer) readString() ([]byte, error) {
	l.pos++ // Skip (
	start := l.pos
	parenCount := 1
	escaped := false

	for l.pos < len(l.data) && parenCount > 0 {
		ch := l.data[l.pos]
		if escaped {
			escaped = false
		} else {
			switch ch {
			case '\\':
				escaped = true
			case '(':
				parenCount++
			case ')':
				parenCount--
			}
		}
		l.pos++
	}

	if parenCount > 0 {
		return nil, fmt.Errorf("unterminated string")
	}

	return processEscapes(l.data[start : l.pos-1]), nil
}

// readHexString reads a hexadecimal string
func (l *ContentLexer) readHexString() ([]byte, error) {
	l.pos++ // Skip <
	start := l.pos

	for l.pos < len(l.data) && l.data[l.pos] != '>' {
		l.pos++
	}

	if l.pos >= len(l.data) {
		return nil, fmt.Errorf("unterminated hex string")
	}

	hex := l.data[start:l.pos]
	l.pos++ // Skip >

	cleanHex := make([]byte, 0, len(hex))
	for _, b := range hex {
		if (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F') {
			cleanHex = append(cleanHex, b)
		}
	}
	// An odd trailing digit is followed by an implicit 0
	if len(cleanHex)%2 == 1 {
		cleanHex = append(cleanHex, '0')
	}

	result := make([]byte, 0, len(cleanHex)/2)
	for i := 0; i < len(cleanHex); i += 2 {
		val, _ := strconv.ParseUint(string(cleanHex[i:i+2]), 16, 8)
		result = append(result, byte(val))
	}

	return result, nil
}

// readArray reads an array, including nested arrays and dictionaries
func (l *ContentLexer) readArray() ([]interface{}, error) {
	l.pos++ // Skip [
	array := []interface{}{}

	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if l.data[l.pos] == ']' {
			l.pos++
			return array, nil
		}
		v, err := l.readValue()
		if err != nil {
			return nil, err
		}
		array = append(array, v)
	}
}

// readDict reads a dictionary such as the operand of BDC or the inline
// image header
func (l *ContentLexer) readDict() (map[Name]interface{}, error) {
	l.pos += 2 // Skip <<
	dict := map[Name]interface{}{}

	for {
		l.skipWhitespace()
		if l.pos >= len(l.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		if l.data[l.pos] == '>' {
			if l.pos+1 < len(l.data) && l.data[l.pos+1] == '>' {
				l.pos += 2
				return dict, nil
			}
			return nil, fmt.Errorf("unexpected '>' at %d", l.pos)
		}
		if l.data[l.pos] != '/' {
			return nil, fmt.Errorf("dictionary key is not a name at %d", l.pos)
		}
		key := l.readName()
		v, err := l.readValue()
		if err != nil {
			return nil, err
		}
		dict[key] = v
	}
}

// readName reads a name object
func (l *ContentLexer) readName() Name {
	l.pos++ // Skip /
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return Name(decodeNameEscapes(l.data[start:l.pos]))
}

// readNumber reads a numeric value
func (l *ContentLexer) readNumber() (float64, error) {
	start := l.pos
	hasDecimal := false

	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if ch == '.' {
			if hasDecimal {
				break
			}
			hasDecimal = true
		} else if ch == '+' || ch == '-' {
			if l.pos != start {
				break
			}
		} else if ch < '0' || ch > '9' {
			break
		}
		l.pos++
	}

	numStr := string(l.data[start:l.pos])
	switch numStr {
	case "+", "-", ".", "-.", "+.":
		return 0, nil
	}
	val, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", numStr, err)
	}
	return val, nil
}

// readKeyword reads an operator or keyword
func (l *ContentLexer) readKeyword() string {
	start := l.pos
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	return string(l.data[start:l.pos])
}

// readInlineData consumes inline image data following "ID", up to and not
// including the "EI" keyword
func (l *ContentLexer) readInlineData() []byte {
	// A single whitespace byte separates ID from the data
	if l.pos < len(l.data) && isWhitespace(l.data[l.pos]) {
		l.pos++
	}
	start := l.pos
	for i := start; i+1 < len(l.data); i++ {
		if l.data[i] != 'E' || l.data[i+1] != 'I' {
			continue
		}
		if i > start && !isWhitespace(l.data[i-1]) {
			continue
		}
		if i+2 < len(l.data) && !isWhitespace(l.data[i+2]) {
			continue
		}
		end := i
		if end > start {
			end-- // whitespace before EI
		}
		l.pos = i
		return l.data[start:end]
	}
	l.pos = len(l.data)
	return l.data[start:]
}

// processEscapes processes escape sequences in a string
func processEscapes(text []byte) []byte {
	var result []byte
	escaped := false

	for i := 0; i < len(text); i++ {
		if escaped {
			switch text[i] {
			case 'n':
				result = append(result, '\n')
			case 'r':
				result = append(result, '\r')
			case 't':
				result = append(result, '\t')
			case 'b':
				result = append(result, '\b')
			case 'f':
				result = append(result, '\f')
			case '\\', '(', ')':
				result = append(result, text[i])
			case '\r', '\n':
				// Line continuation
				if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
					i++
				}
			default:
				if text[i] >= '0' && text[i] <= '7' {
					// Up to 3 octal digits
					j := i
					for j < len(text) && j < i+3 && text[j] >= '0' && text[j] <= '7' {
						j++
					}
					val, _ := strconv.ParseUint(string(text[i:j]), 8, 16)
					result = append(result, byte(val))
					i = j - 1
				} else {
					result = append(result, text[i])
				}
			}
			escaped = false
		} else if text[i] == '\\' {
			escaped = true
		} else {
			result = append(result, text[i])
		}
	}

	return result
}

// decodeNameEscapes resolves #xx sequences in names
func decodeNameEscapes(raw []byte) string {
	if bytes.IndexByte(raw, '#') < 0 {
		return string(raw)
	}
	var out []byte
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) {
			if v, err := strconv.ParseUint(string(raw[i+1:i+3]), 16, 8); err == nil {
				out = append(out, byte(v))
				i += 2
				continue
			}
		}
		out = append(out, raw[i])
	}
	return string(out)
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == 0
}

func isDelimiter(ch byte) bool {
	return ch == '(' || ch == ')' || ch == '<' || ch == '>' || ch == '[' || ch == ']' ||
		ch == '{' || ch == '}' || ch == '/' || ch == '%'
}

func isRegular(ch byte) bool {
	return !isWhitespace(ch) && !isDelimiter(ch)
}

func isNumberStart(ch byte) bool {
	return ch == '+' || ch == '-' || ch == '.' || (ch >= '0' && ch <= '9')
}
