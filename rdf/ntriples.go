package rdf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError reports a malformed N-Triples line.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ntriples: line %d, column %d: %s", e.Line, e.Column, e.Msg)
}

// Decoder reads triples from an N-Triples stream.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
}

// NewDecoder returns a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Decoder{scanner: s}
}

// Decode returns the next triple, or io.EOF when the stream is exhausted.
// Blank lines and comments are skipped.
func (d *Decoder) Decode() (Triple, error) {
	for d.scanner.Scan() {
		d.line++
		text := d.scanner.Text()
		p := &lineParser{src: text, line: d.line}
		p.skipSpace()
		if p.done() || p.peek() == '#' {
			continue
		}
		t, err := p.triple()
		if err != nil {
			return Triple{}, err
		}
		return t, nil
	}
	if err := d.scanner.Err(); err != nil {
		return Triple{}, err
	}
	return Triple{}, io.EOF
}

// DecodeAll reads every triple from r.
func DecodeAll(r io.Reader) ([]Triple, error) {
	d := NewDecoder(r)
	var out []Triple
	for {
		t, err := d.Decode()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, t)
	}
}

// ParseTriple parses a single N-Triples statement.
func ParseTriple(line string) (Triple, error) {
	p := &lineParser{src: line, line: 1}
	p.skipSpace()
	return p.triple()
}

// ParseTerm parses a single term in N-Triples syntax.
func ParseTerm(s string) (Term, error) {
	p := &lineParser{src: s, line: 1}
	p.skipSpace()
	t, err := p.term()
	if err != nil {
		return Term{}, err
	}
	p.skipSpace()
	if !p.done() {
		return Term{}, p.errorf("trailing input after term")
	}
	return t, nil
}

// Encoder writes triples in N-Triples syntax.
type Encoder struct {
	w *bufio.Writer
}

// NewEncoder returns an encoder writing to w. Call Flush when done.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one triple followed by a newline.
func (e *Encoder) Encode(t Triple) error {
	if _, err := e.w.WriteString(t.String()); err != nil {
		return err
	}
	return e.w.WriteByte('\n')
}

// Flush writes buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

type lineParser struct {
	src  string
	pos  int
	line int
}

func (p *lineParser) done() bool { return p.pos >= len(p.src) }

func (p *lineParser) peek() byte { return p.src[p.pos] }

func (p *lineParser) errorf(format string, args ...any) error {
	return &ParseError{Line: p.line, Column: p.pos + 1, Msg: fmt.Sprintf(format, args...)}
}

func (p *lineParser) skipSpace() {
	for !p.done() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *lineParser) triple() (Triple, error) {
	s, err := p.term()
	if err != nil {
		return Triple{}, err
	}
	if !s.IsResource() {
		return Triple{}, p.errorf("subject must be an IRI or blank node")
	}
	p.skipSpace()
	pr, err := p.term()
	if err != nil {
		return Triple{}, err
	}
	if pr.Kind != KindIRI {
		return Triple{}, p.errorf("predicate must be an IRI")
	}
	p.skipSpace()
	o, err := p.term()
	if err != nil {
		return Triple{}, err
	}
	p.skipSpace()
	if p.done() || p.peek() != '.' {
		return Triple{}, p.errorf("expected '.' at end of statement")
	}
	p.pos++
	p.skipSpace()
	if !p.done() && p.peek() != '#' {
		return Triple{}, p.errorf("unexpected input after '.'")
	}
	return Triple{Subject: s, Predicate: pr, Object: o}, nil
}

func (p *lineParser) term() (Term, error) {
	if p.done() {
		return Term{}, p.errorf("unexpected end of line")
	}
	switch p.peek() {
	case '<':
		iri, err := p.iriRef()
		if err != nil {
			return Term{}, err
		}
		return NewIRI(iri), nil
	case '_':
		return p.blank()
	case '"':
		return p.literal()
	default:
		return Term{}, p.errorf("unexpected character %q", p.peek())
	}
}

func (p *lineParser) iriRef() (string, error) {
	p.pos++ // <
	var b strings.Builder
	for {
		if p.done() {
			return "", p.errorf("unterminated IRI")
		}
		c := p.peek()
		switch {
		case c == '>':
			p.pos++
			if b.Len() == 0 {
				return "", p.errorf("empty IRI")
			}
			return b.String(), nil
		case c == '\\':
			r, err := p.unicodeEscape()
			if err != nil {
				return "", err
			}
			b.WriteRune(r)
		case c <= ' ' || strings.IndexByte("<\"{}|^`", c) >= 0:
			return "", p.errorf("invalid character %q in IRI", c)
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
}

func (p *lineParser) blank() (Term, error) {
	if !strings.HasPrefix(p.src[p.pos:], "_:") {
		return Term{}, p.errorf("expected '_:'")
	}
	p.pos += 2
	start := p.pos
	for !p.done() {
		c := p.peek()
		if c == ' ' || c == '\t' || c == '<' || c == '"' {
			break
		}
		if c == '.' {
			// A label may contain dots but must not end with one.
			if p.pos+1 >= len(p.src) || p.src[p.pos+1] == ' ' || p.src[p.pos+1] == '\t' {
				break
			}
		}
		p.pos++
	}
	if p.pos == start {
		return Term{}, p.errorf("empty blank node label")
	}
	return NewBlank(p.src[start:p.pos]), nil
}

func (p *lineParser) literal() (Term, error) {
	p.pos++ // "
	var b strings.Builder
	for {
		if p.done() {
			return Term{}, p.errorf("unterminated literal")
		}
		c := p.peek()
		if c == '"' {
			p.pos++
			break
		}
		if c == '\\' {
			if p.pos+1 >= len(p.src) {
				return Term{}, p.errorf("dangling escape")
			}
			switch p.src[p.pos+1] {
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 'f':
				b.WriteByte('\f')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case '\\':
				b.WriteByte('\\')
			case 'u', 'U':
				r, err := p.unicodeEscape()
				if err != nil {
					return Term{}, err
				}
				b.WriteRune(r)
				continue
			default:
				return Term{}, p.errorf("invalid escape \\%c", p.src[p.pos+1])
			}
			p.pos += 2
			continue
		}
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if r == utf8.RuneError && size == 1 {
			return Term{}, p.errorf("invalid UTF-8 in literal")
		}
		b.WriteRune(r)
		p.pos += size
	}

	lexical := b.String()
	if p.done() {
		return NewLiteral(lexical), nil
	}
	switch p.peek() {
	case '@':
		p.pos++
		start := p.pos
		for !p.done() {
			c := p.peek()
			if !(c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				break
			}
			p.pos++
		}
		if p.pos == start {
			return Term{}, p.errorf("empty language tag")
		}
		return NewLangLiteral(lexical, p.src[start:p.pos]), nil
	case '^':
		if !strings.HasPrefix(p.src[p.pos:], "^^<") {
			return Term{}, p.errorf("expected '^^<' before datatype")
		}
		p.pos += 2
		dt, err := p.iriRef()
		if err != nil {
			return Term{}, err
		}
		if dt == RDFLangString {
			return Term{}, p.errorf("rdf:langString literal without language tag")
		}
		return NewTypedLiteral(lexical, dt), nil
	default:
		return NewLiteral(lexical), nil
	}
}

// unicodeEscape decodes \uXXXX or \UXXXXXXXX at the current position.
func (p *lineParser) unicodeEscape() (rune, error) {
	if p.pos+1 >= len(p.src) {
		return 0, p.errorf("dangling escape")
	}
	var n int
	switch p.src[p.pos+1] {
	case 'u':
		n = 4
	case 'U':
		n = 8
	default:
		return 0, p.errorf("invalid escape \\%c", p.src[p.pos+1])
	}
	start := p.pos + 2
	if start+n > len(p.src) {
		return 0, p.errorf("short unicode escape")
	}
	v, err := strconv.ParseUint(p.src[start:start+n], 16, 32)
	if err != nil || !utf8.ValidRune(rune(v)) {
		return 0, p.errorf("invalid unicode escape %q", p.src[p.pos:start+n])
	}
	p.pos = start + n
	return rune(v), nil
}
