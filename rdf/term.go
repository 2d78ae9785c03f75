package rdf

import (
	"fmt"
	"strings"
)

// Kind discriminates the three RDF term kinds.
type Kind uint8

const (
	// KindInvalid is the zero Kind. Terms of this kind cannot be projected.
	KindInvalid Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "invalid"
	}
}

// Term is an RDF term: an IRI, a blank node or a literal.
type Term struct {
	// Kind of the term. The zero value is KindInvalid.
	Kind Kind `json:"kind"`

	// Value holds the IRI, the blank node label (without "_:"), or the
	// lexical form of a literal.
	Value string `json:"value"`

	// Datatype is the datatype IRI of a literal. Plain literals carry
	// XSDString and language-tagged literals RDFLangString.
	Datatype string `json:"datatype,omitempty"`

	// Language is the lowercase language tag of a literal, if any.
	Language string `json:"language,omitempty"`
}

// NewIRI returns an IRI term.
func NewIRI(iri string) Term {
	return Term{Kind: KindIRI, Value: iri}
}

// NewBlank returns a blank node term with the given label.
func NewBlank(label string) Term {
	return Term{Kind: KindBlank, Value: label}
}

// NewLiteral returns a plain (xsd:string) literal.
func NewLiteral(lexical string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: XSDString}
}

// NewLangLiteral returns a language-tagged literal.
func NewLangLiteral(lexical, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: RDFLangString, Language: strings.ToLower(lang)}
}

// NewTypedLiteral returns a literal with an explicit datatype. An empty
// datatype yields a plain literal.
func NewTypedLiteral(lexical, datatype string) Term {
	if datatype == "" {
		datatype = XSDString
	}
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype}
}

// IsResource reports whether the term denotes a resource (IRI or blank node).
func (t Term) IsResource() bool {
	return t.Kind == KindIRI || t.Kind == KindBlank
}

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool {
	return t.Kind == KindLiteral
}

// Validate checks the structural well-formedness of the term.
func (t Term) Validate() error {
	switch t.Kind {
	case KindIRI:
		if t.Value == "" {
			return fmt.Errorf("empty IRI")
		}
		if strings.ContainsAny(t.Value, "<>\" {}|^`\\\n\r\t") {
			return fmt.Errorf("IRI %q contains a forbidden character", t.Value)
		}
		if strings.HasPrefix(t.Value, "_:") {
			return fmt.Errorf("IRI %q uses the blank node prefix", t.Value)
		}
		if !hasScheme(t.Value) {
			return fmt.Errorf("IRI %q is not absolute", t.Value)
		}
	case KindBlank:
		if t.Value == "" {
			return fmt.Errorf("empty blank node label")
		}
	case KindLiteral:
		if t.Language != "" && t.Datatype != "" && t.Datatype != RDFLangString {
			return fmt.Errorf("literal %q has both language %q and datatype %q", t.Value, t.Language, t.Datatype)
		}
	default:
		return fmt.Errorf("term %q has no valid kind", t.Value)
	}
	return nil
}

// hasScheme reports whether iri starts with an RFC 3986 scheme followed by
// a colon.
func hasScheme(iri string) bool {
	for i := 0; i < len(iri); i++ {
		c := iri[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		case i > 0 && c == ':':
			return true
		default:
			return false
		}
	}
	return false
}

// String returns the canonical N-Triples form of the term. Plain literals
// are written without their implicit xsd:string datatype.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(escapeLiteral(t.Value))
		b.WriteByte('"')
		switch {
		case t.Language != "":
			b.WriteByte('@')
			b.WriteString(t.Language)
		case t.Datatype != "" && t.Datatype != XSDString:
			b.WriteString("^^<")
			b.WriteString(t.Datatype)
			b.WriteByte('>')
		}
		return b.String()
	default:
		return fmt.Sprintf("?invalid(%q)", t.Value)
	}
}

// Equal reports whether two terms denote the same RDF term.
func (t Term) Equal(o Term) bool {
	return t.normalized() == o.normalized()
}

func (t Term) normalized() Term {
	if t.Kind == KindLiteral {
		if t.Language != "" {
			t.Language = strings.ToLower(t.Language)
			t.Datatype = RDFLangString
		} else if t.Datatype == "" {
			t.Datatype = XSDString
		}
	}
	return t
}

func escapeLiteral(s string) string {
	if !strings.ContainsAny(s, "\"\\\n\r\t") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
