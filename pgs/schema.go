package pgs

import (
	"fmt"

	"github.com/khaller93/es-middleware-sub003/errors"
)

// VertexKind discriminates resource vertices from literal vertices.
type VertexKind string

// Vertex kinds stored in the kind property.
const (
	ResourceKind VertexKind = "resource"
	LiteralKind  VertexKind = "literal"
)

// Schema names the vertex properties an RDF term is projected onto.
type Schema struct {
	// IdentityProperty holds the RDF identity of a vertex: the IRI, the
	// blank node identity, or the canonical form of a literal.
	IdentityProperty string `json:"identity" yaml:"identity"`

	// KindProperty holds "resource" or "literal".
	KindProperty string `json:"kind" yaml:"kind"`

	// Literal vertex properties.
	ValueProperty    string `json:"value" yaml:"value"`
	DatatypeProperty string `json:"datatype" yaml:"datatype"`
	LanguageProperty string `json:"language" yaml:"language"`
}

// DefaultSchema returns the default property names.
func DefaultSchema() Schema {
	return Schema{
		IdentityProperty: "iri",
		KindProperty:     "kind",
		ValueProperty:    "value",
		DatatypeProperty: "datatype",
		LanguageProperty: "language",
	}
}

// Validate checks that every property name is set and that no two coincide.
func (s Schema) Validate() error {
	names := []struct{ field, value string }{
		{"identity", s.IdentityProperty},
		{"kind", s.KindProperty},
		{"value", s.ValueProperty},
		{"datatype", s.DatatypeProperty},
		{"language", s.LanguageProperty},
	}
	seen := make(map[string]string, len(names))
	for _, n := range names {
		if n.value == "" {
			return errors.WrapInvalid(fmt.Errorf("%s property name is empty", n.field),
				"Schema", "Validate", "check property names")
		}
		if other, dup := seen[n.value]; dup {
			return errors.WrapInvalid(fmt.Errorf("%s and %s both use property %q", other, n.field, n.value),
				"Schema", "Validate", "check property names")
		}
		seen[n.value] = n.field
	}
	return nil
}
