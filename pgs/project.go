package pgs

import (
	"github.com/khaller93/es-middleware-sub003/errors"
	"github.com/khaller93/es-middleware-sub003/rdf"
)

// VertexOp describes a vertex the projection requires to exist.
type VertexOp struct {
	ID         string            `json:"id"`
	Kind       VertexKind        `json:"kind"`
	Properties map[string]string `json:"properties"`
}

// EdgeOp describes a labelled edge between two vertex identities.
type EdgeOp struct {
	From  string `json:"from"`
	Label string `json:"label"`
	To    string `json:"to"`
}

// Projector maps triples onto property graph operations.
type Projector struct {
	schema Schema
	blanks BlankScope
}

// NewProjector returns a projector for schema. A nil scope uses LabelScope.
func NewProjector(schema Schema, blanks BlankScope) *Projector {
	if blanks == nil {
		blanks = LabelScope{}
	}
	return &Projector{schema: schema, blanks: blanks}
}

// Schema returns the projector's schema.
func (p *Projector) Schema() Schema {
	return p.schema
}

// Project maps a triple. See ProjectTriple.
func (p *Projector) Project(t rdf.Triple) ([]VertexOp, []EdgeOp, error) {
	return p.ProjectTriple(t.Subject, t.Predicate, t.Object)
}

// ProjectTriple maps one triple onto the vertices it requires and the one
// edge it contributes. A resource object yields an edge between two
// resource vertices; a literal object yields a literal vertex and an edge
// from the subject to it. The result depends only on the input and the
// blank scope.
//
// Terms that cannot be projected fail with *errors.SchemaViolationError;
// no triple is ever silently dropped.
func (p *Projector) ProjectTriple(subject, predicate, object rdf.Term) ([]VertexOp, []EdgeOp, error) {
	t := rdf.Triple{Subject: subject, Predicate: predicate, Object: object}

	if err := subject.Validate(); err != nil {
		return nil, nil, violation(t, "subject", err.Error())
	}
	if !subject.IsResource() {
		return nil, nil, violation(t, "subject", "subject must be an IRI or blank node")
	}
	if err := predicate.Validate(); err != nil {
		return nil, nil, violation(t, "predicate", err.Error())
	}
	if predicate.Kind != rdf.KindIRI {
		return nil, nil, violation(t, "predicate", "predicate must be an IRI")
	}
	if err := object.Validate(); err != nil {
		return nil, nil, violation(t, "object", err.Error())
	}

	from := p.resourceVertex(subject)
	var to VertexOp
	if object.IsLiteral() {
		to = p.literalVertex(object)
	} else {
		to = p.resourceVertex(object)
	}

	vertices := []VertexOp{from}
	if to.ID != from.ID {
		vertices = append(vertices, to)
	}
	edges := []EdgeOp{{From: from.ID, Label: predicate.Value, To: to.ID}}
	return vertices, edges, nil
}

// Identity returns the vertex identity of a term, without validating it.
func (p *Projector) Identity(term rdf.Term) string {
	switch term.Kind {
	case rdf.KindBlank:
		return p.blanks.Identify(term.Value)
	case rdf.KindLiteral:
		return term.String()
	default:
		return term.Value
	}
}

func (p *Projector) resourceVertex(term rdf.Term) VertexOp {
	id := p.Identity(term)
	return VertexOp{
		ID:   id,
		Kind: ResourceKind,
		Properties: map[string]string{
			p.schema.IdentityProperty: id,
			p.schema.KindProperty:     string(ResourceKind),
		},
	}
}

func (p *Projector) literalVertex(term rdf.Term) VertexOp {
	id := p.Identity(term)
	datatype := term.Datatype
	if datatype == "" {
		datatype = rdf.XSDString
	}
	if term.Language != "" {
		datatype = rdf.RDFLangString
	}
	props := map[string]string{
		p.schema.IdentityProperty: id,
		p.schema.KindProperty:     string(LiteralKind),
		p.schema.ValueProperty:    term.Value,
		p.schema.DatatypeProperty: datatype,
	}
	if term.Language != "" {
		props[p.schema.LanguageProperty] = term.Language
	}
	return VertexOp{ID: id, Kind: LiteralKind, Properties: props}
}

func violation(t rdf.Triple, position, reason string) error {
	return &errors.SchemaViolationError{Triple: t.String(), Position: position, Reason: reason}
}
