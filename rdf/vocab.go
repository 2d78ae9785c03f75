package rdf

// Standard vocabulary IRIs used by the projection and the test fixtures.
//
// References:
// - RDF 1.1 Concepts: https://www.w3.org/TR/rdf11-concepts/
// - RDF Schema: https://www.w3.org/TR/rdf-schema/
// - XML Schema datatypes: https://www.w3.org/TR/xmlschema11-2/

// RDF Standard IRIs
const (
	// RDFType states that a resource is an instance of a class.
	RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

	// RDFLangString is the datatype of every language-tagged literal.
	RDFLangString = "http://www.w3.org/1999/02/22-rdf-syntax-ns#langString"
)

// RDF Schema Standard IRIs
const (
	// RDFSLabel provides a human-readable name for a resource.
	RDFSLabel = "http://www.w3.org/2000/01/rdf-schema#label"

	// RDFSComment provides a human-readable description of a resource.
	RDFSComment = "http://www.w3.org/2000/01/rdf-schema#comment"

	// RDFSSubClassOf states that all instances of one class are instances of another.
	RDFSSubClassOf = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
)

// XML Schema datatype IRIs
const (
	// XSDString is the implicit datatype of plain literals.
	XSDString = "http://www.w3.org/2001/XMLSchema#string"

	XSDInteger = "http://www.w3.org/2001/XMLSchema#integer"
	XSDDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	XSDBoolean = "http://www.w3.org/2001/XMLSchema#boolean"
	XSDDate    = "http://www.w3.org/2001/XMLSchema#date"
)
