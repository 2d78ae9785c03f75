// Package pgs defines the property graph schema: how an RDF triple is
// projected onto property graph vertices and edges.
//
// Every IRI and blank node becomes a resource vertex whose identity
// property holds the IRI (or the blank node identity chosen by a
// BlankScope). Every literal becomes a literal vertex carrying its lexical
// value, datatype and language; its identity is the literal's canonical
// N-Triples form, so equal literals share one vertex. The predicate becomes
// the label of an edge from the subject vertex to the object vertex.
//
// For the triples
//
//	ex:Wine rdf:type ex:WineClass .
//	ex:Wine rdfs:label "Wine"@en .
//
// the projection yields resource vertices ex:Wine and ex:WineClass, a
// literal vertex "Wine"@en with value "Wine" and language "en", and the
// edges ex:Wine -rdf:type-> ex:WineClass and ex:Wine -rdfs:label-> "Wine"@en.
//
// Projection is deterministic and idempotent: applying the operations of
// the same triple twice leaves a graph unchanged.
package pgs
