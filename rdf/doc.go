// Package rdf defines RDF terms and triples and reads and writes them in
// N-Triples syntax.
//
// Terms are plain values. Two terms are equal when they denote the same RDF
// term, so a literal built with NewLiteral equals one parsed from
// "x"^^<http://www.w3.org/2001/XMLSchema#string>. Term.String returns the
// canonical N-Triples form, which other packages use as a stable identity.
//
//	triples, err := rdf.DecodeAll(file)
//	enc := rdf.NewEncoder(os.Stdout)
//	for _, t := range triples {
//	    _ = enc.Encode(t)
//	}
//	_ = enc.Flush()
package rdf
