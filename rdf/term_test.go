package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerm_String(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"iri", NewIRI("http://example.org/Wine"), "<http://example.org/Wine>"},
		{"blank", NewBlank("b0"), "_:b0"},
		{"plain literal", NewLiteral("Wine"), `"Wine"`},
		{"lang literal", NewLangLiteral("Wine", "EN"), `"Wine"@en`},
		{"typed literal", NewTypedLiteral("42", XSDInteger), `"42"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"escaped", NewLiteral("a \"b\"\n"), `"a \"b\"\n"`},
		{"invalid", Term{Value: "x"}, `?invalid("x")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.String())
		})
	}
}

func TestTerm_Equal(t *testing.T) {
	assert.True(t, NewLiteral("x").Equal(Term{Kind: KindLiteral, Value: "x"}))
	assert.True(t, NewLangLiteral("x", "EN").Equal(Term{Kind: KindLiteral, Value: "x", Language: "en"}))
	assert.False(t, NewLiteral("x").Equal(NewLangLiteral("x", "en")))
	assert.False(t, NewIRI("x").Equal(NewBlank("x")))
}

func TestTerm_Validate(t *testing.T) {
	assert.NoError(t, NewIRI("http://example.org/a").Validate())
	assert.NoError(t, NewBlank("b").Validate())
	assert.NoError(t, NewLiteral("").Validate())

	assert.Error(t, Term{}.Validate())
	assert.Error(t, NewIRI("").Validate())
	assert.Error(t, NewIRI("has space").Validate())
	assert.Error(t, NewIRI("_:b1").Validate())
	assert.Error(t, NewIRI("relative/path").Validate())
	assert.Error(t, NewIRI(":x").Validate())
	assert.Error(t, NewIRI("1http://x").Validate())
	assert.NoError(t, NewIRI("urn:isbn:0451450523").Validate())
	assert.NoError(t, NewIRI("tag+x.y-z:1").Validate())
	assert.Error(t, NewBlank("").Validate())
	assert.Error(t, Term{Kind: KindLiteral, Value: "x", Language: "en", Datatype: XSDInteger}.Validate())
}

func TestSet(t *testing.T) {
	a := NewTriple(NewIRI("s"), NewIRI("p"), NewLiteral("a"))
	b := NewTriple(NewIRI("s"), NewIRI("p"), NewLiteral("b"))
	c := NewTriple(NewIRI("s"), NewIRI("p"), NewLiteral("c"))

	s := NewSet(a, b, a)
	assert.Equal(t, 2, s.Len())
	assert.False(t, s.Add(b))
	assert.True(t, s.Add(c))

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.True(t, s.Contains(b))
	assert.True(t, s.Contains(c))
	assert.ElementsMatch(t, []Triple{b, c}, s.Triples())
}
