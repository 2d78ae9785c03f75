package testutil

import (
	"strings"

	"github.com/khaller93/es-middleware-sub003/rdf"
)

// Namespace of the Wine fixture.
const WineNS = "http://www.w3.org/TR/2003/PR-owl-guide-20031209/wine#"

// Wine vocabulary terms.
var (
	Wine      = rdf.NewIRI(WineNS + "Wine")
	WineClass = rdf.NewIRI(WineNS + "WineClass")
	RedWine   = rdf.NewIRI(WineNS + "RedWine")
	Merlot    = rdf.NewIRI(WineNS + "Merlot")
	Region    = rdf.NewIRI(WineNS + "Region")
	Bordeaux  = rdf.NewIRI(WineNS + "Bordeaux")

	LocatedIn = rdf.NewIRI(WineNS + "locatedIn")
	Vintage   = rdf.NewIRI(WineNS + "hasVintageYear")

	RDFType        = rdf.NewIRI(rdf.RDFType)
	RDFSLabel      = rdf.NewIRI(rdf.RDFSLabel)
	RDFSSubClassOf = rdf.NewIRI(rdf.RDFSSubClassOf)
)

// WineLabel is the English label of ex:Wine.
var WineLabel = rdf.NewLangLiteral("Wine", "en")

// WineTypeTriple states that Wine is a WineClass.
func WineTypeTriple() rdf.Triple { return rdf.NewTriple(Wine, RDFType, WineClass) }

// WineLabelTriple labels Wine.
func WineLabelTriple() rdf.Triple { return rdf.NewTriple(Wine, RDFSLabel, WineLabel) }

// WineMinimal returns the two-triple store of the Wine scenario.
func WineMinimal() []rdf.Triple {
	return []rdf.Triple{WineTypeTriple(), WineLabelTriple()}
}

// WineExtended returns a larger excerpt with class hierarchy, shared
// literals, a blank node and a typed literal.
func WineExtended() []rdf.Triple {
	region := rdf.NewBlank("region1")
	return []rdf.Triple{
		WineTypeTriple(),
		WineLabelTriple(),
		rdf.NewTriple(RedWine, RDFSSubClassOf, Wine),
		rdf.NewTriple(RedWine, RDFSLabel, rdf.NewLangLiteral("Red wine", "en")),
		rdf.NewTriple(Merlot, RDFSSubClassOf, RedWine),
		rdf.NewTriple(Merlot, RDFSLabel, rdf.NewLangLiteral("Merlot", "en")),
		rdf.NewTriple(Merlot, LocatedIn, region),
		rdf.NewTriple(region, RDFType, Region),
		rdf.NewTriple(region, RDFSLabel, rdf.NewLiteral("Bordeaux")),
		rdf.NewTriple(Bordeaux, RDFSLabel, rdf.NewLiteral("Bordeaux")),
		rdf.NewTriple(Bordeaux, RDFType, Region),
		rdf.NewTriple(Merlot, Vintage, rdf.NewTypedLiteral("1998", rdf.XSDInteger)),
	}
}

// NTriples renders triples as an N-Triples document.
func NTriples(triples []rdf.Triple) string {
	var b strings.Builder
	for _, t := range triples {
		b.WriteString(t.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// WineNTriples returns WineExtended as an N-Triples reader.
func WineNTriples() *strings.Reader {
	return strings.NewReader(NTriples(WineExtended()))
}
