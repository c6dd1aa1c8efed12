package rdf

// Well-known namespaces.
const (
	NSRDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	NSXSD      = "http://www.w3.org/2001/XMLSchema#"
	NSDCTerms  = "http://purl.org/dc/terms/"
	NSFOAF     = "http://xmlns.com/foaf/0.1/"
	NSSIOC     = "http://rdfs.org/sioc/ns#"
	NSSIOCT    = "http://rdfs.org/sioc/types#"
	NSBookmark = "http://www.w3.org/2002/01/bookmark#"
)

// Frequently used terms.
var (
	RDFType  = IRI(NSRDF + "type")
	RDFFirst = IRI(NSRDF + "first")
	RDFRest  = IRI(NSRDF + "rest")
	RDFNil   = IRI(NSRDF + "nil")
)

// XSD datatype IRIs.
const (
	XSDString   = NSXSD + "string"
	XSDBoolean  = NSXSD + "boolean"
	XSDInteger  = NSXSD + "integer"
	XSDDecimal  = NSXSD + "decimal"
	XSDDouble   = NSXSD + "double"
	XSDDateTime = NSXSD + "dateTime"
	XSDDate     = NSXSD + "date"
)

// DefaultPrefixes returns the prefix table used when writing Turtle.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"rdf":     NSRDF,
		"rdfs":    NSRDFS,
		"xsd":     NSXSD,
		"dcterms": NSDCTerms,
		"foaf":    NSFOAF,
		"sioc":    NSSIOC,
		"sioct":   NSSIOCT,
		"bm":      NSBookmark,
	}
}
