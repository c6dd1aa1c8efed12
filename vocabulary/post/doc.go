// Package post defines the vocabulary that maps typed posts onto the graph.
//
// Every post is a subject carrying an rdf:type quad whose object is one of
// the recognized classes below. Fields are stored under well-known
// predicates from SIOC, Dublin Core, FOAF and the W3C bookmark vocabulary,
// so the data stays readable by any RDF tool.
//
// # Type Mapping
//
//	Post Type → Class
//	entry     → sioct:MicroblogPost
//	link      → bm:Bookmark
//	wiki      → sioct:WikiArticle
//	chat      → sioct:InstantMessage
//	profile   → foaf:Person
//
// # Field Mapping
//
//	Field     → Predicate               Object
//	content   → sioc:content            literal
//	title     → dcterms:title           literal
//	created   → dcterms:created         xsd:dateTime
//	modified  → dcterms:modified        xsd:dateTime
//	date      → dcterms:date            xsd:dateTime (chat)
//	tag       → dcterms:subject         literal, one quad per tag
//	url       → bm:recalls              IRI (link)
//	name      → foaf:name               literal (profile)
//	nick      → foaf:nick               literal (profile)
//	email     → foaf:mbox               mailto: IRI (profile)
//	homepage  → foaf:homepage           IRI (profile)
//	image     → foaf:img                IRI (profile)
//	account   → foaf:account            blank node (profile)
//
// Accounts are blank nodes carrying foaf:accountServiceHomepage and
// foaf:accountName.
package post
