package post

import "github.com/c360studio/semsync/rdf"

// Class IRIs for each post type.
const (
	// ClassMicroblogPost is the class of short-form entries.
	ClassMicroblogPost = rdf.NSSIOCT + "MicroblogPost"

	// ClassBookmark is the class of saved links.
	ClassBookmark = rdf.NSBookmark + "Bookmark"

	// ClassWikiArticle is the class of long-lived, revisable articles.
	ClassWikiArticle = rdf.NSSIOCT + "WikiArticle"

	// ClassInstantMessage is the class of chat messages.
	ClassInstantMessage = rdf.NSSIOCT + "InstantMessage"

	// ClassPerson is the class of profiles.
	ClassPerson = rdf.NSFOAF + "Person"
)
