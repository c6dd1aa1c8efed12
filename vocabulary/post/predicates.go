package post

import "github.com/c360studio/semsync/rdf"

// Content and metadata predicates shared by all post types.
const (
	// Content is the body text of a post.
	Content = rdf.NSSIOC + "content"

	// Title is the optional headline.
	Title = rdf.NSDCTerms + "title"

	// Created is the creation timestamp (xsd:dateTime).
	Created = rdf.NSDCTerms + "created"

	// Modified is the last modification timestamp (xsd:dateTime).
	Modified = rdf.NSDCTerms + "modified"

	// Date is the message timestamp used by chat posts.
	Date = rdf.NSDCTerms + "date"

	// Tag is a free-text subject keyword; one quad per tag.
	Tag = rdf.NSDCTerms + "subject"
)

// Link predicates.
const (
	// Recalls is the bookmarked resource.
	Recalls = rdf.NSBookmark + "recalls"
)

// Profile predicates.
const (
	Name     = rdf.NSFOAF + "name"
	Nick     = rdf.NSFOAF + "nick"
	Mbox     = rdf.NSFOAF + "mbox"
	Homepage = rdf.NSFOAF + "homepage"
	Img      = rdf.NSFOAF + "img"

	// Account links a profile to an online account blank node.
	Account = rdf.NSFOAF + "account"

	// AccountServiceHomepage is the service an account belongs to.
	AccountServiceHomepage = rdf.NSFOAF + "accountServiceHomepage"

	// AccountName is the user name on that service.
	AccountName = rdf.NSFOAF + "accountName"
)
