package post

import "github.com/c360studio/semsync/rdf"

// Type is the kind of a post.
type Type string

// Post types.
const (
	TypeEntry   Type = "entry"
	TypeLink    Type = "link"
	TypeWiki    Type = "wiki"
	TypeChat    Type = "chat"
	TypeProfile Type = "profile"
)

// Types lists every post type in a stable order.
var Types = []Type{TypeEntry, TypeLink, TypeWiki, TypeChat, TypeProfile}

// ClassMap maps post types to class IRIs.
var ClassMap = map[Type]string{
	TypeEntry:   ClassMicroblogPost,
	TypeLink:    ClassBookmark,
	TypeWiki:    ClassWikiArticle,
	TypeChat:    ClassInstantMessage,
	TypeProfile: ClassPerson,
}

// typeByClass is the reverse of ClassMap.
var typeByClass = func() map[string]Type {
	m := make(map[string]Type, len(ClassMap))
	for t, class := range ClassMap {
		m[class] = t
	}
	return m
}()

// Valid reports whether t is a known post type.
func (t Type) Valid() bool {
	_, ok := ClassMap[t]
	return ok
}

// Class returns the class term for t.
func (t Type) Class() rdf.Term {
	return rdf.IRI(ClassMap[t])
}

// TypeForClass returns the post type whose class is the given term.
func TypeForClass(class rdf.Term) (Type, bool) {
	if !class.IsIRI() {
		return "", false
	}
	t, ok := typeByClass[class.Value()]
	return t, ok
}

// IsClass reports whether class is the class of any post type.
func IsClass(class rdf.Term) bool {
	_, ok := TypeForClass(class)
	return ok
}
