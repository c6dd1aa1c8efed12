package post

import (
	"sort"
	"strings"

	"github.com/c360studio/semstreams/vocabulary"
)

// Dotted predicate names registered with the semstreams vocabulary. Each
// name maps to the standard IRI the store actually uses.
const (
	FieldContent  = "post.body.content"
	FieldTitle    = "post.meta.title"
	FieldCreated  = "post.time.created"
	FieldModified = "post.time.modified"
	FieldDate     = "post.time.date"
	FieldTag      = "post.meta.tag"
	FieldURL      = "post.link.url"

	FieldName     = "post.profile.name"
	FieldNick     = "post.profile.nick"
	FieldEmail    = "post.profile.email"
	FieldHomepage = "post.profile.homepage"
	FieldImage    = "post.profile.image"
	FieldAccount  = "post.profile.account"

	FieldAccountService = "post.account.service"
	FieldAccountName    = "post.account.name"
)

// Domain is the vocabulary domain every post predicate is registered under.
const Domain = "post"

func registerContentPredicates() {
	vocabulary.Register(FieldContent,
		vocabulary.WithDescription("Body text of a post"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Content))

	vocabulary.Register(FieldTitle,
		vocabulary.WithDescription("Optional headline"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Title))

	vocabulary.Register(FieldCreated,
		vocabulary.WithDescription("Creation timestamp"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Created))

	vocabulary.Register(FieldModified,
		vocabulary.WithDescription("Last modification timestamp"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Modified))

	vocabulary.Register(FieldDate,
		vocabulary.WithDescription("Message timestamp of a chat post"),
		vocabulary.WithDataType("datetime"),
		vocabulary.WithIRI(Date))

	vocabulary.Register(FieldTag,
		vocabulary.WithDescription("Free-text subject keyword, one value per tag"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Tag))

	vocabulary.Register(FieldURL,
		vocabulary.WithDescription("Bookmarked resource of a link post"),
		vocabulary.WithDataType("iri"),
		vocabulary.WithIRI(Recalls))
}

func registerProfilePredicates() {
	vocabulary.Register(FieldName,
		vocabulary.WithDescription("Display name of a profile"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Name),
		vocabulary.WithAlias(vocabulary.AliasTypeLabel, 1))

	vocabulary.Register(FieldNick,
		vocabulary.WithDescription("Short handle of a profile"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(Nick),
		vocabulary.WithAlias(vocabulary.AliasTypeAlternate, 2))

	vocabulary.Register(FieldEmail,
		vocabulary.WithDescription("Mailbox of a profile as a mailto: IRI"),
		vocabulary.WithDataType("iri"),
		vocabulary.WithIRI(Mbox))

	vocabulary.Register(FieldHomepage,
		vocabulary.WithDescription("Homepage of a profile"),
		vocabulary.WithDataType("iri"),
		vocabulary.WithIRI(Homepage))

	vocabulary.Register(FieldImage,
		vocabulary.WithDescription("Avatar image of a profile"),
		vocabulary.WithDataType("iri"),
		vocabulary.WithIRI(Img))

	vocabulary.Register(FieldAccount,
		vocabulary.WithDescription("Online account held by a profile"),
		vocabulary.WithDataType("blank"),
		vocabulary.WithIRI(Account))

	vocabulary.Register(FieldAccountService,
		vocabulary.WithDescription("Service an account belongs to"),
		vocabulary.WithDataType("iri"),
		vocabulary.WithIRI(AccountServiceHomepage))

	vocabulary.Register(FieldAccountName,
		vocabulary.WithDescription("User name on the account's service"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AccountName))
}

func init() {
	registerContentPredicates()
	registerProfilePredicates()
}

// Fields returns the metadata of every registered post predicate, sorted by
// name.
func Fields() []vocabulary.PredicateMetadata {
	var out []vocabulary.PredicateMetadata
	for _, name := range vocabulary.ListRegisteredPredicates() {
		if !strings.HasPrefix(name, Domain+".") {
			continue
		}
		if meta := vocabulary.GetPredicateMetadata(name); meta != nil {
			out = append(out, *meta)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FieldForIRI returns the dotted name registered for a predicate IRI.
func FieldForIRI(iri string) (string, bool) {
	for _, meta := range Fields() {
		if meta.StandardIRI == iri {
			return meta.Name, true
		}
	}
	return "", false
}
