// Package post projects typed posts onto the graph store and back.
//
// The store is the only source of truth. A Post value is computed from the
// quads of one subject each time it is read and is never cached.
package post

import (
	"strings"
	"time"

	vocab "github.com/c360studio/semsync/vocabulary/post"
)

// Type aliases the vocabulary post type so callers need a single import.
type Type = vocab.Type

// Post types.
const (
	TypeEntry   = vocab.TypeEntry
	TypeLink    = vocab.TypeLink
	TypeWiki    = vocab.TypeWiki
	TypeChat    = vocab.TypeChat
	TypeProfile = vocab.TypeProfile
)

// Post is the read-side projection of one subject.
type Post struct {
	ID      string `json:"id"`
	Type    Type   `json:"type"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	// Timestamps keep their lexical form so unparsable values survive a read.
	Created  string `json:"created,omitempty"`
	Modified string `json:"modified,omitempty"`
	Date     string `json:"date,omitempty"`

	Tags []string `json:"tags,omitempty"`
	URL  string   `json:"url,omitempty"`

	// Profile fields.
	Name     string    `json:"name,omitempty"`
	Nick     string    `json:"nick,omitempty"`
	Email    string    `json:"email,omitempty"`
	Homepage string    `json:"homepage,omitempty"`
	Image    string    `json:"image,omitempty"`
	Accounts []Account `json:"accounts,omitempty"`
}

// Account is an online account attached to a profile.
type Account struct {
	Service string `json:"service" yaml:"service" validate:"required"`
	Name    string `json:"name" yaml:"name" validate:"required"`
}

// Input carries the fields of a post to create or update.
type Input struct {
	// ID is the subject IRI. A value without a scheme is appended to the
	// service base IRI. Empty means generate one.
	ID      string `json:"id,omitempty"`
	Type    Type   `json:"type" validate:"required,oneof=entry link wiki chat profile"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty" validate:"required_if=Type link,omitempty,http_url"`

	Tags []string `json:"tags,omitempty" validate:"dive,required"`

	// Graph is the named graph to write into; empty means the default graph.
	Graph string `json:"graph,omitempty"`

	// Zero timestamps are taken from the service clock.
	Created  time.Time `json:"created,omitempty"`
	Modified time.Time `json:"modified,omitempty"`

	Name     string    `json:"name,omitempty" validate:"required_if=Type profile"`
	Nick     string    `json:"nick,omitempty"`
	Email    string    `json:"email,omitempty" validate:"omitempty,email"`
	Homepage string    `json:"homepage,omitempty"`
	Image    string    `json:"image,omitempty"`
	Accounts []Account `json:"accounts,omitempty" validate:"dive"`
}

// Filter selects posts in List.
type Filter struct {
	Type  Type
	Tag   string
	Graph string
	// Limit caps the result; zero means no limit.
	Limit int
}

// TagCount is a tag with the number of posts carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CreatedTime parses Created.
func (p Post) CreatedTime() (time.Time, bool) {
	return parseTime(p.Created)
}

// ModifiedTime parses Modified.
func (p Post) ModifiedTime() (time.Time, bool) {
	return parseTime(p.Modified)
}

// sortTime is the time List orders by: modified, falling back to created.
func (p Post) sortTime() (time.Time, bool) {
	if t, ok := p.ModifiedTime(); ok {
		return t, true
	}
	return p.CreatedTime()
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
