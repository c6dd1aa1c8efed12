// Package endpoint keeps the registry of remote SPARQL endpoints and decides
// which of them are usable.
//
// Each endpoint moves through a small state machine:
//
//	unknown  -> checking
//	active   -> checking
//	inactive -> checking
//	checking -> active | inactive
//
// There is no terminal state; every endpoint can be re-probed at any time.
package endpoint

import (
	"time"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/rdf"
	"github.com/c360studio/semsync/sparql"
)

// Type is the role of an endpoint.
type Type string

// Endpoint types.
const (
	TypeQuery  Type = "query"
	TypeUpdate Type = "update"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeQuery || t == TypeUpdate
}

// Status is the health of an endpoint.
type Status string

// Endpoint statuses.
const (
	StatusUnknown  Status = "unknown"
	StatusChecking Status = "checking"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// transitions lists the allowed next states of each state.
var transitions = map[Status][]Status{
	StatusUnknown:  {StatusChecking},
	StatusActive:   {StatusChecking},
	StatusInactive: {StatusChecking},
	StatusChecking: {StatusActive, StatusInactive},
}

// CanTransition reports whether an endpoint may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Endpoint is a remote SPARQL service. URL is the primary key.
type Endpoint struct {
	URL         string              `json:"url"`
	Label       string              `json:"label,omitempty"`
	Type        Type                `json:"type"`
	Status      Status              `json:"status"`
	LastChecked *time.Time          `json:"last_checked,omitempty"`
	LastError   string              `json:"last_error,omitempty"`
	Credentials *sparql.Credentials `json:"credentials,omitempty"`
}

// Validate checks the URL, type and credentials.
func (e Endpoint) Validate() error {
	if e.URL == "" {
		return errs.Configuration("endpoint", "url is required")
	}
	if !rdf.ValidIRI(e.URL) {
		return errs.Configuration("endpoint", "url %q is not an absolute URL", e.URL)
	}
	if !e.Type.Valid() {
		return errs.Configuration("endpoint", "%s: type must be query or update, got %q", e.URL, e.Type)
	}
	if c := e.Credentials; c != nil && c.User == "" && c.Password != "" {
		return errs.Configuration("endpoint", "%s: credentials have a password but no user", e.URL)
	}
	return nil
}

// clone returns a copy that shares no pointers with e.
func (e Endpoint) clone() Endpoint {
	if e.LastChecked != nil {
		t := *e.LastChecked
		e.LastChecked = &t
	}
	if e.Credentials != nil {
		c := *e.Credentials
		e.Credentials = &c
	}
	return e
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Label       *string
	Type        *Type
	Status      *Status
	LastChecked *time.Time
	LastError   *string
	Credentials *sparql.Credentials

	// ClearCredentials removes stored credentials.
	ClearCredentials bool
}

// Summary is the outcome of a CheckAll round.
type Summary struct {
	AnyActive    bool         `json:"any_active"`
	ActiveByType map[Type]int `json:"active_by_type"`
	Checked      int          `json:"checked"`
}
