package export

import (
	"fmt"
	"strings"
)

// Format specifies the serialization format.
type Format string

const (
	// FormatTurtle produces Turtle (.ttl) output. Graph names are dropped.
	FormatTurtle Format = "turtle"

	// FormatTriG produces TriG (.trig) output: Turtle plus named-graph blocks.
	FormatTriG Format = "trig"

	// FormatNTriples produces N-Triples (.nt) output. Graph names are dropped.
	FormatNTriples Format = "ntriples"

	// FormatNQuads produces N-Quads (.nq) output.
	FormatNQuads Format = "nquads"
)

// FormatInfo provides metadata about a serialization format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string

	// Graphs reports whether named graphs survive the format.
	Graphs bool
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:        FormatTurtle,
		MIMEType:    "text/turtle",
		Extension:   ".ttl",
		Description: "Turtle - Terse RDF Triple Language",
	},
	FormatTriG: {
		Name:        FormatTriG,
		MIMEType:    "application/trig",
		Extension:   ".trig",
		Description: "TriG - Turtle with named graphs",
		Graphs:      true,
	},
	FormatNTriples: {
		Name:        FormatNTriples,
		MIMEType:    "application/n-triples",
		Extension:   ".nt",
		Description: "N-Triples - Line-based RDF format",
	},
	FormatNQuads: {
		Name:        FormatNQuads,
		MIMEType:    "application/n-quads",
		Extension:   ".nq",
		Description: "N-Quads - Line-based RDF format with graph names",
		Graphs:      true,
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat resolves a format name, file extension or MIME type.
// MIME parameters such as charset are ignored.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	switch s {
	case "ttl":
		return FormatTurtle, nil
	case "nt":
		return FormatNTriples, nil
	case "nq":
		return FormatNQuads, nil
	}
	for name, info := range FormatRegistry {
		if s == string(name) || s == info.MIMEType || s == info.Extension {
			return name, nil
		}
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}
