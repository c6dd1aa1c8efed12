// Package errs defines the error taxonomy shared by the graph, sync and endpoint layers.
//
// Every failure the core reports is an *Error carrying a Kind, so callers can
// classify it with errors.As or the Is* helpers regardless of how many times it
// has been wrapped with fmt.Errorf("...: %w", err).
package errs

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// maxMessageBody bounds the response body quoted in a protocol error message.
const maxMessageBody = 512

// Kind classifies an error.
type Kind string

const (
	// KindNetwork is a transport-level failure: unreachable host, DNS, timeout.
	KindNetwork Kind = "network"

	// KindProtocol means the endpoint answered with a non-2xx status.
	KindProtocol Kind = "protocol"

	// KindParse means a payload (remote response or cached graph) could not be decoded.
	KindParse Kind = "parse"

	// KindDomain is an invariant violation in the store or projection layer.
	KindDomain Kind = "domain"

	// KindPersistence is a cache or key-value read/write failure.
	KindPersistence Kind = "persistence"

	// KindConfiguration covers duplicate endpoints and malformed settings.
	KindConfiguration Kind = "configuration"
)

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Message string

	// StatusCode and Body are set for protocol errors.
	StatusCode int
	Body       string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Kind == KindProtocol && e.StatusCode != 0 {
		msg = fmt.Sprintf("status %d: %s", e.StatusCode, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Network wraps a transport failure.
func Network(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

// Protocol records a non-2xx response together with its body.
func Protocol(op string, status int, body string) error {
	return &Error{Kind: KindProtocol, Op: op, Message: truncate(body, maxMessageBody), StatusCode: status, Body: body}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Parse wraps a decoding failure.
func Parse(op string, err error) error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// Domain reports an invariant violation.
func Domain(op, format string, args ...any) error {
	return &Error{Kind: KindDomain, Op: op, Message: fmt.Sprintf(format, args...)}
}

// DomainWrap reports an invariant violation caused by err.
func DomainWrap(op string, err error, format string, args ...any) error {
	return &Error{Kind: KindDomain, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// Persistence wraps a storage failure.
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// Configuration reports invalid or conflicting settings.
func Configuration(op, format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNetwork reports whether err is a network error.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsProtocol reports whether err is a protocol error.
func IsProtocol(err error) bool { return KindOf(err) == KindProtocol }

// IsParse reports whether err is a parse error.
func IsParse(err error) bool { return KindOf(err) == KindParse }

// IsDomain reports whether err is a domain error.
func IsDomain(err error) bool { return KindOf(err) == KindDomain }

// IsPersistence reports whether err is a persistence error.
func IsPersistence(err error) bool { return KindOf(err) == KindPersistence }

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool { return KindOf(err) == KindConfiguration }
