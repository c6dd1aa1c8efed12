package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestKindOf_Wrapped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
		is   func(error) bool
	}{
		{"network", Network("query", context.DeadlineExceeded), KindNetwork, IsNetwork},
		{"protocol", Protocol("update", 400, "bad syntax"), KindProtocol, IsProtocol},
		{"parse", Parse("construct", errors.New("unexpected token")), KindParse, IsParse},
		{"domain", Domain("create", "invalid url %q", "x"), KindDomain, IsDomain},
		{"persistence", Persistence("save", errors.New("disk full")), KindPersistence, IsPersistence},
		{"configuration", Configuration("add", "duplicate"), KindConfiguration, IsConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.Equal(t, tt.want, KindOf(wrapped))
			assert.True(t, tt.is(wrapped))
		})
	}
}

func TestKindOf_Plain(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.False(t, IsNetwork(nil))
}

func TestError_Message(t *testing.T) {
	err := Protocol("query", 503, "unavailable")
	assert.Equal(t, "query: protocol error: status 503: unavailable", err.Error())

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "unavailable", e.Body)
	assert.Equal(t, 503, e.StatusCode)
}

func TestProtocol_TruncatesOnRuneBoundary(t *testing.T) {
	// 511 ASCII bytes put a 3-byte rune across the 512 byte limit.
	body := strings.Repeat("a", 511) + strings.Repeat("€", 10)
	err := Protocol("update", 500, body)

	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.True(t, utf8.ValidString(e.Message))
	assert.Equal(t, strings.Repeat("a", 511)+"...", e.Message)
	assert.Equal(t, body, e.Body)

	short := Protocol("update", 500, "ok €")
	assert.True(t, errors.As(short, &e))
	assert.Equal(t, "ok €", e.Message)
}

func TestError_UnwrapCause(t *testing.T) {
	err := Network("ask", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
