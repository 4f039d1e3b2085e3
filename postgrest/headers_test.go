package postgrest

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/restq/go-restq/core/query"
)

func TestRequestHeadersAccept(t *testing.T) {
	many := RequestHeaders(query.New("t"), http.MethodGet, nil)
	assert.Equal(t, MediaTypeJSON, many.Get("Accept"))

	one := RequestHeaders(query.New("t").Single(), http.MethodGet, nil)
	assert.Equal(t, MediaTypeSingular, one.Get("Accept"))

	// Cardinality wins over a caller-supplied Accept.
	extra := http.Header{}
	extra.Set("Accept", "text/csv")
	overridden := RequestHeaders(query.New("t").Single(), http.MethodGet, extra)
	assert.Equal(t, MediaTypeSingular, overridden.Get("Accept"))
}

func TestRequestHeadersPrefer(t *testing.T) {
	t.Run("directives from intent", func(t *testing.T) {
		q := query.New("t").
			Count(query.CountExact).
			Returning(query.ReturnRepresentation).
			OnConflict(query.MergeDuplicates).
			Missing(query.MissingDefault)
		h := RequestHeaders(q, http.MethodPost, nil)
		assert.Equal(t,
			"count=exact,return=representation,resolution=merge-duplicates,missing=default",
			h.Get("Prefer"))
	})

	t.Run("no intent means no header", func(t *testing.T) {
		h := RequestHeaders(query.New("t"), http.MethodGet, nil)
		assert.Empty(t, h.Get("Prefer"))
	})

	t.Run("caller directives survive unless overridden", func(t *testing.T) {
		extra := http.Header{}
		extra.Set("Prefer", "count=planned, timezone=UTC")
		q := query.New("t").Count(query.CountExact)
		h := RequestHeaders(q, http.MethodGet, extra)
		assert.Equal(t, "timezone=UTC,count=exact", h.Get("Prefer"))
	})

	t.Run("caller directives pass through without intent", func(t *testing.T) {
		extra := http.Header{}
		extra.Set("Prefer", "timezone=UTC")
		h := RequestHeaders(query.New("t"), http.MethodGet, extra)
		assert.Equal(t, "timezone=UTC", h.Get("Prefer"))
	})
}

func TestRequestHeadersProfile(t *testing.T) {
	q := query.New("t").Profile("audit")

	read := RequestHeaders(q, http.MethodGet, nil)
	assert.Equal(t, "audit", read.Get("Accept-Profile"))
	assert.Empty(t, read.Get("Content-Profile"))

	head := RequestHeaders(q, http.MethodHead, nil)
	assert.Equal(t, "audit", head.Get("Accept-Profile"))

	write := RequestHeaders(q, http.MethodPost, nil)
	assert.Equal(t, "audit", write.Get("Content-Profile"))
	assert.Empty(t, write.Get("Accept-Profile"))
}

func TestRequestHeadersContentType(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPatch, http.MethodDelete} {
		h := RequestHeaders(query.New("t"), method, nil)
		assert.Equal(t, MediaTypeJSON, h.Get("Content-Type"), "method %s", method)
	}
	h := RequestHeaders(query.New("t"), http.MethodGet, nil)
	assert.Empty(t, h.Get("Content-Type"))
}

func TestRequestHeadersKeepCallerFields(t *testing.T) {
	extra := http.Header{}
	extra.Set("Authorization", "Bearer token")
	extra.Set("X-Api-Key", "k")

	h := RequestHeaders(query.New("t"), http.MethodGet, extra)
	assert.Equal(t, "Bearer token", h.Get("Authorization"))
	assert.Equal(t, "k", h.Get("X-Api-Key"))

	// The caller's header map stays untouched.
	assert.Empty(t, extra.Get("Accept"))
}
