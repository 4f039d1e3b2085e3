package postgrest

import (
	"net/http"
	"strings"

	"github.com/restq/go-restq/core/query"
)

// Media types of the target protocol.
const (
	MediaTypeJSON     = "application/json"
	MediaTypeSingular = "application/vnd.pgrst.object+json"
)

// RequestHeaders composes the outgoing headers for a query. Caller
// headers are merged in first and survive untouched unless a
// library-managed field covers the same concern: Accept follows the
// query's cardinality, Prefer directives derived from the query replace
// caller directives with the same key, and profile headers follow the
// request method (Accept-Profile on reads, Content-Profile on writes).
func RequestHeaders(q *query.Query, method string, extra http.Header) http.Header {
	h := http.Header{}
	for key, values := range extra {
		for _, v := range values {
			h.Add(key, v)
		}
	}

	if q.Cardinality() == query.CardinalityOne {
		h.Set("Accept", MediaTypeSingular)
	} else {
		h.Set("Accept", MediaTypeJSON)
	}

	if prefer := composePrefer(q.Intent(), h.Values("Prefer")); prefer != "" {
		h.Set("Prefer", prefer)
	}

	read := method == http.MethodGet || method == http.MethodHead
	if profile := q.Intent().Profile; profile != "" {
		if read {
			h.Set("Accept-Profile", profile)
		} else {
			h.Set("Content-Profile", profile)
		}
	}
	if !read {
		h.Set("Content-Type", MediaTypeJSON)
	}

	return h
}

// composePrefer appends one directive per present intent field to the
// caller's directives, dropping caller entries the intent overrides.
func composePrefer(intent query.HeaderIntent, existing []string) string {
	managed := make([]string, 0, 4)
	if intent.Count != "" {
		managed = append(managed, "count="+string(intent.Count))
	}
	if intent.Returning != "" {
		managed = append(managed, "return="+string(intent.Returning))
	}
	if intent.Resolution != "" {
		managed = append(managed, "resolution="+string(intent.Resolution))
	}
	if intent.Missing != "" {
		managed = append(managed, "missing="+string(intent.Missing))
	}

	overridden := func(directive string) bool {
		key, _, _ := strings.Cut(directive, "=")
		for _, m := range managed {
			mk, _, _ := strings.Cut(m, "=")
			if mk == strings.TrimSpace(key) {
				return true
			}
		}
		return false
	}

	var parts []string
	for _, header := range existing {
		for _, directive := range strings.Split(header, ",") {
			directive = strings.TrimSpace(directive)
			if directive != "" && !overridden(directive) {
				parts = append(parts, directive)
			}
		}
	}
	parts = append(parts, managed...)
	return strings.Join(parts, ",")
}
