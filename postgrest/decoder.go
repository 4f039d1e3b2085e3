package postgrest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/restq/go-restq/core/query"
	"github.com/restq/go-restq/core/transport"
)

// Result is the typed envelope for one decoded response. Row is populated
// for cardinality-one queries, Rows otherwise. TotalLength and
// PagesLength are present only when the server reported a parsable range
// total; absence means genuinely absent, not zero. Location carries the
// Location header of write responses when present.
type Result struct {
	Row         any
	Rows        []any
	TotalLength *int64
	PagesLength *int64
	Location    string
}

// Decode interprets a transport response against the query that produced
// it: non-success statuses become a ServerError carrying the parsed
// diagnostic body, success payloads are shaped by the query's
// cardinality, pagination metadata is read from the Content-Range header,
// and embedded selections are structurally validated against their
// declared cardinality.
func Decode(q *query.Query, resp *transport.Response) (*Result, error) {
	var body any
	hasBody := resp.HasJSONBody()
	if hasBody {
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			hasBody = false
			body = nil
		}
	}

	if resp.Status < 200 || resp.Status > 299 {
		return nil, &ServerError{
			Status:     resp.Status,
			StatusText: resp.StatusText,
			Data:       body,
			Headers:    resp.Headers,
		}
	}

	res := &Result{Location: resp.Headers.Get("Location")}

	if total, ok := parseRangeTotal(resp.Headers.Get("Content-Range")); ok {
		res.TotalLength = &total
		pages := int64(1)
		if limit, set := q.RowLimit(); set && limit > 0 {
			pages = (total + int64(limit) - 1) / int64(limit)
		}
		res.PagesLength = &pages
	}

	if hasBody && body != nil {
		if err := validateBody(q, body); err != nil {
			return nil, err
		}
	}

	if q.Cardinality() == query.CardinalityOne {
		res.Row = body
	} else if rows, ok := body.([]any); ok {
		res.Rows = rows
	}

	return res, nil
}

// parseRangeTotal extracts the total from a Content-Range style value
// such as "0-9/100". An absent header, a "*" total or an unparsable
// total all yield no pagination metadata.
func parseRangeTotal(header string) (int64, bool) {
	if header == "" {
		return 0, false
	}
	_, totalPart, found := strings.Cut(header, "/")
	if !found {
		return 0, false
	}
	total, err := strconv.ParseInt(strings.TrimSpace(totalPart), 10, 64)
	if err != nil {
		return 0, false
	}
	return total, true
}

// validateBody walks the response payload with the same selector walk the
// serializer uses, confirming that every embedded selection's property
// matches the declared cardinality. An empty top-level array
// short-circuits: there is nothing to check.
func validateBody(q *query.Query, body any) error {
	switch v := body.(type) {
	case []any:
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				if err := validateRow(q, obj); err != nil {
					return err
				}
			}
		}
		return nil
	case map[string]any:
		return validateRow(q, v)
	default:
		return nil
	}
}

func validateRow(q *query.Query, row map[string]any) error {
	for _, sel := range q.Selectors() {
		if sel.Kind != query.SelectorEmbed {
			continue
		}
		key := embeddedSegment(sel)
		prop, present := row[key]
		if !present {
			continue
		}
		child := sel.Child
		switch child.Cardinality() {
		case query.CardinalityOne:
			if prop == nil {
				continue
			}
			obj, ok := prop.(map[string]any)
			if !ok {
				return &CardinalityError{Cardinality: query.CardinalityOne, Key: key}
			}
			if err := validateRow(child, obj); err != nil {
				return err
			}
		default:
			arr, ok := prop.([]any)
			if !ok {
				return &CardinalityError{Cardinality: query.CardinalityMany, Key: key}
			}
			for _, item := range arr {
				if obj, ok := item.(map[string]any); ok {
					if err := validateRow(child, obj); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
