// Package postgrest compiles Query values into the PostgREST URL grammar
// and request headers, and decodes server responses back into typed
// results. It is the dialect layer of the library: the query package
// describes what to ask for, this package knows how the target protocol
// spells it.
package postgrest

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/restq/go-restq/core/query"
)

// ErrInnerOnRoot reports Inner() applied to a query that is not embedded
// inside another. The !inner marker only has meaning on an embedded
// selector.
var ErrInnerOnRoot = errors.New("!inner is only valid on an embedded query")

// Options controls serialization output.
type Options struct {
	// Encoded applies percent-encoding to every key and value. When
	// false the output is the exact percent-decoding of the encoded
	// form, for human-readable debugging.
	Encoded bool
}

// pair is one query-string parameter. Pair order is part of the output
// contract, which is why url.Values (alphabetical) is not used.
type pair struct {
	key   string
	value string
}

// QueryString serializes the query into its query-string form. Clauses
// are emitted in a stable order: select, horizontal filters, logical
// filters, order, limit, offset, on_conflict, columns. Embedded queries
// contribute to each clause with dot-joined key prefixes.
func QueryString(q *query.Query, opts Options) (string, error) {
	if q.InnerJoin() {
		return "", ErrInnerOnRoot
	}

	var pairs []pair

	sel, err := selectClause(q.Selectors())
	if err != nil {
		return "", err
	}
	if sel != "" {
		pairs = append(pairs, pair{"select", sel})
	}

	collectFilterPairs(q, "", &pairs)
	if err := collectLogicalPairs(q, "", &pairs); err != nil {
		return "", err
	}
	collectOrderPairs(q, &pairs)
	collectLimitPairs(q, "", &pairs)
	collectOffsetPairs(q, "", &pairs)

	if intent := q.Intent(); intent.OnConflict != "" {
		pairs = append(pairs, pair{"on_conflict", intent.OnConflict})
	}
	if cols := q.InsertColumns(); len(cols) > 0 {
		pairs = append(pairs, pair{"columns", strings.Join(cols, ",")})
	}

	return encodePairs(pairs, opts.Encoded), nil
}

// selectClause renders the select list, empty when no selectors were
// declared (the server then returns all declared columns).
func selectClause(selectors []query.Selector) (string, error) {
	if len(selectors) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(selectors))
	for _, s := range selectors {
		tok, err := selectorToken(s)
		if err != nil {
			return "", err
		}
		parts = append(parts, tok)
	}
	return strings.Join(parts, ","), nil
}

func selectorToken(s query.Selector) (string, error) {
	switch s.Kind {
	case query.SelectorWildcard:
		return "*", nil
	case query.SelectorColumn, query.SelectorJSONPath:
		tok := s.Name
		if s.Rename != "" {
			tok = s.Rename + ":" + tok
		}
		if s.Cast != "" {
			tok += "::" + s.Cast
		}
		return tok, nil
	case query.SelectorEmbed:
		inner, err := selectClause(s.Child.Selectors())
		if err != nil {
			return "", err
		}
		tok := s.Child.Resource()
		if s.Rename != "" {
			tok = s.Rename + ":" + tok
		}
		if s.Child.InnerJoin() {
			tok += "!inner"
		}
		return tok + "(" + inner + ")", nil
	default:
		return "", &query.InvalidSelectError{Payload: s.Payload}
	}
}

// embeddedSegment is the dotted-prefix segment an embedded selector
// contributes: its rename when present, else the child's resource name.
func embeddedSegment(s query.Selector) string {
	if s.Rename != "" {
		return s.Rename
	}
	return s.Child.Resource()
}

// collectFilterPairs emits one parameter per horizontal filter tuple,
// recursing into embedded queries with an accumulated dotted prefix.
func collectFilterPairs(q *query.Query, prefix string, pairs *[]pair) {
	for _, op := range query.FilterOperators() {
		for _, e := range q.FiltersFor(op) {
			*pairs = append(*pairs, pair{prefix + e.Column, filterToken(op, e)})
		}
	}
	for _, s := range q.Selectors() {
		if s.Kind == query.SelectorEmbed {
			collectFilterPairs(s.Child, prefix+embeddedSegment(s)+".", pairs)
		}
	}
}

// filterToken renders `[not.]op.value` with list values parenthesized.
func filterToken(op query.FilterOperator, e query.FilterEntry) string {
	var v string
	if op == query.FilterOperatorIn {
		items := make([]string, 0, len(e.Values))
		for _, raw := range e.Values {
			items = append(items, sanitizeValue(query.FormatScalar(raw)))
		}
		v = "(" + strings.Join(items, ",") + ")"
	} else {
		v = sanitizeValue(query.FormatScalar(e.Value))
	}
	if e.Negated {
		return "not." + string(op) + "." + v
	}
	return string(op) + "." + v
}

// specialValueChars are the grammar separators that force a value token
// into quoted form.
const specialValueChars = `,.:()" `

// sanitizeValue wraps tokens containing grammar separators in double
// quotes, escaping interior quotes.
func sanitizeValue(tok string) string {
	if !strings.ContainsAny(tok, specialValueChars) {
		return tok
	}
	return `"` + strings.ReplaceAll(tok, `"`, `\"`) + `"`
}

// collectLogicalPairs emits the and/or group parameters, recursing into
// embedded queries with the same prefixes as horizontal filters.
func collectLogicalPairs(q *query.Query, prefix string, pairs *[]pair) error {
	for _, g := range q.AndGroups() {
		if err := appendGroupPair(g, "and", prefix, pairs); err != nil {
			return err
		}
	}
	for _, g := range q.OrGroups() {
		if err := appendGroupPair(g, "or", prefix, pairs); err != nil {
			return err
		}
	}
	for _, s := range q.Selectors() {
		if s.Kind == query.SelectorEmbed {
			if err := collectLogicalPairs(s.Child, prefix+embeddedSegment(s)+".", pairs); err != nil {
				return err
			}
		}
	}
	return nil
}

func appendGroupPair(g query.LogicalGroup, op, prefix string, pairs *[]pair) error {
	body, err := renderGroupBody(g.Children)
	if err != nil {
		return err
	}
	key := op
	if g.Negated {
		key = "not." + op
	}
	*pairs = append(*pairs, pair{prefix + key, "(" + body + ")"})
	return nil
}

// renderGroupBody joins the children's filter items and nested groups
// inline, without key= prefixes.
func renderGroupBody(children []*query.Query) (string, error) {
	var items []string
	for _, child := range children {
		if child == nil {
			continue
		}
		if child.HasSelectors() {
			return "", fmt.Errorf("logical group children must not carry selectors (resource %q)", child.Resource())
		}
		childItems, err := groupItems(child)
		if err != nil {
			return "", err
		}
		items = append(items, childItems...)
	}
	return strings.Join(items, ","), nil
}

// groupItems renders one child's horizontal filters as `column.[not.]op.value`
// followed by its own nested groups as inline `[not.]and(...)` / `[not.]or(...)`.
func groupItems(child *query.Query) ([]string, error) {
	var items []string
	for _, op := range query.FilterOperators() {
		for _, e := range child.FiltersFor(op) {
			items = append(items, e.Column+"."+filterToken(op, e))
		}
	}
	for _, g := range child.AndGroups() {
		tok, err := inlineGroup(g, "and")
		if err != nil {
			return nil, err
		}
		items = append(items, tok)
	}
	for _, g := range child.OrGroups() {
		tok, err := inlineGroup(g, "or")
		if err != nil {
			return nil, err
		}
		items = append(items, tok)
	}
	return items, nil
}

func inlineGroup(g query.LogicalGroup, op string) (string, error) {
	body, err := renderGroupBody(g.Children)
	if err != nil {
		return "", err
	}
	tok := op
	if g.Negated {
		tok = "not." + op
	}
	return tok + "(" + body + ")", nil
}

// collectOrderPairs emits the root order parameter (the root's own keys
// followed by keys hoisted from embedded queries via Top) and one
// prefixed order parameter per embedded query with local keys.
func collectOrderPairs(q *query.Query, pairs *[]pair) {
	rootItems := make([]string, 0, len(q.Ordering()))
	for _, s := range q.Ordering() {
		rootItems = append(rootItems, orderToken(s))
	}

	var embedded []pair
	walkEmbeddedOrder(q, "", &rootItems, &embedded)

	if len(rootItems) > 0 {
		*pairs = append(*pairs, pair{"order", strings.Join(rootItems, ",")})
	}
	*pairs = append(*pairs, embedded...)
}

func walkEmbeddedOrder(q *query.Query, prefix string, rootItems *[]string, out *[]pair) {
	for _, s := range q.Selectors() {
		if s.Kind != query.SelectorEmbed {
			continue
		}
		child := s.Child
		p := prefix + embeddedSegment(s) + "."
		var local []string
		for _, o := range child.Ordering() {
			if o.TopLevel {
				*rootItems = append(*rootItems, hoistedOrderToken(child.Resource(), o))
			} else {
				local = append(local, orderToken(o))
			}
		}
		if len(local) > 0 {
			*out = append(*out, pair{p + "order", strings.Join(local, ",")})
		}
		walkEmbeddedOrder(child, p, rootItems, out)
	}
}

func orderToken(s query.Sort) string {
	tok := s.Column
	if s.Direction != "" {
		tok += "." + string(s.Direction)
	}
	if s.Nulls != "" {
		tok += "." + string(s.Nulls)
	}
	return tok
}

// hoistedOrderToken renders a Top ordering key on the root parameter,
// naming the embedded relation the key lives on.
func hoistedOrderToken(resource string, s query.Sort) string {
	tok := resource + "(" + s.Column + ")"
	if s.Direction != "" {
		tok += "." + string(s.Direction)
	}
	return tok
}

func collectLimitPairs(q *query.Query, prefix string, pairs *[]pair) {
	if limit, ok := q.RowLimit(); ok {
		*pairs = append(*pairs, pair{prefix + "limit", fmt.Sprintf("%d", limit)})
	}
	for _, s := range q.Selectors() {
		if s.Kind == query.SelectorEmbed {
			collectLimitPairs(s.Child, prefix+embeddedSegment(s)+".", pairs)
		}
	}
}

func collectOffsetPairs(q *query.Query, prefix string, pairs *[]pair) {
	if off := q.RowOffset(); off != 0 {
		*pairs = append(*pairs, pair{prefix + "offset", fmt.Sprintf("%d", off)})
	}
	for _, s := range q.Selectors() {
		if s.Kind == query.SelectorEmbed {
			collectOffsetPairs(s.Child, prefix+embeddedSegment(s)+".", pairs)
		}
	}
}

// encodePairs joins the parameters, percent-encoding keys and values when
// requested. The unencoded form is byte-for-byte the percent-decoding of
// the encoded form.
func encodePairs(pairs []pair, encoded bool) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		if encoded {
			b.WriteString(url.QueryEscape(p.key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.value))
		} else {
			b.WriteString(p.key)
			b.WriteByte('=')
			b.WriteString(p.value)
		}
	}
	return b.String()
}
