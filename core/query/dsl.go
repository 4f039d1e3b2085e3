// Package query defines the value model and immutable builder for queries
// against a PostgREST-style REST API. A Query describes vertical filtering
// (column selection, renames, casts, embedded resources), horizontal
// filtering (row predicates and logical groups), ordering, pagination and
// request header intent. Queries are plain values with no behavior beyond
// construction; serialization to the wire grammar lives in the postgrest
// package.
package query

// Cardinality declares the expected shape of a response: a single object
// or a collection of rows. It affects request headers and response
// decoding, never the URL.
type Cardinality string

// Supported cardinalities.
const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// FilterOperator identifies a horizontal filter predicate.
type FilterOperator string

// Supported filter operators.
const (
	FilterOperatorEq    FilterOperator = "eq"
	FilterOperatorGt    FilterOperator = "gt"
	FilterOperatorGte   FilterOperator = "gte"
	FilterOperatorLt    FilterOperator = "lt"
	FilterOperatorLte   FilterOperator = "lte"
	FilterOperatorNeq   FilterOperator = "neq"
	FilterOperatorLike  FilterOperator = "like"
	FilterOperatorILike FilterOperator = "ilike"
	FilterOperatorIn    FilterOperator = "in"
	FilterOperatorIs    FilterOperator = "is"
)

// filterOperators is the canonical emission order for filter clauses.
var filterOperators = []FilterOperator{
	FilterOperatorEq,
	FilterOperatorGt,
	FilterOperatorGte,
	FilterOperatorLt,
	FilterOperatorLte,
	FilterOperatorNeq,
	FilterOperatorLike,
	FilterOperatorILike,
	FilterOperatorIn,
	FilterOperatorIs,
}

// FilterOperators returns the canonical, stable ordering of filter
// operators used when emitting query parameters.
func FilterOperators() []FilterOperator {
	ops := make([]FilterOperator, len(filterOperators))
	copy(ops, filterOperators)
	return ops
}

// IsStandard checks whether the operator is one of the built-in predicates.
func (op FilterOperator) IsStandard() bool {
	for _, o := range filterOperators {
		if o == op {
			return true
		}
	}
	return false
}

// FilterEntry is a single horizontal filter tuple. Values holds the list
// for set-valued operators (in); Value holds the operand for everything
// else. Negated marks the predicate as negated.
type FilterEntry struct {
	Column  string
	Value   any
	Values  []any
	Negated bool
}

// LogicalGroup combines the filters of its child queries under one logical
// operator. Children carry only filter and logical state; a child with
// selectors is rejected at serialization time.
type LogicalGroup struct {
	Children []*Query
	Negated  bool
}

// SelectorKind tags the selector union.
type SelectorKind string

// Selector variants.
const (
	SelectorWildcard SelectorKind = "wildcard"
	SelectorColumn   SelectorKind = "column"
	SelectorJSONPath SelectorKind = "json"
	SelectorEmbed    SelectorKind = "embed"
	// SelectorInvalid records a malformed selector payload; the error
	// surfaces from Snapshot or serialization, never at build time.
	SelectorInvalid SelectorKind = "invalid"
)

// Selector is one item of a select list, expressed as a tagged union
// rather than a sniffed shape. Name holds the column name for
// SelectorColumn and the arrow path expression for SelectorJSONPath.
type Selector struct {
	Kind    SelectorKind
	Name    string
	Rename  string
	Cast    string
	TextRef bool   // JSON path uses the render-as-text arrow variant
	Child   *Query // embedded query for SelectorEmbed
	Payload string // offending payload for SelectorInvalid
}

// Star selects all declared columns of the resource.
func Star() Selector {
	return Selector{Kind: SelectorWildcard, Name: "*"}
}

// Col selects a plain column.
func Col(name string) Selector {
	if name == "" {
		return invalidSelector("empty column name")
	}
	return Selector{Kind: SelectorColumn, Name: name}
}

// Path selects a JSON or composite path expression such as
// "data->attrs->>color". The expression passes through to the wire
// grammar verbatim.
func Path(expr string) Selector {
	if expr == "" {
		return invalidSelector("empty json path")
	}
	return Selector{
		Kind:    SelectorJSONPath,
		Name:    expr,
		TextRef: containsTextArrow(expr),
	}
}

// Embed selects a related resource as a nested query.
func Embed(child *Query) Selector {
	if child == nil {
		return invalidSelector("nil embedded query")
	}
	return Selector{Kind: SelectorEmbed, Child: child}
}

func invalidSelector(payload string) Selector {
	return Selector{Kind: SelectorInvalid, Payload: payload}
}

// As renames the selector in the response.
func (s Selector) As(name string) Selector {
	s.Rename = name
	return s
}

// WithCast adds a type cast to a column or path selector.
func (s Selector) WithCast(typ string) Selector {
	s.Cast = typ
	return s
}

// SortDirection specifies an ordering direction.
type SortDirection string

// Supported sort directions. The empty direction defers to the server
// default.
const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// NullsPosition places null values relative to the rest of the ordering.
type NullsPosition string

// Supported null placements.
const (
	NullsFirst NullsPosition = "nullsfirst"
	NullsLast  NullsPosition = "nullslast"
)

// Sort is one ordering key. TopLevel marks a key declared on an embedded
// query that orders the parent row set instead of the embedded rows.
type Sort struct {
	Column    string
	Direction SortDirection
	Nulls     NullsPosition
	TopLevel  bool
}

// Asc builds an ascending ordering key.
func Asc(column string) Sort {
	return Sort{Column: column, Direction: SortAsc}
}

// Desc builds a descending ordering key.
func Desc(column string) Sort {
	return Sort{Column: column, Direction: SortDesc}
}

// By builds an ordering key without an explicit direction.
func By(column string) Sort {
	return Sort{Column: column}
}

// NullsFirst places nulls before non-null values.
func (s Sort) NullsFirst() Sort {
	s.Nulls = NullsFirst
	return s
}

// NullsLast places nulls after non-null values.
func (s Sort) NullsLast() Sort {
	s.Nulls = NullsLast
	return s
}

// Top hoists the key to the root query so that parent rows are ordered
// by this embedded column.
func (s Sort) Top() Sort {
	s.TopLevel = true
	return s
}

// CountMode selects how the server counts the total result size.
type CountMode string

// Supported count modes.
const (
	CountExact     CountMode = "exact"
	CountPlanned   CountMode = "planned"
	CountEstimated CountMode = "estimated"
)

// ReturnMode selects what a write operation returns.
type ReturnMode string

// Supported return modes.
const (
	ReturnMinimal        ReturnMode = "minimal"
	ReturnHeadersOnly    ReturnMode = "headers-only"
	ReturnRepresentation ReturnMode = "representation"
)

// ConflictResolution selects the upsert policy for writes.
type ConflictResolution string

// Supported conflict resolutions.
const (
	MergeDuplicates  ConflictResolution = "merge-duplicates"
	IgnoreDuplicates ConflictResolution = "ignore-duplicates"
)

// MissingPolicy selects how absent columns are filled on bulk writes.
type MissingPolicy string

// Supported missing-value policies.
const (
	MissingDefault MissingPolicy = "default"
	MissingNull    MissingPolicy = "null"
)

// HeaderIntent carries the request header directives declared on a query.
// Zero values mean "not set".
type HeaderIntent struct {
	Count      CountMode
	Returning  ReturnMode
	Resolution ConflictResolution
	OnConflict string
	Missing    MissingPolicy
	Profile    string
}

// containsTextArrow reports whether a path expression uses the
// render-as-text arrow.
func containsTextArrow(expr string) bool {
	for i := 0; i+2 < len(expr); i++ {
		if expr[i] == '-' && expr[i+1] == '>' && expr[i+2] == '>' {
			return true
		}
	}
	return false
}
