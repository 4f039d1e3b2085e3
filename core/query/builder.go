// The fluent builder for Query values. Every mutator copies the receiver
// and returns the copy, so a base query can be branched into any number
// of derived queries without coordination; no method ever mutates its
// receiver or throws at call time. Contract violations (malformed
// selectors, misplaced modifiers) are carried in the value and surface
// when the query is snapshotted or serialized.
package query

// Query is an immutable description of one request against a single
// resource. Construct with New, derive with the fluent methods, then hand
// the value to the postgrest package for serialization and decoding.
type Query struct {
	resource      string
	cardinality   Cardinality
	selectors     []Selector
	filters       map[FilterOperator][]FilterEntry
	andGroups     []LogicalGroup
	orGroups      []LogicalGroup
	negatePending bool
	ordering      []Sort
	offset        int
	limit         *int
	intent        HeaderIntent
	innerJoin     bool
	insertColumns []string
}

// New creates a query for the named resource expecting a collection
// response.
func New(resource string) *Query {
	return &Query{
		resource:    resource,
		cardinality: CardinalityMany,
	}
}

// clone returns a deep copy of the query. Child queries referenced by
// embedded selectors and logical groups are immutable themselves, so the
// references are shared; every slice and map owned by this node is copied.
func (q *Query) clone() *Query {
	c := *q
	if q.selectors != nil {
		c.selectors = make([]Selector, len(q.selectors))
		copy(c.selectors, q.selectors)
	}
	if q.filters != nil {
		c.filters = make(map[FilterOperator][]FilterEntry, len(q.filters))
		for op, entries := range q.filters {
			dup := make([]FilterEntry, len(entries))
			copy(dup, entries)
			c.filters[op] = dup
		}
	}
	if q.andGroups != nil {
		c.andGroups = make([]LogicalGroup, len(q.andGroups))
		copy(c.andGroups, q.andGroups)
	}
	if q.orGroups != nil {
		c.orGroups = make([]LogicalGroup, len(q.orGroups))
		copy(c.orGroups, q.orGroups)
	}
	if q.ordering != nil {
		c.ordering = make([]Sort, len(q.ordering))
		copy(c.ordering, q.ordering)
	}
	if q.limit != nil {
		l := *q.limit
		c.limit = &l
	}
	if q.insertColumns != nil {
		c.insertColumns = make([]string, len(q.insertColumns))
		copy(c.insertColumns, q.insertColumns)
	}
	return &c
}

// Select appends selectors to the select list. Insertion order is
// preserved; a wildcard may coexist with explicit columns (the server
// ignores the explicit ones).
func (q *Query) Select(selectors ...Selector) *Query {
	c := q.clone()
	c.selectors = append(c.selectors, selectors...)
	return c
}

// SelectJSON appends arrow-path selectors. The render-as-text arrow
// variant is only legal in Select; paths using it are recorded as invalid
// and reported at serialization.
func (q *Query) SelectJSON(paths ...string) *Query {
	c := q.clone()
	for _, p := range paths {
		sel := Path(p)
		if sel.TextRef {
			sel = invalidSelector("text arrow path " + p + " not allowed in SelectJSON")
		}
		c.selectors = append(c.selectors, sel)
	}
	return c
}

// Not marks the next filter or logical call on the returned query as
// negated. The flag lives only on the returned copy and is consumed by
// exactly one subsequent call; applying Not twice in a row is the same as
// applying it once.
func (q *Query) Not() *Query {
	c := q.clone()
	c.negatePending = true
	return c
}

// addFilter appends a tuple under op, consuming the pending negation.
func (q *Query) addFilter(op FilterOperator, entry FilterEntry) *Query {
	c := q.clone()
	entry.Negated = c.negatePending
	c.negatePending = false
	if c.filters == nil {
		c.filters = make(map[FilterOperator][]FilterEntry)
	}
	c.filters[op] = append(c.filters[op], entry)
	return c
}

// Eq filters rows where column equals value.
func (q *Query) Eq(column string, value any) *Query {
	return q.addFilter(FilterOperatorEq, FilterEntry{Column: column, Value: value})
}

// Gt filters rows where column is greater than value.
func (q *Query) Gt(column string, value any) *Query {
	return q.addFilter(FilterOperatorGt, FilterEntry{Column: column, Value: value})
}

// Gte filters rows where column is greater than or equal to value.
func (q *Query) Gte(column string, value any) *Query {
	return q.addFilter(FilterOperatorGte, FilterEntry{Column: column, Value: value})
}

// Lt filters rows where column is less than value.
func (q *Query) Lt(column string, value any) *Query {
	return q.addFilter(FilterOperatorLt, FilterEntry{Column: column, Value: value})
}

// Lte filters rows where column is less than or equal to value.
func (q *Query) Lte(column string, value any) *Query {
	return q.addFilter(FilterOperatorLte, FilterEntry{Column: column, Value: value})
}

// Neq filters rows where column differs from value.
func (q *Query) Neq(column string, value any) *Query {
	return q.addFilter(FilterOperatorNeq, FilterEntry{Column: column, Value: value})
}

// Like filters rows where column matches a case-sensitive pattern.
func (q *Query) Like(column string, pattern string) *Query {
	return q.addFilter(FilterOperatorLike, FilterEntry{Column: column, Value: pattern})
}

// ILike filters rows where column matches a case-insensitive pattern.
func (q *Query) ILike(column string, pattern string) *Query {
	return q.addFilter(FilterOperatorILike, FilterEntry{Column: column, Value: pattern})
}

// In filters rows where column is one of values.
func (q *Query) In(column string, values ...any) *Query {
	return q.addFilter(FilterOperatorIn, FilterEntry{Column: column, Values: values})
}

// Is filters rows with an identity check, typically against null, true or
// false.
func (q *Query) Is(column string, value any) *Query {
	return q.addFilter(FilterOperatorIs, FilterEntry{Column: column, Value: value})
}

// And groups the filters of the child queries under a logical AND.
func (q *Query) And(children ...*Query) *Query {
	c := q.clone()
	c.andGroups = append(c.andGroups, LogicalGroup{Children: children, Negated: c.negatePending})
	c.negatePending = false
	return c
}

// Or groups the filters of the child queries under a logical OR.
func (q *Query) Or(children ...*Query) *Query {
	c := q.clone()
	c.orGroups = append(c.orGroups, LogicalGroup{Children: children, Negated: c.negatePending})
	c.negatePending = false
	return c
}

// AndWhere is the function form of And: fn receives a fresh query scoped
// to the same resource for composing the group's children inline.
func (q *Query) AndWhere(fn func(*Query) []*Query) *Query {
	return q.And(fn(New(q.resource))...)
}

// OrWhere is the function form of Or: fn receives a fresh query scoped to
// the same resource for composing the group's children inline.
func (q *Query) OrWhere(fn func(*Query) []*Query) *Query {
	return q.Or(fn(New(q.resource))...)
}

// Order appends ordering keys. Append order is tie-break precedence: the
// first key is the primary sort.
func (q *Query) Order(sorts ...Sort) *Query {
	c := q.clone()
	c.ordering = append(c.ordering, sorts...)
	return c
}

// Offset sets the row offset. Zero is the inert default and is never
// serialized.
func (q *Query) Offset(n int) *Query {
	c := q.clone()
	c.offset = n
	return c
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	c := q.clone()
	c.limit = &n
	return c
}

// DefaultPageSize is the page size used by Page when none is given.
const DefaultPageSize = 10

// Page is pagination sugar: offset = index*size, limit = size. A size of
// zero or less selects DefaultPageSize.
func (q *Query) Page(index, size int) *Query {
	if size <= 0 {
		size = DefaultPageSize
	}
	return q.Offset(index * size).Limit(size)
}

// Count requests a total-count mode via the Prefer header.
func (q *Query) Count(mode CountMode) *Query {
	c := q.clone()
	c.intent.Count = mode
	return c
}

// Returning selects what a write operation returns.
func (q *Query) Returning(mode ReturnMode) *Query {
	c := q.clone()
	c.intent.Returning = mode
	return c
}

// OnConflict sets the upsert resolution and optionally the conflict
// target column.
func (q *Query) OnConflict(resolution ConflictResolution, column ...string) *Query {
	c := q.clone()
	c.intent.Resolution = resolution
	if len(column) > 0 {
		c.intent.OnConflict = column[0]
	}
	return c
}

// Missing sets the policy for columns absent from a bulk write payload.
func (q *Query) Missing(policy MissingPolicy) *Query {
	c := q.clone()
	c.intent.Missing = policy
	return c
}

// Profile targets a database schema other than the server default.
func (q *Query) Profile(schema string) *Query {
	c := q.clone()
	c.intent.Profile = schema
	return c
}

// Columns restricts which fields are accepted on writes. Ignored on
// reads.
func (q *Query) Columns(names ...string) *Query {
	c := q.clone()
	c.insertColumns = append(c.insertColumns, names...)
	return c
}

// Single declares that the response is one object rather than a
// collection. Affects headers and decoding only, never the URL.
func (q *Query) Single() *Query {
	c := q.clone()
	c.cardinality = CardinalityOne
	return c
}

// Inner requests that this embedded query act as a filter on its parent,
// dropping parent rows with no match. Only valid on an embedded query;
// calling it on a root query is detected at serialization.
func (q *Query) Inner() *Query {
	c := q.clone()
	c.innerJoin = true
	return c
}

// Resource returns the targeted resource name.
func (q *Query) Resource() string { return q.resource }

// Cardinality returns the expected response shape.
func (q *Query) Cardinality() Cardinality { return q.cardinality }

// Selectors returns the select list in insertion order. The returned
// slice is shared; callers must not modify it.
func (q *Query) Selectors() []Selector { return q.selectors }

// FiltersFor returns the filter tuples recorded under op, in insertion
// order.
func (q *Query) FiltersFor(op FilterOperator) []FilterEntry { return q.filters[op] }

// AndGroups returns the AND logical groups in insertion order.
func (q *Query) AndGroups() []LogicalGroup { return q.andGroups }

// OrGroups returns the OR logical groups in insertion order.
func (q *Query) OrGroups() []LogicalGroup { return q.orGroups }

// Ordering returns the ordering keys in declaration order.
func (q *Query) Ordering() []Sort { return q.ordering }

// RowOffset returns the row offset.
func (q *Query) RowOffset() int { return q.offset }

// RowLimit returns the row limit and whether one is set.
func (q *Query) RowLimit() (int, bool) {
	if q.limit == nil {
		return 0, false
	}
	return *q.limit, true
}

// Intent returns the header directives declared on the query.
func (q *Query) Intent() HeaderIntent { return q.intent }

// InnerJoin reports whether Inner was called.
func (q *Query) InnerJoin() bool { return q.innerJoin }

// InsertColumns returns the write-time column restriction.
func (q *Query) InsertColumns() []string { return q.insertColumns }

// HasSelectors reports whether the query carries any select list at all,
// valid or not.
func (q *Query) HasSelectors() bool { return len(q.selectors) > 0 }
