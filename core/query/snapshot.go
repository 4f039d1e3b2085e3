package query

import "fmt"

// InvalidSelectError reports a selector whose payload is not a recognized
// shape. It is a build-time contract violation surfaced when the query is
// snapshotted or serialized, not a network failure.
type InvalidSelectError struct {
	Payload string
}

func (e *InvalidSelectError) Error() string {
	return fmt.Sprintf("Invalid select %s", e.Payload)
}

// Snapshot produces a deep, JSON-serializable view of the query,
// recursively expanding embedded and logical children. Two queries with
// equal snapshots serialize identically, which makes the snapshot usable
// as an equality, debugging or cache key.
func (q *Query) Snapshot() (map[string]any, error) {
	m := map[string]any{
		"resource":    q.resource,
		"cardinality": string(q.cardinality),
	}

	if len(q.selectors) > 0 {
		selectors := make([]any, 0, len(q.selectors))
		for _, sel := range q.selectors {
			snap, err := sel.snapshot()
			if err != nil {
				return nil, err
			}
			selectors = append(selectors, snap)
		}
		m["selectors"] = selectors
	}

	if len(q.filters) > 0 {
		filters := map[string]any{}
		for _, op := range filterOperators {
			entries := q.filters[op]
			if len(entries) == 0 {
				continue
			}
			list := make([]any, 0, len(entries))
			for _, e := range entries {
				entry := map[string]any{
					"column":  e.Column,
					"negated": e.Negated,
				}
				if op == FilterOperatorIn {
					entry["values"] = e.Values
				} else {
					entry["value"] = e.Value
				}
				list = append(list, entry)
			}
			filters[string(op)] = list
		}
		m["filters"] = filters
	}

	for name, groups := range map[string][]LogicalGroup{"and": q.andGroups, "or": q.orGroups} {
		if len(groups) == 0 {
			continue
		}
		list := make([]any, 0, len(groups))
		for _, g := range groups {
			children := make([]any, 0, len(g.Children))
			for _, child := range g.Children {
				snap, err := child.Snapshot()
				if err != nil {
					return nil, err
				}
				children = append(children, snap)
			}
			list = append(list, map[string]any{
				"children": children,
				"negated":  g.Negated,
			})
		}
		m[name] = list
	}

	if len(q.ordering) > 0 {
		list := make([]any, 0, len(q.ordering))
		for _, s := range q.ordering {
			entry := map[string]any{"column": s.Column}
			if s.Direction != "" {
				entry["direction"] = string(s.Direction)
			}
			if s.Nulls != "" {
				entry["nulls"] = string(s.Nulls)
			}
			if s.TopLevel {
				entry["top"] = true
			}
			list = append(list, entry)
		}
		m["order"] = list
	}

	if q.offset != 0 {
		m["offset"] = q.offset
	}
	if q.limit != nil {
		m["limit"] = *q.limit
	}
	if q.innerJoin {
		m["inner"] = true
	}
	if len(q.insertColumns) > 0 {
		m["columns"] = append([]string(nil), q.insertColumns...)
	}

	intent := map[string]any{}
	if q.intent.Count != "" {
		intent["count"] = string(q.intent.Count)
	}
	if q.intent.Returning != "" {
		intent["returning"] = string(q.intent.Returning)
	}
	if q.intent.Resolution != "" {
		intent["resolution"] = string(q.intent.Resolution)
	}
	if q.intent.OnConflict != "" {
		intent["onConflict"] = q.intent.OnConflict
	}
	if q.intent.Missing != "" {
		intent["missing"] = string(q.intent.Missing)
	}
	if q.intent.Profile != "" {
		intent["profile"] = q.intent.Profile
	}
	if len(intent) > 0 {
		m["headers"] = intent
	}

	return m, nil
}

func (s Selector) snapshot() (any, error) {
	switch s.Kind {
	case SelectorWildcard:
		return "*", nil
	case SelectorColumn, SelectorJSONPath:
		entry := map[string]any{
			"kind": string(s.Kind),
			"name": s.Name,
		}
		if s.Rename != "" {
			entry["rename"] = s.Rename
		}
		if s.Cast != "" {
			entry["cast"] = s.Cast
		}
		if s.TextRef {
			entry["text"] = true
		}
		return entry, nil
	case SelectorEmbed:
		child, err := s.Child.Snapshot()
		if err != nil {
			return nil, err
		}
		entry := map[string]any{
			"kind":  string(s.Kind),
			"query": child,
		}
		if s.Rename != "" {
			entry["rename"] = s.Rename
		}
		return entry, nil
	default:
		return nil, &InvalidSelectError{Payload: s.Payload}
	}
}
