package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterOperatorIsStandard(t *testing.T) {
	for _, op := range FilterOperators() {
		assert.True(t, op.IsStandard(), "operator %q", op)
	}
	assert.False(t, FilterOperator("contains").IsStandard())
	assert.False(t, FilterOperator("").IsStandard())
	assert.False(t, FilterOperator("EQ").IsStandard())
}

func TestFilterOperatorsOrderIsStable(t *testing.T) {
	expected := []FilterOperator{
		FilterOperatorEq, FilterOperatorGt, FilterOperatorGte,
		FilterOperatorLt, FilterOperatorLte, FilterOperatorNeq,
		FilterOperatorLike, FilterOperatorILike, FilterOperatorIn,
		FilterOperatorIs,
	}
	assert.Equal(t, expected, FilterOperators())

	// Callers get a copy, not the canonical slice.
	ops := FilterOperators()
	ops[0] = FilterOperator("mutated")
	assert.Equal(t, FilterOperatorEq, FilterOperators()[0])
}

func TestSelectorConstructors(t *testing.T) {
	t.Run("star", func(t *testing.T) {
		s := Star()
		assert.Equal(t, SelectorWildcard, s.Kind)
	})

	t.Run("column", func(t *testing.T) {
		s := Col("name")
		assert.Equal(t, SelectorColumn, s.Kind)
		assert.Equal(t, "name", s.Name)
	})

	t.Run("empty column is invalid", func(t *testing.T) {
		s := Col("")
		assert.Equal(t, SelectorInvalid, s.Kind)
		assert.Equal(t, "empty column name", s.Payload)
	})

	t.Run("json path", func(t *testing.T) {
		s := Path("data->attrs->color")
		assert.Equal(t, SelectorJSONPath, s.Kind)
		assert.False(t, s.TextRef)
	})

	t.Run("json text path", func(t *testing.T) {
		s := Path("data->attrs->>color")
		assert.Equal(t, SelectorJSONPath, s.Kind)
		assert.True(t, s.TextRef)
	})

	t.Run("embed", func(t *testing.T) {
		child := New("lines")
		s := Embed(child)
		assert.Equal(t, SelectorEmbed, s.Kind)
		assert.Same(t, child, s.Child)
	})

	t.Run("nil embed is invalid", func(t *testing.T) {
		s := Embed(nil)
		assert.Equal(t, SelectorInvalid, s.Kind)
	})
}

func TestSelectorModifiersDoNotMutate(t *testing.T) {
	base := Col("total")
	renamed := base.As("sum")
	cast := base.WithCast("numeric")

	assert.Empty(t, base.Rename)
	assert.Empty(t, base.Cast)
	assert.Equal(t, "sum", renamed.Rename)
	assert.Equal(t, "numeric", cast.Cast)
}

func TestSortConstructorsAndModifiers(t *testing.T) {
	assert.Equal(t, Sort{Column: "a", Direction: SortAsc}, Asc("a"))
	assert.Equal(t, Sort{Column: "a", Direction: SortDesc}, Desc("a"))
	assert.Equal(t, Sort{Column: "a"}, By("a"))

	base := Desc("a")
	assert.Equal(t, NullsFirst, base.NullsFirst().Nulls)
	assert.Equal(t, NullsLast, base.NullsLast().Nulls)
	assert.True(t, base.Top().TopLevel)

	// Value receivers: the base stays untouched.
	assert.Empty(t, base.Nulls)
	assert.False(t, base.TopLevel)
}

func TestContainsTextArrow(t *testing.T) {
	tests := []struct {
		expr     string
		expected bool
	}{
		{"data->color", false},
		{"data->>color", true},
		{"data->attrs->>color", true},
		{"plain", false},
		{"", false},
		{"a->>b", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, containsTextArrow(tt.expr), "expr %q", tt.expr)
	}
}

func TestFormatScalar(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected string
	}{
		{"nil", nil, "null"},
		{"true", true, "true"},
		{"false", false, "false"},
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"negative int", -7, "-7"},
		{"int64", int64(1 << 40), "1099511627776"},
		{"uint", uint(9), "9"},
		{"float", 9.5, "9.5"},
		{"float without fraction", 2.0, "2"},
		{"float32", float32(1.25), "1.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatScalar(tt.value))
		})
	}
}

func TestPointerHelpers(t *testing.T) {
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Equal(t, 5, *IntPtr(5))
	assert.Equal(t, int64(5), *Int64Ptr(5))
}
