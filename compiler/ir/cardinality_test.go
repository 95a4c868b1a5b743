package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		obs  []Cardinality
		dup  bool
		want Cardinality
	}{
		{"Empty", nil, false, ZeroOrOne},
		{"SingleExactly1", []Cardinality{Exactly1}, false, Exactly1},
		{"DuplicateKeys", []Cardinality{Exactly1, Exactly1}, true, ZeroOrMany},
		{"DuplicateKeysWinsOverOneOrMany", []Cardinality{OneOrMany}, true, ZeroOrMany},
		{"AnyOneOrMany", []Cardinality{ZeroOrOne, OneOrMany, ZeroOrMany}, false, OneOrMany},
		{"AnyZeroOrMany", []Cardinality{Exactly1, ZeroOrMany}, false, ZeroOrMany},
		{"Exactly1Twice", []Cardinality{Exactly1, Exactly1}, false, Exactly1},
		{"MixedLoosens", []Cardinality{Exactly1, ZeroOrOne}, false, ZeroOrOne},
		{"MixedOrderIndependent", []Cardinality{ZeroOrOne, Exactly1}, false, ZeroOrOne},
		{"OnlyOptional", []Cardinality{ZeroOrOne}, false, ZeroOrOne},
		{"InvalidCountsAsMany", []Cardinality{"2..7x"}, false, ZeroOrMany},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(tt.obs, tt.dup))
		})
	}
}

func TestMergeTotal(t *testing.T) {
	for _, a := range Cardinalities {
		for _, b := range Cardinalities {
			for _, dup := range []bool{false, true} {
				got := Merge([]Cardinality{a, b}, dup)
				require.True(t, got.Valid(), "merge(%s, %s, %t) = %q", a, b, dup, got)
				assert.Equal(t, got, Merge([]Cardinality{b, a}, dup), "merge must not depend on order")
			}
		}
	}
}

func TestParseCardinality(t *testing.T) {
	tests := []struct {
		in   string
		want Cardinality
	}{
		{"1", Exactly1},
		{" 0..1 ", ZeroOrOne},
		{"1..*", OneOrMany},
		{"0..*", ZeroOrMany},
		{"Exactly1", Exactly1},
		{"zeroOrMany", ZeroOrMany},
		{"*", ZeroOrMany},
		{"+", OneOrMany},
		{"0", ZeroOrOne},
		{"3", OneOrMany},
		{"2..5", OneOrMany},
		{"0..3", ZeroOrMany},
		{"1..1", Exactly1},
		{"1..n", OneOrMany},
		{"0..N", ZeroOrMany},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCardinality(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	for _, bad := range []string{"", "many-ish", "-1", "3..1", "x..2", "1..y"} {
		t.Run("Invalid/"+bad, func(t *testing.T) {
			_, err := ParseCardinality(bad)
			require.Error(t, err)
			assert.True(t, onto2schema.IsUnsupportedCardinality(err))
		})
	}
}

func TestFromBounds(t *testing.T) {
	assert.Equal(t, Exactly1, FromBounds(1, 1))
	assert.Equal(t, OneOrMany, FromBounds(1, -1))
	assert.Equal(t, OneOrMany, FromBounds(2, 2))
	assert.Equal(t, ZeroOrOne, FromBounds(0, 1))
	assert.Equal(t, ZeroOrOne, FromBounds(0, 0))
	assert.Equal(t, ZeroOrMany, FromBounds(0, -1))
	assert.Equal(t, ZeroOrMany, FromBounds(0, 4))
}

func TestCardinalityHelpers(t *testing.T) {
	assert.True(t, Exactly1.Required())
	assert.False(t, Exactly1.Many())
	assert.True(t, OneOrMany.Many())
	assert.Equal(t, Mandatory, OneOrMany.Requirement())
	assert.Equal(t, Optional, ZeroOrMany.Requirement())
	assert.Equal(t, "ZeroOrOne", ZeroOrOne.Name())
	assert.Equal(t, "Invalid(x)", Cardinality("x").Name())
	assert.Equal(t, ZeroOrMany, Cardinality("x").OrFallback())
	assert.Equal(t, Exactly1, Exactly1.OrFallback())
	assert.False(t, Requirement("maybe").Valid())
}
