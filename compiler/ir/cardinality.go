package ir

import (
	"strconv"
	"strings"

	"github.com/syssam/onto2schema"
)

// Cardinality is the normalized multiplicity of a property or relationship.
// Only the four constants below are valid values.
type Cardinality string

// Cardinality tags.
const (
	Exactly1   Cardinality = "1"
	ZeroOrOne  Cardinality = "0..1"
	OneOrMany  Cardinality = "1..*"
	ZeroOrMany Cardinality = "0..*"
)

// Cardinalities lists every valid tag.
var Cardinalities = []Cardinality{Exactly1, ZeroOrOne, OneOrMany, ZeroOrMany}

// Valid reports whether c is one of the four tags.
func (c Cardinality) Valid() bool {
	switch c {
	case Exactly1, ZeroOrOne, OneOrMany, ZeroOrMany:
		return true
	default:
		return false
	}
}

// Name returns the tag name, e.g. "Exactly1".
func (c Cardinality) Name() string {
	switch c {
	case Exactly1:
		return "Exactly1"
	case ZeroOrOne:
		return "ZeroOrOne"
	case OneOrMany:
		return "OneOrMany"
	case ZeroOrMany:
		return "ZeroOrMany"
	default:
		return "Invalid(" + string(c) + ")"
	}
}

// Required reports whether the lower bound is at least one.
func (c Cardinality) Required() bool { return c == Exactly1 || c == OneOrMany }

// Many reports whether c renders as a collection.
func (c Cardinality) Many() bool { return c == OneOrMany || c == ZeroOrMany }

// Requirement returns the requirement implied by the lower bound.
func (c Cardinality) Requirement() Requirement {
	if c.Required() {
		return Mandatory
	}
	return Optional
}

// OrFallback returns c if valid and ZeroOrMany otherwise.
func (c Cardinality) OrFallback() Cardinality {
	if c.Valid() {
		return c
	}
	return ZeroOrMany
}

// FromBounds returns the tag for a lower and upper bound. A negative upper
// bound stands for unbounded.
func FromBounds(lower, upper int64) Cardinality {
	switch {
	case lower >= 1 && upper == 1:
		return Exactly1
	case lower >= 1:
		return OneOrMany
	case upper >= 0 && upper <= 1:
		return ZeroOrOne
	default:
		return ZeroOrMany
	}
}

// ParseCardinality normalizes a raw cardinality string. It accepts the tags
// themselves, their names, a bare count "N" and bounds "lower..upper" where
// upper may be "*".
func ParseCardinality(raw string) (Cardinality, error) {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "exactly1", "one", "1..1":
		return Exactly1, nil
	case "zeroorone", "optional", "?":
		return ZeroOrOne, nil
	case "oneormany", "+", "1..n":
		return OneOrMany, nil
	case "zeroormany", "*", "many", "0..n":
		return ZeroOrMany, nil
	}
	if c := Cardinality(s); c.Valid() {
		return c, nil
	}
	lo, hi, ranged := strings.Cut(s, "..")
	if !ranged {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n < 0 {
			return "", onto2schema.NewUnsupportedCardinalityError("", "", raw)
		}
		return FromBounds(n, n), nil
	}
	lower, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil || lower < 0 {
		return "", onto2schema.NewUnsupportedCardinalityError("", "", raw)
	}
	hi = strings.TrimSpace(hi)
	if hi == "*" || strings.EqualFold(hi, "n") {
		return FromBounds(lower, -1), nil
	}
	upper, err := strconv.ParseInt(hi, 10, 64)
	if err != nil || upper < lower {
		return "", onto2schema.NewUnsupportedCardinalityError("", "", raw)
	}
	return FromBounds(lower, upper), nil
}

// Merge collapses several observations of the same predicate into one
// conservative tag. The first matching rule wins:
//
//  1. duplicateKeys: ZeroOrMany, no bound can be asserted.
//  2. any OneOrMany: OneOrMany.
//  3. any ZeroOrMany: ZeroOrMany.
//  4. Exactly1 without any ZeroOrOne: Exactly1.
//  5. Exactly1 together with ZeroOrOne: ZeroOrOne.
//  6. otherwise ZeroOrOne.
//
// Invalid observations count as ZeroOrMany.
func Merge(observations []Cardinality, duplicateKeys bool) Cardinality {
	if duplicateKeys {
		return ZeroOrMany
	}
	var one, optional, many, some bool
	for _, o := range observations {
		switch o.OrFallback() {
		case OneOrMany:
			some = true
		case ZeroOrMany:
			many = true
		case Exactly1:
			one = true
		case ZeroOrOne:
			optional = true
		}
	}
	switch {
	case some:
		return OneOrMany
	case many:
		return ZeroOrMany
	case one && !optional:
		return Exactly1
	default:
		return ZeroOrOne
	}
}

// Requirement tells whether a relationship must be present.
type Requirement string

// Requirement values.
const (
	Mandatory Requirement = "Mandatory"
	Optional  Requirement = "Optional"
)

// Valid reports whether r is Mandatory or Optional.
func (r Requirement) Valid() bool { return r == Mandatory || r == Optional }
