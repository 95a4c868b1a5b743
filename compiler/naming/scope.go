package naming

import (
	"strconv"
	"strings"

	"github.com/syssam/onto2schema"
)

// MaxSuffix bounds the numeric suffixes tried by a Scope.
const MaxSuffix = 1000

// Scope allocates unique identifiers within one namespace, such as the types
// of an artifact or the fields of one type. Identifiers are compared case
// insensitively so they stay distinct in case-folding targets like SQL.
// The first claim of a name gets it unchanged; later claims get "_2", "_3"
// and so on, in claim order.
type Scope struct {
	name string
	used map[string]bool
}

// NewScope returns an empty scope. Reserved names are never handed out
// unchanged.
func NewScope(name string, reserved ...string) *Scope {
	s := &Scope{name: name, used: make(map[string]bool)}
	for _, r := range reserved {
		s.used[strings.ToLower(r)] = true
	}
	return s
}

// Claim returns id, or id with the smallest free numeric suffix.
func (s *Scope) Claim(id string) (string, error) {
	if !s.used[strings.ToLower(id)] {
		s.used[strings.ToLower(id)] = true
		return id, nil
	}
	for i := 2; i <= MaxSuffix; i++ {
		c := id + "_" + strconv.Itoa(i)
		if !s.used[strings.ToLower(c)] {
			s.used[strings.ToLower(c)] = true
			return c, nil
		}
	}
	return "", onto2schema.NewNameCollisionError(s.name, id, MaxSuffix-1)
}

// Has reports whether id was claimed or reserved.
func (s *Scope) Has(id string) bool { return s.used[strings.ToLower(id)] }

// Normalize applies fn to every label and makes the results unique in a
// fresh scope, in input order.
func Normalize(scope string, labels []string, fn func(string) string) ([]string, error) {
	s := NewScope(scope)
	out := make([]string, len(labels))
	for i, l := range labels {
		id, err := s.Claim(fn(l))
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}
