package naming

import (
	"maps"
	"sort"
	"strings"
)

// Config is an immutable naming configuration. It carries the namespace
// prefix table used to shorten URIs, the words that cannot be used as field
// names and the acronyms kept upper case in type names. Independent Config
// values can coexist, e.g. one per tenant namespace scheme.
type Config struct {
	prefixes map[string]string
	reserved map[string]bool
	acronyms map[string]string
}

// Option configures a Config.
type Option func(*Config)

// WithPrefixes adds namespace prefixes, overriding defaults of the same name.
func WithPrefixes(prefixes map[string]string) Option {
	return func(c *Config) {
		for p, ns := range prefixes {
			c.prefixes[p] = ns
		}
	}
}

// WithReserved adds reserved field names.
func WithReserved(words ...string) Option {
	return func(c *Config) {
		for _, w := range words {
			c.reserved[strings.ToLower(w)] = true
		}
	}
}

// WithAcronyms adds acronyms kept upper case in type names.
func WithAcronyms(acronyms ...string) Option {
	return func(c *Config) {
		for _, a := range acronyms {
			c.acronyms[strings.ToUpper(a)] = strings.ToUpper(a)
		}
	}
}

// Default is the configuration used by the package level functions.
var Default = New()

// New returns a configuration seeded with the default prefixes, reserved
// words and acronyms. The maps given to options are copied.
func New(opts ...Option) *Config {
	c := &Config{
		prefixes: DefaultPrefixes(),
		reserved: make(map[string]bool, len(reservedWords)),
		acronyms: make(map[string]string, len(defaultAcronyms)),
	}
	for _, w := range reservedWords {
		c.reserved[w] = true
	}
	for _, a := range defaultAcronyms {
		c.acronyms[a] = a
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultPrefixes returns a fresh copy of the standard namespace prefixes.
func DefaultPrefixes() map[string]string {
	return map[string]string{
		"owl":  "http://www.w3.org/2002/07/owl#",
		"rdf":  "http://www.w3.org/1999/02/22-rdf-syntax-ns#",
		"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		"xsd":  "http://www.w3.org/2001/XMLSchema#",
		"xml":  "http://www.w3.org/XML/1998/namespace#",
		"sh":   "http://www.w3.org/ns/shacl#",
		"skos": "http://www.w3.org/2004/02/skos/core#",
		"dct":  "http://purl.org/dc/terms/",
		"prov": "http://www.w3.org/ns/prov#",
		"c":    "https://www.omg.org/spec/Commons/",
		"lcc":  "https://www.omg.org/spec/LCC/",
		"fibo": "https://spec.edmcouncil.org/fibo/ontology/",
		"be":   "https://spec.edmcouncil.org/fibo/ontology/BE/",
		"fnd":  "https://spec.edmcouncil.org/fibo/ontology/FND/",
		"fbc":  "https://spec.edmcouncil.org/fibo/ontology/FBC/",
		"cmns": "https://www.omg.org/spec/Commons/",
	}
}

// Prefixes returns a copy of the prefix table.
func (c *Config) Prefixes() map[string]string {
	return maps.Clone(c.prefixes)
}

// Reserved reports whether word cannot be used as a field name as is.
func (c *Config) Reserved(word string) bool {
	return c.reserved[strings.ToLower(word)]
}

// QName splits uri into the prefix of its longest matching namespace and the
// local part. Ties between prefixes of the same namespace are broken by
// choosing the shortest, then the lexically smallest prefix.
func (c *Config) QName(uri string) (prefix, local string, ok bool) {
	var best, ns string
	for p, n := range c.prefixes {
		if n == "" || !strings.HasPrefix(uri, n) {
			continue
		}
		switch {
		case len(n) > len(ns):
		case len(n) == len(ns) && (len(p) < len(best) || len(p) == len(best) && p < best):
		default:
			continue
		}
		best, ns = p, n
	}
	if ns == "" || len(uri) == len(ns) {
		return "", "", false
	}
	return best, uri[len(ns):], true
}

// Short returns "prefix:local" for uri, or uri itself when no prefix matches.
func (c *Config) Short(uri string) string {
	if p, l, ok := c.QName(uri); ok {
		return p + ":" + l
	}
	return uri
}

// Expand resolves a "prefix:local" name against the prefix table.
func (c *Config) Expand(qname string) (string, bool) {
	p, l, ok := strings.Cut(qname, ":")
	if !ok {
		return qname, false
	}
	ns, ok := c.prefixes[p]
	if !ok {
		return qname, false
	}
	return ns + l, true
}

// ReservedWords returns the sorted reserved field names.
func (c *Config) ReservedWords() []string {
	out := make([]string, 0, len(c.reserved))
	for w := range c.reserved {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// reservedWords collects keywords of the target languages that collide with
// snake case field names, plus the generated id column.
var reservedWords = []string{
	// Go.
	"break", "case", "chan", "const", "continue", "default", "defer", "else",
	"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
	"map", "package", "range", "return", "select", "struct", "switch", "type", "var",
	// SQL.
	"all", "and", "as", "asc", "between", "by", "check", "column", "constraint",
	"create", "delete", "desc", "distinct", "drop", "exists", "from", "group",
	"having", "in", "index", "insert", "into", "is", "join", "key", "like",
	"limit", "not", "null", "on", "or", "order", "primary", "references",
	"table", "to", "union", "unique", "update", "user", "values", "where",
	// Cypher and GraphQL.
	"match", "merge", "optional", "with", "unwind", "query", "mutation",
	"subscription", "fragment", "true", "false",
	"id",
}

var defaultAcronyms = []string{"API", "DNS", "HTML", "HTTP", "ID", "IP", "JSON", "LEI", "SQL", "URI", "URL", "UUID", "XML"}
