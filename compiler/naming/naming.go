// Package naming turns human readable labels into identifiers that are safe
// in every generated artifact. The normalizers are pure and total: any input,
// including the empty string, yields a valid identifier.
package naming

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback identifiers for labels without a single usable character.
const (
	DefaultType   = "Model"
	DefaultField  = "field"
	DefaultMember = "UNKNOWN"
)

// TypeName returns the PascalCase type name of label using the default
// configuration.
func TypeName(label string) string { return Default.TypeName(label) }

// FieldName returns the lower_snake_case field name of label using the
// default configuration.
func FieldName(label string) string { return Default.FieldName(label) }

// MemberName returns the UPPER_SNAKE_CASE enumeration member name of label
// using the default configuration.
func MemberName(label string) string { return Default.MemberName(label) }

// TypeName returns the PascalCase form of label. A leading numeric token is
// moved to the end ("3 Way Match" becomes "WayMatch3"), and a label made of
// digits only is prefixed with DefaultType.
func (c *Config) TypeName(label string) string {
	tokens := Tokens(label)
	if len(tokens) == 0 {
		return DefaultType
	}
	if isDigits(tokens[0]) {
		if len(tokens) == 1 {
			return DefaultType + tokens[0]
		}
		tokens = append(tokens[1:], tokens[0])
	}
	caser := cases.Title(language.English)
	var b strings.Builder
	for _, t := range tokens {
		if a, ok := c.acronyms[strings.ToUpper(t)]; ok {
			b.WriteString(a)
			continue
		}
		b.WriteString(caser.String(t))
	}
	return b.String()
}

// FieldName returns the lower_snake_case form of label. Reserved words get a
// trailing underscore and a leading digit gets a leading one.
func (c *Config) FieldName(label string) string {
	tokens := Tokens(label)
	if len(tokens) == 0 {
		return DefaultField
	}
	name := strings.ToLower(strings.Join(tokens, "_"))
	if isDigit(name[0]) {
		name = "_" + name
	}
	if c.reserved[name] {
		name += "_"
	}
	return name
}

// MemberName returns the UPPER_SNAKE_CASE form of label. A leading digit gets
// a leading underscore.
func (c *Config) MemberName(label string) string {
	tokens := Tokens(label)
	if len(tokens) == 0 {
		return DefaultMember
	}
	name := strings.ToUpper(strings.Join(tokens, "_"))
	if isDigit(name[0]) {
		name = "_" + name
	}
	return name
}

// Plural returns the plural of a snake or Pascal cased name, keeping its
// casing style.
func Plural(name string) string {
	if name == "" {
		return name
	}
	return inflect.Pluralize(name)
}

// Snake converts an identifier such as a type name to snake_case.
func Snake(name string) string {
	tokens := Tokens(name)
	if len(tokens) == 0 {
		return DefaultField
	}
	return strings.ToLower(strings.Join(tokens, "_"))
}

// Tokens splits label into ASCII alphanumeric words. Accents are stripped,
// every other character separates words, and words are further split at
// camel case humps, acronym boundaries and letter/digit changes:
//
//	"Order Line"       => ["Order" "Line"]
//	"orderLine2"       => ["order" "Line" "2"]
//	"HTTPServer"       => ["HTTP" "Server"]
//	"Société Générale" => ["Societe" "Generale"]
func Tokens(label string) []string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, label)
	if err != nil {
		folded = label
	}
	var (
		tokens []string
		cur    []rune
	)
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(folded)
	for i, r := range rs {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return s != ""
}
