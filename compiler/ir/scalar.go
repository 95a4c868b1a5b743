package ir

import (
	"strings"

	"github.com/syssam/onto2schema/axiom"
)

// Scalar is the portable value type a datatype maps to.
type Scalar uint8

// Scalars.
const (
	ScalarString Scalar = iota
	ScalarInt
	ScalarFloat
	ScalarDecimal
	ScalarBool
	ScalarDate
	ScalarDateTime
	ScalarTime
	ScalarDuration
	ScalarBytes
	ScalarURI
)

var scalarNames = [...]string{
	ScalarString:   "String",
	ScalarInt:      "Int",
	ScalarFloat:    "Float",
	ScalarDecimal:  "Decimal",
	ScalarBool:     "Boolean",
	ScalarDate:     "Date",
	ScalarDateTime: "DateTime",
	ScalarTime:     "Time",
	ScalarDuration: "Duration",
	ScalarBytes:    "Bytes",
	ScalarURI:      "URI",
}

// String returns the scalar name.
func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "String"
}

var xsdScalars = map[string]Scalar{
	"string":             ScalarString,
	"normalizedstring":   ScalarString,
	"token":              ScalarString,
	"language":           ScalarString,
	"name":               ScalarString,
	"ncname":             ScalarString,
	"langstring":         ScalarString,
	"literal":            ScalarString,
	"plainliteral":       ScalarString,
	"text":               ScalarString,
	"str":                ScalarString,
	"integer":            ScalarInt,
	"int":                ScalarInt,
	"long":               ScalarInt,
	"short":              ScalarInt,
	"byte":               ScalarInt,
	"nonnegativeinteger": ScalarInt,
	"positiveinteger":    ScalarInt,
	"nonpositiveinteger": ScalarInt,
	"negativeinteger":    ScalarInt,
	"unsignedint":        ScalarInt,
	"unsignedlong":       ScalarInt,
	"unsignedshort":      ScalarInt,
	"unsignedbyte":       ScalarInt,
	"gyear":              ScalarInt,
	"float":              ScalarFloat,
	"double":             ScalarFloat,
	"decimal":            ScalarDecimal,
	"boolean":            ScalarBool,
	"bool":               ScalarBool,
	"date":               ScalarDate,
	"datetime":           ScalarDateTime,
	"datetimestamp":      ScalarDateTime,
	"time":               ScalarTime,
	"duration":           ScalarDuration,
	"daytimeduration":    ScalarDuration,
	"yearmonthduration":  ScalarDuration,
	"base64binary":       ScalarBytes,
	"hexbinary":          ScalarBytes,
	"anyuri":             ScalarURI,
	"uri":                ScalarURI,
}

// ScalarOf maps a property type to a scalar. The type may be a datatype URI,
// a prefixed name such as "xsd:int", a bare local name, or a '|' separated
// union; unions of differing scalars and unknown types map to String.
func ScalarOf(typ string) Scalar {
	if strings.Contains(typ, "|") {
		var (
			out   Scalar
			first = true
		)
		for _, part := range strings.Split(typ, "|") {
			s := ScalarOf(part)
			if first {
				out, first = s, false
				continue
			}
			if s != out {
				return ScalarString
			}
		}
		return out
	}
	name := strings.ToLower(axiom.LocalName(strings.TrimSpace(typ)))
	if s, ok := xsdScalars[name]; ok {
		return s
	}
	return ScalarString
}
