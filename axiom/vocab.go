package axiom

import "fmt"

// Node labels of the graph encoding. Namespaced terms use the
// "<prefix>__<local>" form so they are valid label identifiers in any store.
const (
	LabelResource           = "Resource"
	LabelClass              = "owl__Class"
	LabelObjectProperty     = "owl__ObjectProperty"
	LabelDatatypeProperty   = "owl__DatatypeProperty"
	LabelFunctionalProperty = "owl__FunctionalProperty"
	LabelRestriction        = "owl__Restriction"
	LabelNamedIndividual    = "owl__NamedIndividual"
	LabelDatatype           = "rdfs__Datatype"
)

// Edge types.
const (
	EdgeDomain          = "rdfs__domain"
	EdgeRange           = "rdfs__range"
	EdgeSubClassOf      = "rdfs__subClassOf"
	EdgeOnProperty      = "owl__onProperty"
	EdgeSomeValuesFrom  = "owl__someValuesFrom"
	EdgeAllValuesFrom   = "owl__allValuesFrom"
	EdgeOnClass         = "owl__onClass"
	EdgeOnDataRange     = "owl__onDataRange"
	EdgeUnionOf         = "owl__unionOf"
	EdgeOneOf           = "owl__oneOf"
	EdgeEquivalentClass = "owl__equivalentClass"
	EdgeFirst           = "rdf__first"
	EdgeRest            = "rdf__rest"
	EdgeType            = "rdf__type"
)

// Annotation keys carried on nodes and copied onto materialized edges.
const (
	KeyURI        = "uri"
	KeyLabel      = "rdfs__label"
	KeyDefinition = "skos__definition"
	KeyComment    = "rdfs__comment"

	// KeyUnionOf holds the ordered member URIs of a collapsed datatype union.
	KeyUnionOf = "owl__unionOf"

	KeyCardinality          = "owl__cardinality"
	KeyQualifiedCardinality = "owl__qualifiedCardinality"
	KeyMinCardinality       = "owl__minCardinality"
	KeyMaxCardinality       = "owl__maxCardinality"
	KeyMinQualified         = "owl__minQualifiedCardinality"
	KeyMaxQualified         = "owl__maxQualifiedCardinality"
)

// Keys of materialized edges.
const (
	KeyMaterialized   = "materialized"
	KeyCardinalityRaw = "cardinality"
	KeyRequirement    = "requirement"
	KeyPropertyType   = "property_type"
	KeyInferredBy     = "inferred_by"

	// KeyAxiom identifies the axiom an edge was derived from, so edges of
	// structurally distinct axioms never merge.
	KeyAxiom = "axiom"
	// KeyDuplicates lists the raw cardinalities of edges collapsed into
	// this one by deduplication.
	KeyDuplicates = "duplicate_cardinalities"
)

// Requirement values.
const (
	Mandatory = "Mandatory"
	Optional  = "Optional"
)

// Provenance tags written to KeyInferredBy.
const (
	InferredDomainRange = "domain-range"
	InferredRestriction = "restriction"
	InferredNoRange     = "no-range"
	InferredUnionOf     = "unionOf"
	InferredOneOf       = "oneOf"
)

// Well known URIs.
const (
	NamespaceXSD   = "http://www.w3.org/2001/XMLSchema#"
	NamespaceOWL   = "http://www.w3.org/2002/07/owl#"
	NamespaceRDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceSKOS  = "http://www.w3.org/2004/02/skos/core#"
	NamespaceDCT   = "http://purl.org/dc/terms/"
	RDFNil         = NamespaceRDF + "nil"
	UndefinedClass = "urn:onto2schema:class:undefined"
	UndefinedType  = "urn:onto2schema:datatype:undefined"
	UndefinedLabel = "undefined"
)

// VocabularyEdges are edge types that encode axioms rather than domain
// relationships. Materialized edges never use one of these types.
var VocabularyEdges = map[string]bool{
	EdgeDomain:          true,
	EdgeRange:           true,
	EdgeSubClassOf:      true,
	EdgeOnProperty:      true,
	EdgeSomeValuesFrom:  true,
	EdgeAllValuesFrom:   true,
	EdgeOnClass:         true,
	EdgeOnDataRange:     true,
	EdgeUnionOf:         true,
	EdgeOneOf:           true,
	EdgeEquivalentClass: true,
	EdgeFirst:           true,
	EdgeRest:            true,
	EdgeType:            true,
}

// AnnotationKeys are the node properties copied onto materialized edges.
var AnnotationKeys = []string{KeyURI, KeyLabel, KeyDefinition, KeyComment}

// PropertyKind distinguishes object-valued from datatype-valued properties.
type PropertyKind uint8

// Property kinds.
const (
	ObjectProperty PropertyKind = iota + 1
	DatatypeProperty
)

// String returns the name stored in KeyPropertyType.
func (k PropertyKind) String() string {
	switch k {
	case ObjectProperty:
		return "ObjectProperty"
	case DatatypeProperty:
		return "DatatypeProperty"
	default:
		return "Invalid"
	}
}

// Label returns the node label of properties of this kind.
func (k PropertyKind) Label() string {
	switch k {
	case ObjectProperty:
		return LabelObjectProperty
	case DatatypeProperty:
		return LabelDatatypeProperty
	default:
		return ""
	}
}

// Placeholder returns the URI and node label of the "undefined" range
// placeholder used for properties of this kind that declare no range.
func (k PropertyKind) Placeholder() (uri, label string) {
	if k == DatatypeProperty {
		return UndefinedType, LabelDatatype
	}
	return UndefinedClass, LabelClass
}

// Valid reports whether k is one of the two property kinds.
func (k PropertyKind) Valid() bool {
	return k == ObjectProperty || k == DatatypeProperty
}

// ParsePropertyKind parses a kind name. It accepts the String form, the node
// label, and the short forms "object" and "datatype".
func ParsePropertyKind(s string) (PropertyKind, bool) {
	switch s {
	case "ObjectProperty", LabelObjectProperty, "object":
		return ObjectProperty, true
	case "DatatypeProperty", LabelDatatypeProperty, "datatype", "data":
		return DatatypeProperty, true
	default:
		return 0, false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k PropertyKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return []byte{}, nil
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PropertyKind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = 0
		return nil
	}
	v, ok := ParsePropertyKind(string(text))
	if !ok {
		return fmt.Errorf("axiom: unknown property kind %q", text)
	}
	*k = v
	return nil
}
