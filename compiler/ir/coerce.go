package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

// The payload shape produced by external schema editors. Every field is
// optional; Coerce fills the gaps and then validates the result.
type (
	payload struct {
		Nodes         []payloadNode         `json:"nodes"`
		Relationships []payloadRelationship `json:"relationships"`
	}
	payloadNode struct {
		Label       string            `json:"label"`
		URI         string            `json:"uri"`
		Kind        string            `json:"kind"`
		Owner       string            `json:"owner"`
		Enum        looseBool         `json:"enum"`
		Description string            `json:"description"`
		Parents     []string          `json:"parents"`
		Properties  []payloadProperty `json:"properties"`
	}
	payloadProperty struct {
		Name        string    `json:"name"`
		Type        string    `json:"type"`
		Description string    `json:"description"`
		Mandatory   looseBool `json:"mandatory"`
		Cardinality string    `json:"cardinality"`
		URI         string    `json:"uri"`
	}
	payloadRelationship struct {
		Type        string `json:"type"`
		Start       string `json:"start_node_label"`
		End         string `json:"end_node_label"`
		Description string `json:"description"`
		Cardinality string `json:"cardinality"`
		Requirement string `json:"requirement"`
		URI         string `json:"uri"`
	}
)

// looseBool accepts true, false, "true", "yes" and friends.
type looseBool struct {
	Set   bool
	Value bool
}

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*b = looseBool{}
	case bool:
		*b = looseBool{Set: true, Value: v}
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "y", "required", "mandatory":
			*b = looseBool{Set: true, Value: true}
		case "no", "n", "optional":
			*b = looseBool{Set: true, Value: false}
		default:
			p, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("ir: invalid boolean %q", v)
			}
			*b = looseBool{Set: true, Value: p}
		}
	case float64:
		*b = looseBool{Set: true, Value: v != 0}
	default:
		return fmt.Errorf("ir: invalid boolean %s", data)
	}
	return nil
}

// Coerce converts an externally produced schema payload into a validated
// Schema. It trims labels, matches relationship endpoints to node labels
// case-insensitively, turns properties whose type names a node into
// relationships, and normalizes cardinalities. A parseable cardinality wins
// over a contradicting mandatory flag; without one, mandatory decides between
// Exactly1 and ZeroOrOne. Unsupported cardinalities are replaced with
// ZeroOrMany and reported as warnings. The payload is rejected when the
// coerced schema fails validation.
func Coerce(data []byte) (*Schema, []error, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, nil, fmt.Errorf("ir: coerce: %w", err)
	}
	var (
		warnings []error
		s        = &Schema{}
		canon    = make(map[string]string, len(p.Nodes))
	)
	for _, pn := range p.Nodes {
		label := strings.TrimSpace(pn.Label)
		if _, ok := canon[strings.ToLower(label)]; !ok && label != "" {
			canon[strings.ToLower(label)] = label
		}
	}
	resolve := func(label string) string {
		label = strings.TrimSpace(label)
		if c, ok := canon[strings.ToLower(label)]; ok {
			return c
		}
		return label
	}
	cardinality := func(owner, field, raw string, mandatory looseBool) Cardinality {
		if strings.TrimSpace(raw) == "" {
			if mandatory.Set && mandatory.Value {
				return Exactly1
			}
			return ZeroOrOne
		}
		c, err := ParseCardinality(raw)
		if err != nil {
			warnings = append(warnings, onto2schema.NewUnsupportedCardinalityError(owner, field, raw))
			return ZeroOrMany
		}
		return c
	}
	for _, pn := range p.Nodes {
		n := &Node{
			Label:       strings.TrimSpace(pn.Label),
			URI:         pn.URI,
			Kind:        nodeKind(pn.Kind),
			Description: strings.TrimSpace(pn.Description),
			Enum:        pn.Enum.Value,
		}
		if n.Kind == KindEnumMember {
			n.Owner = resolve(pn.Owner)
		}
		for _, parent := range pn.Parents {
			n.Parents = append(n.Parents, resolve(parent))
		}
		for _, pp := range pn.Properties {
			name := strings.TrimSpace(pp.Name)
			if target := resolve(pp.Type); canon[strings.ToLower(target)] != "" {
				c := cardinality(n.Label, name, pp.Cardinality, pp.Mandatory)
				s.Relationships = append(s.Relationships, &Relationship{
					Type:        name,
					StartLabel:  n.Label,
					EndLabel:    target,
					Cardinality: c,
					Requirement: c.Requirement(),
					Description: strings.TrimSpace(pp.Description),
					URI:         pp.URI,
					Kind:        axiom.ObjectProperty,
				})
				continue
			}
			c := cardinality(n.Label, name, pp.Cardinality, pp.Mandatory)
			typ := strings.TrimSpace(pp.Type)
			if typ == "" {
				typ = "string"
			}
			n.Properties = append(n.Properties, &Property{
				Name:        name,
				Type:        typ,
				Description: strings.TrimSpace(pp.Description),
				Mandatory:   c.Required(),
				Cardinality: c,
				URI:         pp.URI,
			})
		}
		s.Nodes = append(s.Nodes, n)
	}
	for _, pr := range p.Relationships {
		typ := strings.TrimSpace(pr.Type)
		start, end := resolve(pr.Start), resolve(pr.End)
		mandatory := looseBool{Set: pr.Requirement != "", Value: strings.EqualFold(pr.Requirement, string(Mandatory))}
		c := cardinality(start, typ, pr.Cardinality, mandatory)
		s.Relationships = append(s.Relationships, &Relationship{
			Type:        typ,
			StartLabel:  start,
			EndLabel:    end,
			Cardinality: c,
			Requirement: c.Requirement(),
			Description: strings.TrimSpace(pr.Description),
			URI:         pr.URI,
			Kind:        axiom.ObjectProperty,
		})
	}
	// An enumeration without members has no values to render.
	for _, n := range s.Nodes {
		if n.Kind == KindClass && n.Enum && len(s.Members(n.Label)) == 0 {
			n.Enum = false
			warnings = append(warnings, onto2schema.NewValidationError(n.Label, "", "enumeration without members coerced to a class"))
		}
	}
	if err := s.Validate(); err != nil {
		return nil, warnings, fmt.Errorf("ir: coerce: %w", err)
	}
	return s, warnings, nil
}

func nodeKind(s string) NodeKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "datatype":
		return KindDatatype
	case "enummember", "enum_member", "member":
		return KindEnumMember
	default:
		return KindClass
	}
}
