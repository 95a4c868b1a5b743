package gen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// goMethods are the methods generated on every type.
var goMethods = []string{"URI", "Validate", "Values", "IsValid", "String"}

// emitGo renders the typed classes: one struct per class and one string
// type per enumeration.
func emitGo(v *View, c *Config) ([]byte, error) {
	f := jen.NewFile(c.Package)
	if c.Header != "" {
		f.HeaderComment(c.Header)
	}
	f.PackageComment(fmt.Sprintf("Package %s holds the classes of the ontology.", c.Package))
	var types []string
	for _, n := range v.Schema.Types() {
		types = append(types, v.Type(n.Label))
	}
	idents := naming.NewScope("go", types...)
	for _, n := range v.Enums() {
		if err := goEnum(f, v, idents, n); err != nil {
			return nil, err
		}
	}
	for _, n := range v.Classes() {
		if err := goStruct(f, v, n); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func goEnum(f *jen.File, v *View, idents *naming.Scope, n *ir.Node) error {
	var (
		typ    = v.Type(n.Label)
		defs   []jen.Code
		values []jen.Code
	)
	for _, m := range v.Schema.Members(n.Label) {
		id, err := idents.Claim(typ + v.Names.TypeName(v.Member(m.Label)))
		if err != nil {
			return err
		}
		if m.Description != "" {
			defs = append(defs, jen.Comment(oneLine(id+" "+m.Description)))
		}
		defs = append(defs, jen.Id(id).Id(typ).Op("=").Lit(m.Label))
		values = append(values, jen.Id(id))
	}
	f.Comment(goDoc(typ, n))
	f.Type().Id(typ).String()
	f.Const().Defs(defs...)
	f.Comment(fmt.Sprintf("Values returns every value of %s.", typ))
	f.Func().Params(jen.Id(typ)).Id("Values").Params().Index().Id(typ).Block(
		jen.Return(jen.Index().Id(typ).Values(values...)),
	)
	f.Comment(fmt.Sprintf("IsValid reports whether e is a value of %s.", typ))
	var valid []jen.Code
	if len(values) > 0 {
		valid = append(valid, jen.Switch(jen.Id("e")).Block(
			jen.Case(values...).Block(jen.Return(jen.True())),
		))
	}
	valid = append(valid, jen.Return(jen.False()))
	f.Func().Params(jen.Id("e").Id(typ)).Id("IsValid").Params().Bool().Block(valid...)
	f.Func().Params(jen.Id("e").Id(typ)).Id("String").Params().String().Block(
		jen.Return(jen.String().Parens(jen.Id("e"))),
	)
	return nil
}

func goStruct(f *jen.File, v *View, n *ir.Node) error {
	var (
		typ    = v.Type(n.Label)
		recv   = strings.ToLower(typ[:1])
		fields = naming.NewScope(n.Label, goMethods...)
		body   = []jen.Code{jen.Id("URI").String().Tag(map[string]string{"json": "uri,omitempty"})}
		checks []jen.Code
	)
	field := func(label, json string, card ir.Cardinality, t jen.Code, desc string, zero func(jen.Code) jen.Code) error {
		id, err := fields.Claim(v.Names.TypeName(label))
		if err != nil {
			return err
		}
		if desc != "" {
			body = append(body, jen.Comment(oneLine(id+" "+desc)))
		}
		tags := map[string]string{"json": json}
		switch {
		case card == ir.OneOrMany:
			tags["validate"] = "required,min=1"
		case card.Required():
			tags["validate"] = "required"
		default:
			tags["json"] += ",omitempty"
		}
		body = append(body, jen.Id(id).Add(t).Tag(tags))
		if !card.Required() {
			return nil
		}
		sel := jen.Id(recv).Dot(id)
		var cond jen.Code
		if card.Many() {
			cond = jen.Len(sel).Op("==").Lit(0)
		} else if zero != nil {
			cond = zero(sel)
		}
		if cond != nil {
			msg := fmt.Sprintf("%s: %s is required", typ, json)
			checks = append(checks, jen.If(cond).Block(
				jen.Id("errs").Op("=").Append(jen.Id("errs"), jen.Qual("errors", "New").Call(jen.Lit(msg))),
			))
		}
		return nil
	}
	for _, p := range n.Properties {
		card := Cardinality(p.Cardinality)
		s := ir.ScalarOf(p.Type)
		if err := field(v.Field(p), v.Field(p), card, goFieldType(goScalar(s), card, s == ir.ScalarBytes), p.Description, goZero(s)); err != nil {
			return err
		}
	}
	for _, r := range v.Links(n) {
		card := Cardinality(r.Cardinality)
		var (
			t    jen.Code
			zero = func(sel jen.Code) jen.Code { return jen.Add(sel).Op("==").Nil() }
		)
		if v.IsEnum(r.EndLabel) {
			t = goFieldType(jen.Id(v.Type(r.EndLabel)), card, false)
			zero = func(sel jen.Code) jen.Code { return jen.Add(sel).Op("==").Lit("") }
		} else {
			t = goFieldType(jen.Op("*").Id(v.Type(r.EndLabel)), card, true)
		}
		if err := field(v.Link(r), v.Link(r), card, t, r.Description, zero); err != nil {
			return err
		}
	}
	f.Comment(goDoc(typ, n))
	f.Type().Id(typ).Struct(body...)
	f.Comment(fmt.Sprintf("Validate reports the missing required fields of %s.", typ))
	if len(checks) == 0 {
		f.Func().Params(jen.Op("*").Id(typ)).Id("Validate").Params().Error().Block(jen.Return(jen.Nil()))
		return nil
	}
	stmts := append([]jen.Code{jen.Var().Id("errs").Index().Error()}, checks...)
	stmts = append(stmts, jen.Return(jen.Qual("errors", "Join").Call(jen.Id("errs").Op("..."))))
	f.Func().Params(jen.Id(recv).Op("*").Id(typ)).Id("Validate").Params().Error().Block(stmts...)
	return nil
}

// goFieldType wraps base according to the cardinality. nilable types are
// not wrapped in a pointer when optional.
func goFieldType(base jen.Code, card ir.Cardinality, nilable bool) jen.Code {
	switch {
	case card.Many():
		return jen.Index().Add(base)
	case card.Required() || nilable:
		return jen.Add(base)
	default:
		return jen.Op("*").Add(base)
	}
}

func goScalar(s ir.Scalar) jen.Code {
	switch s {
	case ir.ScalarInt:
		return jen.Int64()
	case ir.ScalarFloat:
		return jen.Float64()
	case ir.ScalarBool:
		return jen.Bool()
	case ir.ScalarDate, ir.ScalarDateTime, ir.ScalarTime:
		return jen.Qual("time", "Time")
	case ir.ScalarDuration:
		return jen.Qual("time", "Duration")
	case ir.ScalarBytes:
		return jen.Index().Byte()
	default:
		return jen.String()
	}
}

// goZero returns the zero value test of a required scalar, or nil when
// the zero value is a legal value.
func goZero(s ir.Scalar) func(jen.Code) jen.Code {
	switch s {
	case ir.ScalarString, ir.ScalarURI, ir.ScalarDecimal:
		return func(sel jen.Code) jen.Code { return jen.Add(sel).Op("==").Lit("") }
	case ir.ScalarBytes:
		return func(sel jen.Code) jen.Code { return jen.Len(sel).Op("==").Lit(0) }
	case ir.ScalarDate, ir.ScalarDateTime, ir.ScalarTime:
		return func(sel jen.Code) jen.Code { return jen.Add(sel).Dot("IsZero").Call() }
	default:
		return nil
	}
}

func goDoc(typ string, n *ir.Node) string {
	doc := typ + " is the " + strings.ToLower(string(n.Kind)) + " " + n.Label
	if n.URI != "" {
		doc += " (" + n.URI + ")"
	}
	doc += "."
	if n.Description != "" {
		doc += " " + n.Description
	}
	return oneLine(doc)
}

func oneLine(s string) string { return strings.Join(strings.Fields(s), " ") }
