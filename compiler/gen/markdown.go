package gen

import (
	"fmt"
	"strings"

	"github.com/syssam/onto2schema/compiler/ir"
)

// emitMarkdown renders the human readable schema documentation.
func emitMarkdown(v *View, c *Config) ([]byte, error) {
	var b strings.Builder
	if c.Header != "" {
		fmt.Fprintf(&b, "<!-- %s -->\n\n", c.Header)
	}
	b.WriteString("# Schema\n\n")
	classes, enums := v.Classes(), v.Enums()
	if len(classes) > 0 {
		b.WriteString("## Classes\n\n")
		for _, n := range classes {
			fmt.Fprintf(&b, "- [%s](#%s)\n", v.Type(n.Label), anchor(v.Type(n.Label)))
		}
		b.WriteString("\n")
	}
	if len(enums) > 0 {
		b.WriteString("## Enumerations\n\n")
		for _, n := range enums {
			fmt.Fprintf(&b, "- [%s](#%s)\n", v.Type(n.Label), anchor(v.Type(n.Label)))
		}
		b.WriteString("\n")
	}
	for _, n := range classes {
		mdHeading(&b, v, n)
		if len(n.Parents) > 0 {
			parents := make([]string, len(n.Parents))
			for i, p := range n.Parents {
				parents[i] = mdLink(v, p)
			}
			fmt.Fprintf(&b, "Extends: %s\n\n", strings.Join(parents, ", "))
		}
		if len(n.Properties) > 0 {
			b.WriteString("### Properties\n\n")
			b.WriteString("| Field | Type | Cardinality | Required | Description |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, p := range n.Properties {
				card := Cardinality(p.Cardinality)
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n",
					v.Field(p), ir.ScalarOf(p.Type), card.Name(), yesNo(card.Required()), cell(p.Description))
			}
			b.WriteString("\n")
		}
		if links := v.Links(n); len(links) > 0 {
			b.WriteString("### Relationships\n\n")
			b.WriteString("| Field | Target | Cardinality | Requirement | Description |\n")
			b.WriteString("|---|---|---|---|---|\n")
			for _, r := range links {
				card := Cardinality(r.Cardinality)
				fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n",
					v.Link(r), mdLink(v, r.EndLabel), card.Name(), card.Requirement(), cell(r.Description))
			}
			b.WriteString("\n")
		}
	}
	for _, n := range enums {
		mdHeading(&b, v, n)
		b.WriteString("| Member | Label | Description |\n")
		b.WriteString("|---|---|---|\n")
		for _, m := range v.Schema.Members(n.Label) {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", v.Member(m.Label), cell(m.Label), cell(m.Description))
		}
		b.WriteString("\n")
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

func mdHeading(b *strings.Builder, v *View, n *ir.Node) {
	fmt.Fprintf(b, "## %s\n\n", v.Type(n.Label))
	if n.Description != "" {
		fmt.Fprintf(b, "%s\n\n", oneLine(n.Description))
	}
	if n.URI != "" {
		fmt.Fprintf(b, "URI: <%s>\n\n", n.URI)
	}
}

func mdLink(v *View, label string) string {
	if t := v.Type(label); t != "" {
		return fmt.Sprintf("[%s](#%s)", t, anchor(t))
	}
	return label
}

// anchor returns the heading anchor markdown renderers derive from a type
// name.
func anchor(name string) string { return strings.ToLower(name) }

func cell(s string) string { return strings.ReplaceAll(oneLine(s), "|", `\|`) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
