package gen

import (
	"context"
	"fmt"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
	"github.com/syssam/onto2schema/dialect"
)

// ddl lays out the relational schema of a view. Every class and enumeration
// gets a table keyed by a surrogate id; collection properties and
// many-valued relationships get child and join tables.
type ddl struct {
	v       *View
	dialect string
	schema  *schema.Schema
	tables  map[string]*schema.Table // by node label
	columns map[*schema.Table]*naming.Scope
	names   *naming.Scope
	seeds   []string
	notes   map[*schema.Table][]string // descriptions rendered as SQL comments
	err     error                      // first naming failure
}

func emitDDL(v *View, c *Config) ([]byte, error) {
	d := &ddl{
		v:       v,
		dialect: c.Dialect,
		schema:  schema.New(""),
		tables:  map[string]*schema.Table{},
		columns: map[*schema.Table]*naming.Scope{},
		names:   naming.NewScope("tables"),
		notes:   map[*schema.Table][]string{},
	}
	if err := d.build(); err != nil {
		return nil, err
	}
	planner, err := d.planner()
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if c.Header != "" {
		fmt.Fprintf(&b, "-- %s\n\n", c.Header)
	}
	for _, ch := range d.changes() {
		if add, ok := ch.(*schema.AddTable); ok {
			for _, n := range d.notes[add.T] {
				fmt.Fprintf(&b, "-- %s\n", n)
			}
		}
		plan, err := planner.PlanChanges(context.Background(), "onto2schema", []schema.Change{ch})
		if err != nil {
			return nil, err
		}
		for _, pc := range plan.Changes {
			b.WriteString(pc.Cmd)
			b.WriteString(";\n")
		}
		b.WriteString("\n")
	}
	for _, s := range d.seeds {
		b.WriteString(s)
		b.WriteString(";\n")
	}
	return []byte(strings.TrimRight(b.String(), "\n") + "\n"), nil
}

func (d *ddl) planner() (migrate.PlanApplier, error) {
	switch d.dialect {
	case dialect.Postgres:
		return postgres.DefaultPlan, nil
	case dialect.MySQL:
		return mysql.DefaultPlan, nil
	case dialect.SQLite:
		return sqlite.DefaultPlan, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d.dialect)
	}
}

func (d *ddl) build() error {
	for _, n := range d.v.Enums() {
		if err := d.enumTable(n); err != nil {
			return err
		}
	}
	for _, n := range d.v.Classes() {
		t, err := d.table(naming.Plural(naming.Snake(d.v.Type(n.Label))), n.Description)
		if err != nil {
			return err
		}
		d.tables[n.Label] = t
		d.addColumn(t, "uri", d.scalarType(ir.ScalarURI), true, "")
	}
	for _, n := range d.v.Classes() {
		t := d.tables[n.Label]
		for _, p := range n.Properties {
			if err := d.property(t, p); err != nil {
				return err
			}
		}
		for _, r := range d.v.Links(n) {
			if err := d.link(t, r); err != nil {
				return err
			}
		}
	}
	return d.err
}

// table creates a table with a surrogate primary key.
func (d *ddl) table(name, comment string) (*schema.Table, error) {
	t, err := d.newTable(name, comment)
	if err != nil {
		return nil, err
	}
	id := d.addColumn(t, "id", d.idType(), false, "")
	t.SetPrimaryKey(schema.NewPrimaryKey(id))
	return t, nil
}

func (d *ddl) newTable(name, comment string) (*schema.Table, error) {
	name, err := d.names.Claim(name)
	if err != nil {
		return nil, err
	}
	t := schema.NewTable(name)
	d.columns[t] = naming.NewScope(name)
	d.schema.AddTables(t)
	d.comment(t, &t.Attrs, name, comment)
	return t, nil
}

// addColumn appends a column. A naming failure is kept in d.err and
// reported once the layout is built.
func (d *ddl) addColumn(t *schema.Table, name string, typ schema.Type, null bool, comment string) *schema.Column {
	if claimed, err := d.columns[t].Claim(name); err == nil {
		name = claimed
	} else if d.err == nil {
		d.err = err
	}
	c := &schema.Column{Name: name, Type: &schema.ColumnType{Type: typ, Null: null}}
	d.comment(t, &c.Attrs, t.Name+"."+name, comment)
	t.AddColumns(c)
	return c
}

// comment attaches a description to a table or column. SQLite has no
// COMMENT clause, so the description is written above the CREATE TABLE.
func (d *ddl) comment(t *schema.Table, attrs *[]schema.Attr, subject, text string) {
	switch text = oneLine(text); {
	case text == "":
	case d.dialect == dialect.SQLite:
		d.notes[t] = append(d.notes[t], subject+": "+text)
	default:
		*attrs = append(*attrs, &schema.Comment{Text: text})
	}
}

func (d *ddl) enumTable(n *ir.Node) error {
	t, err := d.table(naming.Plural(naming.Snake(d.v.Type(n.Label))), n.Description)
	if err != nil {
		return err
	}
	d.tables[n.Label] = t
	name := d.addColumn(t, "name", d.varchar(), false, "")
	d.addColumn(t, "label", d.scalarType(ir.ScalarString), false, "")
	t.AddIndexes(&schema.Index{
		Name:   t.Name + "_name_key",
		Unique: true,
		Table:  t,
		Parts:  []*schema.IndexPart{{SeqNo: 1, C: name}},
	})
	q := func(s string) string { return dialect.Quote(d.dialect, s) }
	for i, m := range d.v.Schema.Members(n.Label) {
		d.seeds = append(d.seeds, fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (%d, %s, %s)",
			q(t.Name), q("id"), q("name"), q("label"), i+1, literal(d.v.Member(m.Label)), literal(m.Label)))
	}
	return nil
}

func (d *ddl) property(t *schema.Table, p *ir.Property) error {
	card := Cardinality(p.Cardinality)
	typ := d.scalarType(ir.ScalarOf(p.Type))
	if !card.Many() {
		d.addColumn(t, d.v.Field(p), typ, !card.Required(), p.Description)
		return nil
	}
	child, err := d.table(t.Name+"_"+d.v.Field(p), p.Description)
	if err != nil {
		return err
	}
	owner := d.addColumn(child, "owner_id", d.idType(), false, "")
	d.addColumn(child, "value", typ, false, "")
	d.foreignKey(child, owner, t, schema.Cascade)
	return nil
}

func (d *ddl) link(t *schema.Table, r *ir.Relationship) error {
	card := Cardinality(r.Cardinality)
	end := d.tables[r.EndLabel]
	if !card.Many() {
		col := d.addColumn(t, d.v.Link(r)+"_id", d.idType(), !card.Required(), r.Description)
		action := schema.NoAction
		if !card.Required() {
			action = schema.SetNull
		}
		d.foreignKey(t, col, end, action)
		return nil
	}
	join, err := d.newTable(t.Name+"_"+d.v.Link(r), r.Description)
	if err != nil {
		return err
	}
	source := d.addColumn(join, naming.Snake(d.v.Type(r.StartLabel))+"_id", d.idType(), false, "")
	targetName := naming.Snake(d.v.Type(r.EndLabel)) + "_id"
	if r.StartLabel == r.EndLabel {
		targetName = d.v.Link(r) + "_id"
	}
	target := d.addColumn(join, targetName, d.idType(), false, "")
	join.SetPrimaryKey(schema.NewPrimaryKey(source, target))
	d.foreignKey(join, source, t, schema.Cascade)
	d.foreignKey(join, target, end, schema.Cascade)
	return nil
}

func (d *ddl) foreignKey(t *schema.Table, c *schema.Column, ref *schema.Table, onDelete schema.ReferenceOption) {
	t.AddForeignKeys(&schema.ForeignKey{
		Symbol:     t.Name + "_" + c.Name + "_fkey",
		Table:      t,
		Columns:    []*schema.Column{c},
		RefTable:   ref,
		RefColumns: []*schema.Column{ref.PrimaryKey.Parts[0].C},
		OnUpdate:   schema.NoAction,
		OnDelete:   onDelete,
	})
}

// changes returns the tables in dependency order. References closing a
// cycle are split out and added once every table exists, except on SQLite
// which accepts forward references.
func (d *ddl) changes() []schema.Change {
	var (
		out      []schema.Change
		deferred []schema.Change
		created  = map[*schema.Table]bool{}
		pending  = append([]*schema.Table(nil), d.schema.Tables...)
	)
	ready := func(t *schema.Table) bool {
		for _, fk := range t.ForeignKeys {
			if fk.RefTable != t && !created[fk.RefTable] {
				return false
			}
		}
		return true
	}
	for len(pending) > 0 {
		i := 0
		for i < len(pending) && !ready(pending[i]) {
			i++
		}
		if i == len(pending) {
			i = 0
		}
		t := pending[i]
		pending = append(pending[:i], pending[i+1:]...)
		if d.dialect != dialect.SQLite {
			var inline []*schema.ForeignKey
			for _, fk := range t.ForeignKeys {
				if fk.RefTable == t || created[fk.RefTable] {
					inline = append(inline, fk)
					continue
				}
				deferred = append(deferred, &schema.ModifyTable{T: t, Changes: []schema.Change{&schema.AddForeignKey{F: fk}}})
			}
			t.ForeignKeys = inline
		}
		created[t] = true
		out = append(out, &schema.AddTable{T: t})
	}
	return append(out, deferred...)
}

func (d *ddl) idType() schema.Type {
	if d.dialect == dialect.SQLite {
		return &schema.IntegerType{T: "integer"}
	}
	return &schema.IntegerType{T: "bigint"}
}

func (d *ddl) varchar() schema.Type {
	switch d.dialect {
	case dialect.Postgres:
		return &schema.StringType{T: "character varying", Size: 255}
	default:
		return &schema.StringType{T: "varchar", Size: 255}
	}
}

func (d *ddl) scalarType(s ir.Scalar) schema.Type {
	switch d.dialect {
	case dialect.Postgres:
		return postgresTypes[s]
	case dialect.MySQL:
		return mysqlTypes[s]
	default:
		return sqliteTypes[s]
	}
}

// Durations are stored as nanoseconds on every dialect.
var (
	postgresTypes = map[ir.Scalar]schema.Type{
		ir.ScalarString:   &schema.StringType{T: "text"},
		ir.ScalarURI:      &schema.StringType{T: "text"},
		ir.ScalarInt:      &schema.IntegerType{T: "bigint"},
		ir.ScalarFloat:    &schema.FloatType{T: "double precision"},
		ir.ScalarDecimal:  &schema.DecimalType{T: "numeric"},
		ir.ScalarBool:     &schema.BoolType{T: "boolean"},
		ir.ScalarDate:     &schema.TimeType{T: "date"},
		ir.ScalarDateTime: &schema.TimeType{T: "timestamp with time zone"},
		ir.ScalarTime:     &schema.TimeType{T: "time without time zone"},
		ir.ScalarDuration: &schema.IntegerType{T: "bigint"},
		ir.ScalarBytes:    &schema.BinaryType{T: "bytea"},
	}
	mysqlTypes = map[ir.Scalar]schema.Type{
		ir.ScalarString:   &schema.StringType{T: "text"},
		ir.ScalarURI:      &schema.StringType{T: "text"},
		ir.ScalarInt:      &schema.IntegerType{T: "bigint"},
		ir.ScalarFloat:    &schema.FloatType{T: "double"},
		ir.ScalarDecimal:  &schema.DecimalType{T: "decimal", Precision: 38, Scale: 10},
		ir.ScalarBool:     &schema.BoolType{T: "bool"},
		ir.ScalarDate:     &schema.TimeType{T: "date"},
		ir.ScalarDateTime: &schema.TimeType{T: "datetime"},
		ir.ScalarTime:     &schema.TimeType{T: "time"},
		ir.ScalarDuration: &schema.IntegerType{T: "bigint"},
		ir.ScalarBytes:    &schema.BinaryType{T: "blob"},
	}
	sqliteTypes = map[ir.Scalar]schema.Type{
		ir.ScalarString:   &schema.StringType{T: "text"},
		ir.ScalarURI:      &schema.StringType{T: "text"},
		ir.ScalarInt:      &schema.IntegerType{T: "integer"},
		ir.ScalarFloat:    &schema.FloatType{T: "real"},
		ir.ScalarDecimal:  &schema.DecimalType{T: "numeric"},
		ir.ScalarBool:     &schema.BoolType{T: "boolean"},
		ir.ScalarDate:     &schema.TimeType{T: "date"},
		ir.ScalarDateTime: &schema.TimeType{T: "datetime"},
		ir.ScalarTime:     &schema.TimeType{T: "time"},
		ir.ScalarDuration: &schema.IntegerType{T: "integer"},
		ir.ScalarBytes:    &schema.BinaryType{T: "blob"},
	}
)

func literal(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }
