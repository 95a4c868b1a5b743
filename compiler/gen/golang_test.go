package gen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"testing"

	"github.com/dave/jennifer/jen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/naming"
)

// goShape maps a generated file back to its declarations.
type goShape struct {
	structs map[string]map[string]*ast.Field
	consts  map[string]string
	methods map[string][]string
	named   map[string]string // non struct named types
	pkg     string
}

func parseGo(t *testing.T, src []byte) goShape {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "model.go", src, parser.ParseComments)
	require.NoError(t, err, string(src))
	s := goShape{
		structs: map[string]map[string]*ast.Field{},
		consts:  map[string]string{},
		methods: map[string][]string{},
		named:   map[string]string{},
		pkg:     f.Name.Name,
	}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch sp := spec.(type) {
				case *ast.TypeSpec:
					st, ok := sp.Type.(*ast.StructType)
					if !ok {
						s.named[sp.Name.Name] = sp.Type.(*ast.Ident).Name
						continue
					}
					fields := map[string]*ast.Field{}
					for _, fl := range st.Fields.List {
						fields[fl.Names[0].Name] = fl
					}
					s.structs[sp.Name.Name] = fields
				case *ast.ValueSpec:
					lit := sp.Values[0].(*ast.BasicLit)
					v, err := strconv.Unquote(lit.Value)
					require.NoError(t, err)
					s.consts[sp.Names[0].Name] = v
				}
			}
		case *ast.FuncDecl:
			recv := d.Recv.List[0].Type
			if star, ok := recv.(*ast.StarExpr); ok {
				recv = star.X
			}
			name := recv.(*ast.Ident).Name
			s.methods[name] = append(s.methods[name], d.Name.Name)
		}
	}
	return s
}

func tag(f *ast.Field, key string) string {
	v, _ := strconv.Unquote(f.Tag.Value)
	return reflect.StructTag(v).Get(key)
}

func TestGoRoundTrip(t *testing.T) {
	a, err := Generate(hrSchema(), TypedClasses, WithPackage("hr"))
	require.NoError(t, err)
	s := parseGo(t, a.Content)
	assert.Equal(t, "hr", s.pkg)

	person := s.structs["Person"]
	require.NotNil(t, person)
	// URI, five properties and three relationships.
	assert.Len(t, person, 9)

	name := person["Name"]
	require.NotNil(t, name)
	assert.Equal(t, "string", name.Type.(*ast.Ident).Name, "required scalar")
	assert.Equal(t, "required", tag(name, "validate"))
	assert.Equal(t, "name", tag(name, "json"))

	nick := person["Nickname"]
	require.NotNil(t, nick)
	assert.IsType(t, &ast.StarExpr{}, nick.Type, "optional scalar")
	assert.Equal(t, "nickname,omitempty", tag(nick, "json"))
	assert.Empty(t, tag(nick, "validate"))

	birth := person["BirthDate"]
	require.NotNil(t, birth)
	sel := birth.Type.(*ast.StarExpr).X.(*ast.SelectorExpr)
	assert.Equal(t, "time", sel.X.(*ast.Ident).Name)
	assert.Equal(t, "Time", sel.Sel.Name)

	tags := person["Tags"]
	require.NotNil(t, tags)
	assert.IsType(t, &ast.ArrayType{}, tags.Type)

	works := person["WorksOn"]
	require.NotNil(t, works)
	arr, ok := works.Type.(*ast.ArrayType)
	require.True(t, ok, "collection relationship")
	assert.Equal(t, "Project", arr.Elt.(*ast.StarExpr).X.(*ast.Ident).Name)
	assert.Equal(t, "required,min=1", tag(works, "validate"))

	status := person["Status"]
	require.NotNil(t, status)
	assert.Equal(t, "Status", status.Type.(*ast.Ident).Name, "enum targets are held by value")

	employer := person["Employer"]
	require.NotNil(t, employer)
	assert.Equal(t, "Organization", employer.Type.(*ast.StarExpr).X.(*ast.Ident).Name)

	org := s.structs["Organization"]
	require.NotNil(t, org)
	assert.Contains(t, org, "Ceo")
	assert.Contains(t, s.structs, "Agent")
	assert.NotContains(t, s.structs, "Status")

	assert.Equal(t, "string", s.named["Status"])
	assert.Equal(t, map[string]string{"StatusActive": "Active", "StatusOnLeave": "On Leave"}, s.consts)
	assert.ElementsMatch(t, []string{"Values", "IsValid", "String"}, s.methods["Status"])
	assert.Equal(t, []string{"Validate"}, s.methods["Person"])
	assert.Equal(t, []string{"Validate"}, s.methods["Project"])
}

func TestGoEmptyEnum(t *testing.T) {
	s := &ir.Schema{Nodes: []*ir.Node{{Label: "Status", Kind: ir.KindClass, Enum: true}}}
	_, err := Generate(s, TypedClasses)
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.True(t, onto2schema.IsValidationError(err))

	// The emitter itself renders a value set with no members.
	v := &View{Schema: s, Names: naming.Default, types: map[string]string{"Status": "Status"}}
	f := jen.NewFile("model")
	require.NoError(t, goEnum(f, v, naming.NewScope("idents"), s.Nodes[0]))
	var buf bytes.Buffer
	require.NoError(t, f.Render(&buf))
	shape := parseGo(t, buf.Bytes())
	assert.Equal(t, "string", shape.named["Status"])
	assert.Empty(t, shape.consts)
	assert.Contains(t, shape.methods["Status"], "IsValid")
}

func TestGoDescriptions(t *testing.T) {
	a, err := Generate(hrSchema(), TypedClasses)
	require.NoError(t, err)
	f, err := parser.ParseFile(token.NewFileSet(), "model.go", a.Content, parser.ParseComments)
	require.NoError(t, err)
	docs := map[string]string{}
	for _, decl := range f.Decls {
		if d, ok := decl.(*ast.GenDecl); ok && d.Tok == token.TYPE {
			docs[d.Specs[0].(*ast.TypeSpec).Name.Name] = d.Doc.Text()
		}
	}
	assert.Contains(t, docs["Person"], "A human being.")
	assert.Contains(t, docs["Person"], ex+"Person")
	assert.Contains(t, docs["Status"], "Employment status.")
	assert.Contains(t, string(a.Content), "// WorksOn Assigned projects.")
	assert.Contains(t, string(a.Content), "// StatusOnLeave Temporarily away.")
}

func TestGoFieldCollisions(t *testing.T) {
	s := hrSchema()
	p := s.Node("Project")
	// "validate" would shadow the generated method.
	p.Properties = append(p.Properties,
		&ir.Property{Name: "validate", Type: "xsd:boolean", Cardinality: ir.ZeroOrOne},
	)
	a, err := Generate(s, TypedClasses)
	require.NoError(t, err)
	shape := parseGo(t, a.Content)
	assert.Contains(t, shape.structs["Project"], "Validate_2")
	assert.NotContains(t, shape.structs["Project"], "Validate")
}
