// Package gen renders an extracted schema into target artifacts.
//
// Every emitter works from the same View, so type, field and member names
// agree across artifacts:
//
//	ir.Schema
//	    ↓
//	View (validated, identifiers allocated)
//	    ↓
//	Emitter per Target
//	    ├── go        typed classes (jennifer)
//	    ├── sql       relational DDL (atlas, postgres/mysql/sqlite)
//	    ├── cypher    graph existence constraints
//	    ├── markdown  schema documentation
//	    └── graphql   GraphQL SDL (gqlparser)
//	    ↓
//	Artifact → Writer → files
//
// # Cardinalities
//
// Exactly1 renders as a required scalar field, ZeroOrOne as an optional one
// and OneOrMany or ZeroOrMany as a collection. A cardinality outside that set
// is reported as a warning on the artifact and rendered as ZeroOrMany.
//
// # Usage
//
//	artifacts, err := gen.GenerateAll(ctx, schema, gen.Targets,
//		gen.WithPackage("model"),
//		gen.WithDialect("postgres"),
//	)
//	if err != nil {
//		// failed targets are missing from artifacts
//	}
//	paths, err := gen.NewWriter("out").Write(ctx, artifacts)
package gen
