package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/compiler"
	"github.com/syssam/onto2schema/compiler/extract"
	"github.com/syssam/onto2schema/compiler/ir"
	"github.com/syssam/onto2schema/compiler/materialize"
)

func loadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load [fixture]",
		Short: "Load an ontology fixture into the store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Store.Fixture = args[0]
			}
			if a.cfg.Store.Fixture == "" {
				return errors.New("no fixture given")
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()
			return printStats(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}
}

func printStats(ctx context.Context, w io.Writer, store axiom.Store) error {
	return store.View(ctx, func(r axiom.Reader) error {
		nodes, err := r.Nodes(ctx, axiom.NodeQuery{})
		if err != nil {
			return err
		}
		edges, err := r.Edges(ctx, axiom.EdgeQuery{})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d nodes, %d edges\n", len(nodes), len(edges))
		return nil
	})
}

func materializeCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Rewrite implicit axioms into direct relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.compiler(ctx)
			if err != nil {
				return err
			}
			defer c.Store().Close()
			report, err := runMaterialize(ctx, c, kind)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "all", "Pass to run (object, datatype, dedup, all)")
	return cmd
}

func runMaterialize(ctx context.Context, c *compiler.Compiler, kind string) (*materialize.Report, error) {
	switch strings.ToLower(kind) {
	case "all", "":
		return c.MaterializeAll(ctx)
	case "dedup":
		return c.Dedup(ctx)
	}
	k, ok := axiom.ParsePropertyKind(kind)
	if !ok {
		return nil, fmt.Errorf("unknown materialization kind %q", kind)
	}
	return c.Materialize(ctx, k)
}

func printReport(w io.Writer, r *materialize.Report) {
	fmt.Fprintf(w, "run %s (%s): %d rewrites in %d iterations, %s\n", r.RunID, r.Kind, r.Total(), r.Iterations, r.Duration)
	rules := make([]string, 0, len(r.Applied))
	for rule := range r.Applied {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		fmt.Fprintf(w, "  %-16s %d\n", rule, r.Applied[rule])
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(w, "  skipped: %v\n", s)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  failed: %v\n", f)
	}
}

// extractFlags are shared by extract and generate.
type extractFlags struct {
	scope       string
	materialize bool
}

func (f *extractFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.scope, "scope", "s", "", "Extraction scope (shallow, closure)")
	cmd.Flags().BoolVar(&f.materialize, "materialize", true, "Materialize the store before extracting")
}

// extract materializes when asked and returns the schema of labels, or of
// the configured labels when none are given. Per label problems are
// logged; the partial schema is kept.
func (a *app) extract(ctx context.Context, c *compiler.Compiler, f *extractFlags, labels []string) (*ir.Schema, error) {
	if f.materialize {
		if _, err := c.MaterializeAll(ctx); err != nil {
			return nil, err
		}
	}
	if len(labels) == 0 {
		labels = a.cfg.Extract.Labels
	}
	var scope extract.Scope
	if f.scope != "" {
		sc, err := extract.ParseScope(f.scope)
		if err != nil {
			return nil, err
		}
		scope = sc
	}
	s, err := c.ExtractDataModel(ctx, labels, scope)
	if s == nil {
		return nil, err
	}
	if err != nil {
		a.logger.WarnContext(ctx, "extraction incomplete", "error", err)
	}
	return s, nil
}

func extractCmd(a *app) *cobra.Command {
	var (
		flags extractFlags
		out   string
	)
	cmd := &cobra.Command{
		Use:   "extract [labels...]",
		Short: "Extract the schema of classes as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.compiler(ctx)
			if err != nil {
				return err
			}
			defer c.Store().Close()
			s, err := a.extract(ctx, c, &flags, args)
			if err != nil {
				return err
			}
			data, err := s.MarshalIndent()
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the schema to a file instead of stdout")
	return cmd
}

func coerceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "coerce <payload.json>",
		Short: "Validate an externally produced schema payload and print its normalized form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.readSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		},
	}
}

// readSchema coerces a schema payload file, logging its warnings.
func (a *app) readSchema(ctx context.Context, path string) (*ir.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, warnings, err := ir.Coerce(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	for _, w := range warnings {
		a.logger.WarnContext(ctx, "schema payload coerced", "file", path, "warning", w)
	}
	return s, nil
}
