package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
	"github.com/syssam/onto2schema/axiom/loader"
	"github.com/syssam/onto2schema/axiom/memgraph"
	"github.com/syssam/onto2schema/axiom/sqlgraph"
	"github.com/syssam/onto2schema/compiler"
	"github.com/syssam/onto2schema/config"
	dsql "github.com/syssam/onto2schema/dialect/sql"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	fixture    string
	driver     string
	dsn        string

	cfg    *config.Config
	logger *slog.Logger
	// metrics and registry are set when metrics are served; registry
	// collects the generation in progress.
	metrics  *latestGatherer
	registry *prometheus.Registry
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "onto2schema",
		Short: "Compile an ontology into schema artifacts",
		Long: `onto2schema materializes the implicit axioms of an OWL ontology held in a
property graph, extracts a neutral schema for a set of classes and renders it
as Go types, relational DDL, graph constraints, GraphQL SDL or documentation.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVarP(&a.fixture, "fixture", "f", "", "Ontology fixture loaded into the store first")
	flags.StringVar(&a.driver, "driver", "", "Store driver (memory, sqlite, postgres, mysql)")
	flags.StringVar(&a.dsn, "dsn", "", "Store data source name")

	cmd.AddCommand(
		loadCmd(a),
		materializeCmd(a),
		extractCmd(a),
		generateCmd(a),
		coerceCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "onto2schema version %s (build: %s)\n", Version, BuildTime)
			},
		},
	)
	return cmd
}

// setup configures logging and loads the configuration, with flags
// overriding the file.
func (a *app) setup(w io.Writer) error {
	level := slog.LevelInfo
	switch strings.ToLower(a.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return onto2schema.NewConfigError("log-level", a.logLevel, "use debug, info, warn or error")
	}
	a.logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.fixture != "" {
		cfg.Store.Fixture = a.fixture
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	if a.dsn != "" {
		cfg.Store.DSN = a.dsn
	}
	a.cfg = cfg
	return cfg.Validate()
}

// openStore opens the configured store and loads the fixture into it.
func (a *app) openStore(ctx context.Context) (axiom.Store, error) {
	var (
		store axiom.Store
		stats *dsql.StatsDriver
	)
	switch a.cfg.Store.Driver {
	case config.DriverMemory:
		store = memgraph.New()
	default:
		drv, err := dsql.Open(a.cfg.Store.Driver, a.cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Driver, err)
		}
		stats = dsql.NewStatsDriver(drv, dsql.WithLogger(a.logger))
		s, err := sqlgraph.Open(ctx, stats, sqlgraph.WithLogger(a.logger))
		if err != nil {
			drv.Close()
			return nil, err
		}
		store = &statsStore{Store: s, stats: stats, logger: a.logger}
	}
	store = axiom.Logged(store, a.logger)
	if path := a.cfg.Store.Fixture; path != "" {
		if err := a.load(ctx, store, path); err != nil {
			store.Close()
			return nil, err
		}
	}
	return store, nil
}

func (a *app) load(ctx context.Context, store axiom.Store, path string) error {
	o, err := loader.ParseFile(path)
	if err != nil {
		return err
	}
	st, err := o.Load(ctx, store)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	a.logger.InfoContext(ctx, "ontology loaded", "fixture", path, "nodes", st.NodesCreated, "edges", st.EdgesCreated)
	return nil
}

// compiler opens the store and returns a compiler over it. The caller
// closes the store.
func (a *app) compiler(ctx context.Context) (*compiler.Compiler, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	opts := append(a.cfg.CompilerOptions(), compiler.WithLogger(a.logger))
	if a.registry != nil {
		opts = append(opts, compiler.WithMetrics(a.registry))
	}
	c, err := compiler.New(store, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

// statsStore logs the statement statistics of a SQL store when closed.
type statsStore struct {
	axiom.Store
	stats  *dsql.StatsDriver
	logger *slog.Logger
}

func (s *statsStore) Close() error {
	s.logger.Debug("store statistics", "stats", s.stats.QueryStats().Stats().String())
	return s.Store.Close()
}
