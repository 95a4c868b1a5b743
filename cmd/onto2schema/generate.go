package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/syssam/onto2schema/compiler/gen"
	"github.com/syssam/onto2schema/compiler/ir"
)

type generateFlags struct {
	extractFlags
	targets     []string
	out         string
	fromIR      string
	watch       bool
	metricsAddr string
}

func generateCmd(a *app) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate [labels...]",
		Short: "Render schema artifacts",
		Long: `Generate extracts the schema of the given classes (or of the configured
labels, or of every class) and renders the configured targets into the
output directory. With --from-ir the schema is read from a JSON payload
instead of the store. With --watch the fixture or payload is watched and
the artifacts are rendered again on every change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(f.targets) > 0 {
				a.cfg.Generate.Targets = f.targets
			}
			if f.out != "" {
				a.cfg.Generate.Out = f.out
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			if f.metricsAddr != "" {
				srv, err := a.serveMetrics(ctx, f.metricsAddr)
				if err != nil {
					return err
				}
				defer srv.Close()
			}
			run := func() error {
				paths, err := a.generate(ctx, f, args)
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return err
			}
			err := run()
			if !f.watch {
				return err
			}
			if err != nil {
				a.logger.ErrorContext(ctx, "generation failed", "error", err)
			}
			return a.watch(ctx, f.watched(a), run)
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVarP(&f.targets, "targets", "t", nil, "Targets to render (go, sql, cypher, markdown, graphql); default all")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "Output directory")
	cmd.Flags().StringVar(&f.fromIR, "from-ir", "", "Read the schema from a JSON payload instead of the store")
	cmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Render again whenever the input changes")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve prometheus metrics on this address")
	return cmd
}

// watched returns the input files of a generation.
func (f *generateFlags) watched(a *app) []string {
	if f.fromIR != "" {
		return []string{f.fromIR}
	}
	var files []string
	if a.cfg.Store.Fixture != "" {
		files = append(files, a.cfg.Store.Fixture)
	}
	if a.configPath != "" {
		files = append(files, a.configPath)
	}
	return files
}

// generate renders and writes the artifacts once. Every target is
// attempted; the paths written are returned with the joined errors of the
// failed targets.
func (a *app) generate(ctx context.Context, f *generateFlags, labels []string) ([]string, error) {
	start := time.Now()
	if a.metrics != nil {
		a.registry = prometheus.NewRegistry()
		defer a.metrics.swap(a.registry)
	}
	targets, err := a.cfg.Targets()
	if err != nil {
		return nil, err
	}
	var s *ir.Schema
	c, err := a.compiler(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Store().Close()
	if f.fromIR != "" {
		s, err = a.readSchema(ctx, f.fromIR)
	} else {
		s, err = a.extract(ctx, c, &f.extractFlags, labels)
	}
	if err != nil {
		return nil, err
	}
	artifacts, genErr := c.GenerateAll(ctx, s, targets...)
	for _, art := range artifacts {
		for _, w := range art.Warnings {
			a.logger.WarnContext(ctx, "artifact warning", "target", art.Target, "warning", w)
		}
	}
	paths, err := gen.NewWriter(a.cfg.Generate.Out).WithWorkers(a.cfg.Extract.Workers).Write(ctx, artifacts)
	a.logger.InfoContext(ctx, "generation finished",
		"nodes", len(s.Nodes),
		"artifacts", len(paths),
		"out", a.cfg.Generate.Out,
		"duration", time.Since(start),
	)
	return paths, errors.Join(genErr, err)
}

// watch calls run whenever one of files changes, until ctx is done.
// Directories are watched so editors replacing files are noticed too.
func (a *app) watch(ctx context.Context, files []string, run func() error) error {
	if len(files) == 0 {
		return errors.New("watch: nothing to watch; give a fixture or --from-ir")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()
	wanted := map[string]bool{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = true
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return fmt.Errorf("watch %s: %w", f, err)
		}
	}
	a.logger.InfoContext(ctx, "watching for changes", "files", files)
	var (
		debounce = time.NewTimer(time.Hour)
		pending  bool
	)
	debounce.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !wanted[filepath.Clean(ev.Name)] || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = true
			debounce.Reset(100 * time.Millisecond)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.logger.WarnContext(ctx, "watch error", "error", err)
		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			a.logger.InfoContext(ctx, "input changed, generating")
			if err := run(); err != nil {
				a.logger.ErrorContext(ctx, "generation failed", "error", err)
			}
		}
	}
}

// serveMetrics exposes the metrics of the latest generation on addr.
func (a *app) serveMetrics(ctx context.Context, addr string) (*http.Server, error) {
	a.metrics = &latestGatherer{}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.ErrorContext(ctx, "metrics server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.InfoContext(ctx, "serving metrics", "addr", ln.Addr().String())
	return srv, nil
}

// latestGatherer gathers the registry of the latest completed generation.
// Each generation registers fresh collectors, so metrics never collide.
type latestGatherer struct {
	reg atomic.Pointer[prometheus.Registry]
}

func (g *latestGatherer) swap(r *prometheus.Registry) { g.reg.Store(r) }

// Gather implements prometheus.Gatherer.
func (g *latestGatherer) Gather() ([]*dto.MetricFamily, error) {
	r := g.reg.Load()
	if r == nil {
		return nil, nil
	}
	return r.Gather()
}
