// Package materialize rewrites the implicit axioms of an ontology graph
// (domain and range declarations, property restrictions, union and one-of
// constructs) into direct relationships annotated with cardinality.
//
// Every rule is idempotent and order independent. The driver runs the rule
// list repeatedly, one store batch per rule, until an iteration rewrites
// nothing, so running a pass twice leaves the graph unchanged.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/onto2schema"
	"github.com/syssam/onto2schema/axiom"
)

// DefaultMaxIterations bounds the driver loop.
const DefaultMaxIterations = 8

// Report summarizes one materialization run.
type Report struct {
	RunID      uuid.UUID
	Kind       string
	Iterations int
	// Converged is false when the run stopped at the iteration bound while
	// rules were still rewriting.
	Converged bool
	// Applied counts applied rewrites per rule name.
	Applied map[string]int
	// Skipped holds the malformed axioms that were left in place.
	Skipped []error
	// Failed holds the errors of rule batches that were rolled back.
	Failed   []error
	Duration time.Duration
}

// Total returns the number of applied rewrites.
func (r *Report) Total() int {
	n := 0
	for _, c := range r.Applied {
		n += c
	}
	return n
}

// Err joins the batch failures of the run.
func (r *Report) Err() error { return errors.Join(r.Failed...) }

func (r *Report) merge(o *Report) {
	r.Iterations += o.Iterations
	r.Converged = r.Converged && o.Converged
	for k, v := range o.Applied {
		r.Applied[k] += v
	}
	r.Skipped = append(r.Skipped, o.Skipped...)
	r.Failed = append(r.Failed, o.Failed...)
	r.Duration += o.Duration
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Materializer) { m.logger = l }
}

// WithMetrics sets the metrics the materializer reports to.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Materializer) { m.metrics = metrics }
}

// WithMaxIterations bounds the number of driver iterations per run.
func WithMaxIterations(n int) Option {
	return func(m *Materializer) {
		if n > 0 {
			m.maxIterations = n
		}
	}
}

// Materializer runs rewrite rules against one axiom store. Runs of the same
// Materializer are serialized; callers sharing a store between several
// materializers must serialize them themselves.
type Materializer struct {
	store         axiom.Store
	logger        *slog.Logger
	metrics       *Metrics
	maxIterations int
	mu            sync.Mutex
}

// New returns a Materializer for store.
func New(store axiom.Store, opts ...Option) *Materializer {
	m := &Materializer{
		store:         store,
		logger:        slog.Default(),
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize runs the pass of one property kind.
func (m *Materializer) Materialize(ctx context.Context, kind axiom.PropertyKind) (*Report, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("materialize: invalid property kind %d", kind)
	}
	return m.Run(ctx, kind.String(), Rules(kind))
}

// Dedup collapses duplicated materialized edges.
func (m *Materializer) Dedup(ctx context.Context) (*Report, error) {
	return m.Run(ctx, string(KindDedup), []Rule{Dedup{}})
}

// MaterializeAll runs the object pass, the datatype pass and deduplication,
// and returns their combined report. A failing pass does not stop the
// following ones.
func (m *Materializer) MaterializeAll(ctx context.Context) (*Report, error) {
	total := m.newReport("all")
	steps := []func(context.Context) (*Report, error){
		func(ctx context.Context) (*Report, error) { return m.Materialize(ctx, axiom.ObjectProperty) },
		func(ctx context.Context) (*Report, error) { return m.Materialize(ctx, axiom.DatatypeProperty) },
		m.Dedup,
	}
	for _, step := range steps {
		r, err := step(ctx)
		if r != nil {
			total.merge(r)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return total, ctxErr
		}
		if err != nil && r == nil {
			return total, err
		}
	}
	return total, total.Err()
}

// Run executes rules until an iteration applies no rewrite. Each rule runs
// in its own store batch, matching and applying atomically. A failing batch
// is recorded in the report and its rule is not retried within the run.
// The returned error joins the batch failures; the report is returned in
// every case.
func (m *Materializer) Run(ctx context.Context, kind string, rules []Rule) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		start   = time.Now()
		report  = m.newReport(kind)
		skipped = map[string]bool{}
		failed  = map[string]bool{}
	)
	report.Converged = false
	m.logger.InfoContext(ctx, "materialization started", "run", report.RunID, "kind", kind)
	if m.metrics != nil {
		m.metrics.Runs.WithLabelValues(kind).Inc()
	}
	for report.Iterations < m.maxIterations {
		report.Iterations++
		applied := 0
		for _, rule := range rules {
			if err := ctx.Err(); err != nil {
				report.Duration = time.Since(start)
				return report, err
			}
			if failed[rule.Name()] {
				continue
			}
			n, skips, err := m.pass(ctx, rule)
			for _, s := range skips {
				if skipped[s.Error()] {
					continue
				}
				skipped[s.Error()] = true
				report.Skipped = append(report.Skipped, s)
				m.observe(rule, "skipped", 1)
				var mal *onto2schema.MalformedAxiomError
				if errors.As(s, &mal) {
					m.logger.WarnContext(ctx, "skipping malformed axiom", "rule", mal.Rule, "node", mal.Node, "reason", mal.Reason)
				}
			}
			if err != nil {
				failed[rule.Name()] = true
				report.Failed = append(report.Failed, err)
				m.observe(rule, "failed", 1)
				m.logger.ErrorContext(ctx, "materialization rule failed", "run", report.RunID, "rule", rule.Name(), "error", err)
				continue
			}
			report.Applied[rule.Name()] += n
			m.observe(rule, "applied", n)
			applied += n
		}
		if applied == 0 {
			report.Converged = true
			break
		}
	}
	report.Duration = time.Since(start)
	if !report.Converged {
		m.logger.WarnContext(ctx, "materialization did not converge", "run", report.RunID, "kind", kind, "iterations", report.Iterations)
	}
	m.logger.InfoContext(ctx, "materialization finished",
		"run", report.RunID,
		"kind", kind,
		"iterations", report.Iterations,
		"applied", report.Total(),
		"skipped", len(report.Skipped),
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	return report, report.Err()
}

// pass runs one rule in a named batch and returns the number of applied
// rewrites and the malformed axioms it found.
func (m *Materializer) pass(ctx context.Context, rule Rule) (int, []error, error) {
	var (
		applied int
		skips   []error
		start   = time.Now()
	)
	err := m.store.Update(ctx, "materialize_"+rule.Name(), func(tx axiom.Tx) error {
		applied, skips = 0, nil
		rws, err := rule.Match(ctx, tx)
		if err != nil {
			return fmt.Errorf("match: %w", err)
		}
		for _, rw := range rws {
			if rw.Err != nil {
				skips = append(skips, rw.Err)
				continue
			}
			if rw.Empty() {
				continue
			}
			if err := rule.Apply(ctx, tx, rw); err != nil {
				return fmt.Errorf("apply %s: %w", rw.Subject, err)
			}
			applied++
		}
		return nil
	})
	if m.metrics != nil {
		m.metrics.PassDuration.WithLabelValues(rule.Name()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return 0, skips, fmt.Errorf("materialize: rule %s: %w", rule.Name(), err)
	}
	return applied, skips, nil
}

func (m *Materializer) observe(rule Rule, outcome string, n int) {
	if m.metrics != nil && n > 0 {
		m.metrics.Rewrites.WithLabelValues(rule.Name(), outcome).Add(float64(n))
	}
}

func (m *Materializer) newReport(kind string) *Report {
	return &Report{RunID: uuid.New(), Kind: kind, Applied: map[string]int{}, Converged: true}
}
