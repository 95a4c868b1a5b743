package gen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/onto2schema/compiler/ir"
)

// Emitter renders one artifact of a schema.
type Emitter interface {
	Emit(v *View, c *Config) ([]byte, error)
}

// The EmitterFunc type is an adapter to allow the use of ordinary functions
// as emitters.
type EmitterFunc func(*View, *Config) ([]byte, error)

// Emit calls f(v, c).
func (f EmitterFunc) Emit(v *View, c *Config) ([]byte, error) { return f(v, c) }

var (
	emittersMu sync.RWMutex
	emitters   = map[Target]Emitter{
		TypedClasses:     EmitterFunc(emitGo),
		RelationalDDL:    EmitterFunc(emitDDL),
		GraphConstraints: EmitterFunc(emitCypher),
		SchemaDoc:        EmitterFunc(emitMarkdown),
		GraphQLSchema:    EmitterFunc(emitGraphQL),
	}
)

// Register sets the emitter of a target, replacing any existing one.
func Register(t Target, e Emitter) {
	emittersMu.Lock()
	defer emittersMu.Unlock()
	emitters[t] = e
}

func emitterOf(t Target) (Emitter, bool) {
	emittersMu.RLock()
	defer emittersMu.RUnlock()
	e, ok := emitters[t]
	return e, ok
}

// Artifact is the rendered text of one target.
type Artifact struct {
	Target  Target
	Name    string
	Content []byte
	// Warnings holds the non fatal problems met while rendering.
	Warnings []error
}

// Generate renders one target of s.
func Generate(s *ir.Schema, t Target, opts ...Option) (*Artifact, error) {
	c, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	v, err := NewView(s, c.Naming)
	if err != nil {
		return nil, NewGenerationError(t, t.FileName(), "invalid schema", err)
	}
	return generate(v, c, t)
}

// GenerateAll renders every target of s concurrently. A failing target does
// not prevent the others: the artifacts that rendered are returned together
// with the joined errors of the rest, in target order.
func GenerateAll(ctx context.Context, s *ir.Schema, targets []Target, opts ...Option) ([]*Artifact, error) {
	c, err := NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		targets = Targets
	}
	v, err := NewView(s, c.Naming)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	var (
		eg        errgroup.Group
		artifacts = make([]*Artifact, len(targets))
		errs      = make([]error, len(targets))
	)
	eg.SetLimit(c.Workers)
	for i, t := range targets {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			artifacts[i], errs[i] = generate(v, c, t)
			return nil
		})
	}
	_ = eg.Wait()
	return slices.DeleteFunc(artifacts, func(a *Artifact) bool { return a == nil }), errors.Join(errs...)
}

func generate(v *View, c *Config, t Target) (*Artifact, error) {
	e, ok := emitterOf(t)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTarget, t)
	}
	content, err := e.Emit(v, c)
	if err != nil {
		return nil, NewGenerationError(t, t.FileName(), "", err)
	}
	return &Artifact{
		Target:   t,
		Name:     t.FileName(),
		Content:  content,
		Warnings: slices.Clone(v.Warnings),
	}, nil
}
