package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Writer writes artifacts to an output directory in parallel. Go artifacts
// are formatted with goimports before they are written.
type Writer struct {
	outDir  string
	workers int

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks what a writer produced.
type WriterMetrics struct {
	FilesWritten int
	TotalBytes   int64
}

// NewWriter creates a writer for outDir.
func NewWriter(outDir string) *Writer {
	return &Writer{
		outDir:  outDir,
		workers: runtime.GOMAXPROCS(0),
	}
}

// WithWorkers sets the number of parallel workers.
func (w *Writer) WithWorkers(n int) *Writer {
	if n > 0 {
		w.workers = n
	}
	return w
}

// Metrics returns the writer metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write writes every artifact and returns the paths written, in artifact
// order. The first failure cancels the remaining writes.
func (w *Writer) Write(ctx context.Context, artifacts []*Artifact) ([]string, error) {
	if err := os.MkdirAll(w.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, len(artifacts))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)
	for i, a := range artifacts {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			path, err := w.writeFile(a)
			paths[i] = path
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// writeFile writes a single artifact.
func (w *Writer) writeFile(a *Artifact) (string, error) {
	fullPath := filepath.Join(w.outDir, a.Name)
	content := a.Content
	if strings.HasSuffix(a.Name, ".go") {
		formatted, err := imports.Process(fullPath, content, nil)
		if err != nil {
			// Write unformatted file for debugging (errors intentionally ignored as we're already in error state)
			debugPath := fullPath + ".error"
			_ = os.WriteFile(debugPath, content, 0o644)
			return "", NewGenerationError(a.Target, a.Name, "format (unformatted written to "+debugPath+")", err)
		}
		content = formatted
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", a.Name, err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", a.Name, err)
	}
	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.TotalBytes += int64(len(content))
	w.mu.Unlock()
	return fullPath, nil
}
