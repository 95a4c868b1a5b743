package gen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	ctx := context.Background()
	artifacts, err := GenerateAll(ctx, hrSchema(), Targets)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir).WithWorkers(2)
	paths, err := w.Write(ctx, artifacts)
	require.NoError(t, err)
	require.Len(t, paths, len(Targets))
	for i, a := range artifacts {
		assert.Equal(t, filepath.Join(dir, a.Name), paths[i])
		assert.FileExists(t, paths[i])
	}
	m := w.Metrics()
	assert.Equal(t, len(Targets), m.FilesWritten)
	assert.Positive(t, m.TotalBytes)

	src, err := os.ReadFile(filepath.Join(dir, "model.go"))
	require.NoError(t, err)
	assert.Contains(t, string(src), "package model")
	assert.Contains(t, string(src), `"time"`)
}

func TestWriterFormatError(t *testing.T) {
	dir := t.TempDir()
	_, err := NewWriter(dir).Write(context.Background(), []*Artifact{
		{Target: TypedClasses, Name: "model.go", Content: []byte("package model\nfunc {")},
	})
	require.Error(t, err)
	assert.True(t, IsGenerationError(err))
	assert.FileExists(t, filepath.Join(dir, "model.go.error"))
	assert.NoFileExists(t, filepath.Join(dir, "model.go"))
}
