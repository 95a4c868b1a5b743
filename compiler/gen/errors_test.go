package gen

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationError(t *testing.T) {
	t.Run("Error message with all fields", func(t *testing.T) {
		err := NewGenerationError(TypedClasses, "model.go", "format", errors.New("expected ';'"))
		assert.Equal(t, "onto2schema: generation error in target go (file: model.go): format: expected ';'", err.Error())
	})

	t.Run("Error message with message only", func(t *testing.T) {
		err := &GenerationError{Message: "invalid schema"}
		assert.Equal(t, "onto2schema: generation error: invalid schema", err.Error())
	})

	t.Run("Unwrap and Is", func(t *testing.T) {
		cause := errors.New("boom")
		err := fmt.Errorf("wrap: %w", NewGenerationError(SchemaDoc, "", "", cause))
		assert.ErrorIs(t, err, cause)
		assert.ErrorIs(t, err, ErrGenerationFailed)
		assert.True(t, IsGenerationError(err))
		assert.False(t, IsGenerationError(cause))
	})
}
