package gen

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrGenerationFailed indicates an emitter failed to render its artifact.
	ErrGenerationFailed = errors.New("onto2schema: generation failed")
	// ErrUnknownTarget indicates a target name no emitter is registered for.
	ErrUnknownTarget = errors.New("onto2schema: unknown target")
)

// GenerationError represents the failure of one artifact.
type GenerationError struct {
	Target  Target
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("onto2schema: generation error")
	if e.Target != "" {
		b.WriteString(" in target ")
		b.WriteString(string(e.Target))
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(target Target, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Target:  target,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
