package onto2schema

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for the compiler pipeline.
var (
	// ErrMissingNode is returned when a requested label does not resolve to any node.
	ErrMissingNode = errors.New("onto2schema: node not found")

	// ErrAmbiguousLabel is returned when a label resolves to more than one
	// distinct node and no URI was given to disambiguate it.
	ErrAmbiguousLabel = errors.New("onto2schema: ambiguous label")

	// ErrMalformedAxiom is returned for axioms missing required references.
	ErrMalformedAxiom = errors.New("onto2schema: malformed axiom")

	// ErrUnsupportedCardinality is returned when a cardinality value outside
	// the closed tag set reaches a consumer.
	ErrUnsupportedCardinality = errors.New("onto2schema: unsupported cardinality")

	// ErrNameCollision is returned when no unique identifier could be produced.
	ErrNameCollision = errors.New("onto2schema: name collision")

	// ErrInvalidSchema is returned when an IR fails validation.
	ErrInvalidSchema = errors.New("onto2schema: invalid schema")

	// ErrStoreClosed is returned when operating on a closed axiom store.
	ErrStoreClosed = errors.New("onto2schema: store closed")

	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("onto2schema: invalid configuration")
)

// MissingNodeError reports a requested label that resolved to zero nodes.
type MissingNodeError struct {
	Label string
}

// Error returns the error string.
func (e *MissingNodeError) Error() string {
	return fmt.Sprintf("onto2schema: no class matches %q", e.Label)
}

// Is reports whether the target error matches MissingNodeError.
func (e *MissingNodeError) Is(err error) bool {
	return err == ErrMissingNode
}

// NewMissingNodeError returns a new MissingNodeError for the given label.
func NewMissingNodeError(label string) *MissingNodeError {
	return &MissingNodeError{Label: label}
}

// IsMissingNode returns true if the error is a MissingNodeError.
func IsMissingNode(err error) bool {
	if err == nil {
		return false
	}
	var e *MissingNodeError
	return errors.As(err, &e) || errors.Is(err, ErrMissingNode)
}

// AmbiguousLabelError reports a label shared by several distinct nodes.
type AmbiguousLabelError struct {
	Label string
	URIs  []string
}

// Error returns the error string.
func (e *AmbiguousLabelError) Error() string {
	return fmt.Sprintf("onto2schema: label %q matches %d classes (%s)", e.Label, len(e.URIs), strings.Join(e.URIs, ", "))
}

// Is reports whether the target error matches AmbiguousLabelError.
func (e *AmbiguousLabelError) Is(err error) bool {
	return err == ErrAmbiguousLabel
}

// NewAmbiguousLabelError returns a new AmbiguousLabelError.
func NewAmbiguousLabelError(label string, uris []string) *AmbiguousLabelError {
	return &AmbiguousLabelError{Label: label, URIs: uris}
}

// IsAmbiguousLabel returns true if the error is an AmbiguousLabelError.
func IsAmbiguousLabel(err error) bool {
	if err == nil {
		return false
	}
	var e *AmbiguousLabelError
	return errors.As(err, &e) || errors.Is(err, ErrAmbiguousLabel)
}

// MalformedAxiomError reports an axiom that cannot be rewritten because a
// required reference is missing. Materialization skips such axioms.
type MalformedAxiomError struct {
	Rule   string // Rule that found the axiom
	Node   string // URI or id of the offending axiom node
	Reason string
}

// Error returns the error string.
func (e *MalformedAxiomError) Error() string {
	var b strings.Builder
	b.WriteString("onto2schema: malformed axiom")
	if e.Node != "" {
		b.WriteString(" ")
		b.WriteString(e.Node)
	}
	if e.Rule != "" {
		b.WriteString(" (rule ")
		b.WriteString(e.Rule)
		b.WriteString(")")
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// Is reports whether the target error matches MalformedAxiomError.
func (e *MalformedAxiomError) Is(err error) bool {
	return err == ErrMalformedAxiom
}

// NewMalformedAxiomError returns a new MalformedAxiomError.
func NewMalformedAxiomError(rule, node, reason string) *MalformedAxiomError {
	return &MalformedAxiomError{Rule: rule, Node: node, Reason: reason}
}

// IsMalformedAxiom returns true if the error is a MalformedAxiomError.
func IsMalformedAxiom(err error) bool {
	if err == nil {
		return false
	}
	var e *MalformedAxiomError
	return errors.As(err, &e) || errors.Is(err, ErrMalformedAxiom)
}

// UnsupportedCardinalityError reports a cardinality value that is not one of
// the closed tag set. It is fatal only to the field that carries it.
type UnsupportedCardinalityError struct {
	Owner string // Node label owning the field
	Field string // Property name or relationship type
	Value string
}

// Error returns the error string.
func (e *UnsupportedCardinalityError) Error() string {
	switch {
	case e.Owner != "" && e.Field != "":
		return fmt.Sprintf("onto2schema: unsupported cardinality %q on %s.%s", e.Value, e.Owner, e.Field)
	case e.Field != "":
		return fmt.Sprintf("onto2schema: unsupported cardinality %q on %s", e.Value, e.Field)
	default:
		return fmt.Sprintf("onto2schema: unsupported cardinality %q", e.Value)
	}
}

// Is reports whether the target error matches UnsupportedCardinalityError.
func (e *UnsupportedCardinalityError) Is(err error) bool {
	return err == ErrUnsupportedCardinality
}

// NewUnsupportedCardinalityError returns a new UnsupportedCardinalityError.
func NewUnsupportedCardinalityError(owner, field, value string) *UnsupportedCardinalityError {
	return &UnsupportedCardinalityError{Owner: owner, Field: field, Value: value}
}

// IsUnsupportedCardinality returns true if the error is an UnsupportedCardinalityError.
func IsUnsupportedCardinality(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedCardinalityError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedCardinality)
}

// NameCollisionError reports that the normalizer could not allocate a unique
// identifier within a scope after exhausting its suffix strategy.
type NameCollisionError struct {
	Scope    string
	Name     string
	Attempts int
}

// Error returns the error string.
func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("onto2schema: cannot allocate unique name for %q in scope %q after %d attempts", e.Name, e.Scope, e.Attempts)
}

// Is reports whether the target error matches NameCollisionError.
func (e *NameCollisionError) Is(err error) bool {
	return err == ErrNameCollision
}

// NewNameCollisionError returns a new NameCollisionError.
func NewNameCollisionError(scope, name string, attempts int) *NameCollisionError {
	return &NameCollisionError{Scope: scope, Name: name, Attempts: attempts}
}

// IsNameCollision returns true if the error is a NameCollisionError.
func IsNameCollision(err error) bool {
	if err == nil {
		return false
	}
	var e *NameCollisionError
	return errors.As(err, &e) || errors.Is(err, ErrNameCollision)
}

// ValidationError reports a violation of the IR invariants.
type ValidationError struct {
	Node    string // Node label (if applicable)
	Field   string // Property or relationship (if applicable)
	Message string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("onto2schema: validation error")
	if e.Node != "" {
		b.WriteString(" on node ")
		b.WriteString(e.Node)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches ErrInvalidSchema.
func (e *ValidationError) Is(err error) bool {
	return err == ErrInvalidSchema
}

// NewValidationError returns a new ValidationError.
func NewValidationError(node, field, message string) *ValidationError {
	return &ValidationError{Node: node, Field: field, Message: message}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("onto2schema: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("onto2schema: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// StoreError wraps a failure of the axiom store with the batch it occurred in.
type StoreError struct {
	Batch string // Named batch (or query) that failed
	Err   error
}

// Error returns the error string.
func (e *StoreError) Error() string {
	if e.Batch != "" {
		return fmt.Sprintf("onto2schema: store batch %q: %v", e.Batch, e.Err)
	}
	return fmt.Sprintf("onto2schema: store: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns a new StoreError.
func NewStoreError(batch string, err error) *StoreError {
	return &StoreError{Batch: batch, Err: err}
}

// IsStoreError returns true if the error is a StoreError.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}
	var e *StoreError
	return errors.As(err, &e)
}
