// Copyright 2026 qualab. All rights reserved.
// Use of this source code is governed by the MIT license
// that can be found in the LICENSE file.

// Package qerrors defines the structured error type shared by every
// subjqual component, modeled on the teacher's PCAError: a fixed set of
// kinds, a human message, optional index context, and an optional cause.
package qerrors

import "fmt"

// Kind categorizes the fatal error conditions a model or adapter can raise.
type Kind string

const (
	// SchemaError indicates malformed input to the dataset adapter.
	SchemaError Kind = "schema_error"
	// MissingReference indicates a DMOS-family operation needed a
	// reference stimulus that the reference map does not provide.
	MissingReference Kind = "missing_reference"
	// InvalidCombination indicates two requested options cannot be
	// combined (e.g. subject rejection with an MLE variant).
	InvalidCombination Kind = "invalid_combination"
	// InsufficientData indicates a subject or content has too few
	// observations to estimate its parameters.
	InsufficientData Kind = "insufficient_data"
	// DidNotConverge indicates the solver hit its iteration cap without
	// meeting the convergence tolerance.
	DidNotConverge Kind = "did_not_converge"
	// NumericFailure indicates a non-finite value appeared in an
	// intermediate parameter.
	NumericFailure Kind = "numeric_failure"
)

// Error is the structured error type returned by every subjqual package.
// Context carries whatever offending indices apply (subject/stimulus/
// content), so callers can report precisely without parsing the message.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// With returns a copy of e with key set in its Context.
func (e *Error) With(key string, value any) *Error {
	ctx := make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Error{Kind: e.Kind, Message: e.Message, Context: ctx, Cause: e.Cause}
}

// NewSchemaError creates a SchemaError.
func NewSchemaError(message string, cause error) *Error {
	return &Error{Kind: SchemaError, Message: message, Cause: cause}
}

// NewMissingReferenceError creates a MissingReference error for stimulus
// index e.
func NewMissingReferenceError(message string, stimulus int) *Error {
	return &Error{Kind: MissingReference, Message: message, Context: map[string]any{"stimulus": stimulus}}
}

// NewInvalidCombinationError creates an InvalidCombination error.
func NewInvalidCombinationError(message string) *Error {
	return &Error{Kind: InvalidCombination, Message: message}
}

// NewInsufficientDataError creates an InsufficientData error, optionally
// naming the offending subject/content index via ctx.
func NewInsufficientDataError(message string, ctx map[string]any) *Error {
	return &Error{Kind: InsufficientData, Message: message, Context: ctx}
}

// NewDidNotConvergeError creates a DidNotConverge error reporting the
// number of iterations run and the worst remaining parameter delta.
func NewDidNotConvergeError(message string, iterations int, worstDelta float64) *Error {
	return &Error{
		Kind:    DidNotConverge,
		Message: message,
		Context: map[string]any{"iterations": iterations, "worst_delta": worstDelta},
	}
}

// NewNumericFailureError creates a NumericFailure error naming the
// parameter and index where a non-finite value appeared.
func NewNumericFailureError(message, param string, index int) *Error {
	return &Error{
		Kind:    NumericFailure,
		Message: message,
		Context: map[string]any{"param": param, "index": index},
	}
}
