package common

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("resource not found")
var ErrValidation = errors.New("validation failed")
var ErrSemantic = errors.New("semantically invalid resource")
var ErrTransform = errors.New("transform failed")
var ErrEventParse = errors.New("unrecognized event message")
var ErrNoPathStrategy = errors.New("no path strategy found")
var ErrNotText = errors.New("only text/* content types have a text representation")

// ValidationError is a structural precondition violation: a field that the
// operation requires was not supplied.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field string, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s required", e.Field)
	}
	return fmt.Sprintf("%s required: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// SemanticError is raised when a value is present but invalid for the domain,
// such as an artifact that does not reference its archetype.
type SemanticError struct {
	Field  string
	Reason string
}

func NewSemanticError(field string, reason string) *SemanticError {
	return &SemanticError{Field: field, Reason: reason}
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *SemanticError) Is(target error) bool {
	return target == ErrSemantic
}

type TransformError struct {
	Scribe string
	Key    string
	Err    error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("scribe %s failed on %s: %v", e.Scribe, e.Key, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}

type EventParseError struct {
	Reason string
	Err    error
}

func (e *EventParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrEventParse.Error(), e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrEventParse.Error(), e.Reason)
}

func (e *EventParseError) Unwrap() error {
	return e.Err
}

func (e *EventParseError) Is(target error) bool {
	return target == ErrEventParse
}
