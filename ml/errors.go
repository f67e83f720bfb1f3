package ml

import (
	"errors"
	"fmt"
)

var (
	ErrMissingArtifact = errors.New("artifact missing")
	ErrUnknownCategory = errors.New("unknown category value")
	ErrUnknownLabel    = errors.New("unknown class id")
	ErrShapeMismatch   = errors.New("shape mismatch")
)

// MissingArtifactError reports a scaler or classifier that could not be found.
// An empty Path means the artifact was never loaded.
type MissingArtifactError struct {
	Name string
	Path string
}

func (e *MissingArtifactError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("artifact %s not loaded", e.Name)
	}
	return fmt.Sprintf("artifact %s not found at %s", e.Name, e.Path)
}

func (e *MissingArtifactError) Is(target error) bool {
	return target == ErrMissingArtifact
}

// UnknownCategoryError reports a categorical value outside its encoding table.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown value %q for %s", e.Value, e.Field)
}

func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}
