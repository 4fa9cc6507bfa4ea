package executor

import (
	"errors"

	language "github.com/hanpama/usergraph/internal/language"
)

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// Location is a 1-based position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
	// Depths counts the BatchResolveAsync rounds used to produce Data.
	Depths int `json:"-"`
}

// extendedError matches errors that carry response extensions.
type extendedError interface {
	Extensions() map[string]any
}

func newFieldError(err error, fields []*language.Field, path Path) GraphQLError {
	ge := GraphQLError{Message: err.Error(), Path: path, Locations: fieldLocations(fields)}
	var gqlErr *language.Error
	if errors.As(err, &gqlErr) {
		ge.Message = gqlErr.Message
		if len(gqlErr.Extensions) > 0 {
			ge.Extensions = gqlErr.Extensions
		}
		return ge
	}
	var ext extendedError
	if errors.As(err, &ext) {
		if m := ext.Extensions(); len(m) > 0 {
			ge.Extensions = m
		}
	}
	return ge
}

func fieldLocations(fields []*language.Field) []Location {
	if len(fields) == 0 || fields[0] == nil || fields[0].Position == nil {
		return nil
	}
	return []Location{{Line: fields[0].Position.Line, Column: fields[0].Position.Column}}
}
