package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/hanpama/usergraph/internal/store"
)

// Error codes reported in extensions.code.
const (
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeBadUserInput = "BAD_USER_INPUT"
	CodeInternal     = "INTERNAL"
)

// Code classifies err by the store sentinels it wraps.
func Code(err error) string {
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		if code, ok := ge.Extensions["code"].(string); ok {
			return code
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, store.ErrConflict):
		return CodeConflict
	case errors.Is(err, store.ErrInvalidReference):
		return CodeBadUserInput
	default:
		return CodeInternal
	}
}

// fieldError converts a resolver error into a gqlerror carrying its code.
func fieldError(err error) error {
	if err == nil {
		return nil
	}
	var ge *gqlerror.Error
	if errors.As(err, &ge) {
		return err
	}
	out := gqlerror.Wrap(err)
	out.Extensions = map[string]any{"code": Code(err)}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		out.Message = "request cancelled: " + err.Error()
	}
	return out
}

func badInput(format string, args ...any) error {
	return &gqlerror.Error{
		Message:    fmt.Sprintf(format, args...),
		Extensions: map[string]any{"code": CodeBadUserInput},
	}
}
