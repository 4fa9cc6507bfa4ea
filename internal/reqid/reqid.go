// Package reqid carries a per-request identifier through contexts.
package reqid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header used to accept and echo request ids.
const Header = "X-Request-Id"

type key struct{}

// NewContext stores id in a copy of parent. An empty id is replaced with a
// fresh random UUID. It returns the stored id.
func NewContext(parent context.Context, id string) (context.Context, string) {
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(key{}).(string)
	return id, ok
}
