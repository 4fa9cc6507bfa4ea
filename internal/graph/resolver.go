package graph

import (
	"context"
	"fmt"

	"github.com/hanpama/usergraph/internal/dataloader"
	"github.com/hanpama/usergraph/internal/language"
)

// Thunk is a value that becomes available once the loaders of the current
// depth have been dispatched.
type Thunk func() (any, error)

func deferred[V any](th dataloader.Thunk[V]) Thunk {
	return func() (any, error) { return th() }
}

// params are the inputs of one field resolution.
type params struct {
	Source       any
	Args         map[string]any
	SelectionSet language.SelectionSet
}

type resolveFunc func(ctx context.Context, req *Request, p params) (any, error)

// fieldResolver resolves one field. Async fields may touch storage and are
// batched per depth; sync fields project the parent value.
type fieldResolver struct {
	resolve resolveFunc
	async   bool
}

type objectResolvers map[string]fieldResolver

func syncField(fn resolveFunc) fieldResolver  { return fieldResolver{resolve: fn} }
func asyncField(fn resolveFunc) fieldResolver { return fieldResolver{resolve: fn, async: true} }

// project builds a sync resolver reading from a *T parent.
func project[T any](get func(*T) any) fieldResolver {
	return syncField(func(ctx context.Context, req *Request, p params) (any, error) {
		src, err := sourceAs[T](p.Source)
		if err != nil {
			return nil, err
		}
		return get(src), nil
	})
}

// relation builds an async resolver on a *T parent.
func relation[T any](fn func(ctx context.Context, req *Request, src *T, p params) (any, error)) fieldResolver {
	return asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
		src, err := sourceAs[T](p.Source)
		if err != nil {
			return nil, err
		}
		return fn(ctx, req, src, p)
	})
}

func sourceAs[T any](source any) (*T, error) {
	src, ok := source.(*T)
	if !ok || src == nil {
		return nil, fmt.Errorf("unexpected parent value %T", source)
	}
	return src, nil
}

// resolverMap is the resolver graph keyed by object type and field name.
var resolverMap = map[string]objectResolvers{
	"Query":      queryResolvers(),
	"Mutation":   mutationResolvers(),
	"User":       userResolvers(),
	"Post":       postResolvers(),
	"Profile":    profileResolvers(),
	"MemberType": memberTypeResolvers(),
}

func lookupResolver(objectType, field string) (fieldResolver, bool) {
	fr, ok := resolverMap[objectType][field]
	return fr, ok
}

// isAsync reports whether objectType.field is batched.
func isAsync(objectType, field string) bool {
	fr, ok := lookupResolver(objectType, field)
	return ok && fr.async
}
