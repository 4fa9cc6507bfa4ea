package graph

import (
	"context"
	"errors"

	"github.com/hanpama/usergraph/internal/store"
)

func queryResolvers() objectResolvers {
	return objectResolvers{
		"memberTypes": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return orEmpty(req.Store.ListMemberTypes(ctx))
		}),
		"posts": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return orEmpty(req.Store.ListPosts(ctx))
		}),
		"profiles": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return orEmpty(req.Store.ListProfiles(ctx))
		}),
		"users":      asyncField(resolveUsers),
		"memberType": asyncField(resolveMemberType),
		"post": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			return nullIfNotFound(req.Store.GetPost(ctx, id))
		}),
		"profile": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			return nullIfNotFound(req.Store.GetProfile(ctx, id))
		}),
		"user": asyncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			return deferred(req.Loaders.User.Load(ctx, id)), nil
		}),
	}
}

// resolveUsers lists every user, eager-loading only the edge lists the query
// selects, and primes the loaders with the rows.
func resolveUsers(ctx context.Context, req *Request, p params) (any, error) {
	include := userInclude(p.SelectionSet)
	users, err := req.Store.ListUsers(ctx, include)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		req.Loaders.PrimeUser(u)
	}
	req.Logger.DebugContext(ctx, "listed users",
		"count", len(users),
		"subscribedTo", include.SubscribedTo,
		"followers", include.Followers,
	)
	return orEmpty(users, nil)
}

func resolveMemberType(ctx context.Context, req *Request, p params) (any, error) {
	id, _ := p.Args["id"].(string)
	return nullIfNotFound(req.Store.GetMemberType(ctx, id))
}

// nullIfNotFound turns a missing row into a GraphQL null.
func nullIfNotFound[T any](v *T, err error) (any, error) {
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// orEmpty keeps non-null list fields from resolving to null.
func orEmpty[T any](rows []T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}
