package graph

import (
	"context"

	"github.com/hanpama/usergraph/internal/store"
)

// Mutation fields are sync so the executor runs them in document order. Each
// write clears the loader entries it may have invalidated.
func mutationResolvers() objectResolvers {
	return objectResolvers{
		"createUser": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return req.Store.CreateUser(ctx, userInput(inputArg(p.Args, "dto")))
		}),
		"changeUser": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			u, err := req.Store.UpdateUser(ctx, id, userPatch(inputArg(p.Args, "dto")))
			if err != nil {
				return nil, err
			}
			req.Loaders.User.Clear(id)
			return u, nil
		}),
		"deleteUser": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return swallow(ctx, req, "deleteUser", func() error {
				id, err := uuidArg(p.Args, "id")
				if err != nil {
					return err
				}
				if err := req.Store.DeleteUser(ctx, id); err != nil {
					return err
				}
				// Cascades touch every loader.
				req.Loaders.ClearAll()
				return nil
			}), nil
		}),
		"createPost": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			in, err := postInput(inputArg(p.Args, "dto"))
			if err != nil {
				return nil, err
			}
			post, err := req.Store.CreatePost(ctx, in)
			if err != nil {
				return nil, err
			}
			req.Loaders.PostsByAuthor.Clear(post.AuthorID)
			return post, nil
		}),
		"changePost": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			patch, err := postPatch(inputArg(p.Args, "dto"))
			if err != nil {
				return nil, err
			}
			post, err := req.Store.UpdatePost(ctx, id, patch)
			if err != nil {
				return nil, err
			}
			req.Loaders.PostsByAuthor.ClearAll()
			return post, nil
		}),
		"deletePost": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return swallow(ctx, req, "deletePost", func() error {
				id, err := uuidArg(p.Args, "id")
				if err != nil {
					return err
				}
				if err := req.Store.DeletePost(ctx, id); err != nil {
					return err
				}
				req.Loaders.PostsByAuthor.ClearAll()
				return nil
			}), nil
		}),
		"createProfile": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			in, err := profileInput(inputArg(p.Args, "dto"))
			if err != nil {
				return nil, err
			}
			profile, err := req.Store.CreateProfile(ctx, in)
			if err != nil {
				return nil, err
			}
			req.Loaders.ProfileByUser.Clear(profile.UserID)
			return profile, nil
		}),
		"changeProfile": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			id, err := uuidArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			profile, err := req.Store.UpdateProfile(ctx, id, profilePatch(inputArg(p.Args, "dto")))
			if err != nil {
				return nil, err
			}
			req.Loaders.ProfileByUser.Clear(profile.UserID)
			return profile, nil
		}),
		"deleteProfile": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return swallow(ctx, req, "deleteProfile", func() error {
				id, err := uuidArg(p.Args, "id")
				if err != nil {
					return err
				}
				if err := req.Store.DeleteProfile(ctx, id); err != nil {
					return err
				}
				req.Loaders.ProfileByUser.ClearAll()
				return nil
			}), nil
		}),
		"subscribeTo": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			edge, err := edgeArgs(p.Args)
			if err != nil {
				return nil, err
			}
			if err := req.Store.Subscribe(ctx, edge); err != nil {
				return nil, err
			}
			req.Loaders.clearEdge(edge)
			return deferred(req.Loaders.User.Load(ctx, edge.SubscriberID)), nil
		}),
		"unsubscribeFrom": syncField(func(ctx context.Context, req *Request, p params) (any, error) {
			return swallow(ctx, req, "unsubscribeFrom", func() error {
				edge, err := edgeArgs(p.Args)
				if err != nil {
					return err
				}
				if _, err := req.Store.Unsubscribe(ctx, edge); err != nil {
					return err
				}
				req.Loaders.clearEdge(edge)
				return nil
			}), nil
		}),
	}
}

func edgeArgs(args map[string]any) (store.SubscriptionEdge, error) {
	subscriber, err := uuidArg(args, "userId")
	if err != nil {
		return store.SubscriptionEdge{}, err
	}
	author, err := uuidArg(args, "authorId")
	if err != nil {
		return store.SubscriptionEdge{}, err
	}
	return store.SubscriptionEdge{SubscriberID: subscriber, AuthorID: author}, nil
}

// swallow reports whether fn succeeded. Failures are logged, not returned.
func swallow(ctx context.Context, req *Request, op string, fn func() error) bool {
	if err := fn(); err != nil {
		req.Logger.DebugContext(ctx, "mutation failed", "op", op, "error", err)
		return false
	}
	return true
}

func (l *Loaders) clearEdge(edge store.SubscriptionEdge) {
	l.User.Clear(edge.SubscriberID)
	l.User.Clear(edge.AuthorID)
	l.SubscribedTo.Clear(edge.SubscriberID)
	l.Followers.Clear(edge.AuthorID)
}
