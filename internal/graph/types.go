package graph

import (
	"context"

	"github.com/hanpama/usergraph/internal/store"
)

func userResolvers() objectResolvers {
	return objectResolvers{
		"id":      project(func(u *store.User) any { return u.ID }),
		"name":    project(func(u *store.User) any { return u.Name }),
		"balance": project(func(u *store.User) any { return u.Balance }),
		"profile": relation(func(ctx context.Context, req *Request, u *store.User, p params) (any, error) {
			return deferred(req.Loaders.ProfileByUser.Load(ctx, u.ID)), nil
		}),
		"posts": relation(func(ctx context.Context, req *Request, u *store.User, p params) (any, error) {
			return deferred(req.Loaders.PostsByAuthor.Load(ctx, u.ID)), nil
		}),
		// Edge lists resolve only when the parent carries them.
		"userSubscribedTo": relation(func(ctx context.Context, req *Request, u *store.User, p params) (any, error) {
			if u.SubscribedTo == nil {
				return nil, nil
			}
			return deferred(req.Loaders.User.LoadMany(ctx, u.SubscribedTo)), nil
		}),
		"subscribedToUser": relation(func(ctx context.Context, req *Request, u *store.User, p params) (any, error) {
			if u.Followers == nil {
				return nil, nil
			}
			return deferred(req.Loaders.User.LoadMany(ctx, u.Followers)), nil
		}),
	}
}

func postResolvers() objectResolvers {
	return objectResolvers{
		"id":       project(func(p *store.Post) any { return p.ID }),
		"title":    project(func(p *store.Post) any { return p.Title }),
		"content":  project(func(p *store.Post) any { return p.Content }),
		"authorId": project(func(p *store.Post) any { return p.AuthorID }),
		"author": relation(func(ctx context.Context, req *Request, post *store.Post, p params) (any, error) {
			return deferred(req.Loaders.User.Load(ctx, post.AuthorID)), nil
		}),
	}
}

func profileResolvers() objectResolvers {
	return objectResolvers{
		"id":           project(func(p *store.Profile) any { return p.ID }),
		"isMale":       project(func(p *store.Profile) any { return p.IsMale }),
		"yearOfBirth":  project(func(p *store.Profile) any { return p.YearOfBirth }),
		"memberTypeId": project(func(p *store.Profile) any { return p.MemberTypeID }),
		"userId":       project(func(p *store.Profile) any { return p.UserID }),
		"user": relation(func(ctx context.Context, req *Request, profile *store.Profile, p params) (any, error) {
			return deferred(req.Loaders.User.Load(ctx, profile.UserID)), nil
		}),
		"memberType": relation(func(ctx context.Context, req *Request, profile *store.Profile, p params) (any, error) {
			return deferred(req.Loaders.MemberType.Load(ctx, profile.MemberTypeID)), nil
		}),
	}
}

func memberTypeResolvers() objectResolvers {
	return objectResolvers{
		"id":                 project(func(mt *store.MemberType) any { return mt.ID }),
		"discount":           project(func(mt *store.MemberType) any { return mt.Discount }),
		"postsLimitPerMonth": project(func(mt *store.MemberType) any { return mt.PostsLimitPerMonth }),
		"profiles": relation(func(ctx context.Context, req *Request, mt *store.MemberType, p params) (any, error) {
			return orEmpty(req.Store.FindProfilesByMemberType(ctx, mt.ID))
		}),
	}
}
