package graph

import (
	"context"

	"github.com/hanpama/usergraph/internal/dataloader"
	"github.com/hanpama/usergraph/internal/store"
)

// Loaders is the per-request loader registry. It must not outlive the request
// it was built for.
type Loaders struct {
	MemberType    *dataloader.Loader[string, *store.MemberType]
	User          *dataloader.Loader[string, *store.User]
	PostsByAuthor *dataloader.Loader[string, []*store.Post]
	ProfileByUser *dataloader.Loader[string, *store.Profile]
	SubscribedTo  *dataloader.Loader[string, []store.SubscriptionEdge]
	Followers     *dataloader.Loader[string, []store.SubscriptionEdge]

	all []batcher
}

type batcher interface {
	Name() string
	Pending() int
	Dispatch(ctx context.Context)
	ClearAll()
}

type LoaderOptions struct {
	MaxBatchSize int
	OnBatch      func(ctx context.Context, info dataloader.BatchInfo)
}

func NewLoaders(s store.Store, opts LoaderOptions) *Loaders {
	l := &Loaders{}
	l.MemberType = dataloader.New(dataloader.Config[string, *store.MemberType]{
		Name:         "memberType",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch: func(ctx context.Context, ids []string) (map[string]*store.MemberType, error) {
			rows, err := s.FindMemberTypes(ctx, ids)
			if err != nil {
				return nil, err
			}
			return indexBy(rows, func(mt *store.MemberType) string { return mt.ID }), nil
		},
	})
	l.PostsByAuthor = dataloader.New(dataloader.Config[string, []*store.Post]{
		Name:         "postsByAuthor",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch: func(ctx context.Context, ids []string) (map[string][]*store.Post, error) {
			rows, err := s.FindPostsByAuthors(ctx, ids)
			if err != nil {
				return nil, err
			}
			return groupBy(ids, rows, func(p *store.Post) string { return p.AuthorID }), nil
		},
	})
	l.ProfileByUser = dataloader.New(dataloader.Config[string, *store.Profile]{
		Name:         "profileByUser",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch: func(ctx context.Context, ids []string) (map[string]*store.Profile, error) {
			rows, err := s.FindProfilesByUsers(ctx, ids)
			if err != nil {
				return nil, err
			}
			return indexBy(rows, func(p *store.Profile) string { return p.UserID }), nil
		},
	})
	l.SubscribedTo = dataloader.New(dataloader.Config[string, []store.SubscriptionEdge]{
		Name:         "subscribedTo",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch: func(ctx context.Context, ids []string) (map[string][]store.SubscriptionEdge, error) {
			rows, err := s.FindSubscriptionsBySubscribers(ctx, ids)
			if err != nil {
				return nil, err
			}
			return groupBy(ids, rows, func(e store.SubscriptionEdge) string { return e.SubscriberID }), nil
		},
	})
	l.Followers = dataloader.New(dataloader.Config[string, []store.SubscriptionEdge]{
		Name:         "followers",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch: func(ctx context.Context, ids []string) (map[string][]store.SubscriptionEdge, error) {
			rows, err := s.FindSubscriptionsByAuthors(ctx, ids)
			if err != nil {
				return nil, err
			}
			return groupBy(ids, rows, func(e store.SubscriptionEdge) string { return e.AuthorID }), nil
		},
	})
	l.User = dataloader.New(dataloader.Config[string, *store.User]{
		Name:         "user",
		MaxBatchSize: opts.MaxBatchSize,
		OnBatch:      opts.OnBatch,
		Fetch:        l.fetchUsers(s),
	})
	// User first: its fetch flushes the edge loaders itself.
	l.all = []batcher{l.User, l.MemberType, l.PostsByAuthor, l.ProfileByUser, l.SubscribedTo, l.Followers}
	return l
}

// fetchUsers loads user rows and attaches both edge lists, batching the edge
// lookups through the SubscribedTo and Followers loaders.
func (l *Loaders) fetchUsers(s store.Store) dataloader.BatchFunc[string, *store.User] {
	return func(ctx context.Context, ids []string) (map[string]*store.User, error) {
		users, err := s.FindUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return nil, nil
		}
		found := make([]string, len(users))
		for i, u := range users {
			found[i] = u.ID
		}
		subscribedTo := l.SubscribedTo.LoadMany(ctx, found)
		followers := l.Followers.LoadMany(ctx, found)
		outgoing, err := subscribedTo()
		if err != nil {
			return nil, err
		}
		incoming, err := followers()
		if err != nil {
			return nil, err
		}
		out := make(map[string]*store.User, len(users))
		for i, u := range users {
			u.SubscribedTo = store.AuthorIDs(outgoing[i])
			u.Followers = store.SubscriberIDs(incoming[i])
			out[u.ID] = u
		}
		return out, nil
	}
}

// DispatchAll flushes every loader until none has pending keys.
func (l *Loaders) DispatchAll(ctx context.Context) {
	for {
		progressed := false
		for _, b := range l.all {
			if b.Pending() > 0 {
				b.Dispatch(ctx)
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// ClearAll drops every cached value.
func (l *Loaders) ClearAll() {
	for _, b := range l.all {
		b.ClearAll()
	}
}

// PrimeUser seeds the user loader with u and, when u carries loaded edge
// lists, the edge loaders as well.
func (l *Loaders) PrimeUser(u *store.User) {
	l.User.Prime(u.ID, u)
	if u.SubscribedTo != nil {
		edges := make([]store.SubscriptionEdge, len(u.SubscribedTo))
		for i, author := range u.SubscribedTo {
			edges[i] = store.SubscriptionEdge{SubscriberID: u.ID, AuthorID: author}
		}
		l.SubscribedTo.Prime(u.ID, edges)
	}
	if u.Followers != nil {
		edges := make([]store.SubscriptionEdge, len(u.Followers))
		for i, follower := range u.Followers {
			edges[i] = store.SubscriptionEdge{SubscriberID: follower, AuthorID: u.ID}
		}
		l.Followers.Prime(u.ID, edges)
	}
}

func indexBy[V any](rows []V, key func(V) string) map[string]V {
	out := make(map[string]V, len(rows))
	for _, r := range rows {
		out[key(r)] = r
	}
	return out
}

// groupBy buckets rows by key. Every id gets a non-nil list.
func groupBy[V any](ids []string, rows []V, key func(V) string) map[string][]V {
	out := make(map[string][]V, len(ids))
	for _, id := range ids {
		out[id] = []V{}
	}
	for _, r := range rows {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}
