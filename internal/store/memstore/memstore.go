// Package memstore is an in-memory store.Store.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/hanpama/usergraph/internal/store"
)

type Store struct {
	mu sync.RWMutex

	memberTypes map[string]store.MemberType
	users       map[string]store.User
	posts       map[string]store.Post
	profiles    map[string]store.Profile
	edges       []store.SubscriptionEdge

	// creation order per table
	memberTypeOrder []string
	userOrder       []string
	postOrder       []string
	profileOrder    []string
}

var _ store.Store = (*Store)(nil)

type Option func(*Store)

// WithMemberTypes seeds the given member types.
func WithMemberTypes(mts ...store.MemberType) Option {
	return func(s *Store) {
		for _, mt := range mts {
			if _, ok := s.memberTypes[mt.ID]; !ok {
				s.memberTypeOrder = append(s.memberTypeOrder, mt.ID)
			}
			s.memberTypes[mt.ID] = mt
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		memberTypes: make(map[string]store.MemberType),
		users:       make(map[string]store.User),
		posts:       make(map[string]store.Post),
		profiles:    make(map[string]store.Profile),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListMemberTypes(ctx context.Context) ([]*store.MemberType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.MemberType, 0, len(s.memberTypeOrder))
	for _, id := range s.memberTypeOrder {
		mt := s.memberTypes[id]
		out = append(out, &mt)
	}
	return out, nil
}

func (s *Store) GetMemberType(ctx context.Context, id string) (*store.MemberType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mt, ok := s.memberTypes[id]
	if !ok {
		return nil, fmt.Errorf("member type %s: %w", id, store.ErrNotFound)
	}
	return &mt, nil
}

func (s *Store) FindMemberTypes(ctx context.Context, ids []string) ([]*store.MemberType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.MemberType
	for _, id := range ids {
		if mt, ok := s.memberTypes[id]; ok {
			out = append(out, &mt)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(ctx context.Context, include store.UserInclude) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		u := s.users[id]
		if include.SubscribedTo {
			u.SubscribedTo = store.AuthorIDs(s.edgesWhere(func(e store.SubscriptionEdge) bool { return e.SubscriberID == id }))
		}
		if include.Followers {
			u.Followers = store.SubscriberIDs(s.edgesWhere(func(e store.SubscriptionEdge) bool { return e.AuthorID == id }))
		}
		out = append(out, &u)
	}
	return out, nil
}

func (s *Store) FindUsers(ctx context.Context, ids []string) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, in store.UserInput) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := store.User{ID: uuid.NewString(), Name: in.Name, Balance: in.Balance}
	s.users[u.ID] = u
	s.userOrder = append(s.userOrder, u.ID)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch store.UserPatch) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Balance != nil {
		u.Balance = *patch.Balance
	}
	s.users[id] = u
	return &u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}
	for pid, p := range s.profiles {
		if p.UserID == id {
			delete(s.profiles, pid)
			s.profileOrder = remove(s.profileOrder, pid)
		}
	}
	for pid, p := range s.posts {
		if p.AuthorID == id {
			delete(s.posts, pid)
			s.postOrder = remove(s.postOrder, pid)
		}
	}
	s.edges = s.edgesWhere(func(e store.SubscriptionEdge) bool {
		return e.SubscriberID != id && e.AuthorID != id
	})
	delete(s.users, id)
	s.userOrder = remove(s.userOrder, id)
	return nil
}

func (s *Store) ListPosts(ctx context.Context) ([]*store.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*store.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		p := s.posts[id]
		out = append(out, &p)
	}
	return out, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (*store.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) FindPostsByAuthors(ctx context.Context, authorIDs []string) ([]*store.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Post
	for _, id := range s.postOrder {
		if p := s.posts[id]; slices.Contains(authorIDs, p.AuthorID) {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (s *Store) CreatePost(ctx context.Context, in store.PostInput) (*store.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.AuthorID]; !ok {
		return nil, fmt.Errorf("post author %s: %w", in.AuthorID, store.ErrInvalidReference)
	}
	p := store.Post{ID: uuid.NewString(), Title: in.Title, Content: in.Content, AuthorID: in.AuthorID}
	s.posts[p.ID] = p
	s.postOrder = append(s.postOrder, p.ID)
	return &p, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, patch store.PostPatch) (*store.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, store.ErrNotFound)
	}
	if patch.AuthorID != nil {
		if _, ok := s.users[*patch.AuthorID]; !ok {
			return nil, fmt.Errorf("post author %s: %w", *patch.AuthorID, store.ErrInvalidReference)
		}
		p.AuthorID = *patch.AuthorID
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	s.posts[id] = p
	return &p, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, store.ErrNotFound)
	}
	delete(s.posts, id)
	s.postOrder = remove(s.postOrder, id)
	return nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]*store.Profile, error) {
	return s.profilesWhere(func(store.Profile) bool { return true }), nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (*store.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) FindProfilesByUsers(ctx context.Context, userIDs []string) ([]*store.Profile, error) {
	return s.profilesWhere(func(p store.Profile) bool { return slices.Contains(userIDs, p.UserID) }), nil
}

func (s *Store) FindProfilesByMemberType(ctx context.Context, memberTypeID string) ([]*store.Profile, error) {
	return s.profilesWhere(func(p store.Profile) bool { return p.MemberTypeID == memberTypeID }), nil
}

func (s *Store) CreateProfile(ctx context.Context, in store.ProfileInput) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.UserID]; !ok {
		return nil, fmt.Errorf("profile user %s: %w", in.UserID, store.ErrInvalidReference)
	}
	if _, ok := s.memberTypes[in.MemberTypeID]; !ok {
		return nil, fmt.Errorf("profile member type %s: %w", in.MemberTypeID, store.ErrInvalidReference)
	}
	for _, p := range s.profiles {
		if p.UserID == in.UserID {
			return nil, fmt.Errorf("profile for user %s: %w", in.UserID, store.ErrConflict)
		}
	}
	p := store.Profile{
		ID:           uuid.NewString(),
		IsMale:       in.IsMale,
		YearOfBirth:  in.YearOfBirth,
		MemberTypeID: in.MemberTypeID,
		UserID:       in.UserID,
	}
	s.profiles[p.ID] = p
	s.profileOrder = append(s.profileOrder, p.ID)
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, patch store.ProfilePatch) (*store.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	if patch.MemberTypeID != nil {
		if _, ok := s.memberTypes[*patch.MemberTypeID]; !ok {
			return nil, fmt.Errorf("profile member type %s: %w", *patch.MemberTypeID, store.ErrInvalidReference)
		}
		p.MemberTypeID = *patch.MemberTypeID
	}
	if patch.IsMale != nil {
		p.IsMale = *patch.IsMale
	}
	if patch.YearOfBirth != nil {
		p.YearOfBirth = *patch.YearOfBirth
	}
	s.profiles[id] = p
	return &p, nil
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return fmt.Errorf("profile %s: %w", id, store.ErrNotFound)
	}
	delete(s.profiles, id)
	s.profileOrder = remove(s.profileOrder, id)
	return nil
}

func (s *Store) FindSubscriptionsBySubscribers(ctx context.Context, subscriberIDs []string) ([]store.SubscriptionEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesWhere(func(e store.SubscriptionEdge) bool { return slices.Contains(subscriberIDs, e.SubscriberID) }), nil
}

func (s *Store) FindSubscriptionsByAuthors(ctx context.Context, authorIDs []string) ([]store.SubscriptionEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edgesWhere(func(e store.SubscriptionEdge) bool { return slices.Contains(authorIDs, e.AuthorID) }), nil
}

func (s *Store) Subscribe(ctx context.Context, edge store.SubscriptionEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []string{edge.SubscriberID, edge.AuthorID} {
		if _, ok := s.users[id]; !ok {
			return fmt.Errorf("subscription user %s: %w", id, store.ErrInvalidReference)
		}
	}
	if slices.Contains(s.edges, edge) {
		return fmt.Errorf("subscription %s -> %s: %w", edge.SubscriberID, edge.AuthorID, store.ErrConflict)
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *Store) Unsubscribe(ctx context.Context, edge store.SubscriptionEdge) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.edges)
	s.edges = s.edgesWhere(func(e store.SubscriptionEdge) bool { return e != edge })
	return before - len(s.edges), nil
}

// edgesWhere returns a fresh slice; callers hold the lock.
func (s *Store) edgesWhere(keep func(store.SubscriptionEdge) bool) []store.SubscriptionEdge {
	out := []store.SubscriptionEdge{}
	for _, e := range s.edges {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) profilesWhere(keep func(store.Profile) bool) []*store.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*store.Profile
	for _, id := range s.profileOrder {
		if p := s.profiles[id]; keep(p) {
			out = append(out, &p)
		}
	}
	return out
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
