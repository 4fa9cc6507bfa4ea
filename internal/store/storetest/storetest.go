// Package storetest holds behaviour tests shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/usergraph/internal/store"
)

// Factory returns an empty store seeded with store.DefaultMemberTypes.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("MemberTypes", func(t *testing.T) { testMemberTypes(t, newStore(t)) })
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, newStore(t)) })
	t.Run("PostsByAuthor", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("ProfileUniqueness", func(t *testing.T) { testProfiles(t, newStore(t)) })
	t.Run("Subscriptions", func(t *testing.T) { testSubscriptions(t, newStore(t)) })
	t.Run("DeleteUserCascades", func(t *testing.T) { testDeleteCascade(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

func mustUser(t *testing.T, s store.Store, name string) *store.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), store.UserInput{Name: name, Balance: 10})
	require.NoError(t, err)
	return u
}

func testMemberTypes(t *testing.T, s store.Store) {
	ctx := context.Background()

	all, err := s.ListMemberTypes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	mt, err := s.GetMemberType(ctx, store.MemberTypeBusiness)
	require.NoError(t, err)
	require.Equal(t, &store.MemberType{ID: "BUSINESS", Discount: 7.7, PostsLimitPerMonth: 100}, mt)

	_, err = s.GetMemberType(ctx, "GOLD")
	require.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindMemberTypes(ctx, []string{"BASIC", "GOLD"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "BASIC", found[0].ID)
}

func testUserLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, store.UserInput{Name: "Ann", Balance: 100})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	found, err := s.FindUsers(ctx, []string{u.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Ann", found[0].Name)
	require.Equal(t, 100.0, found[0].Balance)
	require.Nil(t, found[0].SubscribedTo)

	changed, err := s.UpdateUser(ctx, u.ID, store.UserPatch{Balance: ptr(50.0)})
	require.NoError(t, err)
	require.Equal(t, "Ann", changed.Name)
	require.Equal(t, 50.0, changed.Balance)

	_, err = s.UpdateUser(ctx, "00000000-0000-0000-0000-000000000000", store.UserPatch{Name: ptr("x")})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	found, err = s.FindUsers(ctx, []string{u.ID})
	require.NoError(t, err)
	require.Empty(t, found)
	require.ErrorIs(t, s.DeleteUser(ctx, u.ID), store.ErrNotFound)
}

func testPosts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")

	for _, author := range []string{a.ID, a.ID, b.ID} {
		_, err := s.CreatePost(ctx, store.PostInput{Title: "t", Content: "c", AuthorID: author})
		require.NoError(t, err)
	}
	_, err := s.CreatePost(ctx, store.PostInput{Title: "t", Content: "c", AuthorID: "nobody"})
	require.ErrorIs(t, err, store.ErrInvalidReference)

	posts, err := s.FindPostsByAuthors(ctx, []string{a.ID})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	all, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	p, err := s.UpdatePost(ctx, posts[0].ID, store.PostPatch{Title: ptr("new"), AuthorID: ptr(b.ID)})
	require.NoError(t, err)
	require.Equal(t, "new", p.Title)
	require.Equal(t, "c", p.Content)
	require.Equal(t, b.ID, p.AuthorID)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p, got)

	require.NoError(t, s.DeletePost(ctx, p.ID))
	_, err = s.GetPost(ctx, p.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.DeletePost(ctx, p.ID), store.ErrNotFound)
}

func testProfiles(t *testing.T, s store.Store) {
	ctx := context.Background()
	u := mustUser(t, s, "a")

	in := store.ProfileInput{IsMale: true, YearOfBirth: 1990, MemberTypeID: store.MemberTypeBasic, UserID: u.ID}
	p, err := s.CreateProfile(ctx, in)
	require.NoError(t, err)

	_, err = s.CreateProfile(ctx, in)
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateProfile(ctx, store.ProfileInput{MemberTypeID: "GOLD", UserID: mustUser(t, s, "b").ID})
	require.ErrorIs(t, err, store.ErrInvalidReference)

	byUser, err := s.FindProfilesByUsers(ctx, []string{u.ID})
	require.NoError(t, err)
	require.Equal(t, []*store.Profile{p}, byUser)

	byType, err := s.FindProfilesByMemberType(ctx, store.MemberTypeBasic)
	require.NoError(t, err)
	require.Len(t, byType, 1)

	changed, err := s.UpdateProfile(ctx, p.ID, store.ProfilePatch{MemberTypeID: ptr(store.MemberTypeBusiness), YearOfBirth: ptr(1991)})
	require.NoError(t, err)
	require.Equal(t, "BUSINESS", changed.MemberTypeID)
	require.Equal(t, 1991, changed.YearOfBirth)
	require.True(t, changed.IsMale)

	require.NoError(t, s.DeleteProfile(ctx, p.ID))
	require.ErrorIs(t, s.DeleteProfile(ctx, p.ID), store.ErrNotFound)
	all, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func testSubscriptions(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")
	c := mustUser(t, s, "c")

	require.NoError(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: b.ID}))
	require.NoError(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: c.ID}))
	require.NoError(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: c.ID, AuthorID: b.ID}))
	require.ErrorIs(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: b.ID}), store.ErrConflict)
	require.ErrorIs(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: "nobody"}), store.ErrInvalidReference)

	bySub, err := s.FindSubscriptionsBySubscribers(ctx, []string{a.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{b.ID, c.ID}, store.AuthorIDs(bySub))

	byAuthor, err := s.FindSubscriptionsByAuthors(ctx, []string{b.ID})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.ID, c.ID}, store.SubscriberIDs(byAuthor))

	plain, err := s.ListUsers(ctx, store.UserInclude{})
	require.NoError(t, err)
	for _, u := range plain {
		require.Nil(t, u.SubscribedTo)
		require.Nil(t, u.Followers)
	}

	full, err := s.ListUsers(ctx, store.UserInclude{SubscribedTo: true, Followers: true})
	require.NoError(t, err)
	require.Len(t, full, 3)
	for _, u := range full {
		require.NotNil(t, u.SubscribedTo)
		require.NotNil(t, u.Followers)
		switch u.ID {
		case a.ID:
			require.ElementsMatch(t, []string{b.ID, c.ID}, u.SubscribedTo)
			require.Empty(t, u.Followers)
		case b.ID:
			require.Empty(t, u.SubscribedTo)
			require.ElementsMatch(t, []string{a.ID, c.ID}, u.Followers)
		}
	}

	n, err := s.Unsubscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: b.ID})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = s.Unsubscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: b.ID})
	require.NoError(t, err)
	require.Zero(t, n)
}

func testDeleteCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := mustUser(t, s, "a")
	b := mustUser(t, s, "b")

	_, err := s.CreatePost(ctx, store.PostInput{Title: "t", Content: "c", AuthorID: a.ID})
	require.NoError(t, err)
	_, err = s.CreateProfile(ctx, store.ProfileInput{MemberTypeID: store.MemberTypeBasic, UserID: a.ID})
	require.NoError(t, err)
	require.NoError(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: a.ID, AuthorID: b.ID}))
	require.NoError(t, s.Subscribe(ctx, store.SubscriptionEdge{SubscriberID: b.ID, AuthorID: a.ID}))

	require.NoError(t, s.DeleteUser(ctx, a.ID))

	posts, err := s.FindPostsByAuthors(ctx, []string{a.ID})
	require.NoError(t, err)
	require.Empty(t, posts)
	profiles, err := s.FindProfilesByUsers(ctx, []string{a.ID})
	require.NoError(t, err)
	require.Empty(t, profiles)
	edges, err := s.FindSubscriptionsBySubscribers(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Empty(t, edges)
}
