// Package store defines the storage collaborator used by the resolver graph.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a lookup, update or delete targets a row
	// that does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("store: conflict")
	// ErrInvalidReference is returned when a write refers to a missing row.
	ErrInvalidReference = errors.New("store: invalid reference")
)

// Store is the persistence contract. Find* methods take key sets and return the
// matching rows in no particular order; missing keys are simply absent.
type Store interface {
	ListMemberTypes(ctx context.Context) ([]*MemberType, error)
	GetMemberType(ctx context.Context, id string) (*MemberType, error)
	FindMemberTypes(ctx context.Context, ids []string) ([]*MemberType, error)

	ListUsers(ctx context.Context, include UserInclude) ([]*User, error)
	FindUsers(ctx context.Context, ids []string) ([]*User, error)
	CreateUser(ctx context.Context, in UserInput) (*User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error)
	// DeleteUser removes the user with its profile, posts and subscription
	// edges in both directions.
	DeleteUser(ctx context.Context, id string) error

	ListPosts(ctx context.Context) ([]*Post, error)
	GetPost(ctx context.Context, id string) (*Post, error)
	FindPostsByAuthors(ctx context.Context, authorIDs []string) ([]*Post, error)
	CreatePost(ctx context.Context, in PostInput) (*Post, error)
	UpdatePost(ctx context.Context, id string, patch PostPatch) (*Post, error)
	DeletePost(ctx context.Context, id string) error

	ListProfiles(ctx context.Context) ([]*Profile, error)
	GetProfile(ctx context.Context, id string) (*Profile, error)
	FindProfilesByUsers(ctx context.Context, userIDs []string) ([]*Profile, error)
	FindProfilesByMemberType(ctx context.Context, memberTypeID string) ([]*Profile, error)
	CreateProfile(ctx context.Context, in ProfileInput) (*Profile, error)
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (*Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	FindSubscriptionsBySubscribers(ctx context.Context, subscriberIDs []string) ([]SubscriptionEdge, error)
	FindSubscriptionsByAuthors(ctx context.Context, authorIDs []string) ([]SubscriptionEdge, error)
	Subscribe(ctx context.Context, edge SubscriptionEdge) error
	// Unsubscribe deletes every edge matching the pair and reports how many
	// were removed.
	Unsubscribe(ctx context.Context, edge SubscriptionEdge) (int, error)

	Close() error
}
