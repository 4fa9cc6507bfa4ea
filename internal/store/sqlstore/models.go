package sqlstore

import "github.com/hanpama/usergraph/internal/store"

type memberTypeRow struct {
	ID                 string `gorm:"primaryKey;size:16"`
	Discount           float64
	PostsLimitPerMonth int
}

func (memberTypeRow) TableName() string { return "member_types" }

func (r memberTypeRow) toStore() *store.MemberType {
	return &store.MemberType{ID: r.ID, Discount: r.Discount, PostsLimitPerMonth: r.PostsLimitPerMonth}
}

type userRow struct {
	ID      string `gorm:"primaryKey;size:36"`
	Name    string `gorm:"not null"`
	Balance float64
}

func (userRow) TableName() string { return "users" }

func (r userRow) toStore() *store.User {
	return &store.User{ID: r.ID, Name: r.Name, Balance: r.Balance}
}

type postRow struct {
	ID       string `gorm:"primaryKey;size:36"`
	Title    string `gorm:"not null"`
	Content  string `gorm:"not null"`
	AuthorID string `gorm:"size:36;not null;index"`
}

func (postRow) TableName() string { return "posts" }

func (r postRow) toStore() *store.Post {
	return &store.Post{ID: r.ID, Title: r.Title, Content: r.Content, AuthorID: r.AuthorID}
}

type profileRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	IsMale       bool
	YearOfBirth  int
	MemberTypeID string `gorm:"size:16;not null;index"`
	UserID       string `gorm:"size:36;not null;uniqueIndex"`
}

func (profileRow) TableName() string { return "profiles" }

func (r profileRow) toStore() *store.Profile {
	return &store.Profile{
		ID:           r.ID,
		IsMale:       r.IsMale,
		YearOfBirth:  r.YearOfBirth,
		MemberTypeID: r.MemberTypeID,
		UserID:       r.UserID,
	}
}

type subscriptionRow struct {
	SubscriberID string `gorm:"primaryKey;size:36"`
	AuthorID     string `gorm:"primaryKey;size:36;index"`
}

func (subscriptionRow) TableName() string { return "subscriptions_on_users" }

func (r subscriptionRow) toStore() store.SubscriptionEdge {
	return store.SubscriptionEdge{SubscriberID: r.SubscriberID, AuthorID: r.AuthorID}
}

func allModels() []any {
	return []any{&memberTypeRow{}, &userRow{}, &postRow{}, &profileRow{}, &subscriptionRow{}}
}

func convert[R any, T any](rows []R, fn func(R) T) []T {
	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = fn(r)
	}
	return out
}
