package store

// Member type identifiers.
const (
	MemberTypeBasic    = "BASIC"
	MemberTypeBusiness = "BUSINESS"
)

// DefaultMemberTypes are the rows seeded into an empty store.
func DefaultMemberTypes() []MemberType {
	return []MemberType{
		{ID: MemberTypeBasic, Discount: 2.3, PostsLimitPerMonth: 20},
		{ID: MemberTypeBusiness, Discount: 7.7, PostsLimitPerMonth: 100},
	}
}

type MemberType struct {
	ID                 string
	Discount           float64
	PostsLimitPerMonth int
}

type User struct {
	ID      string
	Name    string
	Balance float64

	// SubscribedTo holds the ids of the authors this user follows and
	// Followers the ids of the users following this user. A nil list means
	// the edges were not loaded.
	SubscribedTo []string
	Followers    []string
}

type Post struct {
	ID       string
	Title    string
	Content  string
	AuthorID string
}

type Profile struct {
	ID           string
	IsMale       bool
	YearOfBirth  int
	MemberTypeID string
	UserID       string
}

// SubscriptionEdge records that SubscriberID follows AuthorID.
type SubscriptionEdge struct {
	SubscriberID string
	AuthorID     string
}

// UserInclude selects the relations ListUsers loads along with each row.
type UserInclude struct {
	SubscribedTo bool
	Followers    bool
}

type UserInput struct {
	Name    string
	Balance float64
}

type UserPatch struct {
	Name    *string
	Balance *float64
}

type PostInput struct {
	Title    string
	Content  string
	AuthorID string
}

type PostPatch struct {
	Title    *string
	Content  *string
	AuthorID *string
}

type ProfileInput struct {
	IsMale       bool
	YearOfBirth  int
	MemberTypeID string
	UserID       string
}

type ProfilePatch struct {
	IsMale       *bool
	YearOfBirth  *int
	MemberTypeID *string
}

// AuthorIDs returns the author side of edges.
func AuthorIDs(edges []SubscriptionEdge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.AuthorID
	}
	return out
}

// SubscriberIDs returns the subscriber side of edges.
func SubscriberIDs(edges []SubscriptionEdge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.SubscriberID
	}
	return out
}
