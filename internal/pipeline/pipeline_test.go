package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/usergraph/internal/eventbus"
	"github.com/hanpama/usergraph/internal/events"
	"github.com/hanpama/usergraph/internal/store"
	"github.com/hanpama/usergraph/internal/store/memstore"
)

// spyStore fails the test if execution reaches storage.
type spyStore struct {
	store.Store
	calls int
}

func (s *spyStore) FindUsers(ctx context.Context, ids []string) ([]*store.User, error) {
	s.calls++
	return s.Store.FindUsers(ctx, ids)
}

func (s *spyStore) FindPostsByAuthors(ctx context.Context, ids []string) ([]*store.Post, error) {
	s.calls++
	return s.Store.FindPostsByAuthors(ctx, ids)
}

func newPipeline(t *testing.T, s store.Store, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(s, opts...)
	require.NoError(t, err)
	return p
}

func newStore(t *testing.T) (*memstore.Store, *store.User) {
	t.Helper()
	s := memstore.New(memstore.WithMemberTypes(store.DefaultMemberTypes()...))
	u, err := s.CreateUser(context.Background(), store.UserInput{Name: "Ann", Balance: 100})
	require.NoError(t, err)
	_, err = s.CreatePost(context.Background(), store.PostInput{Title: "t", Content: "c", AuthorID: u.ID})
	require.NoError(t, err)
	return s, u
}

const deepQuery = `query Deep($id: UUID!) {
	user(id: $id) { posts { author { posts { author { posts { id } } } } } }
}`

func TestDepthLimitRejectsBeforeExecution(t *testing.T) {
	mem, u := newStore(t)
	spy := &spyStore{Store: mem}
	p := newPipeline(t, spy)

	res := p.Execute(context.Background(), Params{Query: deepQuery, Variables: map[string]any{"id": u.ID}})
	require.Equal(t, KindValidation, res.Kind())
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "'Deep' exceeds maximum operation depth of 5", res.Errors[0].Message)
	require.Equal(t, CodeValidationFailed, res.Errors[0].Extensions["code"])
	require.NotEmpty(t, res.Errors[0].Locations)
	require.Zero(t, spy.calls)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	require.NotContains(t, string(body), `"data"`)
}

func TestDepthLimitBoundary(t *testing.T) {
	mem, u := newStore(t)
	vars := map[string]any{"id": u.ID}

	tests := []struct {
		name     string
		maxDepth int
		query    string
		wantKind Kind
	}{
		{
			name:     "depth five passes",
			query:    `query($id: UUID!) { user(id: $id) { posts { author { posts { author { id } } } } } }`,
			wantKind: KindOK,
		},
		{
			name:     "fragments are followed",
			query:    `query($id: UUID!) { user(id: $id) { ...P } } fragment P on User { posts { author { posts { author { posts { id } } } } } }`,
			wantKind: KindValidation,
		},
		{
			name:     "inline fragments add no depth",
			query:    `query($id: UUID!) { user(id: $id) { ... on User { posts { ... on Post { id } } } } }`,
			maxDepth: 2,
			wantKind: KindOK,
		},
		{
			name:     "introspection fields are ignored",
			query:    `query($id: UUID!) { user(id: $id) { __typename posts { __typename } } }`,
			maxDepth: 1,
			wantKind: KindOK,
		},
		{
			name:     "raised limit",
			query:    deepQuery,
			maxDepth: 6,
			wantKind: KindOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t, mem, WithMaxDepth(tt.maxDepth))
			res := p.Execute(context.Background(), Params{Query: tt.query, Variables: vars})
			require.Equal(t, tt.wantKind, res.Kind(), "errors: %v", res.Errors)
		})
	}
}

func TestSyntaxError(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem)

	res := p.Execute(context.Background(), Params{Query: `{ users { id `})
	require.Equal(t, KindSyntax, res.Kind())
	require.Len(t, res.Errors, 1)
	require.Equal(t, CodeParseFailed, res.Errors[0].Extensions["code"])
	require.Nil(t, res.Data)
}

func TestSchemaValidationError(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem)

	res := p.Execute(context.Background(), Params{Query: `{ users { nope } }`})
	require.Equal(t, KindValidation, res.Kind())
	require.NotEmpty(t, res.Errors)
	require.Contains(t, res.Errors[0].Message, "nope")
}

func TestVariableErrors(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem)

	res := p.Execute(context.Background(), Params{Query: `query($id: UUID!) { user(id: $id) { id } }`})
	require.Equal(t, KindValidation, res.Kind())
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0].Message, "must be defined")
}

func TestOperationSelection(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem)
	doc := `query A { users { name } } query B { memberTypes { id } }`

	res := p.Execute(context.Background(), Params{Query: doc})
	require.Equal(t, KindValidation, res.Kind())

	res = p.Execute(context.Background(), Params{Query: doc, OperationName: "C"})
	require.Equal(t, KindValidation, res.Kind())
	require.Equal(t, "unknown operation C", res.Errors[0].Message)

	res = p.Execute(context.Background(), Params{Query: doc, OperationName: "B"})
	require.Equal(t, KindOK, res.Kind())
	require.Equal(t, "query", res.OperationType())
	body, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{"data": {"memberTypes": [{"id": "BASIC"}, {"id": "BUSINESS"}]}}`, string(body))
}

func TestExecutionErrorsKeepData(t *testing.T) {
	mem, u := newStore(t)
	p := newPipeline(t, mem)

	res := p.Execute(context.Background(), Params{Query: fmt.Sprintf(`{
		ok: user(id: %q) { name }
		bad: user(id: "not-a-uuid") { name }
	}`, u.ID)})
	require.Equal(t, KindExecution, res.Kind())
	require.Len(t, res.Errors, 1)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(body), `{"data":`))
	require.Contains(t, string(body), `"ok":{"name":"Ann"}`)
	require.Contains(t, string(body), `"bad":null`)
	require.Contains(t, string(body), `"BAD_USER_INPUT"`)
}

func TestMutationThroughPipeline(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem)

	res := p.Execute(context.Background(), Params{
		Query:     `mutation Add($dto: CreateUserInput!) { createUser(dto: $dto) { name balance } }`,
		Variables: map[string]any{"dto": map[string]any{"name": "Bob", "balance": 12.5}},
	})
	require.Equal(t, KindOK, res.Kind(), "errors: %v", res.Errors)
	require.Equal(t, "mutation", res.OperationType())
	require.Equal(t, map[string]any{"createUser": map[string]any{"name": "Bob", "balance": 12.5}}, res.Data)
}

func TestEventsArePublished(t *testing.T) {
	mem, _ := newStore(t)
	p := newPipeline(t, mem, WithMaxBatchSize(10))

	b := eventbus.New()
	eventbus.Use(b)
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		started  []events.GraphQLStart
		finished []events.GraphQLFinish
		batches  []events.LoaderBatch
	)
	eventbus.On(b, func(ctx context.Context, e events.GraphQLStart) { started = append(started, e) })
	eventbus.On(b, func(ctx context.Context, e events.GraphQLFinish) { finished = append(finished, e) })
	eventbus.On(b, func(ctx context.Context, e events.LoaderBatch) { batches = append(batches, e) })

	res := p.Execute(context.Background(), Params{Query: `query L { users { posts { id } } }`})
	require.Equal(t, KindOK, res.Kind())
	require.Equal(t, 2, res.Depths())

	require.Equal(t, []events.GraphQLStart{{OperationName: "L", OperationType: "query"}}, started)
	require.Len(t, finished, 1)
	require.Equal(t, "ok", finished[0].Outcome)
	require.Len(t, batches, 1)
	require.Equal(t, "postsByAuthor", batches[0].Loader)
	require.Equal(t, 1, batches[0].Keys)

	p.Execute(context.Background(), Params{Query: `{`})
	require.Len(t, started, 1)
	require.Len(t, finished, 2)
	require.Equal(t, "syntax", finished[1].Outcome)
}
