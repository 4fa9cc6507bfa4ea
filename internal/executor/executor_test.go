package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	language "github.com/hanpama/usergraph/internal/language"
	schema "github.com/hanpama/usergraph/internal/schema"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

const testSDL = `
enum Role { ADMIN MEMBER }

input NewItem { name: String!, role: Role = MEMBER, tags: [String!] }

type Item {
  id: ID!
  name: String
  owner: Person
  parts: [Item!]
}

type Person {
  name: String!
  items: [Item!]!
}

type Query {
  item(id: ID!): Item
  items: [Item]
  echo(n: Int = 7): Int
  strict: Item!
}

type Mutation {
  add(input: NewItem!): Item
  fail: String
}
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	src, err := language.LoadSchema("test.graphql", testSDL)
	require.NoError(t, err)
	return schema.Build(src, func(typeName, fieldName string) bool {
		switch typeName + "." + fieldName {
		case "Query.echo":
			return false
		case "Item.owner", "Item.parts", "Person.items":
			return true
		}
		return typeName == "Query"
	})
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	require.NoError(t, err)
	return d
}

func project(key string) MockResolver {
	return func(ctx context.Context, source any, args map[string]any) (any, error) {
		return source.(map[string]any)[key], nil
	}
}

func itemRuntime() *MockRuntime {
	return NewMockRuntime(map[string]MockResolver{
		"Item.id":     project("id"),
		"Item.name":   project("name"),
		"Person.name": project("name"),
	})
}

var equateEmpty = cmpopts.EquateEmpty()

func TestExecute_OneBatchPerAsyncDepth(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "items", NewMockValueResolver([]any{
		map[string]any{"id": "1"},
		map[string]any{"id": "2"},
	}))
	rt.SetResolver("Item", "owner", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return map[string]any{"name": "P" + source.(map[string]any)["id"].(string)}, nil
	})
	rt.SetResolver("Person", "items", NewMockValueResolver([]any{map[string]any{"id": "x"}}))

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{
		Document: mustParseQuery(t, `{ items { id owner { name items { id } } } }`),
	})

	want := &ExecutionResult{
		Data: map[string]any{
			"items": []any{
				map[string]any{"id": "1", "owner": map[string]any{"name": "P1", "items": []any{map[string]any{"id": "x"}}}},
				map[string]any{"id": "2", "owner": map[string]any{"name": "P2", "items": []any{map[string]any{"id": "x"}}}},
			},
		},
		Depths: 3,
	}
	if diff := cmp.Diff(want, got, equateEmpty); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	perBatch := map[int]int{}
	for _, c := range rt.GetCalls() {
		if c.Kind == CallKindAsync {
			perBatch[c.BatchID]++
		}
	}
	if diff := cmp.Diff(map[int]int{1: 1, 2: 2, 3: 2}, perBatch); diff != "" {
		t.Fatalf("batch sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_SyncAndAsyncRouting(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "echo", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return args["n"], nil
	})
	rt.SetResolver("Query", "item", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return map[string]any{"id": args["id"], "name": "N"}, nil
	})

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{
		Document: mustParseQuery(t, `{ echo item(id: 1) { name } }`),
	})

	want := &ExecutionResult{Data: map[string]any{"echo": 7, "item": map[string]any{"name": "N"}}, Depths: 1}
	if diff := cmp.Diff(want, got, equateEmpty); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: CallKindSync, ObjectType: "Query", Field: "echo", Args: map[string]any{"n": 7}},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "item", Args: map[string]any{"id": "1"}, BatchID: 1},
		{Kind: CallKindSync, ObjectType: "Item", Field: "name", Source: map[string]any{"id": "1", "name": "N"}, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, rt.GetCalls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_MutationRootFieldsRunInOrder(t *testing.T) {
	var order []string
	var inputs []any
	rt := itemRuntime()
	rt.SetResolver("Mutation", "add", func(ctx context.Context, source any, args map[string]any) (any, error) {
		in := args["input"].(map[string]any)
		order = append(order, in["name"].(string))
		inputs = append(inputs, in)
		return map[string]any{"name": in["name"]}, nil
	})
	rt.SetResolver("Mutation", "fail", NewMockErrorResolver(&gqlerror.Error{
		Message:    "nope",
		Extensions: map[string]any{"code": "CONFLICT"},
	}))

	q := `mutation { a: add(input: {name: "x"}) { name } b: fail c: add(input: {name: "y", role: ADMIN}) { name } }`
	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{Document: mustParseQuery(t, q)})

	want := &ExecutionResult{
		Data: map[string]any{
			"a": map[string]any{"name": "x"},
			"b": nil,
			"c": map[string]any{"name": "y"},
		},
		Errors: []GraphQLError{{
			Message:    "nope",
			Locations:  []Location{{Line: 1, Column: strings.Index(q, "b: fail") + 1}},
			Path:       Path{"b"},
			Extensions: map[string]any{"code": "CONFLICT"},
		}},
	}
	if diff := cmp.Diff(want, got, equateEmpty); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, []string{"x", "y"}, order)
	require.Equal(t, []any{
		map[string]any{"name": "x", "role": "MEMBER"},
		map[string]any{"name": "y", "role": "ADMIN"},
	}, inputs)
}

func TestExecute_NonNullRootPropagation(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "strict", NewMockValueResolver(nil))
	rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"name": "N"}))

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{
		Document: mustParseQuery(t, `{ strict { name } item(id: "1") { name } }`),
	})

	want := &ExecutionResult{
		Data:   map[string]any{"strict": nil, "item": map[string]any{"name": "N"}},
		Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field strict", Path: Path{"strict"}}},
		Depths: 1,
	}
	if diff := cmp.Diff(want, got, equateEmpty, cmpopts.IgnoreFields(GraphQLError{}, "Locations")); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_NullListElementNullsList(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"id": "1"}))
	rt.SetResolver("Item", "parts", NewMockValueResolver([]any{map[string]any{"id": "a"}, nil}))

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{
		Document: mustParseQuery(t, `{ item(id: "1") { parts { id } } }`),
	})

	want := &ExecutionResult{
		Data:   map[string]any{"item": map[string]any{"parts": nil}},
		Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field item.parts.[1]", Path: Path{"item", "parts", 1}}},
		Depths: 2,
	}
	if diff := cmp.Diff(want, got, equateEmpty, cmpopts.IgnoreFields(GraphQLError{}, "Locations")); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecute_CancelledContextFailsPendingTasks(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"name": "N"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(ctx, Request{Document: mustParseQuery(t, `{ item(id: "1") { name } }`)})

	require.Equal(t, map[string]any{"item": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	require.Equal(t, context.Canceled.Error(), got.Errors[0].Message)
	require.Empty(t, rt.GetCalls())
}

type taskRecorder struct {
	*MockRuntime
	tasks []AsyncResolveTask
}

func (r *taskRecorder) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	r.tasks = append(r.tasks, tasks...)
	return r.MockRuntime.BatchResolveAsync(ctx, tasks)
}

func TestExecute_TaskCarriesSelectionSetAndPath(t *testing.T) {
	rt := &taskRecorder{MockRuntime: itemRuntime()}
	rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"id": "1"}))

	exec := NewExecutor(rt, newTestSchema(t))
	exec.ExecuteRequest(context.Background(), Request{
		Document: mustParseQuery(t, `{ thing: item(id: "1") { id } thing: item(id: "1") { name } }`),
	})

	require.Len(t, rt.tasks, 1)
	task := rt.tasks[0]
	require.Equal(t, Path{"thing"}, task.Path)
	var names []string
	for _, sel := range task.SelectionSet {
		names = append(names, sel.(*language.Field).Name)
	}
	require.Equal(t, []string{"id", "name"}, names)
}

func TestExecute_InvalidArgumentSkipsResolver(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "echo", NewMockValueResolver(1))

	exec := NewExecutor(rt, newTestSchema(t))
	got := exec.ExecuteRequest(context.Background(), Request{Document: mustParseQuery(t, `{ echo(n: "abc") }`)})

	require.Equal(t, map[string]any{"echo": nil}, got.Data)
	require.Len(t, got.Errors, 1)
	require.Equal(t, `argument 'n' cannot be coerced: cannot coerce "abc" to Int`, got.Errors[0].Message)
	require.Empty(t, rt.GetCalls())
}

func TestExecute_Variables(t *testing.T) {
	sch := newTestSchema(t)
	echo := func(ctx context.Context, source any, args map[string]any) (any, error) { return args["n"], nil }

	tests := []struct {
		name      string
		query     string
		vars      map[string]any
		wantData  any
		wantError string
	}{
		{"absent variable uses argument default", `query($n: Int) { echo(n: $n) }`, nil, map[string]any{"echo": 7}, ""},
		{"json number", `query($n: Int) { echo(n: $n) }`, map[string]any{"n": float64(3)}, map[string]any{"echo": 3}, ""},
		{"variable default", `query($n: Int = 4) { echo(n: $n) }`, nil, map[string]any{"echo": 4}, ""},
		{"required missing", `query($v: Int!) { echo(n: $v) }`, nil, nil, "variable $v of required type Int! was not provided"},
		{"required null", `query($v: Int!) { echo(n: $v) }`, map[string]any{"v": nil}, nil, "variable $v of type Int! cannot be null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewMockRuntime(map[string]MockResolver{"Query.echo": echo})
			got := NewExecutor(rt, sch).ExecuteRequest(context.Background(), Request{
				Document:       mustParseQuery(t, tt.query),
				VariableValues: tt.vars,
			})
			if tt.wantError != "" {
				require.Len(t, got.Errors, 1)
				require.Equal(t, tt.wantError, got.Errors[0].Message)
				require.Nil(t, got.Data)
				return
			}
			require.Empty(t, got.Errors)
			require.Equal(t, tt.wantData, got.Data)
		})
	}
}

func TestExecute_OperationSelection(t *testing.T) {
	rt := NewMockRuntime(map[string]MockResolver{"Query.echo": NewMockValueResolver(1)})
	exec := NewExecutor(rt, newTestSchema(t))
	doc := mustParseQuery(t, `query A { echo } query B { e: echo }`)

	got := exec.ExecuteRequest(context.Background(), Request{Document: doc, OperationName: "B"})
	require.Equal(t, map[string]any{"e": 1}, got.Data)

	got = exec.ExecuteRequest(context.Background(), Request{Document: doc})
	require.Equal(t, []GraphQLError{{Message: "operation not found"}}, got.Errors)
}
