package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"

	"github.com/hanpama/usergraph/internal/executor"
	"github.com/hanpama/usergraph/internal/graph"
	"github.com/hanpama/usergraph/internal/store/memstore"
)

func run(t *testing.T, query string) map[string]any {
	t.Helper()
	src, sch, err := graph.Schema()
	require.NoError(t, err)
	doc, gerr := gqlparser.LoadQuery(src, query)
	require.Empty(t, gerr)

	rt := Wrap(graph.NewRuntime(graph.NewRequest(memstore.New())), src)
	res := executor.NewExecutor(rt, Extend(src, sch)).ExecuteRequest(context.Background(), executor.Request{Document: doc})
	require.Empty(t, res.Errors)
	return res.Data.(map[string]any)
}

func TestSchemaRoots(t *testing.T) {
	data := run(t, `{ __schema { queryType { name } mutationType { name } subscriptionType { name } } }`)
	want := map[string]any{
		"__schema": map[string]any{
			"queryType":        map[string]any{"name": "Query"},
			"mutationType":     map[string]any{"name": "Mutation"},
			"subscriptionType": nil,
		},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestTypeFieldsUnwrapModifiers(t *testing.T) {
	data := run(t, `{ __type(name: "User") { kind name fields { name type { kind name ofType { kind name ofType { kind name } } } } } }`)
	user := data["__type"].(map[string]any)
	require.Equal(t, "OBJECT", user["kind"])

	byName := map[string]any{}
	for _, f := range user["fields"].([]any) {
		f := f.(map[string]any)
		byName[f["name"].(string)] = f["type"]
	}
	// posts: [Post!]!
	want := map[string]any{
		"kind": "NON_NULL", "name": nil,
		"ofType": map[string]any{
			"kind": "LIST", "name": nil,
			"ofType": map[string]any{"kind": "NON_NULL", "name": nil},
		},
	}
	if diff := cmp.Diff(want, byName["posts"]); diff != "" {
		t.Fatalf("posts type (-want +got):\n%s", diff)
	}
	require.Equal(t, map[string]any{"kind": "OBJECT", "name": "Profile", "ofType": nil}, byName["profile"])
	require.NotContains(t, byName, "__typename")
}

func TestEnumAndInputTypes(t *testing.T) {
	data := run(t, `{
		enum: __type(name: "MemberTypeId") { enumValues { name isDeprecated } }
		input: __type(name: "CreateUserInput") { kind inputFields { name defaultValue } }
		missing: __type(name: "Nope") { name }
	}`)
	require.Equal(t, []any{
		map[string]any{"name": "BASIC", "isDeprecated": false},
		map[string]any{"name": "BUSINESS", "isDeprecated": false},
	}, data["enum"].(map[string]any)["enumValues"])

	input := data["input"].(map[string]any)
	require.Equal(t, "INPUT_OBJECT", input["kind"])
	require.Len(t, input["inputFields"], 2)
	require.Nil(t, data["missing"])
}

func TestTypesAndDirectivesListed(t *testing.T) {
	data := run(t, `{ __schema { types { name } directives { name locations } } }`)
	s := data["__schema"].(map[string]any)

	var names []string
	for _, ty := range s["types"].([]any) {
		names = append(names, ty.(map[string]any)["name"].(string))
	}
	require.Contains(t, names, "User")
	require.Contains(t, names, "UUID")
	require.Contains(t, names, "__Type")

	var directives []string
	for _, d := range s["directives"].([]any) {
		directives = append(directives, d.(map[string]any)["name"].(string))
	}
	require.Contains(t, directives, "skip")
	require.Contains(t, directives, "include")
}

func TestOrdinaryFieldsDelegate(t *testing.T) {
	data := run(t, `{ __typename users { id } }`)
	require.Equal(t, "Query", data["__typename"])
	require.Equal(t, []any{}, data["users"])
}

func TestExtendLeavesBaseSchemaUntouched(t *testing.T) {
	src, sch, err := graph.Schema()
	require.NoError(t, err)

	ext := Extend(src, sch)
	require.NotNil(t, ext.Types["__Schema"])
	for _, f := range ext.Types["__Type"].Fields {
		require.False(t, f.Async, "__Type.%s", f.Name)
	}
	require.NotNil(t, ext.GetQueryType().Field("__schema"))
	require.NotNil(t, ext.GetQueryType().Field("__type"))

	require.Nil(t, sch.Types["__Schema"])
	require.Nil(t, sch.GetQueryType().Field("__schema"))
}
