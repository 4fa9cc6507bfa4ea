package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
enum Color { RED GREEN }

input Filter { color: Color = RED, limit: Int! }

type Item { id: ID! name: String tags: [String!]! }

type Query {
  items(filter: Filter): [Item]
  item(id: ID!): Item
}

type Mutation { touch(id: ID!): Boolean }
`

func mustLoad(t *testing.T, sdl string) *ast.Schema {
	t.Helper()
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "test", Input: sdl})
	require.NoError(t, err)
	return s
}

func TestBuild_RootsAndAsyncFlags(t *testing.T) {
	sch := Build(mustLoad(t, testSDL), func(typeName, fieldName string) bool {
		return typeName == "Query"
	})

	require.Equal(t, "Query", sch.QueryType)
	require.Equal(t, "Mutation", sch.MutationType)
	require.Nil(t, sch.GetSubscriptionType())

	query := sch.GetQueryType()
	require.NotNil(t, query)
	require.True(t, query.Field("items").Async)
	require.True(t, query.Field("item").Async)
	require.Nil(t, query.Field("__schema"), "meta fields must not be copied")

	item := sch.Types["Item"]
	require.False(t, item.Field("name").Async)
	require.False(t, sch.GetMutationType().Field("touch").Async)

	for name := range sch.Types {
		require.NotContains(t, name, "__", "introspection type %s leaked", name)
	}
}

func TestBuild_TypeRefs(t *testing.T) {
	sch := Build(mustLoad(t, testSDL), nil)
	item := sch.Types["Item"]

	want := NonNullType(ListType(NonNullType(NamedType("String"))))
	if diff := cmp.Diff(want, item.Field("tags").Type); diff != "" {
		t.Fatalf("tags type mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "[String!]!", item.Field("tags").Type.String())
	require.True(t, IsList(item.Field("tags").Type))
	require.Equal(t, "String", GetNamedType(item.Field("tags").Type))
}

func TestBuild_InputsAndEnums(t *testing.T) {
	sch := Build(mustLoad(t, testSDL), nil)

	color := sch.Types["Color"]
	require.Equal(t, TypeKindEnum, color.Kind)
	require.Equal(t, []string{"RED", "GREEN"}, color.EnumValues)

	filter := sch.Types["Filter"]
	require.Equal(t, TypeKindInputObject, filter.Kind)
	require.Equal(t, "RED", filter.InputField("color").DefaultValue)
	require.True(t, IsNonNull(filter.InputField("limit").Type))

	items := sch.GetQueryType().Field("items")
	require.Len(t, items.Arguments, 1)
	require.Equal(t, "Filter", items.Arguments[0].Type.Named)

	require.Equal(t, TypeKindScalar, sch.Types["ID"].Kind)
}

func TestBuildType_NilAsyncFuncIsSync(t *testing.T) {
	src := mustLoad(t, testSDL)

	typ := BuildType(src.Types["__Type"], nil)
	require.Equal(t, TypeKindObject, typ.Kind)
	require.NotEmpty(t, typ.Fields)
	for _, f := range typ.Fields {
		require.False(t, f.Async, "field %s", f.Name)
	}

	item := BuildType(src.Types["Item"], nil)
	require.NotNil(t, item.Field("tags"))
	require.False(t, item.Field("tags").Async)
}
