package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	language "github.com/hanpama/usergraph/internal/language"
)

func TestCollectFields_FragmentsAndDirectives(t *testing.T) {
	rt := itemRuntime()
	rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"id": "1", "name": "N"}))

	q := `
query($skip: Boolean!) {
  item(id: "1") {
    ...Ident
    name @skip(if: $skip)
    ... on Item { also: name @include(if: $skip) }
  }
}
fragment Ident on Item { id }
`
	tests := []struct {
		skip bool
		want map[string]any
	}{
		{skip: true, want: map[string]any{"item": map[string]any{"id": "1", "also": "N"}}},
		{skip: false, want: map[string]any{"item": map[string]any{"id": "1", "name": "N"}}},
	}
	exec := NewExecutor(rt, newTestSchema(t))
	for _, tt := range tests {
		got := exec.ExecuteRequest(context.Background(), Request{
			Document:       mustParseQuery(t, q),
			VariableValues: map[string]any{"skip": tt.skip},
		})
		if diff := cmp.Diff(tt.want, got.Data); diff != "" {
			t.Fatalf("skip=%v data mismatch (-want +got):\n%s", tt.skip, diff)
		}
	}
}

// selectionPaths lists the fields of set as dotted paths, failing on nodes
// an async resolver should never see.
func selectionPaths(t *testing.T, set language.SelectionSet, prefix string) []string {
	t.Helper()
	var out []string
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if len(s.Directives) > 0 {
				t.Fatalf("field %s still carries directives", s.Name)
			}
			out = append(out, prefix+s.Name)
			out = append(out, selectionPaths(t, s.SelectionSet, prefix+s.Name+".")...)
		case *language.InlineFragment:
			out = append(out, selectionPaths(t, s.SelectionSet, prefix)...)
		case *language.FragmentSpread:
			t.Fatalf("fragment spread %s was not inlined", s.Name)
		}
	}
	return out
}

func TestAsyncTaskSelectionAppliesDirectives(t *testing.T) {
	q := `
query($skip: Boolean!) {
  item(id: "1") {
    ...Ident
    name @skip(if: $skip)
    owner @include(if: $skip) { name ...Named }
  }
}
fragment Ident on Item { id ...Ident }
fragment Named on Person { name @include(if: false) }
`
	tests := []struct {
		skip bool
		want []string
	}{
		{skip: true, want: []string{"id", "owner", "owner.name"}},
		{skip: false, want: []string{"id", "name"}},
	}
	for _, tt := range tests {
		rt := &taskRecorder{MockRuntime: itemRuntime()}
		rt.SetResolver("Query", "item", NewMockValueResolver(map[string]any{"id": "1", "name": "N"}))
		res := NewExecutor(rt, newTestSchema(t)).ExecuteRequest(context.Background(), Request{
			Document:       mustParseQuery(t, q),
			VariableValues: map[string]any{"skip": tt.skip},
		})
		require.Empty(t, res.Errors)
		require.NotEmpty(t, rt.tasks)
		require.Equal(t, "item", rt.tasks[0].Field)
		if diff := cmp.Diff(tt.want, selectionPaths(t, rt.tasks[0].SelectionSet, "")); diff != "" {
			t.Fatalf("skip=%v selection (-want +got):\n%s", tt.skip, diff)
		}
	}
}
