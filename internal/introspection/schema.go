package introspection

import (
	"maps"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/usergraph/internal/schema"
)

// Extend returns a copy of sch that also carries the introspection types of
// src and the __schema and __type root fields. sch is left untouched.
func Extend(src *ast.Schema, sch *schema.Schema) *schema.Schema {
	out := *sch
	out.Types = maps.Clone(sch.Types)

	names := make([]string, 0)
	for name := range src.Types {
		if strings.HasPrefix(name, "__") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		out.AddType(schema.BuildType(src.Types[name], nil))
	}

	if q := sch.GetQueryType(); q != nil {
		root := *q
		root.Fields = append([]*schema.Field(nil), q.Fields...)
		root.AddField(schema.NewField("__schema", "", schema.NonNullType(schema.NamedType("__Schema"))))
		root.AddField(schema.NewField("__type", "", schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))))
		out.Types[root.Name] = &root
	}
	return &out
}
