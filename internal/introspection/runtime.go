// Package introspection answers __schema and __type queries from the
// validated gqlparser schema and delegates every other field.
package introspection

import (
	"context"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/usergraph/internal/executor"
)

// Runtime wraps a base runtime with the introspection resolvers.
type Runtime struct {
	base   executor.Runtime
	source *ast.Schema
}

var _ executor.Runtime = (*Runtime)(nil)

func Wrap(base executor.Runtime, src *ast.Schema) *Runtime {
	return &Runtime{base: base, source: src}
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if objectType == r.queryName() {
		switch field {
		case "__schema":
			return r.source, nil
		case "__type":
			name, _ := args["name"].(string)
			if def := r.source.Types[name]; def != nil {
				return &typeValue{def: def}, nil
			}
			return nil, nil
		}
	}
	if !strings.HasPrefix(objectType, "__") {
		return r.base.ResolveSync(ctx, objectType, field, source, args)
	}

	switch src := source.(type) {
	case *ast.Schema:
		return r.schemaField(src, field), nil
	case *typeValue:
		return r.typeField(src, field, includeDeprecated(args)), nil
	case *ast.FieldDefinition:
		return r.fieldField(src, field, includeDeprecated(args)), nil
	case *ast.ArgumentDefinition:
		return r.inputValueField(inputValue{src.Name, src.Description, src.Type, src.DefaultValue, src.Directives}, field), nil
	case inputValue:
		return r.inputValueField(src, field), nil
	case *ast.EnumValueDefinition:
		return enumValueField(src, field), nil
	case *ast.DirectiveDefinition:
		return r.directiveField(src, field, includeDeprecated(args)), nil
	}
	return nil, nil
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	if strings.HasPrefix(typeName, "__") {
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typeName, value)
}

func (r *Runtime) queryName() string {
	if r.source.Query == nil {
		return ""
	}
	return r.source.Query.Name
}

// typeValue is a __Type: either a named definition or a list/non-null
// wrapper around another type.
type typeValue struct {
	def  *ast.Definition
	wrap *ast.Type
}

func (r *Runtime) typeOf(t *ast.Type) *typeValue {
	if t == nil {
		return nil
	}
	if t.NonNull || t.Elem != nil {
		return &typeValue{wrap: t}
	}
	if def := r.source.Types[t.NamedType]; def != nil {
		return &typeValue{def: def}
	}
	return nil
}

func (r *Runtime) named(def *ast.Definition) *typeValue {
	if def == nil {
		return nil
	}
	return &typeValue{def: def}
}

// inputValue is a __InputValue for both arguments and input fields.
type inputValue struct {
	name         string
	description  string
	typ          *ast.Type
	defaultValue *ast.Value
	directives   ast.DirectiveList
}

func (r *Runtime) schemaField(s *ast.Schema, field string) any {
	switch field {
	case "description":
		return nullable(s.Description)
	case "types":
		names := make([]string, 0, len(s.Types))
		for name := range s.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*typeValue, len(names))
		for i, name := range names {
			out[i] = r.named(s.Types[name])
		}
		return out
	case "queryType":
		return r.named(s.Query)
	case "mutationType":
		return r.named(s.Mutation)
	case "subscriptionType":
		return r.named(s.Subscription)
	case "directives":
		names := make([]string, 0, len(s.Directives))
		for name := range s.Directives {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*ast.DirectiveDefinition, len(names))
		for i, name := range names {
			out[i] = s.Directives[name]
		}
		return out
	}
	return nil
}

func (r *Runtime) typeField(t *typeValue, field string, withDeprecated bool) any {
	if t.wrap != nil {
		switch field {
		case "kind":
			if t.wrap.NonNull {
				return "NON_NULL"
			}
			return "LIST"
		case "ofType":
			if t.wrap.NonNull {
				inner := *t.wrap
				inner.NonNull = false
				return r.typeOf(&inner)
			}
			return r.typeOf(t.wrap.Elem)
		}
		return nil
	}

	def := t.def
	switch field {
	case "kind":
		return string(def.Kind)
	case "name":
		return def.Name
	case "description":
		return nullable(def.Description)
	case "specifiedByURL":
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil {
				return arg.Value.Raw
			}
		}
		return nil
	case "isOneOf":
		if def.Kind != ast.InputObject {
			return nil
		}
		return def.Directives.ForName("oneOf") != nil
	case "fields":
		if def.Kind != ast.Object && def.Kind != ast.Interface {
			return nil
		}
		out := make([]*ast.FieldDefinition, 0, len(def.Fields))
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") || (!withDeprecated && deprecated(f.Directives)) {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if def.Kind != ast.Object && def.Kind != ast.Interface {
			return nil
		}
		out := make([]*typeValue, 0, len(def.Interfaces))
		for _, name := range def.Interfaces {
			out = append(out, r.named(r.source.Types[name]))
		}
		return out
	case "possibleTypes":
		if def.Kind != ast.Interface && def.Kind != ast.Union {
			return nil
		}
		possible := r.source.GetPossibleTypes(def)
		out := make([]*typeValue, 0, len(possible))
		for _, p := range possible {
			out = append(out, r.named(p))
		}
		return out
	case "enumValues":
		if def.Kind != ast.Enum {
			return nil
		}
		out := make([]*ast.EnumValueDefinition, 0, len(def.EnumValues))
		for _, v := range def.EnumValues {
			if withDeprecated || !deprecated(v.Directives) {
				out = append(out, v)
			}
		}
		return out
	case "inputFields":
		if def.Kind != ast.InputObject {
			return nil
		}
		out := make([]inputValue, 0, len(def.Fields))
		for _, f := range def.Fields {
			if withDeprecated || !deprecated(f.Directives) {
				out = append(out, inputValue{f.Name, f.Description, f.Type, f.DefaultValue, f.Directives})
			}
		}
		return out
	}
	return nil
}

func (r *Runtime) fieldField(f *ast.FieldDefinition, field string, withDeprecated bool) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return nullable(f.Description)
	case "args":
		return arguments(f.Arguments, withDeprecated)
	case "type":
		return r.typeOf(f.Type)
	case "isDeprecated":
		return deprecated(f.Directives)
	case "deprecationReason":
		return deprecationReason(f.Directives)
	}
	return nil
}

func (r *Runtime) inputValueField(v inputValue, field string) any {
	switch field {
	case "name":
		return v.name
	case "description":
		return nullable(v.description)
	case "type":
		return r.typeOf(v.typ)
	case "defaultValue":
		if v.defaultValue == nil {
			return nil
		}
		return v.defaultValue.String()
	case "isDeprecated":
		return deprecated(v.directives)
	case "deprecationReason":
		return deprecationReason(v.directives)
	}
	return nil
}

func enumValueField(v *ast.EnumValueDefinition, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return nullable(v.Description)
	case "isDeprecated":
		return deprecated(v.Directives)
	case "deprecationReason":
		return deprecationReason(v.Directives)
	}
	return nil
}

func (r *Runtime) directiveField(d *ast.DirectiveDefinition, field string, withDeprecated bool) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return nullable(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		out := make([]string, len(d.Locations))
		for i, loc := range d.Locations {
			out[i] = string(loc)
		}
		return out
	case "args":
		return arguments(d.Arguments, withDeprecated)
	}
	return nil
}

func arguments(args ast.ArgumentDefinitionList, withDeprecated bool) []*ast.ArgumentDefinition {
	out := make([]*ast.ArgumentDefinition, 0, len(args))
	for _, a := range args {
		if withDeprecated || !deprecated(a.Directives) {
			out = append(out, a)
		}
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	v, _ := args["includeDeprecated"].(bool)
	return v
}

func deprecated(dirs ast.DirectiveList) bool {
	return dirs.ForName("deprecated") != nil
}

func deprecationReason(dirs ast.DirectiveList) any {
	d := dirs.ForName("deprecated")
	if d == nil {
		return nil
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw
	}
	return "No longer supported"
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
