package schema

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// AsyncFunc reports whether a field must be resolved through the batched
// runtime path instead of being projected from its parent value. A nil
// AsyncFunc marks every field sync.
type AsyncFunc func(typeName, fieldName string) bool

// Build converts a validated gqlparser schema into an executable Schema.
// Introspection types and meta fields are skipped.
func Build(src *ast.Schema, async AsyncFunc) *Schema {
	if async == nil {
		async = func(string, string) bool { return false }
	}
	s := NewSchema(src.Description)
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	names := make([]string, 0, len(src.Types))
	for name := range src.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.AddType(BuildType(src.Types[name], async))
	}
	return s
}

// BuildType converts one named type definition. Meta fields are skipped.
func BuildType(def *ast.Definition, async AsyncFunc) *Type {
	switch def.Kind {
	case ast.Object, ast.Interface:
		kind := TypeKindObject
		if def.Kind == ast.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(def.Name, fd, async))
		}
		return t
	case ast.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
		return t
	case ast.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, v := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, v.Name)
		}
		return t
	case ast.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		for _, fd := range def.Fields {
			t.AddInputField(buildInputValue(fd.Name, fd.Description, fd.Type, fd.DefaultValue))
		}
		return t
	default:
		return NewType(def.Name, TypeKindScalar, def.Description)
	}
}

func buildField(typeName string, fd *ast.FieldDefinition, async AsyncFunc) *Field {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type)).
		SetAsync(async != nil && async(typeName, fd.Name))
	for _, arg := range fd.Arguments {
		f.AddArgument(buildInputValue(arg.Name, arg.Description, arg.Type, arg.DefaultValue))
	}
	return f
}

func buildInputValue(name, description string, typ *ast.Type, def *ast.Value) *InputValue {
	in := NewInputValue(name, description, buildTypeRef(typ))
	if def != nil {
		if v, err := def.Value(nil); err == nil {
			in.SetDefault(v)
		}
	}
	return in
}

func buildTypeRef(t *ast.Type) *TypeRef {
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}
