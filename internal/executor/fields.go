package executor

import (
	"slices"

	language "github.com/hanpama/usergraph/internal/language"
	schema "github.com/hanpama/usergraph/internal/schema"
)

// fieldGroup is every field node answering to one response key.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// fieldGroups keeps groups in the order their key first appears.
type fieldGroups struct {
	groups []fieldGroup
	index  map[string]int
}

func (g *fieldGroups) add(field *language.Field) {
	key := field.Alias
	if key == "" {
		key = field.Name
	}
	if i, ok := g.index[key]; ok {
		g.groups[i].Fields = append(g.groups[i].Fields, field)
		return
	}
	g.index[key] = len(g.groups)
	g.groups = append(g.groups, fieldGroup{ResponseName: key, Fields: []*language.Field{field}})
}

// collectFields flattens fragments into response-key groups for objectType,
// dropping nodes excluded by @skip or @include. Each named fragment is
// expanded at most once.
func collectFields(state *executionState, objectType *schema.Type, set language.SelectionSet) []fieldGroup {
	g := &fieldGroups{index: map[string]int{}}
	seen := map[string]bool{}
	var walk func(set language.SelectionSet)
	walk = func(set language.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *language.Field:
				if state.included(s.Directives) {
					g.add(s)
				}
			case *language.InlineFragment:
				if state.included(s.Directives) && typeConditionMatches(state.schema, objectType, s.TypeCondition) {
					walk(s.SelectionSet)
				}
			case *language.FragmentSpread:
				if seen[s.Name] || !state.included(s.Directives) {
					continue
				}
				seen[s.Name] = true
				def := state.fragment(s)
				if def == nil || !state.included(def.Directives) || !typeConditionMatches(state.schema, objectType, def.TypeCondition) {
					continue
				}
				walk(def.SelectionSet)
			}
		}
	}
	walk(set)
	return g.groups
}

// effectiveSelection is the sub-selection an async resolver sees: the merged
// selection sets of fields with excluded nodes removed and named fragments
// inlined, so a resolver can inspect it without variables or the document.
func effectiveSelection(state *executionState, fields []*language.Field) language.SelectionSet {
	var out language.SelectionSet
	for _, f := range fields {
		out = append(out, state.prune(f.SelectionSet, nil)...)
	}
	return out
}

func (state *executionState) prune(set language.SelectionSet, expanding []string) language.SelectionSet {
	var out language.SelectionSet
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if !state.included(s.Directives) {
				continue
			}
			f := *s
			f.Directives = nil
			f.SelectionSet = state.prune(s.SelectionSet, expanding)
			out = append(out, &f)
		case *language.InlineFragment:
			if !state.included(s.Directives) {
				continue
			}
			in := *s
			in.Directives = nil
			in.SelectionSet = state.prune(s.SelectionSet, expanding)
			out = append(out, &in)
		case *language.FragmentSpread:
			if slices.Contains(expanding, s.Name) || !state.included(s.Directives) {
				continue
			}
			def := state.fragment(s)
			if def == nil || !state.included(def.Directives) {
				continue
			}
			out = append(out, &language.InlineFragment{
				TypeCondition: def.TypeCondition,
				SelectionSet:  state.prune(def.SelectionSet, append(expanding, s.Name)),
				Position:      s.Position,
			})
		}
	}
	return out
}

// included evaluates @skip and @include against the request variables.
// A node carrying both is kept only when neither excludes it.
func (state *executionState) included(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && state.directiveFlag(d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !state.directiveFlag(d) {
		return false
	}
	return true
}

func (state *executionState) directiveFlag(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	b, _ := valueFromASTWithVars(arg.Value, state.variableValues).(bool)
	return b
}

func (state *executionState) fragment(spread *language.FragmentSpread) *language.FragmentDefinition {
	if spread.Definition != nil {
		return spread.Definition
	}
	return state.document.Fragments.ForName(spread.Name)
}

// typeConditionMatches reports whether a fragment on condition applies to
// objectType, directly or through an interface or union it belongs to.
func typeConditionMatches(sch *schema.Schema, objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	if slices.Contains(objectType.Interfaces, condition) {
		return true
	}
	if abstract := sch.Types[condition]; abstract != nil {
		return slices.Contains(abstract.PossibleTypes, objectType.Name)
	}
	return false
}
