package pipeline

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator/core"
)

// DefaultMaxDepth is the nesting limit applied when none is configured.
const DefaultMaxDepth = 5

// maxDepthRule rejects operations whose fields nest deeper than limit. Root
// fields sit at depth 0; introspection fields are not counted.
func maxDepthRule(limit int) core.Rule {
	return core.Rule{
		Name: "MaxDepth",
		RuleFunc: func(observers *core.Events, addError core.AddErrFunc) {
			observers.OnOperation(func(walker *core.Walker, op *ast.OperationDefinition) {
				d := depthWalker{doc: walker.Document, limit: limit, visiting: map[string]bool{}}
				d.selectionSet(op.SelectionSet, 0)
				if d.exceeded != nil {
					name := "anonymous operation"
					if op.Name != "" {
						name = "'" + op.Name + "'"
					}
					addError(
						core.Message("%s exceeds maximum operation depth of %d", name, limit),
						core.At(d.exceeded.Position),
					)
				}
			})
		},
	}
}

type depthWalker struct {
	doc      *ast.QueryDocument
	limit    int
	visiting map[string]bool
	exceeded *ast.Field
}

func (d *depthWalker) selectionSet(set ast.SelectionSet, depth int) {
	for _, sel := range set {
		if d.exceeded != nil {
			return
		}
		switch s := sel.(type) {
		case *ast.Field:
			if strings.HasPrefix(s.Name, "__") {
				continue
			}
			if depth > d.limit {
				d.exceeded = s
				return
			}
			d.selectionSet(s.SelectionSet, depth+1)
		case *ast.InlineFragment:
			d.selectionSet(s.SelectionSet, depth)
		case *ast.FragmentSpread:
			def := s.Definition
			if def == nil {
				def = d.doc.Fragments.ForName(s.Name)
			}
			// Unknown fragments and cycles are reported by the default rules.
			if def == nil || d.visiting[s.Name] {
				continue
			}
			d.visiting[s.Name] = true
			d.selectionSet(def.SelectionSet, depth)
			delete(d.visiting, s.Name)
		}
	}
}
