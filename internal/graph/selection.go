package graph

import (
	"github.com/hanpama/usergraph/internal/language"
	"github.com/hanpama/usergraph/internal/store"
)

// selects reports whether the selection set requests field directly or
// through fragments. The executor has already dropped nodes excluded by
// @skip or @include and inlined named fragments; spreads are still followed
// for selection sets built elsewhere.
func selects(set language.SelectionSet, field string) bool {
	for _, sel := range set {
		switch s := sel.(type) {
		case *language.Field:
			if s.Name == field {
				return true
			}
		case *language.InlineFragment:
			if selects(s.SelectionSet, field) {
				return true
			}
		case *language.FragmentSpread:
			if s.Definition != nil && selects(s.Definition.SelectionSet, field) {
				return true
			}
		}
	}
	return false
}

// userInclude derives the relations the users list should eager-load.
func userInclude(set language.SelectionSet) store.UserInclude {
	return store.UserInclude{
		SubscribedTo: selects(set, "userSubscribedTo"),
		Followers:    selects(set, "subscribedToUser"),
	}
}
