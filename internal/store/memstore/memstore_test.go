package memstore

import (
	"testing"

	"github.com/hanpama/usergraph/internal/store"
	"github.com/hanpama/usergraph/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return New(WithMemberTypes(store.DefaultMemberTypes()...))
	})
}
