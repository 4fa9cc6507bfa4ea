package graph

import (
	_ "embed"
	"sync"

	"github.com/hanpama/usergraph/internal/language"
	"github.com/hanpama/usergraph/internal/schema"
)

//go:embed schema.graphql
var sdl string

// SDL returns the schema source.
func SDL() string { return sdl }

var loadSchema = sync.OnceValues(func() (*language.Schema, error) {
	return language.LoadSchema("schema.graphql", sdl)
})

// Schema returns the validated schema AST and its executable form, where
// fields with storage-backed resolvers are async.
func Schema() (*language.Schema, *schema.Schema, error) {
	src, err := loadSchema()
	if err != nil {
		return nil, nil, err
	}
	return src, schema.Build(src, isAsync), nil
}
