package linkrt

import (
	_ "embed"

	"github.com/linkgraph/linkgraph/internal/schema"
)

// SchemaSDL is the default schema served by linkgraph.
//
//go:embed schema.graphqls
var SchemaSDL string

// LoadSchema builds the executable schema from sdl, falling back to
// SchemaSDL when sdl is empty.
func LoadSchema(name, sdl string) (*schema.Schema, error) {
	if sdl == "" {
		return schema.BuildFromSDLNamed("schema.graphqls", SchemaSDL)
	}
	return schema.BuildFromSDLNamed(name, sdl)
}
