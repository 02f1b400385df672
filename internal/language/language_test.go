package language

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testSDL = `type Query { link(id: ID!): Link }
type Link { id: ID! url: String! }`

func TestLoadQueryValid(t *testing.T) {
	sch, err := LoadSchema("schema.graphqls", testSDL)
	require.NoError(t, err)

	doc, errs := LoadQuery(sch, `{ link(id: 1) { url } }`)
	require.Empty(t, errs)
	require.Len(t, doc.Operations, 1)
}

func TestLoadQueryUnknownField(t *testing.T) {
	sch, err := LoadSchema("schema.graphqls", testSDL)
	require.NoError(t, err)

	_, errs := LoadQuery(sch, "{\n  nonExistentField\n}")
	require.NotEmpty(t, errs)
	require.False(t, IsSyntaxError(errs[0]))
	require.Equal(t, 2, errs[0].Locations[0].Line)
	require.Equal(t, 3, errs[0].Locations[0].Column)
}

func TestLoadQuerySyntaxError(t *testing.T) {
	sch, err := LoadSchema("schema.graphqls", testSDL)
	require.NoError(t, err)

	_, errs := LoadQuery(sch, `{ link(id: 1) { url }`)
	require.Len(t, errs, 1)
	require.True(t, IsSyntaxError(errs[0]))
}

func TestLoadSchemaInvalid(t *testing.T) {
	_, err := LoadSchema("schema.graphqls", `type Query { link: Missing }`)
	require.Error(t, err)
	require.NotEmpty(t, AsErrorList(err))
}
