package introspection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	executor "github.com/linkgraph/linkgraph/internal/executor"
	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

// noopRuntime implements executor.Runtime with no behaviour.
type noopRuntime struct{}

func (noopRuntime) ResolveSync(context.Context, string, string, any, map[string]any) (any, error) {
	return nil, nil
}

func (noopRuntime) BatchResolveAsync(_ context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return make([]executor.AsyncResolveResult, len(tasks))
}

func (noopRuntime) ResolveType(context.Context, string, any) (string, error) {
	return "", nil
}

func (noopRuntime) ResolveUnionConcreteValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func (noopRuntime) ResolveInterfaceConcreteValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func (noopRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

const linksSDL = `
"Shared links."
type Link {
  id: ID!
  url: String!
  description: String
  votes: Int @deprecated(reason: "use score")
}

enum Order { NEWEST OLDEST }

input LinkFilter { url_contains: String }

type Query {
  allLinks(filter: LinkFilter, first: Int = 10, order: Order = NEWEST): [Link!]!
  link(id: ID!): Link
}
`

func execute(t *testing.T, sch *schema.Schema, query string) map[string]any {
	t.Helper()
	wrapper, err := Wrap(noopRuntime{}, sch)
	require.NoError(t, err)

	var doc *language.QueryDocument
	if wrapper.Schema.Source != nil {
		var errs language.ErrorList
		doc, errs = language.LoadQuery(wrapper.Schema.Source, query)
		require.Empty(t, errs)
	} else {
		doc, err = language.ParseQuery(query)
		require.NoError(t, err)
	}

	res := executor.NewExecutor(wrapper.Runtime, wrapper.Schema).ExecuteRequest(context.Background(), doc, "", nil, nil)
	require.Empty(t, res.Errors)
	return res.Data.(map[string]any)
}

func mustBuild(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(linksSDL)
	require.NoError(t, err)
	return sch
}

func TestSchemaRootTypes(t *testing.T) {
	data := execute(t, mustBuild(t), `{ __schema { queryType { name } mutationType { name } } }`)

	require.Equal(t, map[string]any{
		"__schema": map[string]any{
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": nil,
		},
	}, data)
}

func TestTypeFields(t *testing.T) {
	data := execute(t, mustBuild(t), `{
  __type(name: "Link") {
    kind
    name
    description
    fields { name type { kind name ofType { kind name } } }
  }
}`)

	require.Equal(t, map[string]any{
		"kind":        "OBJECT",
		"name":        "Link",
		"description": "Shared links.",
		"fields": []any{
			map[string]any{"name": "description", "type": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil}},
			map[string]any{"name": "id", "type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "SCALAR", "name": "ID"}}},
			map[string]any{"name": "url", "type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "SCALAR", "name": "String"}}},
		},
	}, data["__type"])
}

func TestDeprecatedFieldsAndDefaults(t *testing.T) {
	data := execute(t, mustBuild(t), `{
  link: __type(name: "Link") { fields(includeDeprecated: true) { name isDeprecated deprecationReason } }
  query: __type(name: "Query") { fields { name args { name defaultValue } } }
  missing: __type(name: "Nope") { name }
}`)

	linkFields := data["link"].(map[string]any)["fields"].([]any)
	require.Len(t, linkFields, 4)
	require.Contains(t, linkFields, map[string]any{"name": "votes", "isDeprecated": true, "deprecationReason": "use score"})

	queryFields := data["query"].(map[string]any)["fields"].([]any)
	require.Len(t, queryFields, 2, "__schema and __type are not listed")
	allLinks := queryFields[0].(map[string]any)
	require.Equal(t, "allLinks", allLinks["name"])
	require.Equal(t, []any{
		map[string]any{"name": "filter", "defaultValue": nil},
		map[string]any{"name": "first", "defaultValue": "10"},
		map[string]any{"name": "order", "defaultValue": "NEWEST"},
	}, allLinks["args"])

	require.Nil(t, data["missing"])
}

func TestHandBuiltSchemaGetsPrelude(t *testing.T) {
	sch := schema.NewSchema("")
	sch.SetQueryType("Query")
	sch.AddType(schema.NewType("Query", schema.TypeKindObject, "").
		AddField(schema.NewField("hello", "", schema.NamedType("String"))))

	data := execute(t, sch, `{ __type(name: "__Type") { kind } __schema { types { name } } }`)

	require.Equal(t, map[string]any{"kind": "OBJECT"}, data["__type"])
	require.Nil(t, sch.Types["__Schema"], "the original schema is not modified")
	require.Len(t, sch.GetQueryType().Fields, 1)
}

func TestTypenameField(t *testing.T) {
	sch := mustBuild(t)
	exec := executor.NewExecutor(noopRuntime{}, sch)
	doc, err := language.ParseQuery("{__typename}")
	require.NoError(t, err)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"__typename": "Query"}, res.Data)
}

// fullQuery is the introspection query sent by GraphiQL.
const fullQuery = `
query IntrospectionQuery {
  __schema {
    queryType { name }
    mutationType { name }
    subscriptionType { name }
    types { ...FullType }
    directives { name description locations args { ...InputValue } }
  }
}
fragment FullType on __Type {
  kind name description
  fields(includeDeprecated: true) {
    name description
    args { ...InputValue }
    type { ...TypeRef }
    isDeprecated deprecationReason
  }
  inputFields { ...InputValue }
  interfaces { ...TypeRef }
  enumValues(includeDeprecated: true) { name description isDeprecated deprecationReason }
  possibleTypes { ...TypeRef }
}
fragment InputValue on __InputValue { name description type { ...TypeRef } defaultValue }
fragment TypeRef on __Type {
  kind name
  ofType { kind name ofType { kind name ofType { kind name ofType { kind name } } } }
}`

func TestFullIntrospectionQuery(t *testing.T) {
	data := execute(t, mustBuild(t), fullQuery)

	types := data["__schema"].(map[string]any)["types"].([]any)
	names := make([]string, 0, len(types))
	for _, typ := range types {
		names = append(names, typ.(map[string]any)["name"].(string))
	}
	require.Subset(t, names, []string{"Boolean", "ID", "Link", "LinkFilter", "Order", "Query", "String", "__Schema", "__Type"})

	directives := data["__schema"].(map[string]any)["directives"].([]any)
	require.NotEmpty(t, directives)
}
