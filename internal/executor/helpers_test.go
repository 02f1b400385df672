package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

const linksSDL = `
interface Node { id: ID! }

type Link implements Node {
  id: ID!
  url: String!
  description: String
  postedBy: User
  votes: [Vote!]
}

type User implements Node {
  id: ID!
  name: String!
}

type Vote { user: User! }

union FeedItem = Link | User

enum Order { NEWEST OLDEST }

input LinkFilter {
  url_contains: String
  description_contains: String
}

type Query {
  allLinks(filter: LinkFilter, first: Int, skip: Int = 0, order: Order = NEWEST): [Link!]!
  link(id: ID!): Link
  mustLink(id: ID!): Link!
  node(id: ID!): Node
  feed: [FeedItem]
  count: Int
}

type Mutation {
  createLink(url: String!, description: String): Link!
}
`

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	require.NoError(t, err, "parse error")
	return d
}

func mustLinksSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(linksSDL)
	require.NoError(t, err)
	return sch
}

// markAsync turns projection fields into resolver-backed fields.
func markAsync(sch *schema.Schema, keys ...string) {
	for _, key := range keys {
		typeName, fieldName, _ := strings.Cut(key, ".")
		sch.Types[typeName].Field(fieldName).SetAsync(true)
	}
}

// projections registers resolvers reading each key's field from a map source.
func projections(rt *MockRuntime, keys ...string) {
	for _, key := range keys {
		typeName, fieldName, _ := strings.Cut(key, ".")
		rt.SetResolver(typeName, fieldName, func(ctx context.Context, source any, args map[string]any) (any, error) {
			obj, _ := source.(map[string]any)
			return obj[fieldName], nil
		})
	}
}

func execute(t *testing.T, sch *schema.Schema, rt Runtime, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, sch).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}

// resultOpts compares GraphQLError causes with errors.Is and treats nil and
// empty slices alike. GraphQLError itself implements error, so EquateErrors
// is limited to the Cause field.
var resultOpts = cmp.Options{
	cmp.FilterPath(func(p cmp.Path) bool { return p.Last().String() == ".Cause" }, cmpopts.EquateErrors()),
	cmpopts.EquateEmpty(),
}

func requireResult(t *testing.T, want, got *ExecutionResult) {
	t.Helper()
	if diff := cmp.Diff(want, got, resultOpts); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func link(id, url string) map[string]any {
	return map[string]any{"id": id, "url": url}
}
