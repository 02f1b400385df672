package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

func TestCoerceScalars(t *testing.T) {
	tests := []struct {
		typ     string
		in      any
		want    any
		wantErr bool
	}{
		{typ: "Int", in: 3, want: 3},
		{typ: "Int", in: int64(3), want: 3},
		{typ: "Int", in: float64(3), want: 3},
		{typ: "Int", in: 3.5, wantErr: true},
		{typ: "Int", in: float64(1 << 40), wantErr: true},
		{typ: "Int", in: "3", wantErr: true},
		{typ: "Float", in: 2, want: float64(2)},
		{typ: "Float", in: "2", wantErr: true},
		{typ: "String", in: "x", want: "x"},
		{typ: "String", in: 1, wantErr: true},
		{typ: "Boolean", in: true, want: true},
		{typ: "Boolean", in: "true", wantErr: true},
		{typ: "ID", in: "a1", want: "a1"},
		{typ: "ID", in: 7, want: "7"},
		{typ: "ID", in: float64(7), want: "7"},
		{typ: "ID", in: 7.5, wantErr: true},
		{typ: "ID", in: float64(-9007199254740992), want: "-9007199254740992"},
		{typ: "ID", in: 1e20, wantErr: true},
		{typ: "ID", in: -1e20, wantErr: true},
		{typ: "ID", in: float64(1 << 63), wantErr: true},
	}
	for _, tt := range tests {
		got, err := coerceValue(nil, tt.in, schema.NamedType(tt.typ))
		if tt.wantErr {
			require.Error(t, err, "%s <- %#v", tt.typ, tt.in)
			continue
		}
		require.NoError(t, err, "%s <- %#v", tt.typ, tt.in)
		require.Equal(t, tt.want, got, "%s <- %#v", tt.typ, tt.in)
	}
}

func TestCoerceLists(t *testing.T) {
	got, err := coerceValue(nil, []any{1, 2}, schema.ListType(schema.NonNullType(schema.NamedType("Int"))))
	require.NoError(t, err)
	require.Equal(t, []any{1, 2}, got)

	got, err = coerceValue(nil, 1, schema.ListType(schema.NamedType("Int")))
	require.NoError(t, err)
	require.Equal(t, []any{1}, got, "a single value becomes a list of one")

	_, err = coerceValue(nil, []any{1, nil}, schema.ListType(schema.NonNullType(schema.NamedType("Int"))))
	require.ErrorContains(t, err, "[1]")
}

func TestCoerceVariableValuesInputObject(t *testing.T) {
	sch := schema.NewSchema("")
	input := schema.NewType("LinkInput", schema.TypeKindInputObject, "")
	input.AddInputField(schema.NewInputValue("url", "", schema.NonNullType(schema.NamedType("String"))))
	input.AddInputField(schema.NewInputValue("rank", "", schema.NamedType("Int")).SetDefault(1))
	sch.AddType(input)

	op := &language.OperationDefinition{
		Operation: language.Query,
		VariableDefinitions: ast.VariableDefinitionList{
			&ast.VariableDefinition{
				Variable: "input",
				Type:     &ast.Type{NamedType: "LinkInput", NonNull: true},
			},
		},
	}

	_, err := coerceVariableValues(sch, op, map[string]any{
		"input": map[string]any{"rank": 10},
	})
	require.ErrorContains(t, err, "required field 'url'")

	got, err := coerceVariableValues(sch, op, map[string]any{
		"input": map[string]any{"url": "https://go.dev"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"input": map[string]any{"url": "https://go.dev", "rank": 1}}, got)
}

func TestCoerceOneOf(t *testing.T) {
	sch := schema.NewSchema("")
	by := schema.NewType("LinkBy", schema.TypeKindInputObject, "").SetOneOf(true)
	by.AddInputField(schema.NewInputValue("id", "", schema.NamedType("ID")))
	by.AddInputField(schema.NewInputValue("url", "", schema.NamedType("String")))
	sch.AddType(by)

	_, err := coerceValue(sch, map[string]any{"id": "1", "url": "x"}, schema.NamedType("LinkBy"))
	require.ErrorContains(t, err, "exactly one field")

	got, err := coerceValue(sch, map[string]any{"id": "1"}, schema.NamedType("LinkBy"))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"id": "1"}, got)
}

func TestValueFromASTNestedVariables(t *testing.T) {
	doc := mustParseQuery(t, `query($u: String) { allLinks(filter: {url_contains: $u, description_contains: "go"}) { id } }`)
	arg := doc.Operations[0].SelectionSet[0].(*language.Field).Arguments.ForName("filter")

	got := valueFromAST(arg.Value, map[string]any{"u": "graphql"})

	require.Equal(t, map[string]any{"url_contains": "graphql", "description_contains": "go"}, got)
}
