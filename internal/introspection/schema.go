package introspection

import (
	"strings"
	"sync"

	schema "github.com/linkgraph/linkgraph/internal/schema"
)

var (
	preludeOnce sync.Once
	prelude     *schema.Schema
	preludeErr  error
)

// preludeSchema returns a schema holding only the GraphQL prelude: the
// built-in scalars, directives and the __* introspection types.
func preludeSchema() (*schema.Schema, error) {
	preludeOnce.Do(func() {
		prelude, preludeErr = schema.BuildFromSDLNamed("prelude.graphqls", "type Query { ok: Boolean }")
	})
	return prelude, preludeErr
}

// extend copies sch and adds the root introspection fields to its query type.
// Schemas assembled by hand get the prelude types they are missing.
func extend(sch *schema.Schema) (*schema.Schema, error) {
	out := &schema.Schema{
		QueryType:        sch.QueryType,
		MutationType:     sch.MutationType,
		SubscriptionType: sch.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(sch.Types)),
		Directives:       make(map[string]*schema.Directive, len(sch.Directives)),
		Description:      sch.Description,
		Source:           sch.Source,
	}
	for name, t := range sch.Types {
		out.Types[name] = t
	}
	for name, d := range sch.Directives {
		out.Directives[name] = d
	}

	if out.Types["__Schema"] == nil {
		p, err := preludeSchema()
		if err != nil {
			return nil, err
		}
		for name, t := range p.Types {
			if t.BuiltIn && out.Types[name] == nil {
				out.Types[name] = t
			}
		}
		for name, d := range p.Directives {
			if out.Directives[name] == nil {
				out.Directives[name] = d
			}
		}
	}

	query := out.GetQueryType()
	if query == nil {
		return out, nil
	}
	extended := *query
	extended.Fields = make([]*schema.Field, 0, len(query.Fields)+2)
	for _, f := range query.Fields {
		if !isMetaField(f.Name) {
			extended.Fields = append(extended.Fields, f)
		}
	}
	extended.AddField(schema.NewField("__schema", "Access the current type schema of this server.",
		schema.NonNullType(schema.NamedType("__Schema"))))
	extended.AddField(schema.NewField("__type", "Request the type information of a single type.",
		schema.NamedType("__Type")).
		AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))))
	out.Types[extended.Name] = &extended
	return out, nil
}

func isMetaField(name string) bool {
	return strings.HasPrefix(name, "__")
}
