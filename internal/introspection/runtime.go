package introspection

import (
	"context"
	"sort"

	executor "github.com/linkgraph/linkgraph/internal/executor"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

// IntrospectionWrapper holds the wrapped runtime and the schema extended with
// the introspection root fields. Both must be handed to the executor together.
type IntrospectionWrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns a Runtime that answers __schema, __type and every field of the
// __* introspection types, delegating all other fields to base.
func Wrap(base executor.Runtime, sch *schema.Schema) (*IntrospectionWrapper, error) {
	extended, err := extend(sch)
	if err != nil {
		return nil, err
	}
	return &IntrospectionWrapper{
		Runtime: &runtime{base: base, schema: extended},
		Schema:  extended,
	}, nil
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}

	switch src := source.(type) {
	case *schema.Schema:
		return r.schemaField(src, field), nil
	case *schema.Type:
		return r.typeField(src, field, args), nil
	case *schema.TypeRef:
		return r.typeRefField(src, field, args), nil
	case *schema.Field:
		return fieldField(src, field, args), nil
	case *schema.InputValue:
		return r.inputValueField(src, field), nil
	case *schema.EnumValue:
		return enumValueField(src, field), nil
	case *schema.Directive:
		return directiveField(src, field, args), nil
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return r.base.ResolveUnionConcreteValue(ctx, unionTypeName, value)
}

func (r *runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return r.base.ResolveInterfaceConcreteValue(ctx, interfaceTypeName, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if s, ok := value.(*string); ok {
		if s == nil {
			return nil, nil
		}
		value = *s
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func (r *runtime) schemaField(sch *schema.Schema, field string) any {
	switch field {
	case "description":
		return optional(sch.Description)
	case "types":
		names := make([]string, 0, len(sch.Types))
		for name := range sch.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*schema.Type, len(names))
		for i, name := range names {
			out[i] = sch.Types[name]
		}
		return out
	case "queryType":
		return sch.GetQueryType()
	case "mutationType":
		return sch.GetMutationType()
	case "subscriptionType":
		return sch.GetSubscriptionType()
	case "directives":
		names := make([]string, 0, len(sch.Directives))
		for name := range sch.Directives {
			names = append(names, name)
		}
		sort.Strings(names)
		out := make([]*schema.Directive, len(names))
		for i, name := range names {
			out[i] = sch.Directives[name]
		}
		return out
	}
	return nil
}

func (r *runtime) typeField(t *schema.Type, field string, args map[string]any) any {
	includeDeprecated, _ := args["includeDeprecated"].(bool)
	switch field {
	case "kind":
		return string(t.Kind)
	case "name":
		return t.Name
	case "description":
		return optional(t.Description)
	case "specifiedByURL":
		return t.SpecifiedByURL
	case "isOneOf":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return t.OneOf
	case "ofType":
		// named types have no wrapped type; LIST and NON_NULL are TypeRefs
		return nil
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		out := []*schema.Field{}
		for _, f := range t.GetOrderedFields() {
			if isMetaField(f.Name) || (f.IsDeprecated && !includeDeprecated) {
				continue
			}
			out = append(out, f)
		}
		return out
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.lookupTypes(t.Interfaces)
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil
		}
		return r.lookupTypes(t.PossibleTypes)
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if ev.IsDeprecated && !includeDeprecated {
				continue
			}
			out = append(out, ev)
		}
		return out
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return visibleInputValues(t.InputFields, includeDeprecated)
	}
	return nil
}

// typeRefField answers __Type fields for a type reference. Named references
// are answered by the definition they name.
func (r *runtime) typeRefField(tr *schema.TypeRef, field string, args map[string]any) any {
	if tr.Kind == schema.TypeRefKindNamed {
		if def := r.schema.Types[tr.Named]; def != nil {
			return r.typeField(def, field, args)
		}
		if field == "name" {
			return tr.Named
		}
		return nil
	}
	switch field {
	case "kind":
		return string(tr.Kind)
	case "ofType":
		return tr.OfType
	}
	return nil
}

func (r *runtime) lookupTypes(names []string) []*schema.Type {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := make([]*schema.Type, 0, len(sorted))
	for _, name := range sorted {
		if def := r.schema.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	return out
}

func fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return optional(f.Description)
	case "args":
		includeDeprecated, _ := args["includeDeprecated"].(bool)
		return visibleInputValues(f.Arguments, includeDeprecated)
	case "type":
		return f.Type
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason)
	}
	return nil
}

func (r *runtime) inputValueField(v *schema.InputValue, field string) any {
	switch field {
	case "name":
		return v.Name
	case "description":
		return optional(v.Description)
	case "type":
		return v.Type
	case "defaultValue":
		if v.DefaultValue == nil {
			return nil
		}
		literal := schema.DefaultLiteral(r.schema, v)
		return &literal
	case "isDeprecated":
		return v.IsDeprecated
	case "deprecationReason":
		return deprecationReason(v.IsDeprecated, v.DeprecationReason)
	}
	return nil
}

func enumValueField(ev *schema.EnumValue, field string) any {
	switch field {
	case "name":
		return ev.Name
	case "description":
		return optional(ev.Description)
	case "isDeprecated":
		return ev.IsDeprecated
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason)
	}
	return nil
}

func directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return optional(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		return append([]string(nil), d.Locations...)
	case "args":
		includeDeprecated, _ := args["includeDeprecated"].(bool)
		return visibleInputValues(d.Arguments, includeDeprecated)
	}
	return nil
}

func visibleInputValues(values []*schema.InputValue, includeDeprecated bool) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, v := range values {
		if v.IsDeprecated && !includeDeprecated {
			continue
		}
		out = append(out, v)
	}
	return out
}

func deprecationReason(deprecated bool, reason string) *string {
	if !deprecated {
		return nil
	}
	return &reason
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
