package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema.
// Types and directives are emitted in name order; prelude definitions are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder
	renderSchemaBlock(&b, s)

	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		if typ.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		renderType(&b, s, s.Types[name])
	}

	directiveNames := make([]string, 0, len(s.Directives))
	for name, directive := range s.Directives {
		if directive.BuiltIn {
			continue
		}
		directiveNames = append(directiveNames, name)
	}
	sort.Strings(directiveNames)
	for _, name := range directiveNames {
		renderDirective(&b, s, s.Directives[name])
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// renderSchemaBlock writes an explicit schema definition only when a root
// type does not use its conventional name.
func renderSchemaBlock(b *strings.Builder, s *Schema) {
	roots := []struct{ op, name, conventional string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := false
	for _, r := range roots {
		if r.name != "" && r.name != r.conventional {
			custom = true
		}
	}
	if !custom {
		return
	}
	b.WriteString("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			fmt.Fprintf(b, "  %s: %s\n", r.op, r.name)
		}
	}
	b.WriteString("}\n\n")
}

func renderType(b *strings.Builder, s *Schema, typ *Type) {
	renderDescription(b, "", typ.Description)
	switch typ.Kind {
	case TypeKindScalar:
		b.WriteString("scalar " + typ.Name)
		if typ.SpecifiedByURL != nil {
			b.WriteString(" @specifiedBy(url: " + strconv.Quote(*typ.SpecifiedByURL) + ")")
		}
		b.WriteString("\n")
	case TypeKindEnum:
		b.WriteString("enum " + typ.Name + " {\n")
		for _, val := range typ.EnumValues {
			renderDescription(b, "  ", val.Description)
			b.WriteString("  " + val.Name)
			renderDeprecated(b, val.IsDeprecated, val.DeprecationReason)
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	case TypeKindInputObject:
		b.WriteString("input " + typ.Name)
		if typ.OneOf {
			b.WriteString(" @oneOf")
		}
		b.WriteString(" {\n")
		for _, field := range typ.InputFields {
			renderDescription(b, "  ", field.Description)
			b.WriteString("  " + renderInputValue(s, field))
			renderDeprecated(b, field.IsDeprecated, field.DeprecationReason)
			b.WriteString("\n")
		}
		b.WriteString("}\n")
	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if typ.Kind == TypeKindInterface {
			keyword = "interface "
		}
		b.WriteString(keyword + typ.Name)
		if len(typ.Interfaces) > 0 {
			b.WriteString(" implements " + strings.Join(typ.Interfaces, " & "))
		}
		b.WriteString(" {\n")
		for _, field := range typ.Fields {
			renderField(b, s, field)
		}
		b.WriteString("}\n")
	case TypeKindUnion:
		b.WriteString("union " + typ.Name + " = " + strings.Join(typ.PossibleTypes, " | ") + "\n")
	}
	b.WriteString("\n")
}

func renderField(b *strings.Builder, s *Schema, field *Field) {
	renderDescription(b, "  ", field.Description)
	b.WriteString("  " + field.Name)
	renderArguments(b, s, field.Arguments)
	b.WriteString(": " + renderTypeRef(field.Type))
	renderDeprecated(b, field.IsDeprecated, field.DeprecationReason)
	b.WriteString("\n")
}

func renderDirective(b *strings.Builder, s *Schema, directive *Directive) {
	renderDescription(b, "", directive.Description)
	b.WriteString("directive @" + directive.Name)
	renderArguments(b, s, directive.Arguments)
	if directive.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on " + strings.Join(directive.Locations, " | ") + "\n\n")
}

func renderArguments(b *strings.Builder, s *Schema, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = renderInputValue(s, arg)
	}
	b.WriteString("(" + strings.Join(parts, ", ") + ")")
}

func renderInputValue(s *Schema, v *InputValue) string {
	out := v.Name + ": " + renderTypeRef(v.Type)
	if v.DefaultValue != nil {
		out += " = " + DefaultLiteral(s, v)
	}
	return out
}

// DefaultLiteral renders the default value of v. Values of enum type are
// written as bare names.
func DefaultLiteral(s *Schema, v *InputValue) string {
	if s != nil {
		if t := s.Types[GetNamedType(v.Type)]; t != nil && t.Kind == TypeKindEnum {
			return valueLiteral(v.DefaultValue, true)
		}
	}
	return ValueLiteral(v.DefaultValue)
}

func renderDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	b.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(strings.ReplaceAll(desc, `"""`, `\"""`), "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + `"""` + "\n")
}

func renderDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		b.WriteString("(reason: " + strconv.Quote(reason) + ")")
	}
}

func renderTypeRef(typeRef *TypeRef) string {
	if typeRef == nil {
		return ""
	}
	switch typeRef.Kind {
	case TypeRefKindNamed:
		return typeRef.Named
	case TypeRefKindList:
		return "[" + renderTypeRef(typeRef.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(typeRef.OfType) + "!"
	default:
		return ""
	}
}

// ValueLiteral renders a default value as a GraphQL literal.
func ValueLiteral(value any) string {
	return valueLiteral(value, false)
}

// valueLiteral writes strings bare when enum is set.
func valueLiteral(value any, enum bool) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		if enum {
			return v
		}
		return strconv.Quote(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = valueLiteral(item, enum)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + valueLiteral(v[k], false)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprint(v)
	}
}
