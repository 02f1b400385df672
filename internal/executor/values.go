package executor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

// coerceVariableValues coerces the provided variables against the operation's
// variable definitions. Variables that are not defined by the operation are ignored.
func coerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			val, ok = variableValues[strings.TrimPrefix(name, "$")]
		}
		if !ok {
			switch {
			case varDef.DefaultValue != nil:
				val = valueFromAST(varDef.DefaultValue, nil)
			case t.NonNull:
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			default:
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := coerceValue(sch, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the literal and variable arguments of a field.
// Failures are recorded on the state as validation errors; the offending
// argument is left out of the returned map.
func coerceArgumentValues(
	state *executionState,
	fieldDef *schema.Field,
	fields []*language.Field,
	path Path,
) map[string]any {
	coerced := make(map[string]any)
	for _, argDef := range fieldDef.Arguments {
		name := argDef.Name
		var arg *language.Argument
		if len(fields) > 0 {
			arg = fields[0].Arguments.ForName(name)
		}

		provided := arg != nil
		var raw any
		if provided {
			if arg.Value != nil && arg.Value.Kind == language.Variable {
				raw, provided = state.variableValues[arg.Value.Raw]
			} else {
				raw = valueFromAST(arg.Value, state.variableValues)
			}
		}

		if !provided {
			if argDef.DefaultValue != nil {
				if cv, err := coerceValue(state.schema, argDef.DefaultValue, argDef.Type); err == nil {
					coerced[name] = cv
				} else {
					coerced[name] = argDef.DefaultValue
				}
			} else if schema.IsNonNull(argDef.Type) {
				state.report(ErrorValidation, fmt.Sprintf("argument '%s' of required type %s was not provided", name, typeRefString(argDef.Type)), fields, path)
			}
			continue
		}

		cv, err := coerceValue(state.schema, raw, argDef.Type)
		if err != nil {
			state.report(ErrorValidation, fmt.Sprintf("argument '%s' cannot be coerced: %v", name, err), fields, path)
			continue
		}
		coerced[name] = cv
	}
	return coerced
}

// valueFromAST converts an AST value to a Go value, substituting variables at any depth.
func valueFromAST(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		return variableValues[value.Raw]
	case language.IntValue:
		if iv, err := strconv.Atoi(value.Raw); err == nil {
			return iv
		}
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = valueFromAST(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = valueFromAST(f.Value, variableValues)
		}
		return m
	default:
		return nil
	}
}

// coerceValue coerces an input value to the given type.
func coerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type %s", typeRefString(targetType))
		}
		return coerceValue(sch, value, schema.Unwrap(targetType))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(targetType) {
		return coerceListValue(sch, value, targetType)
	}

	namedType := schema.GetNamedType(targetType)
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	var typ *schema.Type
	if sch != nil {
		typ = sch.Types[namedType]
	}
	if typ == nil {
		return value, nil
	}
	switch typ.Kind {
	case schema.TypeKindEnum:
		return coerceToEnum(typ, value)
	case schema.TypeKindInputObject:
		return coerceInputObject(sch, typ, value)
	default:
		// custom scalars pass through untouched
		return value, nil
	}
}

func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	inner := schema.Unwrap(listType)
	if slice, ok := value.([]any); ok {
		out := make([]any, len(slice))
		for i, item := range slice {
			cv, err := coerceValue(sch, item, inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}
	// a single value is coerced to a list of one
	cv, err := coerceValue(sch, value, inner)
	if err != nil {
		return nil, err
	}
	return []any{cv}, nil
}

func coerceInputObject(sch *schema.Schema, typ *schema.Type, value any) (any, error) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object for %s, got %T", typ.Name, value)
	}
	known := make(map[string]bool, len(typ.InputFields))
	out := make(map[string]any, len(typ.InputFields))
	for _, field := range typ.InputFields {
		known[field.Name] = true
		raw, present := obj[field.Name]
		if !present {
			if field.DefaultValue != nil {
				out[field.Name] = field.DefaultValue
			} else if schema.IsNonNull(field.Type) {
				return nil, fmt.Errorf("required field '%s' of %s was not provided", field.Name, typ.Name)
			}
			continue
		}
		cv, err := coerceValue(sch, raw, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s' of %s: %w", field.Name, typ.Name, err)
		}
		out[field.Name] = cv
	}
	for name := range obj {
		if !known[name] {
			return nil, fmt.Errorf("field '%s' is not defined by %s", name, typ.Name)
		}
	}
	if typ.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be provided", typ.Name)
	}
	return out, nil
}

func coerceToEnum(typ *schema.Type, value any) (any, error) {
	name, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot coerce %v (%T) to enum %s", value, value, typ.Name)
	}
	for _, ev := range typ.EnumValues {
		if ev.Name == name {
			return name, nil
		}
	}
	return nil, fmt.Errorf("value '%s' does not exist in enum %s", name, typ.Name)
}

func coerceToInt(value any) (any, error) {
	var n float64
	switch v := value.(type) {
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case float32:
		n = float64(v)
	case float64:
		n = v
	default:
		return nil, fmt.Errorf("cannot coerce %v (%T) to Int", value, value)
	}
	if n != math.Trunc(n) || n > math.MaxInt32 || n < math.MinInt32 {
		return nil, fmt.Errorf("cannot coerce %v to Int", value)
	}
	return int(n), nil
}

func coerceToFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to String", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to Boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
		if v == math.Trunc(v) && v >= math.MinInt64 && v < math.MaxInt64 {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	var ref *schema.TypeRef
	if t.Elem != nil {
		ref = schema.ListType(typeRefFromAST(t.Elem))
	} else {
		ref = schema.NamedType(t.NamedType)
	}
	if t.NonNull {
		return schema.NonNullType(ref)
	}
	return ref
}

func typeRefString(t *schema.TypeRef) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case schema.TypeRefKindNonNull:
		return typeRefString(t.OfType) + "!"
	case schema.TypeRefKindList:
		return "[" + typeRefString(t.OfType) + "]"
	default:
		return t.Named
	}
}
