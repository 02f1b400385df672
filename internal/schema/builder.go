package schema

import (
	"sort"
	"strings"

	"github.com/linkgraph/linkgraph/internal/language"
)

// BuildFromAST builds an executable schema from a validated gqlparser schema.
//
// Fields of the operation root types are marked Async: they are backed by
// resolvers and batched per execution depth. Every other field is a
// synchronous projection of its parent value. The root introspection fields
// (__schema, __type) are left out; introspection.Wrap adds them.
func BuildFromAST(src *language.Schema) (*Schema, error) {
	s := NewSchema(src.Description)
	s.Source = src
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	names := make([]string, 0, len(src.Types))
	for name := range src.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		def := src.Types[name]
		switch def.Kind {
		case language.Object:
			s.AddType(buildObject(def, s.IsRootType(def.Name)))
		case language.Interface:
			s.AddType(buildInterface(src, def))
		case language.Union:
			s.AddType(buildUnion(def))
		case language.Enum:
			s.AddType(buildEnum(def))
		case language.InputObject:
			s.AddType(buildInput(def))
		case language.Scalar:
			s.AddType(buildScalar(def))
		}
	}
	for _, dir := range src.Directives {
		s.AddDirective(buildDirective(dir))
	}
	return s, nil
}

// BuildFromSDL parses and validates sdl and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSDLNamed("schema.graphqls", sdl)
}

// BuildFromSDLNamed is BuildFromSDL with a source name used in error locations.
func BuildFromSDLNamed(name, sdl string) (*Schema, error) {
	src, err := language.LoadSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(src)
}

func buildObject(def *language.Definition, root bool) *Type {
	t := NewType(def.Name, TypeKindObject, def.Description)
	t.BuiltIn = def.BuiltIn
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		if root && strings.HasPrefix(fd.Name, "__") {
			continue
		}
		t.AddField(buildField(fd).SetAsync(root))
	}
	return t
}

func buildInterface(src *language.Schema, def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindInterface, def.Description)
	t.BuiltIn = def.BuiltIn
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		t.AddField(buildField(fd))
	}
	possible := make([]string, 0, len(src.PossibleTypes[def.Name]))
	for _, pt := range src.PossibleTypes[def.Name] {
		possible = append(possible, pt.Name)
	}
	sort.Strings(possible)
	for _, name := range possible {
		t.AddPossibleType(name)
	}
	return t
}

func buildField(def *language.FieldDefinition) *Field {
	f := NewField(def.Name, def.Description, buildTypeRef(def.Type))
	if reason, ok := deprecation(def.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range def.Arguments {
		f.AddArgument(buildArgument(arg))
	}
	return f
}

func buildArgument(def *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(def.Name, def.Description, buildTypeRef(def.Type)).
		SetDefault(defaultValue(def.DefaultValue))
	if reason, ok := deprecation(def.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildEnum(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindEnum, def.Description)
	t.BuiltIn = def.BuiltIn
	for _, v := range def.EnumValues {
		ev := NewEnumValue(v.Name, v.Description)
		if reason, ok := deprecation(v.Directives); ok {
			ev.Deprecate(reason)
		}
		t.AddEnumValue(ev)
	}
	return t
}

func buildInput(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindInputObject, def.Description).
		SetOneOf(def.Directives.ForName("oneOf") != nil)
	t.BuiltIn = def.BuiltIn
	// gqlparser stores input object fields as field definitions
	for _, fd := range def.Fields {
		in := NewInputValue(fd.Name, fd.Description, buildTypeRef(fd.Type)).
			SetDefault(defaultValue(fd.DefaultValue))
		if reason, ok := deprecation(fd.Directives); ok {
			in.Deprecate(reason)
		}
		t.AddInputField(in)
	}
	return t
}

func buildUnion(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindUnion, def.Description)
	t.BuiltIn = def.BuiltIn
	names := append([]string(nil), def.Types...)
	sort.Strings(names)
	for _, name := range names {
		t.AddPossibleType(name)
	}
	return t
}

func buildScalar(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKindScalar, def.Description)
	t.BuiltIn = def.BuiltIn
	if d := def.Directives.ForName("specifiedBy"); d != nil {
		if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
			t.SetSpecifiedByURL(arg.Value.Raw)
		}
	}
	return t
}

func buildDirective(def *language.DirectiveDefinition) *Directive {
	d := NewDirective(def.Name, def.Description).SetRepeatable(def.IsRepeatable)
	d.BuiltIn = def.Position != nil && def.Position.Src != nil && def.Position.Src.BuiltIn
	for _, loc := range def.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range def.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "No longer supported", true
}

func defaultValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return out
}
