package executor

import (
	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

// fieldGroup is every AST field sharing one response name.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// groupedFields keeps field groups in the order they first appear in the query.
type groupedFields struct {
	groups []fieldGroup
	index  map[string]int
}

func (g *groupedFields) add(responseName string, field *language.Field) {
	if i, ok := g.index[responseName]; ok {
		g.groups[i].Fields = append(g.groups[i].Fields, field)
		return
	}
	g.index[responseName] = len(g.groups)
	g.groups = append(g.groups, fieldGroup{ResponseName: responseName, Fields: []*language.Field{field}})
}

// collectFields flattens a selection set for objectType, applying @skip/@include
// and expanding fragments whose type condition applies.
func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	out := &groupedFields{index: make(map[string]int)}
	collectInto(state, objectType, selectionSet, out, make(map[string]bool))
	return out.groups
}

func collectInto(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, out *groupedFields, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldInclude(state, sel.Directives) {
				continue
			}
			name := sel.Alias
			if name == "" {
				name = sel.Name
			}
			out.add(name, sel)

		case *language.InlineFragment:
			if !shouldInclude(state, sel.Directives) {
				continue
			}
			if !fragmentApplies(state.schema, objectType, sel.TypeCondition) {
				continue
			}
			collectInto(state, objectType, sel.SelectionSet, out, visited)

		case *language.FragmentSpread:
			if !shouldInclude(state, sel.Directives) || visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true
			def := state.document.Fragments.ForName(sel.Name)
			if def == nil || !shouldInclude(state, def.Directives) {
				continue
			}
			if !fragmentApplies(state.schema, objectType, def.TypeCondition) {
				continue
			}
			collectInto(state, objectType, def.SelectionSet, out, visited)
		}
	}
}

// fragmentApplies reports whether a fragment with the given type condition
// selects fields on objectType. Conditions naming an interface or union apply
// when objectType is one of its possible types.
func fragmentApplies(sch *schema.Schema, objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	abstract := sch.Types[condition]
	if abstract == nil {
		return false
	}
	switch abstract.Kind {
	case schema.TypeKindInterface:
		for _, name := range objectType.Interfaces {
			if name == condition {
				return true
			}
		}
		fallthrough
	case schema.TypeKindUnion:
		for _, name := range abstract.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	}
	return false
}

func shouldInclude(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil && directiveFlag(state, skip) {
		return false
	}
	if include := directives.ForName("include"); include != nil && !directiveFlag(state, include) {
		return false
	}
	return true
}

// directiveFlag evaluates the "if" argument of @skip or @include.
func directiveFlag(state *executionState, directive *language.Directive) bool {
	arg := directive.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	b, _ := valueFromAST(arg.Value, state.variableValues).(bool)
	return b
}

func getFieldDefinition(objectType *schema.Type, fieldName string) *schema.Field {
	return objectType.Field(fieldName)
}

// mergeSelectionSets merges the sub-selections of every field in a group.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
