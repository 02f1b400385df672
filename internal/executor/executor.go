package executor

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	language "github.com/linkgraph/linkgraph/internal/language"
	schema "github.com/linkgraph/linkgraph/internal/schema"
)

type Path []PathElement

type PathElement any

// String renders the path as links[0].url.
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

// executionState holds the state of one request.
type executionState struct {
	context        context.Context
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any

	pending []asyncTask
	errors  []GraphQLError

	// dataNullified is set when a non-null root field could not be completed.
	dataNullified bool
	// nullified holds the rendered paths of values replaced by null; tasks
	// below them are dropped.
	nullified map[string]struct{}
}

// asyncTask is a queued resolver-backed field.
type asyncTask struct {
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
	// Nullable is the path of the nearest nullable ancestor; empty for data itself.
	Nullable Path
}

// asyncPending marks a response slot that a later batch fills in.
type asyncPending struct{}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// ExecuteRequest executes one operation of document. Errors are collected
// into the result; execution never fails as a whole except for operation
// selection and variable coercion, which return a result without data.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation := getOperation(document, operationName)
	if operation == nil {
		msg := "operation not found"
		if operationName != "" {
			msg = fmt.Sprintf("unknown operation named '%s'", operationName)
		}
		return &ExecutionResult{Errors: []GraphQLError{{Message: msg, Type: ErrorValidation}}}
	}

	coerced, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{
			Message:   err.Error(),
			Type:      ErrorValidation,
			Locations: locationOf(operation.Position),
		}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		rootType = e.schema.GetSubscriptionType()
	default:
		return &ExecutionResult{Errors: []GraphQLError{{
			Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation),
			Type:    ErrorOperationNotSupported,
		}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{
			Message:   fmt.Sprintf("schema is not configured for %ss", operation.Operation),
			Type:      ErrorOperationNotSupported,
			Locations: locationOf(operation.Position),
		}}}
	}

	state := &executionState{
		context:        ctx,
		runtime:        e.runtime,
		schema:         e.schema,
		document:       document,
		variableValues: coerced,
		nullified:      make(map[string]struct{}),
	}

	// root selection set: sync fields complete now, async fields are queued
	data := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{}, Path{})

	// one batch per async depth
	for len(state.pending) > 0 && !state.dataNullified {
		tasks, results := flushAsyncTasks(state)
		for i, r := range results {
			completeAsyncField(state, tasks[i], r, data)
		}
	}

	if state.dataNullified {
		return &ExecutionResult{Errors: state.errors}
	}
	return &ExecutionResult{Data: data, Errors: state.errors}
}

// executeSelectionSet executes the fields of one object value. It returns nil
// when a non-null field of the object could not be completed.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path, nullable Path) map[string]any {
	result := make(map[string]any)

	for _, group := range collectFields(state, objectType, selectionSet) {
		fields := group.Fields
		fieldPath := appendPath(path, group.ResponseName)

		if fields[0].Name == "__typename" {
			result[group.ResponseName] = objectType.Name
			continue
		}

		fieldDef := getFieldDefinition(objectType, fields[0].Name)
		if fieldDef == nil {
			state.report(ErrorValidation, fmt.Sprintf("Cannot query field '%s' on type '%s'", fields[0].Name, objectType.Name), fields, fieldPath)
			continue
		}

		value := executeField(state, objectType, fieldDef, objectValue, fields, fieldPath, nullable)

		if isNullish(value) {
			if schema.IsNonNull(fieldDef.Type) {
				if len(path) == 0 {
					state.dataNullified = true
					return nil
				}
				state.markNullified(path)
				return nil
			}
			result[group.ResponseName] = nil
			continue
		}
		result[group.ResponseName] = value
	}

	return result
}

// executeField resolves a sync field in place or queues an async one.
func executeField(state *executionState, objectType *schema.Type, fieldDef *schema.Field, objectValue any, fields []*language.Field, path, nullable Path) any {
	args := coerceArgumentValues(state, fieldDef, fields, path)

	if !fieldDef.Async {
		value, err := state.runtime.ResolveSync(state.context, objectType.Name, fieldDef.Name, objectValue, args)
		if err != nil {
			state.fieldError(err, fields, path)
			return nil
		}
		return completeValue(state, fieldDef.Type, fields, value, path, nullable)
	}

	state.pending = append(state.pending, asyncTask{
		Task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldDef.Name,
			Source:     objectValue,
			Args:       args,
		},
		ResponsePath: path,
		FieldType:    fieldDef.Type,
		Fields:       fields,
		Nullable:     nullable,
	})
	return asyncPending{}
}

// flushAsyncTasks runs the queued tasks that are still live as one batch.
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	live := make([]asyncTask, 0, len(state.pending))
	for _, at := range state.pending {
		if !state.isNullified(at.ResponsePath) {
			live = append(live, at)
		}
	}
	state.pending = nil
	if len(live) == 0 {
		return nil, nil
	}

	if err := state.context.Err(); err != nil {
		results := make([]AsyncResolveResult, len(live))
		for i := range results {
			results[i] = AsyncResolveResult{Error: err}
		}
		return live, results
	}

	tasks := make([]AsyncResolveTask, len(live))
	for i, at := range live {
		tasks[i] = at.Task
	}
	results := state.runtime.BatchResolveAsync(state.context, tasks)
	if len(results) != len(tasks) {
		err := fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks))
		results = make([]AsyncResolveResult, len(tasks))
		for i := range results {
			results[i] = AsyncResolveResult{Error: err}
		}
	}
	return live, results
}

// completeAsyncField writes one batch result into the response tree.
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, data map[string]any) {
	path := at.ResponsePath
	if state.dataNullified || state.isNullified(path) {
		return
	}

	var completed any
	if res.Error != nil {
		state.fieldError(res.Error, at.Fields, path)
	} else {
		completed = completeValue(state, at.FieldType, at.Fields, res.Value, path, at.Nullable)
	}

	if isNullish(completed) {
		if schema.IsNonNull(at.FieldType) {
			state.nullify(data, at.Nullable)
			return
		}
		setValueAtPath(data, path, nil)
		return
	}
	setValueAtPath(data, path, completed)
}

// completeValue completes a resolved value against fieldType. nullable is
// the nearest nullable ancestor of the parent; it moves down to path whenever
// fieldType itself is nullable.
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path, nullable Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.report(ErrorDataFetching, fmt.Sprintf("Cannot return null for non-nullable field %s", path), fields, path)
			}
			return nil
		}
		return completeNullable(state, schema.Unwrap(fieldType), fields, result, path, nullable)
	}
	return completeNullable(state, fieldType, fields, result, path, path)
}

// completeNullable completes a value whose type is not wrapped in Non-Null.
func completeNullable(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path, nullable Path) any {
	if isNullish(result) {
		return nil
	}
	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path, nullable)
	}

	namedType := schema.GetNamedType(fieldType)
	typ := state.schema.Types[namedType]
	if typ == nil {
		state.report(ErrorDataFetching, fmt.Sprintf("Unknown type: %s", namedType), fields, path)
		return nil
	}

	switch typ.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.fieldError(err, fields, path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typ, fields, result, path, nullable)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, typ, fields, result, path, nullable)
	default:
		state.report(ErrorDataFetching, fmt.Sprintf("Cannot complete value of unexpected type: %s", typ.Kind), fields, path)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path, nullable Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.report(ErrorDataFetching, fmt.Sprintf("Expected list value, got %T", result), fields, path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i), nullable)
		if schema.IsNonNull(inner) && isNullish(v) {
			// the error was recorded at the item; the list itself becomes null
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path, nullable Path) any {
	return executeSelectionSet(state, objectType, mergeSelectionSets(fields), result, path, nullable)
}

func completeAbstractValue(state *executionState, abstractType *schema.Type, fields []*language.Field, result any, path, nullable Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractType.Name, result)
	if err != nil {
		state.fieldError(err, fields, path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.report(ErrorDataFetching, fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName), fields, path)
		return nil
	}
	if !isPossibleType(abstractType, typeName) {
		state.report(ErrorDataFetching, fmt.Sprintf("Runtime Object type %s is not a possible type for %s", typeName, abstractType.Name), fields, path)
		return nil
	}

	var concrete any
	if abstractType.Kind == schema.TypeKindUnion {
		concrete, err = state.runtime.ResolveUnionConcreteValue(state.context, abstractType.Name, result)
	} else {
		concrete, err = state.runtime.ResolveInterfaceConcreteValue(state.context, abstractType.Name, result)
	}
	if err != nil {
		state.fieldError(err, fields, path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, concrete, path, nullable)
}

func isPossibleType(abstractType *schema.Type, typeName string) bool {
	for _, name := range abstractType.PossibleTypes {
		if name == typeName {
			return true
		}
	}
	return false
}

func appendPath(path Path, elem PathElement) Path {
	out := make(Path, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

// nullify replaces the value at p with null; an empty p nullifies data.
func (s *executionState) nullify(data map[string]any, p Path) {
	if len(p) == 0 {
		s.dataNullified = true
		return
	}
	setValueAtPath(data, p, nil)
	s.markNullified(p)
}

func (s *executionState) markNullified(p Path) {
	if len(p) > 0 {
		s.nullified[p.String()] = struct{}{}
	}
}

// isNullified reports whether p or one of its ancestors was replaced by null.
func (s *executionState) isNullified(p Path) bool {
	if len(s.nullified) == 0 {
		return false
	}
	for i := 1; i <= len(p); i++ {
		if _, ok := s.nullified[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

// report records an error raised by the executor itself.
func (s *executionState) report(typ ErrorType, message string, fields []*language.Field, path Path) {
	s.errors = append(s.errors, GraphQLError{
		Message:   message,
		Type:      typ,
		Locations: fieldLocations(fields),
		Path:      path,
	})
}

// fieldError records an error returned by the runtime. The error is kept as
// the cause so callers can log it with its stack.
func (s *executionState) fieldError(err error, fields []*language.Field, path Path) {
	s.errors = append(s.errors, GraphQLError{
		Message:   err.Error(),
		Type:      ErrorDataFetching,
		Locations: fieldLocations(fields),
		Path:      path,
		Cause:     err,
	})
}

func (s *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func fieldLocations(fields []*language.Field) []Location {
	if len(fields) == 0 {
		return nil
	}
	return locationOf(fields[0].Position)
}

func locationOf(pos *language.Position) []Location {
	if pos == nil || pos.Line == 0 {
		return nil
	}
	return []Location{{Line: pos.Line, Column: pos.Column}}
}

// getOperation picks the named operation, or the only one when name is empty.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	return document.Operations.ForName(operationName)
}

// setValueAtPath writes value into the response tree, creating intermediate
// objects as needed. Writes below a null value are ignored.
func setValueAtPath(root map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	current := any(root)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			if slice[e] == nil {
				return
			}
			current = slice[e]
		}
	}
	switch last := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[last] = value
		}
	case int:
		if slice, ok := current.([]any); ok && last < len(slice) {
			slice[last] = value
		}
	}
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
