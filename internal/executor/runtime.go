package executor

import "context"

// Runtime supplies field values to the Executor.
//
// Execution is breadth-first: at each depth the Executor drains synchronous
// fields through ResolveSync and then hands every async task of that depth
// to a single BatchResolveAsync call. Root fields are always async.
//
// An error from any method becomes a DataFetchingException located at the
// field, with the error kept as its Cause. A failing Non-Null field nulls its
// nearest nullable ancestor. One Runtime serves concurrent requests and must
// not mutate source or args.
type Runtime interface {
	// ResolveSync returns the raw value of a non-root field of source.
	// (nil, nil) is a GraphQL null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async tasks. results[i] belongs
	// to tasks[i]; a failing task must not fail its neighbours.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of a value of an interface
	// or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// ResolveUnionConcreteValue unwraps a union value before completion.
	ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error)

	// ResolveInterfaceConcreteValue unwraps an interface value before completion.
	ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error)

	// SerializeLeafValue turns a scalar or enum value into a JSON-safe value:
	// enum names and String/ID as string, Int as an integer, Float as float64,
	// Boolean as bool.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

// AsyncResolveTask is one field awaiting BatchResolveAsync.
type AsyncResolveTask struct {
	ObjectType string
	Field      string
	// Source is nil for root fields.
	Source any
	// Args are coerced per the schema.
	Args map[string]any
}

type AsyncResolveResult struct {
	Value any
	Error error
}
