// Package executor executes validated GraphQL operations breadth-first.
//
// Fields are split by schema.Field.Async. Synchronous fields are projections
// of their parent value and are completed in place through Runtime.ResolveSync.
// Asynchronous fields are queued and resolved together: every field queued at
// one depth goes to a single Runtime.BatchResolveAsync call, so an operation
// whose deepest chain of async fields has length d makes exactly d batch calls.
//
// Completion follows the GraphQL rules for lists, leaves, objects and
// abstract types. Errors never abort the operation. They are collected as
// GraphQLError values with a type, the location of the field in the query and
// the response path. A null in a Non-Null position replaces the nearest
// nullable ancestor with null; when there is none, the result has no data.
// Queued tasks below a nullified path are dropped before the next batch.
//
// Fragments apply when their type condition names the object type itself or
// an interface or union it belongs to.
package executor
