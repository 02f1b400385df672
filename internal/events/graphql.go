package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
// Errors holds executor.GraphQLError values; callers may unwrap them to the
// resolver fault that caused them.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// GraphQLPanic is emitted when execution panics. Stack is the goroutine
// stack captured at recovery.
type GraphQLPanic struct {
	Query string
	Value any
	Stack []byte
}
