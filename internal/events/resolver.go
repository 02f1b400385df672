package events

import "time"

// ResolverStart is emitted before the link runtime runs one group of
// resolver tasks sharing an object type and field.
type ResolverStart struct {
	ObjectType string
	Field      string
	Tasks      int
}

// ResolverFinish is emitted after a resolver group completes.
// Failed counts the tasks that returned an error.
type ResolverFinish struct {
	ObjectType string
	Field      string
	Tasks      int
	Failed     int
	Duration   time.Duration
}
