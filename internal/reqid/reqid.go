// Package reqid tags request contexts with an id shared by every event the
// request publishes.
package reqid

import (
	"context"
	"math/rand"
)

type key struct{}

// NewContext returns a copy of parent carrying a new random request id.
func NewContext(parent context.Context) (context.Context, int64) {
	id := int64(rand.Uint64())
	return context.WithValue(parent, key{}, id), id
}

// FromContext extracts the request id from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(key{}).(int64)
	return id, ok
}

// Ensure returns ctx unchanged when it already carries an id, otherwise a
// derived context with a fresh one.
func Ensure(ctx context.Context) (context.Context, int64) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	return NewContext(ctx)
}
