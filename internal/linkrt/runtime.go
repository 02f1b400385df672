// Package linkrt implements executor.Runtime over a store.Repository.
package linkrt

import (
	"context"
	"encoding/base64"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/linkgraph/linkgraph/internal/eventbus"
	"github.com/linkgraph/linkgraph/internal/events"
	"github.com/linkgraph/linkgraph/internal/executor"
	"github.com/linkgraph/linkgraph/internal/store"
)

// Resolver resolves one root field. Resolvers run inside BatchResolveAsync.
type Resolver func(ctx context.Context, args map[string]any) (any, error)

// Runtime resolves root fields through registered resolvers and every other
// field by projecting the parent value.
type Runtime struct {
	repo      store.Repository
	resolvers map[string]Resolver
}

var _ executor.Runtime = (*Runtime)(nil)

// NewRuntime returns a Runtime with the link resolvers registered.
func NewRuntime(repo store.Repository) *Runtime {
	r := &Runtime{repo: repo, resolvers: map[string]Resolver{}}
	r.Register("Query", "allLinks", r.allLinks)
	r.Register("Query", "link", r.link)
	r.Register("Mutation", "createLink", r.createLink)
	return r
}

// Register binds fn to objectType.field, replacing any previous resolver.
// It must be called before the runtime serves requests.
func (r *Runtime) Register(objectType, field string, fn Resolver) {
	r.resolvers[objectType+"."+field] = fn
}

// ResolveSync projects field out of source. Maps are indexed by field name
// and structs are read through their json tags.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return src[field], nil
	}
	v := reflect.ValueOf(source)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot resolve %s.%s from %T", objectType, field, source)
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" {
			name = sf.Name
		}
		if name != field {
			continue
		}
		fv := v.Field(i)
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			return nil, nil
		}
		return fv.Interface(), nil
	}
	return nil, fmt.Errorf("%T has no field for %s.%s", source, objectType, field)
}

// BatchResolveAsync runs root resolvers. Tasks are grouped by (objectType,
// field); groups run in parallel and results keep task order.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	type groupKey struct {
		objectType string
		field      string
	}
	type group struct {
		groupKey
		idxs []int
	}
	groups := []group{}
	idxByKey := map[groupKey]int{}
	for i, t := range tasks {
		k := groupKey{objectType: t.ObjectType, field: t.Field}
		if gi, ok := idxByKey[k]; ok {
			groups[gi].idxs = append(groups[gi].idxs, i)
		} else {
			idxByKey[k] = len(groups)
			groups = append(groups, group{groupKey: k, idxs: []int{i}})
		}
	}
	run := func(g group) {
		fn := r.resolvers[g.objectType+"."+g.field]
		if fn == nil {
			err := fmt.Errorf("no resolver registered for %s.%s", g.objectType, g.field)
			for _, i := range g.idxs {
				results[i] = executor.AsyncResolveResult{Error: err}
			}
			return
		}
		r.runGroup(ctx, g.objectType, g.field, fn, tasks, g.idxs, results)
	}

	if len(groups) == 1 {
		run(groups[0])
		return results
	}
	var (
		wg        sync.WaitGroup
		panicOnce sync.Once
		panicked  any
	)
	wg.Add(len(groups))
	for _, g := range groups {
		g := g // per-iteration copy; go directive predates 1.22 loop semantics
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					panicOnce.Do(func() { panicked = p })
				}
			}()
			run(g)
		}()
	}
	wg.Wait()
	if panicked != nil {
		// surface on the request goroutine where the server recovers it
		panic(panicked)
	}
	return results
}

func (r *Runtime) runGroup(ctx context.Context, objectType, field string, fn Resolver, tasks []executor.AsyncResolveTask, idxs []int, results []executor.AsyncResolveResult) {
	start := time.Now()
	eventbus.Publish(ctx, events.ResolverStart{ObjectType: objectType, Field: field, Tasks: len(idxs)})
	failed := 0
	for _, i := range idxs {
		val, err := fn(ctx, tasks[i].Args)
		if err != nil {
			failed++
			val = nil
		}
		results[i] = executor.AsyncResolveResult{Value: val, Error: err}
	}
	eventbus.Publish(ctx, events.ResolverFinish{
		ObjectType: objectType,
		Field:      field,
		Tasks:      len(idxs),
		Failed:     failed,
		Duration:   time.Since(start),
	})
}

// ResolveType reads the concrete type from a "__typename" entry. The link
// schema has no abstract types; this serves schemas loaded from disk.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok && name != "" {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot determine concrete type of %s from %T", abstractType, value)
}

func (r *Runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return value, nil
}

// SerializeLeafValue passes JSON-safe values through, dereferences pointers
// and base64-encodes byte slices.
func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int32, int64, float32, float64:
		return v, nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return *v, nil
	case []byte:
		return base64.StdEncoding.EncodeToString(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		return r.SerializeLeafValue(ctx, scalarOrEnumTypeName, rv.Elem().Interface())
	}
	return nil, errors.Errorf("cannot serialize %T as %s", value, scalarOrEnumTypeName)
}
