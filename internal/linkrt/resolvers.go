package linkrt

import (
	"context"

	"github.com/pkg/errors"

	"github.com/linkgraph/linkgraph/internal/store"
)

// allLinks resolves Query.allLinks(filter, first, skip).
func (r *Runtime) allLinks(ctx context.Context, args map[string]any) (any, error) {
	var f store.Filter
	if m, ok := args["filter"].(map[string]any); ok {
		f.URLContains, _ = m["url_contains"].(string)
		f.DescriptionContains, _ = m["description_contains"].(string)
	}
	if skip, ok := args["skip"].(int); ok {
		if skip < 0 {
			return nil, errors.Errorf("skip must not be negative, got %d", skip)
		}
		f.Skip = skip
	}
	if first, ok := args["first"].(int); ok {
		switch {
		case first < 0:
			return nil, errors.Errorf("first must not be negative, got %d", first)
		case first == 0:
			return []*store.Link{}, nil
		}
		f.First = first
	}
	links, err := r.repo.All(ctx, f)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return links, nil
}

// link resolves Query.link(id). A missing link is null, not an error.
func (r *Runtime) link(ctx context.Context, args map[string]any) (any, error) {
	id, _ := args["id"].(string)
	l, err := r.repo.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return l, nil
}

// createLink resolves Mutation.createLink(url, description).
func (r *Runtime) createLink(ctx context.Context, args map[string]any) (any, error) {
	url, _ := args["url"].(string)
	description, _ := args["description"].(string)
	l, err := r.repo.Create(ctx, url, description)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return l, nil
}
