// Package store persists the links served by the GraphQL API.
package store

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when no link has the requested id.
var ErrNotFound = errors.New("link not found")

// Link is a shared URL.
type Link struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Filter narrows and pages the result of Repository.All. Empty substrings
// match everything; First == 0 means no limit.
type Filter struct {
	URLContains         string
	DescriptionContains string
	Skip                int
	First               int
}

// Match reports whether l satisfies the substring conditions of f.
func (f Filter) Match(l *Link) bool {
	return strings.Contains(l.URL, f.URLContains) &&
		strings.Contains(l.Description, f.DescriptionContains)
}

// Page applies Skip and First to links that already passed Match.
func (f Filter) Page(links []*Link) []*Link {
	if f.Skip >= len(links) {
		return []*Link{}
	}
	links = links[f.Skip:]
	if f.First > 0 && f.First < len(links) {
		links = links[:f.First]
	}
	return links
}

// Repository stores links. Implementations are safe for concurrent use and
// return links in creation order.
type Repository interface {
	All(ctx context.Context, filter Filter) ([]*Link, error)
	Get(ctx context.Context, id string) (*Link, error)
	Create(ctx context.Context, url, description string) (*Link, error)
	Close() error
}

// DefaultLinks are stored into an empty repository on open.
func DefaultLinks() []*Link {
	return []*Link{
		{URL: "https://howtographql.com", Description: "Fullstack tutorial for GraphQL"},
		{URL: "https://graphql.org/learn/", Description: "Official GraphQL documentation"},
	}
}

const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendMySQL  = "mysql"
)

// Config selects and locates a backend.
type Config struct {
	Backend string
	// Path is the badger directory; empty runs badger in memory.
	Path string
	// DSN is the go-sql-driver/mysql data source name.
	DSN string
}

// Open opens the configured backend and seeds it with DefaultLinks when it
// holds no links yet.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Repository, error) {
	var (
		repo Repository
		err  error
	)
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(DefaultLinks()...), nil
	case BackendBadger:
		repo, err = OpenBadger(cfg.Path, cfg.Path == "", logger)
	case BackendMySQL:
		repo, err = OpenMySQL(ctx, cfg.DSN)
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := seed(ctx, repo, DefaultLinks()); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

func seed(ctx context.Context, repo Repository, links []*Link) error {
	existing, err := repo.All(ctx, Filter{First: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, l := range links {
		if _, err := repo.Create(ctx, l.URL, l.Description); err != nil {
			return errors.Wrap(err, "seed links")
		}
	}
	return nil
}

// parseID reads a link id. Ids are decimal integers, so "01" and "1" name
// the same link; every backend reports the canonical form.
func parseID(id string) (uint64, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

func validateURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("url must not be empty")
	}
	return nil
}
