package store

import (
	"context"
	"strconv"
	"sync"
)

// Memory is a Repository held in process memory. Ids are sequential integers.
type Memory struct {
	mu    sync.RWMutex
	links map[string]*Link
	order []string
	next  int
}

var _ Repository = (*Memory)(nil)

// NewMemory returns a Memory repository holding copies of seed.
func NewMemory(seed ...*Link) *Memory {
	m := &Memory{links: make(map[string]*Link)}
	for _, l := range seed {
		m.insert(l.URL, l.Description)
	}
	return m
}

func (m *Memory) insert(url, description string) *Link {
	m.next++
	l := &Link{ID: strconv.Itoa(m.next), URL: url, Description: description}
	m.links[l.ID] = l
	m.order = append(m.order, l.ID)
	return l
}

func (m *Memory) All(ctx context.Context, filter Filter) ([]*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Link, 0, len(m.order))
	for _, id := range m.order {
		if l := m.links[id]; filter.Match(l) {
			c := *l
			out = append(out, &c)
		}
	}
	return filter.Page(out), nil
}

func (m *Memory) Get(ctx context.Context, id string) (*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.links[strconv.FormatUint(n, 10)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *l
	return &c, nil
}

func (m *Memory) Create(ctx context.Context, url, description string) (*Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateURL(url); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *m.insert(url, description)
	return &c, nil
}

func (m *Memory) Close() error { return nil }
