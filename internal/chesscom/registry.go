package chesscom

import (
	"strings"
	"sync"
)

// Registry holds the single live instance per normalized key for one entity
// kind. Entries are never removed.
type Registry[E any] struct {
	mu      sync.Mutex
	items   map[string]*E
	build   func(key string) *E
	created func(key string)
}

func NewRegistry[E any](build func(key string) *E, created func(key string)) *Registry[E] {
	return &Registry[E]{
		items:   make(map[string]*E),
		build:   build,
		created: created,
	}
}

// GetOrCreate returns the instance registered for key, building it on first
// request. The builder receives the key with its original casing and must not
// perform I/O, since it runs under the registry lock.
func (r *Registry[E]) GetOrCreate(key string) *E {
	norm := normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.items[norm]; ok {
		return e
	}
	e := r.build(key)
	r.items[norm] = e
	if r.created != nil {
		r.created(key)
	}
	return e
}

func (r *Registry[E]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func normalizeKey(key string) string {
	return strings.ToLower(key)
}
