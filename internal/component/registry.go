// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name>.  Components need
// runtime dependencies (session store, CSRF tokens, region catalog), so
// cmd/web builds them and calls Register once at boot; MountAll then
// mounts every component's Routes() at “/<name>”.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Component contract.
//
// Routes() is relative to the mount point and should carry BOTH page and
// API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/", page)
//	r.Route("/api", func(api chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register adds c, replacing any component with the same name.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// MountAll mounts every registered component's routes on r at “/<name>”.
func MountAll(r chi.Router) {
	for _, c := range All() {
		r.Mount("/"+c.Name(), c.Routes())
	}
}
