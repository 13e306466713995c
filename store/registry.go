package store

import (
	"context"
	"sort"
	"sync"

	"github.com/autom8ter/ideabase/errors"
)

// Opener opens a document store from provider specific params
type Opener func(ctx context.Context, params map[string]any) (Store, error)

var (
	mu                sync.RWMutex
	registeredOpeners = map[string]Opener{}
)

// Register registers a store Opener by provider name
func Register(name string, opener Opener) {
	mu.Lock()
	defer mu.Unlock()
	registeredOpeners[name] = opener
}

// Open opens a registered document store
func Open(ctx context.Context, name string, params map[string]any) (Store, error) {
	mu.RLock()
	opener, ok := registeredOpeners[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.NotFound, "store provider %s is not registered", name)
	}
	return opener(ctx, params)
}

// Providers returns the names of all registered providers
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	var names []string
	for name := range registeredOpeners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
