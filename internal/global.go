package internal

import "sync"

// GlobalContext is the process-wide key-value store.
// It backs UseContext/UseSetContext outside of requests and serves as the
// fallback for keys a request has not set. Writes are last-write-wins.
type GlobalContext struct {
	values map[string]any
	mu     sync.RWMutex
}

// NewGlobalContext creates an empty store.
func NewGlobalContext() *GlobalContext {
	return &GlobalContext{values: make(map[string]any)}
}

// Get returns the value stored under key.
func (g *GlobalContext) Get(key string) (any, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.values[key]
	return v, ok
}

// Set stores value under key.
func (g *GlobalContext) Set(key string, value any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.values[key] = value
}

// Delete removes key.
func (g *GlobalContext) Delete(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.values, key)
}

var defaultGlobal = NewGlobalContext()

// Global returns the process-wide store.
func Global() *GlobalContext {
	return defaultGlobal
}
