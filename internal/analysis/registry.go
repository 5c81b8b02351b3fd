package analysis

import (
	"fmt"
	"sync"
)

// Registry manages analyzer instances by name.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[string]Analyzer
}

// NewRegistry creates a Registry with the built-in analyzers registered.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: map[string]Analyzer{
			"standard":   NewStandardAnalyzer(),
			"whitespace": NewWhitespaceAnalyzer(),
			"keyword":    NewKeywordAnalyzer(),
		},
	}
}

// Get returns the analyzer registered under the given name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("unknown analyzer: %q", name)
	}
	return a, nil
}

// Register adds a custom analyzer to the registry.
func (r *Registry) Register(name string, a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyzers[name]; exists {
		return fmt.Errorf("analyzer already registered: %q", name)
	}
	r.analyzers[name] = a
	return nil
}
