package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/catalog/internal/bitacora"
)

var (
	ErrUnknownEntity   = errors.New("unknown entity")
	ErrUnsupportedVerb = errors.New("unsupported verb")
)

// Handlers is an in-process Dispatcher: a table of handlers keyed by entity
// and verb. Safe for concurrent use.
type Handlers struct {
	mu     sync.RWMutex
	routes map[string]map[Verb]Handler
}

// NewHandlers creates an empty handler table.
func NewHandlers() *Handlers {
	return &Handlers{routes: make(map[string]map[Verb]Handler)}
}

// On registers h, replacing any handler already set for verb and entity.
func (h *Handlers) On(verb Verb, entity string, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	verbs, ok := h.routes[entity]
	if !ok {
		verbs = make(map[Verb]Handler, len(Verbs))
		h.routes[entity] = verbs
	}
	verbs[verb] = handler
}

// Lookup returns the handler for verb and entity.
func (h *Handlers) Lookup(verb Verb, entity string) (Handler, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	verbs, ok := h.routes[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	handler, ok := verbs[verb]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrUnsupportedVerb, verb, entity)
	}
	return handler, nil
}

// Dispatch runs the handler for verb and entity against req.
func (h *Handlers) Dispatch(verb Verb, entity string, req Request) (bitacora.Response, error) {
	handler, err := h.Lookup(verb, entity)
	if err != nil {
		return bitacora.Response{}, err
	}
	return handler(req), nil
}

// Entities returns the names of all entities with at least one handler, sorted.
func (h *Handlers) Entities() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.routes))
	for name := range h.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
