package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[string]EntityDefinition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if an entity with the same name is already registered.
func Register(def EntityDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Entity.Name]; exists {
		panic(fmt.Sprintf("entity already registered: %s", def.Entity.Name))
	}

	if def.Collection == "" {
		def.Collection = strings.ToLower(def.Entity.Name)
	}
	if def.Entity.Label == "" {
		def.Entity.Label = def.Entity.Name
	}

	registry[def.Entity.Name] = def
}

// Get returns an entity definition by name.
// Returns false if not found.
func Get(name string) (EntityDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// All returns all registered entity definitions.
// Sorted by group then by name for consistent ordering.
func All() []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]EntityDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Entity.Group != result[j].Entity.Group {
			return result[i].Entity.Group < result[j].Entity.Group
		}
		return result[i].Entity.Name < result[j].Entity.Name
	})

	return result
}

// ByGroup returns all entity definitions for a specific group.
// Sorted by name for consistent ordering.
func ByGroup(group string) []EntityDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []EntityDefinition
	for _, def := range registry {
		if def.Entity.Group == group {
			result = append(result, def)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Entity.Name < result[j].Entity.Name
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, def := range registry {
		seen[def.Entity.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// Count returns the number of registered entities.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]EntityDefinition)
}
