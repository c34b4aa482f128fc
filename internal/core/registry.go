package core

import (
	"fmt"
	"sort"
	"sync"
)

// DocumentDefinition describes one generated document type.
type DocumentDefinition struct {
	Type  DocumentType
	Name  string // output file name without extension
	Order int    // generation order, ascending
	// Include reports whether the document applies to the model.
	// A nil Include means always.
	Include func(*DocumentModel) bool
}

// Applies reports whether the document should be generated for m.
func (d DocumentDefinition) Applies(m *DocumentModel) bool {
	return d.Include == nil || d.Include(m)
}

var (
	registry   = make(map[DocumentType]DocumentDefinition)
	registryMu sync.RWMutex
)

// Register adds a document definition to the registry.
// Panics if a document with the same type is already registered.
func Register(def DocumentDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("document already registered: %s", def.Type))
	}
	registry[def.Type] = def
}

// Get returns a document definition by type.
// Returns false if not found.
func Get(t DocumentType) (DocumentDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[t]
	return def, ok
}

// All returns all registered document definitions.
// Sorted by Order then by type for consistent ordering.
func All() []DocumentDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DocumentDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].Type < result[j].Type
	})

	return result
}

// ForModel returns the documents that apply to m, in generation order.
func ForModel(m *DocumentModel) []DocumentDefinition {
	var out []DocumentDefinition
	for _, def := range All() {
		if def.Applies(m) {
			out = append(out, def)
		}
	}
	return out
}

// DocumentCount returns the number of registered documents.
func DocumentCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
