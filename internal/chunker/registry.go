package chunker

import (
	"path/filepath"
	"strings"
	"sync"
)

// Format names a document type the chunker accepts.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Registry maps file extensions to document formats.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Format // extension (without dot) → format
}

// NewRegistry returns a registry with the markdown and plain-text
// extensions registered.
func NewRegistry() *Registry {
	r := &Registry{formats: make(map[string]Format)}
	r.Register(FormatMarkdown, "md", "markdown")
	r.Register(FormatText, "txt")
	return r
}

// Register adds extensions for a format.
func (r *Registry) Register(f Format, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.formats[strings.ToLower(strings.TrimPrefix(ext, "."))] = f
	}
}

// Lookup returns the format for a file path based on its extension.
func (r *Registry) Lookup(path string) (Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formats[ext]
	return f, ok
}

// Extensions returns the set of all registered file extensions (without dot).
func (r *Registry) Extensions() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make(map[string]bool, len(r.formats))
	for ext := range r.formats {
		exts[ext] = true
	}
	return exts
}
