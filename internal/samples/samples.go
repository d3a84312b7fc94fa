// Package samples ships example platform engineering documents for trying
// out the knowledge base.
package samples

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

//go:embed docs/*.md
var docs embed.FS

// Names returns the sample file names in sorted order.
func Names() []string {
	entries, _ := fs.ReadDir(docs, "docs")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Write copies every sample document into dir, creating it if needed, and
// returns the written paths.
func Write(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create samples dir: %w", err)
	}

	var paths []string
	for _, name := range Names() {
		data, err := docs.ReadFile("docs/" + name)
		if err != nil {
			return nil, fmt.Errorf("read sample %s: %w", name, err)
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write sample %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
