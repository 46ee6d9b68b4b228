package flow

import (
	"fmt"
	"path/filepath"
)

// DirLoader loads Flow documents by name from a flat directory of
// "<name>.yaml" files, caching parsed flows the way blueprint.Loader caches
// Blueprints.
type DirLoader struct {
	root  string
	cache map[string]*Flow
}

// NewDirLoader creates a DirLoader rooted at dir.
func NewDirLoader(dir string) *DirLoader {
	return &DirLoader{root: dir, cache: make(map[string]*Flow)}
}

// LoadFlow returns the parsed Flow named name (without extension), reading
// and caching it on first access.
func (d *DirLoader) LoadFlow(name string) (*Flow, error) {
	if f, ok := d.cache[name]; ok {
		return f, nil
	}
	path := filepath.Join(d.root, name+".yaml")
	f, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("flow: load %q: %w", name, err)
	}
	d.cache[name] = f
	return f, nil
}
