// Package blueprint loads, validates, and caches agent definition documents.
package blueprint

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/orchd/internal/document"
)

// Loader parses Blueprint documents from a directory, caching the parsed
// result by agent id until explicitly invalidated.
type Loader struct {
	root         string
	defaultModel string

	mu    sync.RWMutex
	cache map[string]*document.Blueprint
}

// New creates a Loader rooted at dir. defaultModel is used when a blueprint
// omits the optional model override.
func New(dir, defaultModel string) *Loader {
	return &Loader{
		root:         dir,
		defaultModel: defaultModel,
		cache:        make(map[string]*document.Blueprint),
	}
}

// Load returns the parsed Blueprint for agentID, reading and caching it on
// first access. Subsequent calls are served from cache until Invalidate or
// ClearCache is called.
func (l *Loader) Load(agentID string) (*document.Blueprint, error) {
	l.mu.RLock()
	if bp, ok := l.cache[agentID]; ok {
		l.mu.RUnlock()
		return bp, nil
	}
	l.mu.RUnlock()

	path := filepath.Join(l.root, agentID+".md")
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("blueprint: read %s: %w", path, err)
	}

	bp, err := document.ParseBlueprint(agentID, string(content), l.defaultModel)
	if err != nil {
		return nil, fmt.Errorf("blueprint: parse %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[agentID] = bp
	l.mu.Unlock()
	return bp, nil
}

// Invalidate drops the cached entry for agentID, if any, forcing the next
// Load to re-read from disk.
func (l *Loader) Invalidate(agentID string) {
	l.mu.Lock()
	delete(l.cache, agentID)
	l.mu.Unlock()
}

// ClearCache drops every cached entry.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*document.Blueprint)
	l.mu.Unlock()
}

// List enumerates every blueprint file under root (including nested
// directories, via doublestar) and returns their agent ids, derived from
// each file's basename.
func (l *Loader) List() ([]string, error) {
	pattern := filepath.Join(l.root, "**", "*.md")
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("blueprint: glob %s: %w", pattern, err)
	}

	flat, err := filepath.Glob(filepath.Join(l.root, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("blueprint: glob %s: %w", l.root, err)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, m := range append(flat, matches...) {
		id := filepath.Base(m)
		id = id[:len(id)-len(filepath.Ext(id))]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Exists reports whether a blueprint file for agentID is present on disk,
// without parsing or caching it.
func (l *Loader) Exists(agentID string) bool {
	_, err := os.Stat(filepath.Join(l.root, agentID+".md"))
	return err == nil
}
