// Package document parses the markdown control documents the daemon reads
// and writes: Requests, Plans, and Blueprints. All three share the same
// YAML-frontmatter-then-body shape.
package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter is returned by ExtractFrontmatter when the document has no
// opening "---" fence. Callers that accept frontmatter-less documents (e.g.
// blueprints, for back-compat) treat this as "no frontmatter" rather than an
// error.
var ErrNoFrontmatter = fmt.Errorf("document: no frontmatter fence")

// Parsed holds the split-out frontmatter and body of a markdown document.
type Parsed struct {
	Frontmatter map[string]any
	Body        string
}

// ExtractFrontmatter splits a markdown document into its YAML frontmatter
// (delimited by "---" fences) and body. If the document does not begin with
// a frontmatter fence, it returns ErrNoFrontmatter and the body set to the
// full content.
func ExtractFrontmatter(content string) (Parsed, error) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return Parsed{Body: content}, ErrNoFrontmatter
	}

	start := len("---")
	if start < len(content) && content[start] == '\r' {
		start++
	}
	if start < len(content) && content[start] == '\n' {
		start++
	}

	rest := content[start:]
	closeIdx := strings.Index(rest, "\n---")
	if closeIdx == -1 {
		return Parsed{Body: content}, fmt.Errorf("document: no closing frontmatter fence")
	}

	yamlContent := rest[:closeIdx]
	bodyStart := closeIdx + len("\n---")
	body := rest[bodyStart:]
	body = strings.TrimPrefix(body, "\r")
	body = strings.TrimPrefix(body, "\n")
	// Consume one more \n if the fence line ended \r\n.
	body = strings.TrimPrefix(body, "\n")

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return Parsed{Body: content}, fmt.Errorf("document: parse frontmatter: %w", err)
	}
	if fm == nil {
		fm = map[string]any{}
	}

	return Parsed{Frontmatter: fm, Body: body}, nil
}

// Render reassembles frontmatter + body into a document, re-serializing the
// frontmatter map as YAML. Used by RequestProcessor to emit Plan documents.
func Render(fm map[string]any, body string) (string, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("document: marshal frontmatter: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(data)
	sb.WriteString("---\n\n")
	sb.WriteString(body)
	return sb.String(), nil
}

// StringField reads a string field from a frontmatter map, returning "" if
// absent or not a string.
func StringField(fm map[string]any, key string) string {
	v, ok := fm[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// IntField reads an integer field, tolerating YAML's int/float ambiguity.
func IntField(fm map[string]any, key string, def int) int {
	v, ok := fm[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

// StringSliceField reads a []string field, tolerating YAML's []any decoding.
func StringSliceField(fm map[string]any, key string) []string {
	v, ok := fm[key]
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
