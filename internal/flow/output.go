package flow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// renderOutput formats value according to format.
func renderOutput(value any, format OutputFormat) (string, error) {
	switch format {
	case OutputJSON:
		b, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("flow: render json output: %w", err)
		}
		return string(b), nil

	case OutputMarkdown:
		return renderMarkdown(value), nil

	case OutputRaw, "":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", value), nil

	default:
		return "", fmt.Errorf("flow: unknown output format %q", format)
	}
}

// renderMarkdown walks a nested map/slice/scalar value into markdown:
// title-cased headings, a preferred section order for known keys, and
// sorted-alphabetical fallback for unknown ones.
func renderMarkdown(value any) string {
	var sb strings.Builder
	writeMarkdownValue(&sb, value, 1)
	return strings.TrimRight(sb.String(), "\n")
}

var preferredSectionOrder = []string{
	"summary", "result", "output", "changes", "files", "diagnostics", "notes",
}

func writeMarkdownValue(sb *strings.Builder, value any, level int) {
	switch v := value.(type) {
	case map[string]any:
		for _, entry := range orderedEntries(v) {
			for i := 0; i < level; i++ {
				sb.WriteString("#")
			}
			sb.WriteString(" ")
			sb.WriteString(titleCase(entry.key))
			sb.WriteString("\n\n")
			writeMarkdownValue(sb, entry.value, level+1)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				sb.WriteString("- ")
				sb.WriteString(s)
				sb.WriteString("\n")
				continue
			}
			sb.WriteString(fmt.Sprintf("- %v\n", item))
		}
		sb.WriteString("\n")
	case string:
		sb.WriteString(v)
		sb.WriteString("\n\n")
	default:
		sb.WriteString(fmt.Sprintf("%v\n\n", v))
	}
}

type markdownEntry struct {
	key   string
	value any
}

func orderedEntries(m map[string]any) []markdownEntry {
	order := make(map[string]int, len(preferredSectionOrder))
	for i, k := range preferredSectionOrder {
		order[k] = i
	}

	entries := make([]markdownEntry, 0, len(m))
	for k, v := range m {
		entries = append(entries, markdownEntry{key: k, value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		oi, oki := order[entries[i].key]
		oj, okj := order[entries[j].key]
		if oki && okj {
			return oi < oj
		}
		if oki {
			return true
		}
		if okj {
			return false
		}
		return entries[i].key < entries[j].key
	})
	return entries
}

func titleCase(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) == 0 {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
