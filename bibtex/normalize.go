package bibtex

import (
	"fmt"
	"sort"
	"strings"
)

// preferredFieldOrder lists the fields emitted first, in this order; any
// remaining fields follow alphabetically.
var preferredFieldOrder = []string{
	"author", "title", "year", "journal", "booktitle", "publisher", "editor",
	"volume", "number", "pages", "doi", "url", "institution", "organization",
	"address", "month", "note", "abstract", "keywords", "file",
}

// FormatEntry writes a clean entry with exactly one brace pair per field
// value and no inner braces.
func FormatEntry(e Entry) string {
	norm := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		norm[k] = "{" + FlattenValue(v) + "}"
	}

	var ordered []string
	for _, k := range preferredFieldOrder {
		if _, ok := norm[k]; ok {
			ordered = append(ordered, k)
		}
	}
	var rest []string
	for k := range norm {
		if !inOrder(k) {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", e.Type, e.Key)
	for i, k := range ordered {
		fmt.Fprintf(&b, "  %s = %s", k, norm[k])
		if i < len(ordered)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("}")
	return b.String()
}

func inOrder(k string) bool {
	for _, p := range preferredFieldOrder {
		if k == p {
			return true
		}
	}
	return false
}

// Normalize parses src and re-emits every entry in normalized form.
func Normalize(src string) string {
	entries := Parse(src)
	chunks := make([]string, 0, len(entries))
	for _, e := range entries {
		chunks = append(chunks, FormatEntry(e))
	}
	return strings.Join(chunks, "\n\n") + "\n"
}
