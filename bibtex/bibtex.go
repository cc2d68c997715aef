// Package bibtex parses brace-delimited bibliography exports, normalizes
// them to exactly one brace pair per field value, and builds publication
// records from entries.
package bibtex

import (
	"regexp"
	"strings"

	"github.com/scholarly-tools/pinmap/helpers"
)

// Entry is one parsed bibliography entry. Field names are lowercased and
// each value has one outer layer of braces or quotes removed.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
}

var (
	commentLineRegex = regexp.MustCompile(`(?m)^[ \t]*%.*$`)
	entryStartRegex  = regexp.MustCompile(`@([a-zA-Z]+)\s*\{`)
	fieldRegex       = regexp.MustCompile(`(?s)^\s*([a-zA-Z0-9_]+)\s*=\s*(.+?)\s*$`)
)

// Parse scans src for entries. The body of each entry is found by brace
// balancing (quotes tracked so braces inside quoted values do not count),
// so nested braces in field values survive intact for normalization.
func Parse(src string) []Entry {
	src = commentLineRegex.ReplaceAllString(src, "")

	var entries []Entry
	i := 0
	for {
		loc := entryStartRegex.FindStringSubmatchIndex(src[i:])
		if loc == nil {
			break
		}
		etype := strings.ToLower(src[i+loc[2] : i+loc[3]])
		bodyStart := i + loc[1]
		open := bodyStart - 1

		end, ok := matchBrace(src, open)
		if !ok {
			break
		}
		body := src[bodyStart:end]
		i = end + 1

		comma := strings.IndexByte(body, ',')
		if comma < 0 {
			continue
		}
		key := strings.TrimSpace(body[:comma])
		if key == "" {
			continue
		}

		entries = append(entries, Entry{
			Type:   etype,
			Key:    key,
			Fields: parseFields(body[comma+1:]),
		})
	}
	return entries
}

// matchBrace returns the index of the brace closing the one at open.
func matchBrace(src string, open int) (int, bool) {
	depth := 0
	inQuote := false
	for j := open; j < len(src); j++ {
		ch := src[j]
		if inQuote {
			if ch == '"' && src[j-1] != '\\' {
				inQuote = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuote = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}

// parseFields splits the field blob at depth-zero commas and parses each
// name = value token.
func parseFields(blob string) map[string]string {
	fields := make(map[string]string)

	var buf strings.Builder
	depth := 0
	inQuote := false

	flush := func() {
		token := strings.TrimSpace(buf.String())
		buf.Reset()
		if token == "" {
			return
		}
		if k, v, ok := parseField(token); ok {
			fields[strings.ToLower(k)] = v
		}
	}

	for i := 0; i < len(blob); i++ {
		ch := blob[i]
		if inQuote {
			buf.WriteByte(ch)
			if ch == '"' && i > 0 && blob[i-1] != '\\' {
				inQuote = false
			}
			continue
		}
		switch ch {
		case '"':
			inQuote = true
			buf.WriteByte(ch)
			continue
		case '{':
			depth++
		case '}':
			depth--
		}
		if ch == ',' && depth == 0 {
			flush()
			continue
		}
		buf.WriteByte(ch)
	}
	flush()

	return fields
}

func parseField(token string) (string, string, bool) {
	m := fieldRegex.FindStringSubmatch(token)
	if m == nil {
		return "", "", false
	}
	k := m[1]
	v := strings.TrimRight(strings.TrimSpace(m[2]), ",")
	v = strings.TrimSpace(v)

	// Remove one outer layer of {…} or "…".
	if len(v) >= 2 {
		if (v[0] == '{' && v[len(v)-1] == '}') || (v[0] == '"' && v[len(v)-1] == '"') {
			v = v[1 : len(v)-1]
		}
	}
	return k, helpers.NormalizeSpaces(v), true
}
