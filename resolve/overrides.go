package resolve

import (
	"log/slog"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scholarly-tools/pinmap/geocode"
)

// Overrides maps a section name to keyword → literal place string. A keyword
// matches by case-insensitive substring against the record text; the mapped
// place string is geocoded instead of anything the record itself says.
type Overrides map[string]map[string]string

// LoadOverrides reads the override file at path. YAML and JSON both parse
// (JSON is a YAML subset). A missing path yields an empty map; a malformed
// file degrades to empty with a warning.
func LoadOverrides(path string) Overrides {
	if path == "" {
		return Overrides{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("override file unreadable, ignoring", "path", path, "error", err)
		}
		return Overrides{}
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		slog.Warn("override file malformed, ignoring", "path", path, "error", err)
		return Overrides{}
	}
	if o == nil {
		o = Overrides{}
	}
	return o
}

// Lookup returns the normalized override place for the first keyword in the
// section that occurs within needle, case-insensitively. Keywords are tried
// in sorted order so a record matching several keywords resolves the same
// way on every run.
func (o Overrides) Lookup(section, needle string) (string, bool) {
	needle = strings.ToLower(needle)

	keywords := make([]string, 0, len(o[section]))
	for kw := range o[section] {
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	sort.Strings(keywords)

	for _, kw := range keywords {
		if strings.Contains(needle, strings.ToLower(kw)) {
			return geocode.NormalizePlace(o[section][kw]), true
		}
	}
	return "", false
}
