// Package content models the personal academic dataset: categorized records
// for experience, talks, projects, and publications, with a loader tolerant
// of hand-edited JSON and merge logic for bibliography-derived records.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Experience is one work-experience entry.
type Experience struct {
	Org   string `json:"org,omitempty"`
	Title string `json:"title,omitempty"`
	Dates string `json:"dates,omitempty"`
	Desc  string `json:"desc,omitempty"`
}

// DisplayOrg returns the organization string, falling back to the title.
func (e Experience) DisplayOrg() string {
	if org := strings.TrimSpace(e.Org); org != "" {
		return org
	}
	return strings.TrimSpace(e.Title)
}

// Talk is one talk or presentation entry.
type Talk struct {
	Title string `json:"title,omitempty"`
	Place string `json:"place,omitempty"`
	Date  string `json:"date,omitempty"`
}

// Project is one project entry. Projects are never auto-located: a pin is
// produced only from an override or an explicit Place.
type Project struct {
	Title string `json:"title,omitempty"`
	Desc  string `json:"desc,omitempty"`
	Place string `json:"place,omitempty"`
}

// Publication is one publication entry. The field set mirrors the site's
// dataset schema; Year may arrive as a JSON number or string.
type Publication struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Year    Year   `json:"year"`
	Type    string `json:"type"`
	Summary string `json:"summary"`
	PDF     string `json:"pdf"`
	DOI     string `json:"doi"`
	Cite    string `json:"cite"`
	Data    string `json:"data"`
	Code    string `json:"code"`
	Viz     string `json:"viz"`
	Thumb   string `json:"thumb"`
}

// Year holds a publication year that may be numeric or free text.
type Year string

// UnmarshalJSON accepts both string and number forms.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*y = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = Year(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*y = Year(n.String())
	return nil
}

// MarshalJSON emits numeric years as JSON numbers, everything else as strings.
func (y Year) MarshalJSON() ([]byte, error) {
	s := string(y)
	if isDigits(s) {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Document is the full dataset. Sections the tool does not model are kept
// verbatim so a merge never discards them.
type Document struct {
	Experience   []Experience  `json:"experience,omitempty"`
	Talks        []Talk        `json:"talks,omitempty"`
	Projects     []Project     `json:"projects,omitempty"`
	Publications []Publication `json:"publications,omitempty"`

	extra map[string]json.RawMessage
}

var knownSections = map[string]bool{
	"experience":   true,
	"talks":        true,
	"projects":     true,
	"publications": true,
}

// UnmarshalJSON decodes the known sections and retains the rest.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias Document
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Document(a)

	for k, v := range raw {
		if knownSections[k] {
			continue
		}
		if d.extra == nil {
			d.extra = make(map[string]json.RawMessage)
		}
		d.extra[k] = v
	}
	return nil
}

// MarshalJSON emits the known sections plus any retained ones.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+4)
	for k, v := range d.extra {
		out[k] = v
	}
	if d.Experience != nil {
		out["experience"] = d.Experience
	}
	if d.Talks != nil {
		out["talks"] = d.Talks
	}
	if d.Projects != nil {
		out["projects"] = d.Projects
	}
	if d.Publications != nil {
		out["publications"] = d.Publications
	}
	return json.Marshal(out)
}

var (
	blockCommentRegex  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRegex   = regexp.MustCompile(`(?m)^\s*//.*$`)
	inlineCommentRegex = regexp.MustCompile(`(?m)([^:])//.*$`)
	trailingCommaRegex = regexp.MustCompile(`,\s*([\]}])`)
)

// StripJSONRelaxations removes a BOM, /* */ and // comments, and trailing
// commas so hand-edited documents still parse.
func StripJSONRelaxations(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = blockCommentRegex.ReplaceAllString(s, "")
	s = lineCommentRegex.ReplaceAllString(s, "")
	s = inlineCommentRegex.ReplaceAllString(s, "$1")
	s = trailingCommaRegex.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// Load reads and decodes the dataset document at path. It tries strict JSON
// first, then relaxed parsing. A missing or unparsable file is an error; the
// caller decides whether that is fatal.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err == nil {
		return &doc, nil
	}

	fixed := StripJSONRelaxations(string(data))
	if err := json.Unmarshal([]byte(fixed), &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

// LoadOrSkeleton is Load, except missing or unparsable input degrades to an
// empty document instead of an error. Used by the bibliography merge, where
// the dataset is an optional starting point.
func LoadOrSkeleton(path string) *Document {
	doc, err := Load(path)
	if err != nil {
		return &Document{}
	}
	return doc
}

// Write encodes the document to path as indented JSON.
func Write(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
