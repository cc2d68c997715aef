// Package doi normalizes document identifiers: bare DOIs, doi: prefixes,
// resolver URLs, and known publisher URL shapes.
package doi

import (
	"regexp"
	"strings"
)

var (
	doiRegex      = regexp.MustCompile(`(?i)10\.\d{4,9}/\S+`)
	doiPrefix     = regexp.MustCompile(`(?i)^\s*doi:\s*`)
	resolverRegex = regexp.MustCompile(`(?i)^https?://(dx\.)?doi\.org/`)
	arxivAbsRegex = regexp.MustCompile(`(?i)^https?://(?:www\.)?arxiv\.org/(?:abs|pdf)/([0-9]{4}\.[0-9]{4,5})(v\d+)?`)
)

// Parse extracts a bare DOI from raw text: a plain DOI, a doi: prefix, a
// resolver URL, or a DOI embedded anywhere in the string. It returns the
// empty string when no DOI is found.
func Parse(raw string) string {
	txt := strings.TrimSpace(raw)
	if txt == "" {
		return ""
	}

	txt = doiPrefix.ReplaceAllString(txt, "")
	txt = resolverRegex.ReplaceAllString(txt, "")

	txt = strings.TrimSpace(txt)
	txt = strings.Trim(txt, `[](){}<>'".,;`)
	if i := strings.IndexAny(txt, "?#"); i >= 0 {
		txt = txt[:i]
	}

	m := doiRegex.FindString(txt)
	if m == "" {
		return ""
	}
	return strings.TrimRight(m, `)].,;}>'"`)
}

// Canonical reduces a DOI or DOI URL to its lowercase bare form for use as
// a cache or match key. Unparsable input yields the empty string.
func Canonical(raw string) string {
	return strings.ToLower(Parse(raw))
}

// URL returns the resolver URL for a DOI, or the empty string.
func URL(raw string) string {
	d := Canonical(raw)
	if d == "" {
		return ""
	}
	return "https://doi.org/" + d
}

// FromURLShape maps known publisher URL shapes that do not embed a DOI
// directly onto their registered DOI. Currently arXiv abs/pdf links, which
// resolve under the 10.48550 prefix.
func FromURLShape(rawURL string) string {
	if m := arxivAbsRegex.FindStringSubmatch(strings.TrimSpace(rawURL)); m != nil {
		return "10.48550/arxiv." + m[1]
	}
	return ""
}
