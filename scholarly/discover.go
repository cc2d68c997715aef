package scholarly

import (
	"log/slog"

	"github.com/scholarly-tools/pinmap/doi"
)

// DiscoverDOI finds the canonical DOI for a publication that may not carry
// one directly. Stages, first success wins:
//  1. parse a DOI out of the identifier-bearing field values;
//  2. map known publisher URL shapes onto their registered DOI;
//  3. search OpenAlex by exact-normalized title;
//  4. search Crossref by exact-normalized title.
func DiscoverDOI(oa *OpenAlex, cr *Crossref, title string, fields ...string) (string, bool) {
	for _, f := range fields {
		if d := doi.Canonical(f); d != "" {
			return d, true
		}
	}

	for _, f := range fields {
		if d := doi.FromURLShape(f); d != "" {
			return d, true
		}
	}

	if d, ok := oa.FindDOIByTitle(title); ok {
		slog.Debug("doi discovered via openalex title search", "title", title, "doi", d)
		return d, true
	}
	if d, ok := cr.FindDOIByTitle(title); ok {
		slog.Debug("doi discovered via crossref title search", "title", title, "doi", d)
		return d, true
	}
	return "", false
}
