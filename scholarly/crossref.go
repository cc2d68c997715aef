package scholarly

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/doi"
	"github.com/scholarly-tools/pinmap/fetch"
	"github.com/scholarly-tools/pinmap/helpers"
)

// DefaultCrossrefBaseURL is the public Crossref works endpoint.
const DefaultCrossrefBaseURL = "https://api.crossref.org/works"

// Crossref resolves DOIs to work records via the Crossref index. It is an
// independent second source of affiliations, used as a union or fallback
// alongside OpenAlex.
type Crossref struct {
	Fetch   *fetch.Client
	Cache   *cache.Store
	BaseURL string
}

// NewCrossref builds a Crossref client against the public index.
func NewCrossref(f *fetch.Client, store *cache.Store) *Crossref {
	return &Crossref{Fetch: f, Cache: store, BaseURL: DefaultCrossrefBaseURL}
}

// crossrefWork models the slice of a Crossref message pinmap reads.
type crossrefWork struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	Author []struct {
		Affiliation []struct {
			Name string `json:"name"`
			ID   []struct {
				Type   string `json:"type"`
				IDType string `json:"id-type"`
				Value  string `json:"value"`
				ID     string `json:"id"`
			} `json:"id"`
		} `json:"affiliation"`
	} `json:"author"`
}

// Work fetches the Crossref message for a DOI, cached by the canonical DOI.
func (c *Crossref) Work(rawDOI string) (json.RawMessage, bool) {
	d := doi.Canonical(rawDOI)
	if d == "" {
		return nil, false
	}

	var raw json.RawMessage
	if found, ok := c.Cache.Get(d, &raw); found {
		if !ok {
			return nil, false
		}
		slog.Debug("crossref cache hit", "doi", d)
		return raw, true
	}

	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := c.Fetch.GetJSON(c.BaseURL+"/"+d, nil, &envelope); err != nil {
		slog.Debug("crossref fetch failed", "doi", d, "error", err)
		c.put(d, nil)
		return nil, false
	}

	c.put(d, envelope.Message)
	return envelope.Message, true
}

// Affiliations extracts affiliation candidates from a Crossref message:
// the affiliation name plus any registry identifier embedded in the
// source's own author affiliation block.
func (c *Crossref) Affiliations(raw json.RawMessage) []Affiliation {
	if raw == nil {
		return nil
	}
	var work crossrefWork
	if err := json.Unmarshal(raw, &work); err != nil {
		slog.Debug("crossref record undecodable", "error", err)
		return nil
	}

	var out []Affiliation
	for _, au := range work.Author {
		for _, aff := range au.Affiliation {
			name := strings.TrimSpace(aff.Name)
			if name == "" {
				continue
			}
			candidate := Affiliation{Name: name}
			for _, id := range aff.ID {
				idType := strings.ToUpper(id.Type + id.IDType)
				if !strings.Contains(idType, "ROR") {
					continue
				}
				if v := strings.TrimSpace(id.Value); v != "" {
					candidate.ROR = v
				} else if v := strings.TrimSpace(id.ID); v != "" {
					candidate.ROR = v
				}
				if candidate.ROR != "" {
					break
				}
			}
			out = append(out, candidate)
		}
	}
	return out
}

// FindDOIByTitle searches the index for a work whose title matches exactly
// under normalization, returning its canonical DOI.
func (c *Crossref) FindDOIByTitle(title string) (string, bool) {
	norm := helpers.NormalizeTitle(title)
	if norm == "" {
		return "", false
	}
	key := "title::" + norm

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	found, ok := c.Cache.Get(key, &resp)
	if found && !ok {
		return "", false
	}
	if !found {
		params := url.Values{
			"query.title": {norm},
			"rows":        {"10"},
		}
		if err := c.Fetch.GetJSON(c.BaseURL, params, &resp); err != nil {
			slog.Debug("crossref title search failed", "title", norm, "error", err)
			c.put(key, nil)
			return "", false
		}
		c.put(key, resp)
	}

	for _, item := range resp.Message.Items {
		for _, t := range item.Title {
			if helpers.NormalizeTitle(t) == norm {
				if d := doi.Canonical(item.DOI); d != "" {
					return d, true
				}
			}
		}
	}
	return "", false
}

func (c *Crossref) put(key string, v any) {
	if err := c.Cache.Put(key, v); err != nil {
		slog.Warn("failed to cache crossref record", "key", key, "error", err)
	}
}
