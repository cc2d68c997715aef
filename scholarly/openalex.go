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

// DefaultOpenAlexBaseURL is the public OpenAlex works endpoint.
const DefaultOpenAlexBaseURL = "https://api.openalex.org/works"

// OpenAlex resolves DOIs to work records via the OpenAlex index.
type OpenAlex struct {
	Fetch   *fetch.Client
	Cache   *cache.Store
	BaseURL string
}

// NewOpenAlex builds an OpenAlex client against the public index.
func NewOpenAlex(f *fetch.Client, store *cache.Store) *OpenAlex {
	return &OpenAlex{Fetch: f, Cache: store, BaseURL: DefaultOpenAlexBaseURL}
}

// openAlexWork models the slice of an OpenAlex work record pinmap reads.
type openAlexWork struct {
	DisplayName string `json:"display_name"`
	DOI         string `json:"doi"`
	Authorships []struct {
		Institutions []struct {
			DisplayName string `json:"display_name"`
			ROR         string `json:"ror"`
			CountryCode string `json:"country_code"`
			Geo         *struct {
				City      string   `json:"city"`
				Country   string   `json:"country"`
				Latitude  *float64 `json:"latitude"`
				Longitude *float64 `json:"longitude"`
			} `json:"geo"`
		} `json:"institutions"`
	} `json:"authorships"`
}

type openAlexSearch struct {
	Results []openAlexWork `json:"results"`
}

// Work fetches the OpenAlex record for a DOI, cached by the canonical DOI.
// Two URL forms are tried: the doi: shorthand, then the full resolver URL.
func (o *OpenAlex) Work(rawDOI string) (json.RawMessage, bool) {
	d := doi.Canonical(rawDOI)
	if d == "" {
		return nil, false
	}

	var raw json.RawMessage
	if found, ok := o.Cache.Get(d, &raw); found {
		if !ok {
			return nil, false
		}
		slog.Debug("openalex cache hit", "doi", d)
		return raw, true
	}

	urls := []string{
		o.BaseURL + "/doi:" + d,
		o.BaseURL + "/https://doi.org/" + d,
	}
	for _, u := range urls {
		if err := o.Fetch.GetJSON(u, nil, &raw); err != nil {
			slog.Debug("openalex fetch failed", "url", u, "error", err)
			raw = nil
			continue
		}
		break
	}

	if raw == nil {
		o.put(d, nil)
		return nil, false
	}
	o.put(d, raw)
	return raw, true
}

// Affiliations extracts affiliation candidates from a work record: one per
// authorship institution, carrying coordinates when the index has geo data,
// else a registry id, else just the display name.
func (o *OpenAlex) Affiliations(raw json.RawMessage) []Affiliation {
	if raw == nil {
		return nil
	}
	var work openAlexWork
	if err := json.Unmarshal(raw, &work); err != nil {
		slog.Debug("openalex record undecodable", "error", err)
		return nil
	}

	var out []Affiliation
	for _, au := range work.Authorships {
		for _, inst := range au.Institutions {
			name := strings.TrimSpace(inst.DisplayName)
			aff := Affiliation{
				Name: name,
				ROR:  strings.TrimSpace(inst.ROR),
			}

			if geo := inst.Geo; geo != nil && geo.Latitude != nil && geo.Longitude != nil {
				aff.Lat = geo.Latitude
				aff.Lon = geo.Longitude
				aff.City = geo.City
				aff.Country = geo.Country
				if aff.Country == "" {
					aff.Country = inst.CountryCode
				}
			} else if aff.ROR == "" && name == "" {
				continue
			}
			out = append(out, aff)
		}
	}
	return out
}

// FindDOIByTitle searches the index for a work whose title matches exactly
// under normalization, returning its canonical DOI.
func (o *OpenAlex) FindDOIByTitle(title string) (string, bool) {
	norm := helpers.NormalizeTitle(title)
	if norm == "" {
		return "", false
	}
	key := "title::" + norm

	var resp openAlexSearch
	found, ok := o.Cache.Get(key, &resp)
	if found && !ok {
		return "", false
	}
	if !found {
		params := url.Values{
			"filter":   {"title.search:" + norm},
			"per-page": {"10"},
		}
		if err := o.Fetch.GetJSON(o.BaseURL, params, &resp); err != nil {
			slog.Debug("openalex title search failed", "title", norm, "error", err)
			o.put(key, nil)
			return "", false
		}
		o.put(key, resp)
	}

	for _, w := range resp.Results {
		if helpers.NormalizeTitle(w.DisplayName) == norm {
			if d := doi.Canonical(w.DOI); d != "" {
				return d, true
			}
		}
	}
	return "", false
}

func (o *OpenAlex) put(key string, v any) {
	if err := o.Cache.Put(key, v); err != nil {
		slog.Warn("failed to cache openalex record", "key", key, "error", err)
	}
}
