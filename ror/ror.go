// Package ror looks up organizations in the Research Organization Registry:
// direct fetch by identifier, fuzzy search by name, and coordinate
// extraction from the returned address records.
package ror

import (
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/fetch"
	"github.com/scholarly-tools/pinmap/geocode"
)

// DefaultBaseURL is the public ROR API endpoint.
const DefaultBaseURL = "https://api.ror.org/organizations"

// Record is an organization registry record. Only the fields pinmap reads
// are modeled; the raw payload is what gets cached.
type Record struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Addresses is the current address schema; Locations the legacy one.
	Addresses []Address `json:"addresses"`
	Locations []Address `json:"locations"`

	Country struct {
		CountryName string `json:"country_name"`
	} `json:"country"`
	CountryName string `json:"country_name"`

	// Score is populated on search results only.
	Score float64 `json:"score"`
}

// Address is one structured address entry on a registry record.
type Address struct {
	Lat          *float64     `json:"lat"`
	Lng          *float64     `json:"lng"`
	CountryCode  string       `json:"country_code"`
	Country      string       `json:"country"`
	GeonamesCity GeonamesCity `json:"geonames_city"`
}

// GeonamesCity carries the city name attached to an address entry.
type GeonamesCity struct {
	City string `json:"city"`
}

type searchResponse struct {
	Items []Record `json:"items"`
}

// Client queries the registry with caching.
type Client struct {
	Fetch    *fetch.Client
	Cache    *cache.Store
	Geocoder *geocode.Geocoder
	BaseURL  string
}

// New builds a Client against the public registry.
func New(f *fetch.Client, store *cache.Store, g *geocode.Geocoder) *Client {
	return &Client{Fetch: f, Cache: store, Geocoder: g, BaseURL: DefaultBaseURL}
}

// NormalizeID reduces a registry identifier or identifier URL to its bare
// lowercase form, suitable as a cache and dedup key.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return strings.ToLower(id)
}

// ByID fetches a registry record by identifier, cached by the bare id.
// A lookup that fails after the retry budget is cached as a known miss.
func (c *Client) ByID(id string) (*Record, bool) {
	rid := NormalizeID(id)
	if rid == "" {
		return nil, false
	}

	var rec Record
	if found, ok := c.Cache.Get(rid, &rec); found {
		if !ok {
			return nil, false
		}
		slog.Debug("registry cache hit", "id", rid)
		return &rec, true
	}

	if err := c.Fetch.GetJSON(c.BaseURL+"/"+rid, nil, &rec); err != nil {
		slog.Debug("registry fetch failed", "id", rid, "error", err)
		c.put(rid, nil)
		return nil, false
	}
	c.put(rid, &rec)
	return &rec, true
}

// Search runs a fuzzy name search and returns the highest-scored candidate.
// Results are ordered by score descending; ties keep the registry's own
// order. The full response is cached under a search-prefixed key.
func (c *Client) Search(name string) (*Record, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false
	}
	key := "search::" + strings.ToLower(name)

	var resp searchResponse
	found, ok := c.Cache.Get(key, &resp)
	if found && !ok {
		return nil, false
	}
	if !found {
		if err := c.Fetch.GetJSON(c.BaseURL, url.Values{"query": {name}}, &resp); err != nil {
			slog.Debug("registry search failed", "query", name, "error", err)
			c.put(key, nil)
			return nil, false
		}
		c.put(key, &resp)
	} else {
		slog.Debug("registry search cache hit", "query", name)
	}

	if len(resp.Items) == 0 {
		return nil, false
	}
	items := make([]Record, len(resp.Items))
	copy(items, resp.Items)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return &items[0], true
}

func (c *Client) put(key string, v any) {
	if err := c.Cache.Put(key, v); err != nil {
		slog.Warn("failed to cache registry record", "key", key, "error", err)
	}
}

// Coordinates extracts a labeled coordinate from a registry record. It tries
// the structured address list first, then the legacy location list, and
// finally geocodes the record's display name with its country appended.
// The label is "city, country-code", or the record name when city is absent.
func (c *Client) Coordinates(rec *Record) (string, geocode.Point, bool) {
	if rec == nil {
		return "", geocode.Point{}, false
	}

	for _, lists := range [][]Address{rec.Addresses, rec.Locations} {
		for _, addr := range lists {
			if addr.Lat == nil || addr.Lng == nil {
				continue
			}
			label := addressLabel(addr)
			if label == "" {
				label = rec.Name
			}
			return label, geocode.Point{Lat: *addr.Lat, Lon: *addr.Lng}, true
		}
	}

	if rec.Name == "" {
		return "", geocode.Point{}, false
	}
	q := rec.Name
	if country := recordCountry(rec); country != "" {
		q += ", " + country
	}
	if pt, ok := c.Geocoder.Geocode(q); ok {
		return rec.Name, pt, true
	}
	return "", geocode.Point{}, false
}

func addressLabel(addr Address) string {
	var parts []string
	if addr.GeonamesCity.City != "" {
		parts = append(parts, addr.GeonamesCity.City)
	}
	country := addr.CountryCode
	if country == "" {
		country = addr.Country
	}
	if country != "" {
		parts = append(parts, country)
	}
	return strings.Join(parts, ", ")
}

func recordCountry(rec *Record) string {
	if rec.Country.CountryName != "" {
		return rec.Country.CountryName
	}
	return rec.CountryName
}
