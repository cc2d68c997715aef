// Package resolve implements the affiliation and organization resolution
// chains: ordered fallback over overrides, the alias table, the organization
// registry, and the geocoder, with write-through caching of resolved
// affiliations.
package resolve

import (
	"log/slog"
	"strings"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/geocode"
	"github.com/scholarly-tools/pinmap/helpers"
	"github.com/scholarly-tools/pinmap/ror"
	"github.com/scholarly-tools/pinmap/scholarly"
)

// Location is a resolved (label, lat, lon) triple.
type Location struct {
	Label string  `json:"label"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Resolver wires together the external registries and caches.
type Resolver struct {
	Geocoder *geocode.Geocoder
	Registry *ror.Client
	OpenAlex *scholarly.OpenAlex
	Crossref *scholarly.Crossref

	// Affiliations is the write-through cache of resolved affiliations,
	// keyed identically to DedupKey.
	Affiliations *cache.Store

	Overrides Overrides

	// Fast reverses the name-resolution order: geocode before registry
	// search.
	Fast bool

	// CitationUnion merges Crossref affiliations with OpenAlex ones
	// instead of consulting Crossref only when OpenAlex yields nothing.
	CitationUnion bool
}

// DedupKey returns the identity key for an affiliation candidate: the
// normalized registry identifier when one is present, else the normalized
// lowercase affiliation name as extracted (before simplification). Two
// candidates with the same key contribute at most one pin per publication.
func DedupKey(a scholarly.Affiliation) string {
	if a.ROR != "" {
		return "ror::" + ror.NormalizeID(a.ROR)
	}
	return strings.ToLower(helpers.NormalizeSpaces(a.Name))
}

// Affiliation resolves one candidate to a labeled coordinate. Resolution
// order: coordinates already attached by the scholarly index; the
// affiliation cache; registry fetch by identifier; registry search and
// geocoding of the simplified name. Candidates that resolve at no step
// report false and are dropped by the caller.
func (r *Resolver) Affiliation(a scholarly.Affiliation) (Location, bool) {
	if a.HasCoords() {
		return Location{
			Label: directLabel(a),
			Lat:   *a.Lat,
			Lon:   *a.Lon,
		}, true
	}

	key := DedupKey(a)
	if key == "" {
		return Location{}, false
	}

	var cached Location
	if _, ok := r.Affiliations.Get(key, &cached); ok {
		slog.Debug("affiliation cache hit", "key", key)
		return cached, true
	}

	if a.ROR != "" {
		if rec, ok := r.Registry.ByID(a.ROR); ok {
			if label, pt, ok := r.Registry.Coordinates(rec); ok {
				if label == "" {
					label = a.Name
				}
				return r.store(key, Location{Label: label, Lat: pt.Lat, Lon: pt.Lon}), true
			}
		}
	}

	if a.Name == "" {
		return Location{}, false
	}

	queries := []string{SimplifyOrgName(a.Name)}
	if tail := lastTwoSegments(a.Name); tail != "" && !strings.EqualFold(tail, queries[0]) {
		queries = append(queries, tail)
	}

	stages := []func(string) (Location, bool){r.searchRegistry, r.geocodePlace}
	if r.Fast {
		stages[0], stages[1] = stages[1], stages[0]
	}

	for _, stage := range stages {
		for _, q := range queries {
			if loc, ok := stage(q); ok {
				return r.store(key, loc), true
			}
		}
	}

	slog.Debug("affiliation unresolved", "name", a.Name, "key", key)
	return Location{}, false
}

func (r *Resolver) searchRegistry(q string) (Location, bool) {
	rec, ok := r.Registry.Search(q)
	if !ok {
		return Location{}, false
	}
	label, pt, ok := r.Registry.Coordinates(rec)
	if !ok {
		return Location{}, false
	}
	if label == "" {
		label = q
	}
	return Location{Label: label, Lat: pt.Lat, Lon: pt.Lon}, true
}

func (r *Resolver) geocodePlace(q string) (Location, bool) {
	pt, ok := r.Geocoder.Geocode(q)
	if !ok {
		return Location{}, false
	}
	return Location{Label: q, Lat: pt.Lat, Lon: pt.Lon}, true
}

func (r *Resolver) store(key string, loc Location) Location {
	if err := r.Affiliations.Put(key, loc); err != nil {
		slog.Warn("failed to cache affiliation", "key", key, "error", err)
	}
	return loc
}

// directLabel builds the label for a candidate whose coordinates came
// straight from the scholarly index: "name — city, country" when both name
// and city are known, else whichever part is non-empty.
func directLabel(a scholarly.Affiliation) string {
	var place string
	if a.City != "" {
		place = a.City
		if a.Country != "" {
			place += ", " + a.Country
		}
	} else if a.Country != "" {
		place = a.Country
	}

	switch {
	case a.Name != "" && place != "":
		return a.Name + " — " + place
	case place != "":
		return place
	default:
		return a.Name
	}
}
