package resolve

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/content"
	"github.com/scholarly-tools/pinmap/fetch"
	"github.com/scholarly-tools/pinmap/geocode"
	"github.com/scholarly-tools/pinmap/ror"
	"github.com/scholarly-tools/pinmap/scholarly"
)

// newTestResolver wires a Resolver against a single test server. The mux
// routes /geocode, /organizations, /openalex, and /crossref.
func newTestResolver(t *testing.T, mux *http.ServeMux) *Resolver {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := fetch.NewClient("")
	f.Delay = 0
	f.Backoff = 0

	dir := t.TempDir()
	geocoder := geocode.New(f, cache.Open(filepath.Join(dir, "geocode.json")))
	geocoder.BaseURL = srv.URL + "/geocode"

	registry := ror.New(f, cache.Open(filepath.Join(dir, "ror.json")), geocoder)
	registry.BaseURL = srv.URL + "/organizations"

	oa := scholarly.NewOpenAlex(f, cache.Open(filepath.Join(dir, "openalex.json")))
	oa.BaseURL = srv.URL + "/openalex"

	cr := scholarly.NewCrossref(f, cache.Open(filepath.Join(dir, "crossref.json")))
	cr.BaseURL = srv.URL + "/crossref"

	return &Resolver{
		Geocoder:     geocoder,
		Registry:     registry,
		OpenAlex:     oa,
		Crossref:     cr,
		Affiliations: cache.Open(filepath.Join(dir, "affiliation.json")),
		Overrides:    Overrides{},
	}
}

func geocodeResult(lat, lon string) []map[string]string {
	return []map[string]string{{"lat": lat, "lon": lon}}
}

func TestDedupKey(t *testing.T) {
	withID := scholarly.Affiliation{Name: "University of Oxford", ROR: "https://ror.org/052GG0110"}
	withOtherName := scholarly.Affiliation{Name: "Oxford University", ROR: "052gg0110"}
	if DedupKey(withID) != DedupKey(withOtherName) {
		t.Fatalf("keys differ: %q vs %q", DedupKey(withID), DedupKey(withOtherName))
	}

	nameOnly := scholarly.Affiliation{Name: "  Met  Office "}
	if got := DedupKey(nameOnly); got != "met office" {
		t.Fatalf("name key = %q", got)
	}
}

func TestOverrideBeatsAliasAndRegistry(t *testing.T) {
	var geocodeQueries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		geocodeQueries = append(geocodeQueries, r.URL.Query().Get("q"))
		json.NewEncoder(w).Encode(geocodeResult("60.17", "24.94"))
	})
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		t.Error("registry must not be consulted when an override matches")
	})

	r := newTestResolver(t, mux)
	// The org string matches both this override keyword and the UEA alias
	// table entry; the override must win.
	r.Overrides = Overrides{"experience": {"UEA": "Helsinki, Finland"}}

	pins := r.ExperiencePins([]content.Experience{{Org: "Climatic Research Unit, UEA"}})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1", len(pins))
	}
	if len(geocodeQueries) == 0 || geocodeQueries[0] != "Helsinki, Finland" {
		t.Fatalf("geocoded %v, want the override place first", geocodeQueries)
	}
	if pins[0].Name != "Helsinki, Finland" {
		t.Fatalf("pin name = %q", pins[0].Name)
	}
	if pins[0].Desc != "Work – Climatic Research Unit, UEA" {
		t.Fatalf("pin desc = %q", pins[0].Desc)
	}
}

func TestAliasGeocodeFailureFallsBackToRegistry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		// Alias place never geocodes.
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		lat, lng := 52.62192, 1.24062
		json.NewEncoder(w).Encode(map[string]any{
			"items": []any{map[string]any{
				"name":  "University of East Anglia",
				"score": 1.0,
				"addresses": []map[string]any{{
					"lat": lat, "lng": lng,
					"country_code":  "GB",
					"geonames_city": map[string]string{"city": "Norwich"},
				}},
			}},
		})
	})

	r := newTestResolver(t, mux)
	pins := r.ExperiencePins([]content.Experience{{Org: "Climatic Research Unit"}})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1 (registry fallback)", len(pins))
	}
	if pins[0].Name != "Norwich, GB" {
		t.Fatalf("pin name = %q", pins[0].Name)
	}
}

func TestExperienceCountryHintOnRawGeocode(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if q == "Smallco Research UK, United Kingdom" {
			json.NewEncoder(w).Encode(geocodeResult("51.5", "-0.12"))
			return
		}
		w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})

	r := newTestResolver(t, mux)
	pins := r.ExperiencePins([]content.Experience{{Org: "Smallco Research UK"}})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1; queries %v", len(pins), queries)
	}
	if pins[0].Name != "Smallco Research UK, United Kingdom" {
		t.Fatalf("pin name = %q", pins[0].Name)
	}
}

func TestTalksSkipOnline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geocodeResult("48.21", "16.37"))
	})

	r := newTestResolver(t, mux)
	pins := r.TalkPins([]content.Talk{
		{Title: "Remote talk", Place: "EGU (online)"},
		{Title: "In person", Place: "Vienna, Austria"},
	})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1 (online talk skipped)", len(pins))
	}
	if pins[0].Desc != "Talk – In person" {
		t.Fatalf("desc = %q", pins[0].Desc)
	}
}

func TestProjectsNeverAutoLocated(t *testing.T) {
	mux := http.NewServeMux()
	called := false
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		called = true
		json.NewEncoder(w).Encode(geocodeResult("0", "0"))
	})

	r := newTestResolver(t, mux)
	pins := r.ProjectPins([]content.Project{{Title: "Flood model", Desc: "A model of Norwich flooding"}})
	if len(pins) != 0 {
		t.Fatalf("pins = %d, want 0", len(pins))
	}
	if called {
		t.Fatal("geocoder consulted for a project without override or place")
	}
}

func TestPublicationRegistryIDDedup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/openalex/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"display_name": "Storm Surges",
			"authorships": []any{
				map[string]any{"institutions": []any{
					map[string]any{"display_name": "University of Oxford", "ror": "https://ror.org/052gg0110"},
				}},
				map[string]any{"institutions": []any{
					map[string]any{"display_name": "Oxford Uni", "ror": "052gg0110"},
				}},
			},
		})
	})
	mux.HandleFunc("/organizations/", func(w http.ResponseWriter, r *http.Request) {
		lat, lng := 51.75222, -1.25596
		json.NewEncoder(w).Encode(map[string]any{
			"name": "University of Oxford",
			"addresses": []map[string]any{{
				"lat": lat, "lng": lng,
				"country_code":  "GB",
				"geonames_city": map[string]string{"city": "Oxford"},
			}},
		})
	})

	r := newTestResolver(t, mux)
	pins := r.PublicationPins([]content.Publication{{
		Title: "Storm Surges",
		DOI:   "10.1029/2019JC015577",
	}})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1 (same registry id must contribute once)", len(pins))
	}
	if pins[0].Name != "Oxford, GB" {
		t.Fatalf("pin name = %q", pins[0].Name)
	}
}

func TestPublicationCoordinateCellDedup(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/openalex/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"display_name": "Heatwave Attribution",
			"authorships": []any{
				map[string]any{"institutions": []any{
					map[string]any{"display_name": "Met Office Hadley Centre"},
				}},
				map[string]any{"institutions": []any{
					map[string]any{"display_name": "UK Meteorological Office"},
				}},
			},
		})
	})
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(geocodeResult("50.72742", "-3.47463"))
	})

	r := newTestResolver(t, mux)
	pins := r.PublicationPins([]content.Publication{{
		Title: "Heatwave Attribution",
		DOI:   "10.1038/s41558-020-0771-7",
	}})
	if len(pins) != 1 {
		t.Fatalf("pins = %d, want 1 (identical coordinates must contribute once)", len(pins))
	}
}

func TestAffiliationDirectCoordinates(t *testing.T) {
	r := newTestResolver(t, http.NewServeMux())

	lat, lon := 52.62192, 1.24062
	loc, ok := r.Affiliation(scholarly.Affiliation{
		Name: "University of East Anglia",
		Lat:  &lat, Lon: &lon,
		City: "Norwich", Country: "GB",
	})
	if !ok {
		t.Fatal("Affiliation failed on direct coordinates")
	}
	if loc.Label != "University of East Anglia — Norwich, GB" {
		t.Fatalf("label = %q", loc.Label)
	}
	if loc.Lat != lat || loc.Lon != lon {
		t.Fatalf("loc = %+v", loc)
	}
}

func TestAffiliationCacheShortCircuits(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		calls++
		lat, lng := 51.75, -1.25
		json.NewEncoder(w).Encode(map[string]any{
			"items": []any{map[string]any{
				"name": "University of Oxford", "score": 1.0,
				"addresses": []map[string]any{{"lat": lat, "lng": lng, "country_code": "GB"}},
			}},
		})
	})
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	r := newTestResolver(t, mux)
	a := scholarly.Affiliation{Name: "University of Oxford"}

	if _, ok := r.Affiliation(a); !ok {
		t.Fatal("first resolution failed")
	}
	if _, ok := r.Affiliation(a); !ok {
		t.Fatal("second resolution failed")
	}
	if calls != 1 {
		t.Fatalf("registry calls = %d, want 1 (cache must short-circuit)", calls)
	}
}

func TestFastModeGeocodesBeforeRegistry(t *testing.T) {
	var order []string
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "geocode")
		json.NewEncoder(w).Encode(geocodeResult("51.38", "-2.33"))
	})
	mux.HandleFunc("/organizations", func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "registry")
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	})

	r := newTestResolver(t, mux)
	r.Fast = true

	if _, ok := r.Affiliation(scholarly.Affiliation{Name: "University of Bath"}); !ok {
		t.Fatal("Affiliation failed")
	}
	if len(order) == 0 || order[0] != "geocode" {
		t.Fatalf("call order = %v, want geocode first in fast mode", order)
	}
}
