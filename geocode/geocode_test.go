package geocode

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/fetch"
)

func TestNormalizePlace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"online marker stripped", "EGU General Assembly (online)", "EGU General Assembly"},
		{"virtual stripped", "AGU virtual meeting", "AGU meeting"},
		{"dash suffix dropped", "Vienna, Austria – poster session", "Vienna, Austria"},
		{"typo fixed", "Univesity of Bath", "University of Bath"},
		{"punctuation trimmed", " Norwich, UK ;", "Norwich, UK"},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePlace(tt.input); got != tt.want {
				t.Fatalf("NormalizePlace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "department stripped as fallback",
			input: "Department of Physics, University of Bath",
			want: []string{
				"Department of Physics, University of Bath",
				"University of Bath",
			},
		},
		{
			name:  "city country tail",
			input: "Centre for Environment, Fisheries and Aquaculture Science, Lowestoft, UK",
			want: []string{
				"Centre for Environment, Fisheries and Aquaculture Science, Lowestoft, UK",
				"Lowestoft, UK",
				"Fisheries and Aquaculture Science, Lowestoft, UK",
			},
		},
		{
			name:  "numeric segments excluded from tail",
			input: "Main Building, 44 Elm Street, Norwich, UK",
			want: []string{
				"Main Building, 44 Elm Street, Norwich, UK",
				"Norwich, UK",
				"44 Elm Street, Norwich, UK",
			},
		},
		{
			name:  "empty after normalization",
			input: "(online)",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Candidates(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Candidates(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}

func newTestGeocoder(t *testing.T, handler http.HandlerFunc) *Geocoder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := fetch.NewClient("")
	client.Delay = 0
	client.Backoff = 0

	g := New(client, cache.Open(filepath.Join(t.TempDir(), "geocode.json")))
	g.BaseURL = srv.URL
	return g
}

func TestGeocodeFallsBackToStrippedDepartment(t *testing.T) {
	var queries []string
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if q == "University of Bath" {
			json.NewEncoder(w).Encode([]map[string]string{{"lat": "51.37837", "lon": "-2.32699"}})
			return
		}
		w.Write([]byte(`[]`))
	})

	pt, ok := g.Geocode("Department of Physics, University of Bath")
	if !ok {
		t.Fatal("Geocode failed")
	}
	if pt.Lat != 51.37837 || pt.Lon != -2.32699 {
		t.Fatalf("point = %+v", pt)
	}
	wantQueries := []string{"Department of Physics, University of Bath", "University of Bath"}
	if !reflect.DeepEqual(queries, wantQueries) {
		t.Fatalf("queries = %v, want %v", queries, wantQueries)
	}
}

func TestGeocodeUsesCache(t *testing.T) {
	calls := 0
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode([]map[string]string{{"lat": "52.62783", "lon": "1.29834"}})
	})

	for i := 0; i < 2; i++ {
		if _, ok := g.Geocode("Norwich, UK"); !ok {
			t.Fatal("Geocode failed")
		}
	}
	if calls != 1 {
		t.Fatalf("network calls = %d, want 1 (second lookup must hit cache)", calls)
	}
}

func TestGeocodeCachesEmptyResult(t *testing.T) {
	calls := 0
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[]`))
	})

	if _, ok := g.Geocode("Norwich, UK"); ok {
		t.Fatal("Geocode succeeded on empty results")
	}
	first := calls

	if _, ok := g.Geocode("Norwich, UK"); ok {
		t.Fatal("Geocode succeeded on empty results")
	}
	if calls != first {
		t.Fatalf("network calls = %d after repeat, want %d (miss must be cached)", calls, first)
	}
}

func TestGeocodeEmptyInput(t *testing.T) {
	g := newTestGeocoder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	if _, ok := g.Geocode("  (online) "); ok {
		t.Fatal("Geocode succeeded on empty input")
	}
}
