// Package geocode resolves free-text place strings to coordinates via a
// Nominatim-style geocoding service, with normalization heuristics, an
// ordered candidate fallback chain, and a read-through cache.
package geocode

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/fetch"
)

// DefaultBaseURL is the public Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Point is a resolved coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

var (
	typoFixes = []struct {
		re  *regexp.Regexp
		rep string
	}{
		{regexp.MustCompile(`(?i)\bUnivesity\b`), "University"},
	}

	onlineMarkerRegex = regexp.MustCompile(`(?i)\(online\)|online-only|virtual`)
	dashSuffixRegex   = regexp.MustCompile(`\s+–\s+.*$`)
	multiSpaceRegex   = regexp.MustCompile(`\s{2,}`)
	digitRegex        = regexp.MustCompile(`\d`)
	departmentRegex   = regexp.MustCompile(`(?i)^(Department|Dept\.?|School|Faculty|Institute|Center|Centre|Laboratory|Lab|Unit|Division|Group)\b`)
)

// FixTypos corrects known misspellings in organization and place strings.
func FixTypos(s string) string {
	for _, f := range typoFixes {
		s = f.re.ReplaceAllString(s, f.rep)
	}
	return s
}

// NormalizePlace cleans a free-text place string: typo fixes, "(online)" and
// virtual markers stripped, trailing " – …" suffixes dropped, whitespace
// collapsed, list punctuation trimmed.
func NormalizePlace(s string) string {
	s = FixTypos(strings.TrimSpace(s))
	s = onlineMarkerRegex.ReplaceAllString(s, "")
	s = dashSuffixRegex.ReplaceAllString(s, "")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	return strings.Trim(s, " ,;-")
}

// Candidates builds the ordered list of query strings tried for a place,
// without duplicates: the full normalized string; its last two comma
// segments (the "city, country" heuristic, skipping numeric segments); the
// string with a single leading department-level token removed; and, when at
// least three comma segments exist, the last three joined.
func Candidates(place string) []string {
	q := NormalizePlace(place)
	if q == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.Trim(strings.TrimSpace(s), ",; ")
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}

	add(q)

	segments := splitSegments(q)

	var tail []string
	for _, seg := range segments {
		if !digitRegex.MatchString(seg) {
			tail = append(tail, seg)
		}
	}
	if len(tail) >= 2 {
		add(strings.Join(tail[len(tail)-2:], ", "))
	}

	if len(segments) > 1 && departmentRegex.MatchString(segments[0]) {
		add(strings.Join(segments[1:], ", "))
	}

	if len(segments) >= 3 {
		add(strings.Join(segments[len(segments)-3:], ", "))
	}

	return out
}

func splitSegments(s string) []string {
	var segs []string
	for _, seg := range strings.Split(s, ",") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// Geocoder resolves place strings against the geocoding service.
type Geocoder struct {
	Client  *fetch.Client
	Cache   *cache.Store
	BaseURL string
}

// New builds a Geocoder against the public service.
func New(client *fetch.Client, store *cache.Store) *Geocoder {
	return &Geocoder{Client: client, Cache: store, BaseURL: DefaultBaseURL}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a free-text place string to a coordinate by trying each
// candidate in order. The second return is false when every candidate
// exhausts without a hit. Empty results are cached as explicit misses so a
// candidate is queried at most once per run; transport failures are not
// cached, so the next Geocode call may retry them.
func (g *Geocoder) Geocode(place string) (Point, bool) {
	for _, q := range Candidates(place) {
		key := strings.ToLower(q)

		var pt Point
		if found, ok := g.Cache.Get(key, &pt); found {
			if ok {
				slog.Debug("geocode cache hit", "query", q)
				return pt, true
			}
			// Known miss; fall through to the next candidate.
			continue
		}

		pt, ok, err := g.lookup(q)
		if err != nil {
			continue
		}
		if !ok {
			g.put(key, nil)
			continue
		}
		g.put(key, pt)
		return pt, true
	}
	return Point{}, false
}

func (g *Geocoder) put(key string, v any) {
	if err := g.Cache.Put(key, v); err != nil {
		slog.Warn("failed to cache geocode result", "query", key, "error", err)
	}
}

func (g *Geocoder) lookup(q string) (Point, bool, error) {
	params := url.Values{
		"q":      {q},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}

	var results []searchResult
	if err := g.Client.GetJSON(g.BaseURL, params, &results); err != nil {
		slog.Debug("geocode request failed", "query", q, "error", err)
		return Point{}, false, err
	}
	if len(results) == 0 {
		slog.Debug("geocode empty result", "query", q)
		return Point{}, false, nil
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		slog.Debug("geocode malformed coordinates", "query", q)
		return Point{}, false, nil
	}
	return Point{Lat: lat, Lon: lon}, true, nil
}
