package resolve

import (
	"log/slog"
	"regexp"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/scholarly-tools/pinmap/content"
	"github.com/scholarly-tools/pinmap/geocode"
	"github.com/scholarly-tools/pinmap/pin"
	"github.com/scholarly-tools/pinmap/scholarly"
)

var (
	ukHintRegex = regexp.MustCompile(`(?i)\bUK\b`)
	usHintRegex = regexp.MustCompile(`(?i)\b(USA|US)\b`)
)

// coordDedupPrecision is the geohash length used to collapse affiliations
// of one publication that land in the same building-scale cell (~19 m).
const coordDedupPrecision = 8

// BuildPins processes every category in order (experience, talks, projects,
// publications) and returns the deduplicated pin set. Failures are isolated
// per record; a record that resolves nowhere is skipped, never fatal.
func (r *Resolver) BuildPins(doc *content.Document) []pin.Pin {
	var pins []pin.Pin

	exp := r.ExperiencePins(doc.Experience)
	slog.Info("experience resolved", "pins", len(exp))
	pins = append(pins, exp...)

	talks := r.TalkPins(doc.Talks)
	slog.Info("talks resolved", "pins", len(talks))
	pins = append(pins, talks...)

	projects := r.ProjectPins(doc.Projects)
	slog.Info("projects resolved", "pins", len(projects))
	pins = append(pins, projects...)

	pubs := r.PublicationPins(doc.Publications)
	slog.Info("publications resolved", "pins", len(pubs))
	pins = append(pins, pubs...)

	return pin.Dedupe(pins)
}

// ExperiencePins resolves each experience entry's organization to a pin.
// Per organization, in order: explicit override; alias table (falling back
// to registry search when the alias place fails to geocode); registry name
// search; geocoding the raw organization with a country hint.
func (r *Resolver) ExperiencePins(entries []content.Experience) []pin.Pin {
	var pins []pin.Pin
	for _, e := range entries {
		orgRaw := e.DisplayOrg()
		if orgRaw == "" {
			continue
		}
		org := geocode.FixTypos(orgRaw)
		desc := "Work – " + orgRaw

		if ov, ok := r.Overrides.Lookup("experience", org); ok {
			if pt, ok := r.Geocoder.Geocode(ov); ok {
				pins = appendPin(pins, ov, desc, pt.Lat, pt.Lon)
			} else {
				slog.Debug("override place failed to geocode", "org", orgRaw, "place", ov)
			}
			continue
		}

		if place, ok := AliasPlace(org); ok {
			if pt, ok := r.Geocoder.Geocode(place); ok {
				pins = appendPin(pins, geocode.NormalizePlace(place), desc, pt.Lat, pt.Lon)
				continue
			}
			// An alias that fails to geocode still falls back to
			// registry search below.
			slog.Debug("alias place failed to geocode", "org", orgRaw, "place", place)
		}

		if loc, ok := r.searchRegistry(org); ok {
			label := loc.Label
			if label == "" {
				label = org
			}
			pins = appendPin(pins, label, desc, loc.Lat, loc.Lon)
			continue
		}

		q := org
		if ukHintRegex.MatchString(org) {
			q = org + ", United Kingdom"
		} else if usHintRegex.MatchString(org) {
			q = org + ", United States"
		}
		if pt, ok := r.Geocoder.Geocode(q); ok {
			pins = appendPin(pins, q, desc, pt.Lat, pt.Lon)
		} else {
			slog.Debug("experience entry unresolved", "org", orgRaw)
		}
	}
	return pins
}

// TalkPins resolves each talk's place to a pin. Online-only talks are
// skipped; an override keyed on title and place replaces the place string.
func (r *Resolver) TalkPins(talks []content.Talk) []pin.Pin {
	var pins []pin.Pin
	for _, t := range talks {
		// Normalization strips online markers, so the skip test runs on
		// the raw place string.
		raw := strings.ToLower(t.Place)
		if strings.Contains(raw, "online") || strings.Contains(raw, "virtual") {
			continue
		}
		place := geocode.NormalizePlace(t.Place)
		if place == "" {
			continue
		}
		if ov, ok := r.Overrides.Lookup("talks", t.Title+" "+place); ok {
			place = ov
		}

		title := t.Title
		if title == "" {
			title = "Talk"
		}
		if pt, ok := r.Geocoder.Geocode(place); ok {
			pins = appendPin(pins, place, "Talk – "+title, pt.Lat, pt.Lon)
		} else {
			slog.Debug("talk place unresolved", "title", t.Title, "place", place)
		}
	}
	return pins
}

// ProjectPins never auto-locates: a project produces a pin only from an
// override or an explicit place field.
func (r *Resolver) ProjectPins(projects []content.Project) []pin.Pin {
	var pins []pin.Pin
	for _, p := range projects {
		title := p.Title
		if title == "" {
			title = "Project"
		}
		desc := "Project – " + title

		if ov, ok := r.Overrides.Lookup("projects", p.Title+" "+p.Desc); ok {
			if pt, ok := r.Geocoder.Geocode(ov); ok {
				pins = appendPin(pins, ov, desc, pt.Lat, pt.Lon)
			}
			continue
		}
		if p.Place == "" {
			continue
		}
		place := geocode.NormalizePlace(p.Place)
		if pt, ok := r.Geocoder.Geocode(place); ok {
			pins = appendPin(pins, place, desc, pt.Lat, pt.Lon)
		}
	}
	return pins
}

// PublicationPins resolves each publication's affiliations to pins.
// The DOI is discovered when absent; OpenAlex affiliations are resolved
// first, with Crossref as fallback (or union when configured). Within one
// publication, candidates sharing a dedup key or a city-scale coordinate
// cell contribute a single pin.
func (r *Resolver) PublicationPins(pubs []content.Publication) []pin.Pin {
	var pins []pin.Pin
	for _, p := range pubs {
		d, ok := scholarly.DiscoverDOI(r.OpenAlex, r.Crossref, p.Title, p.DOI, p.PDF, p.Data, p.Cite)
		if !ok {
			slog.Debug("publication has no resolvable doi", "title", p.Title)
			continue
		}

		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = "Publication"
		}
		desc := "Publication – " + title

		seenKeys := make(map[string]bool)
		seenCells := make(map[string]bool)
		resolve := func(affs []scholarly.Affiliation) []pin.Pin {
			var out []pin.Pin
			for _, a := range affs {
				key := DedupKey(a)
				if key == "" || seenKeys[key] {
					continue
				}
				seenKeys[key] = true

				loc, ok := r.Affiliation(a)
				if !ok {
					continue
				}
				cell := geohash.EncodeWithPrecision(loc.Lat, loc.Lon, coordDedupPrecision)
				if seenCells[cell] {
					continue
				}
				seenCells[cell] = true
				out = appendPin(out, loc.Label, desc, loc.Lat, loc.Lon)
			}
			return out
		}

		var resolved []pin.Pin
		if work, ok := r.OpenAlex.Work(d); ok {
			resolved = resolve(r.OpenAlex.Affiliations(work))
		}
		if len(resolved) == 0 || r.CitationUnion {
			if msg, ok := r.Crossref.Work(d); ok {
				resolved = append(resolved, resolve(r.Crossref.Affiliations(msg))...)
			}
		}
		pins = append(pins, resolved...)
	}
	return pins
}

func appendPin(pins []pin.Pin, name, desc string, lat, lon float64) []pin.Pin {
	p, ok := pin.New(name, desc, lat, lon)
	if !ok {
		slog.Debug("dropping pin with out-of-range coordinates", "name", name, "lat", lat, "lon", lon)
		return pins
	}
	return append(pins, p)
}
