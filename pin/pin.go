// Package pin assembles, deduplicates, and post-processes map pins.
package pin

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/s2"
)

// Pin is one output map marker. Coordinates are [lat, lon], rounded to
// 5 decimal places (~1.1 m) before any identity comparison.
type Pin struct {
	Name   string     `json:"name"`
	Desc   string     `json:"desc"`
	Coords [2]float64 `json:"coords"`
}

// Round5 rounds a coordinate to 5 decimal places.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// New builds a pin with rounded coordinates. It rejects coordinates outside
// the valid latitude/longitude ranges.
func New(name, desc string, lat, lon float64) (Pin, bool) {
	if !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return Pin{}, false
	}
	return Pin{
		Name:   name,
		Desc:   desc,
		Coords: [2]float64{Round5(lat), Round5(lon)},
	}, true
}

// Lat returns the pin latitude in degrees.
func (p Pin) Lat() float64 { return p.Coords[0] }

// Lon returns the pin longitude in degrees.
func (p Pin) Lon() float64 { return p.Coords[1] }

func (p Pin) identity() string {
	return fmt.Sprintf("%s|%s|%v|%v", p.Name, p.Desc, p.Coords[0], p.Coords[1])
}

// Dedupe drops later pins whose (name, desc, coords) identity repeats,
// preserving the insertion order of survivors.
func Dedupe(pins []Pin) []Pin {
	seen := make(map[string]bool, len(pins))
	out := pins[:0:0]
	for _, p := range pins {
		key := p.identity()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

// WriteFile encodes the pin list to path as an indented JSON array.
func WriteFile(path string, pins []Pin) error {
	if pins == nil {
		pins = []Pin{}
	}
	data, err := json.MarshalIndent(pins, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding pins: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
