package pin

import (
	"fmt"
	"math"
	"sort"
)

// metersPerDegree is the meridian arc length of one degree of latitude.
const metersPerDegree = 111320

// DefaultRingCapacity is how many pins share one jitter ring before the
// next, wider ring opens.
const DefaultRingCapacity = 8

// Jitter displaces pins that share identical coordinates onto small
// concentric rings so overlapping markers remain visible. Within a group,
// pins are ordered by (name, desc) ascending; the first pin anchors the
// group at its original spot, and each following pin lands on a ring of
// radius meters × (1 + ring/ringCapacity) at angle 2π(ring mod
// ringCapacity)/ringCapacity, where ring counts from zero over the
// displaced pins. Groups of size one are untouched. Pins are modified in
// place; result coordinates are rounded to 5 decimal places.
func Jitter(pins []Pin, meters float64, ringCapacity int) {
	if meters <= 0 || len(pins) < 2 {
		return
	}
	if ringCapacity <= 0 {
		ringCapacity = DefaultRingCapacity
	}

	groups := make(map[string][]int)
	for i, p := range pins {
		key := fmt.Sprintf("%v|%v", p.Coords[0], p.Coords[1])
		groups[key] = append(groups[key], i)
	}

	for _, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		sort.Slice(idxs, func(a, b int) bool {
			pa, pb := pins[idxs[a]], pins[idxs[b]]
			if pa.Name != pb.Name {
				return pa.Name < pb.Name
			}
			return pa.Desc < pb.Desc
		})

		for k, idx := range idxs {
			// The first pin of the group stays put.
			if k == 0 {
				continue
			}
			ring := k - 1
			p := &pins[idx]
			radius := meters * float64(1+ring/ringCapacity)
			angle := 2 * math.Pi * float64(ring%ringCapacity) / float64(ringCapacity)

			latRad := p.Coords[0] * math.Pi / 180
			dlat := radius * math.Sin(angle) / metersPerDegree
			dlon := radius * math.Cos(angle) / (metersPerDegree * math.Max(0.1, math.Cos(latRad)))

			p.Coords[0] = Round5(p.Coords[0] + dlat)
			p.Coords[1] = Round5(p.Coords[1] + dlon)
		}
	}
}
