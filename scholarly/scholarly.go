// Package scholarly fetches structured publication records from the
// OpenAlex and Crossref indexes and extracts candidate institutional
// affiliations for coordinate resolution.
package scholarly

// Affiliation is one author-institution association extracted from a
// publication record, pending coordinate resolution. Lat/Lon are set when
// the upstream source already carries them; ROR when it supplies a registry
// identifier; otherwise only Name.
type Affiliation struct {
	Name    string
	ROR     string
	Lat     *float64
	Lon     *float64
	City    string
	Country string
}

// HasCoords reports whether the source already supplied coordinates.
func (a Affiliation) HasCoords() bool {
	return a.Lat != nil && a.Lon != nil
}
