package resolve

import "strings"

// orgAlias maps a known organization-name substring to a canonical place
// string. Aliases are consulted after explicit user overrides and before
// registry search; first match in declaration order wins.
type orgAlias struct {
	Keyword string
	Place   string
}

var orgAliases = []orgAlias{
	{"UEA", "University of East Anglia, Norwich, UK"},
	{"Climatic Research Unit", "University of East Anglia, Norwich, UK"},
	{"CEFAS", "Centre for Environment, Fisheries and Aquaculture Science, Lowestoft, UK"},
	{"Dept of Meteorology, University of Reading", "Reading, UK"},
	{"University of Reading", "Reading, UK"},
}

// AliasPlace returns the canonical place string for the first alias whose
// keyword occurs in org, case-insensitively.
func AliasPlace(org string) (string, bool) {
	lower := strings.ToLower(org)
	for _, a := range orgAliases {
		if strings.Contains(lower, strings.ToLower(a.Keyword)) {
			return a.Place, true
		}
	}
	return "", false
}
