package resolve

import (
	"regexp"
	"strings"
)

var (
	parentheticalRegex = regexp.MustCompile(`\([^)]*\)`)
	// Street numbers, zip codes, and UK-style postcodes.
	streetNumberRegex = regexp.MustCompile(`\b\d+[\d\-/]*\b`)
	ukPostcodeRegex   = regexp.MustCompile(`\b[A-Z]{1,2}\d{1,2}[A-Z]?\s*\d[A-Z]{2}\b`)
	segmentSplitRegex = regexp.MustCompile(`[;,]`)
	anyDigitRegex     = regexp.MustCompile(`\d`)

	institutionalKeywords = []string{
		"university", "institute", "academy", "observatory",
		"laboratory", "center", "centre", "college", "school",
	}
)

// SimplifyOrgName reduces a raw affiliation string to the segment most
// likely to name the institution: parenthetical asides and numeric street
// addresses or postcodes are stripped, the string is split on ";" and ",",
// and the first segment carrying an institutional keyword is preferred,
// then the first alphabetic segment without digits, then the first segment
// verbatim.
func SimplifyOrgName(name string) string {
	s := parentheticalRegex.ReplaceAllString(name, " ")
	s = ukPostcodeRegex.ReplaceAllString(s, " ")
	s = streetNumberRegex.ReplaceAllString(s, " ")

	var segments []string
	for _, seg := range segmentSplitRegex.Split(s, -1) {
		seg = strings.Join(strings.Fields(seg), " ")
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return strings.TrimSpace(name)
	}

	for _, seg := range segments {
		lower := strings.ToLower(seg)
		for _, kw := range institutionalKeywords {
			if strings.Contains(lower, kw) {
				return seg
			}
		}
	}

	for _, seg := range segments {
		if !anyDigitRegex.MatchString(seg) {
			return seg
		}
	}

	return segments[0]
}

// lastTwoSegments returns the final two comma-separated segments of a raw
// affiliation string ("city, country" tail), or "" when there are fewer
// than two.
func lastTwoSegments(name string) string {
	var segments []string
	for _, seg := range strings.Split(name, ",") {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return ""
	}
	return strings.Join(segments[len(segments)-2:], ", ")
}
