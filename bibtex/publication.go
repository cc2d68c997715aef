package bibtex

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/scholarly-tools/pinmap/content"
	"github.com/scholarly-tools/pinmap/doi"
	"github.com/scholarly-tools/pinmap/helpers"
)

const (
	slugMaxWords = 6
	slugMaxLen   = 60

	summaryMaxChars = 300
)

var (
	andSplitRegex = regexp.MustCompile(`(?i)\s+\band\b\s+`)
	// file and pdf fields may be colon-separated attachment lists.
	pdfFileRegex   = regexp.MustCompile(`(?i)([^\s;:]+\.pdf)\b`)
	pdfURLRegex    = regexp.MustCompile(`(?i)(\S+\.pdf)\b`)
	clausePunct    = regexp.MustCompile(`\s*[,–—]\s*`)
	doubleSemiGlue = regexp.MustCompile(`\s*;\s*;`)
)

// BuildPublication converts a parsed entry into a dataset publication record.
func BuildPublication(e Entry) content.Publication {
	title := strings.TrimSpace(helpers.StripBraces(e.Fields["title"]))
	year := strings.TrimSpace(e.Fields["year"])

	doiURL := doi.URL(e.Fields["doi"])
	link := doiURL
	if link == "" {
		link = strings.TrimSpace(e.Fields["url"])
	}

	slugSource := title
	if slugSource == "" {
		slugSource = e.Key
	}
	id := helpers.Slugify(slugSource, slugMaxWords, slugMaxLen)
	if year != "" {
		id = year + "-" + id
	}

	var summary string
	if abstract := strings.TrimSpace(e.Fields["abstract"]); abstract != "" {
		summary = helpers.StripBraces(Summarize(abstract, summaryMaxChars))
	}

	return content.Publication{
		ID:      id,
		Title:   title,
		Authors: FormatAuthors(e.Fields["author"]),
		Year:    content.Year(year),
		Type:    mapEntryType(e.Type),
		Summary: summary,
		PDF:     pickPDF(e.Fields),
		DOI:     link,
	}
}

// FormatAuthors reduces a BibTeX author list to comma-separated surnames.
func FormatAuthors(raw string) string {
	if raw == "" {
		return ""
	}
	var out []string
	for _, part := range andSplitRegex.Split(raw, -1) {
		part = strings.TrimSpace(helpers.StripBraces(part))
		if part == "" {
			continue
		}
		var last string
		if i := strings.IndexByte(part, ','); i >= 0 {
			last = strings.TrimSpace(part[:i])
		} else {
			toks := strings.Fields(part)
			last = toks[len(toks)-1]
		}
		out = append(out, last)
	}
	return strings.Join(out, ", ")
}

// Summarize condenses an abstract into a short plain-text summary: LaTeX
// cleaned, the first sentence (plus the second when the first is short),
// clause punctuation flattened to semicolons, truncated at a word boundary.
func Summarize(abstract string, maxChars int) string {
	text := CleanLaTeX(abstract)
	if text == "" {
		return ""
	}

	sents := splitSentences(text)
	var out string
	if len(sents) == 0 {
		out = text
		if len(out) > maxChars {
			out = strings.TrimRight(out[:maxChars], " ") + "…"
		}
		return out
	}

	out = sents[0]
	if len(out) < maxChars*55/100 && len(sents) > 1 {
		out = out + " " + sents[1]
	}
	out = clausePunct.ReplaceAllString(out, "; ")
	out = doubleSemiGlue.ReplaceAllString(out, "; ")
	out = helpers.NormalizeSpaces(out)
	if len(out) > maxChars {
		cut := out[:maxChars]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		out = cut + "…"
	}
	return out
}

// splitSentences breaks prose after sentence punctuation followed by
// whitespace and an uppercase letter or digit.
func splitSentences(text string) []string {
	var sents []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) {
			continue
		}
		if unicode.IsUpper(runes[j]) || unicode.IsDigit(runes[j]) {
			s := strings.TrimSpace(string(runes[start : i+1]))
			if s != "" {
				sents = append(sents, s)
			}
			start = j
			i = j - 1
		}
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sents = append(sents, s)
	}
	return sents
}

func mapEntryType(etype string) string {
	switch strings.ToLower(etype) {
	case "article":
		return "journal"
	case "inproceedings", "conference", "proceedings":
		return "conference"
	case "techreport", "report":
		return "report"
	case "phdthesis", "mastersthesis", "thesis":
		return "article"
	case "misc", "dataset", "data":
		return "dataset"
	default:
		return "article"
	}
}

func pickPDF(fields map[string]string) string {
	for _, k := range []string{"file", "pdf"} {
		if m := pdfFileRegex.FindStringSubmatch(fields[k]); m != nil {
			return m[1]
		}
	}
	if m := pdfURLRegex.FindStringSubmatch(fields["url"]); m != nil {
		return m[1]
	}
	return ""
}
