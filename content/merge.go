package content

import (
	"sort"
	"strconv"

	"github.com/scholarly-tools/pinmap/doi"
	"github.com/scholarly-tools/pinmap/helpers"
)

// MergePublications folds bibliography-derived records into the existing
// publication list. A fresh record is matched to an existing one by
// canonical DOI first, then by normalized title. On a match the existing
// record's non-empty fields win, except year (always taken from the fresh
// record) and summary (existing wins only when non-empty). Unmatched
// existing records are appended; the result is sorted year-descending with
// unparsable years last.
func MergePublications(existing, fresh []Publication) []Publication {
	// Stray braces in hand-maintained records would defeat title matching.
	for i := range existing {
		existing[i].Title = helpers.StripBraces(existing[i].Title)
		existing[i].Authors = helpers.StripBraces(existing[i].Authors)
		existing[i].Summary = helpers.StripBraces(existing[i].Summary)
	}

	byDOI := make(map[string]int)
	byTitle := make(map[string]int)
	for i, p := range existing {
		if d := doi.Canonical(p.DOI); d != "" {
			byDOI[d] = i
		}
		if t := helpers.NormalizeTitle(p.Title); t != "" {
			byTitle[t] = i
		}
	}

	merged := make([]Publication, 0, len(existing)+len(fresh))
	matched := make(map[int]bool)

	for _, p := range fresh {
		idx := -1
		if d := doi.Canonical(p.DOI); d != "" {
			if i, ok := byDOI[d]; ok {
				idx = i
			}
		}
		if idx < 0 {
			if t := helpers.NormalizeTitle(p.Title); t != "" {
				if i, ok := byTitle[t]; ok {
					idx = i
				}
			}
		}

		if idx >= 0 {
			merged = append(merged, mergeRecord(existing[idx], p))
			matched[idx] = true
		} else {
			merged = append(merged, p)
		}
	}

	for i, p := range existing {
		if !matched[i] {
			merged = append(merged, p)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return yearSortKey(merged[i].Year) > yearSortKey(merged[j].Year)
	})

	return merged
}

// mergeRecord combines an existing record with a fresh bibliography-derived
// one. Field rule: non-empty existing wins, except year (fresh always wins)
// and summary (existing wins only when non-empty).
func mergeRecord(old, fresh Publication) Publication {
	out := fresh

	if old.Summary != "" {
		out.Summary = old.Summary
	}
	// out.Year stays fresh.Year unconditionally.

	keepOld := func(dst *string, oldVal string) {
		if oldVal != "" {
			*dst = oldVal
		}
	}
	keepOld(&out.ID, old.ID)
	keepOld(&out.Title, old.Title)
	keepOld(&out.Authors, old.Authors)
	keepOld(&out.Type, old.Type)
	keepOld(&out.PDF, old.PDF)
	keepOld(&out.DOI, old.DOI)
	keepOld(&out.Cite, old.Cite)
	keepOld(&out.Data, old.Data)
	keepOld(&out.Code, old.Code)
	keepOld(&out.Viz, old.Viz)
	keepOld(&out.Thumb, old.Thumb)

	return out
}

func yearSortKey(y Year) int {
	n, err := strconv.Atoi(string(y))
	if err != nil {
		return -1
	}
	return n
}
