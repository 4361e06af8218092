// Package dedup merges candidates that refer to the same underlying work.
package dedup

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// TitleThreshold is the normalized title similarity at or above which two
// candidates without a shared DOI are considered the same work.
const TitleThreshold = 0.90

// Dedupe collapses duplicates in one pass over the input in original order.
// A shared DOI wins over title comparison; otherwise titles are compared
// against every previously kept entry and the first match at or above
// TitleThreshold counts. The higher-confidence duplicate survives, and the
// survivor moves to the end of the sequence built so far. The trailing
// explicit sort by confidence masks most of that reordering.
//
// O(n*k) over kept entries; result sets are tens of items, not thousands.
func Dedupe(candidates []model.Candidate) []model.Candidate {
	kept := make([]model.Candidate, 0, len(candidates))

	for _, c := range candidates {
		idx := findDuplicate(kept, c)
		if idx < 0 {
			kept = append(kept, c)
			continue
		}
		prior := kept[idx]
		winner := prior
		if c.Confidence > prior.Confidence {
			winner = c
		}
		kept = append(kept[:idx], kept[idx+1:]...)
		kept = append(kept, winner)
	}
	return kept
}

// findDuplicate returns the index of the first kept entry that duplicates c,
// or -1 when c is distinct.
func findDuplicate(kept []model.Candidate, c model.Candidate) int {
	if doi := c.DOI(); doi != "" {
		for i, k := range kept {
			if k.DOI() == doi {
				return i
			}
		}
	}
	title := normalizeTitle(c.Title)
	if title == "" {
		return -1
	}
	for i, k := range kept {
		prior := normalizeTitle(k.Title)
		if prior == "" {
			continue
		}
		if levenshtein.Similarity(title, prior, levenshtein.NewParams()) >= TitleThreshold {
			return i
		}
	}
	return -1
}

func normalizeTitle(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
