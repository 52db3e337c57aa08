package catalog

import "strings"

// maxSuggestDistance bounds how far a typo may be from a property name.
const maxSuggestDistance = 3

// SuggestProperty returns the property identifier closest to input, or ""
// when none is within a few edits. Case is ignored.
func (c *Catalog) SuggestProperty(input string) string {
	want := []rune(strings.ToLower(input))
	best, bestDist := "", maxSuggestDistance+1
	for _, p := range c.properties {
		if d := editDistance(want, []rune(strings.ToLower(p.Value))); d < bestDist {
			best, bestDist = p.Value, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance over a single reused row.
func editDistance(a, b []rune) int {
	row := make([]int, len(b)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(a); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			diag, row[j] = row[j], min(row[j]+1, row[j-1]+1, diag+cost)
		}
	}
	return row[len(b)]
}
