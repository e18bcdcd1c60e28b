package match

import (
	"slices"
	"strings"
)

// maxSuggestDistance is the largest edit distance still worth suggesting.
const maxSuggestDistance = 2

// Distance computes the Levenshtein (edit) distance between a and b using
// two rolling rows.
func Distance(a, b string) int {
	if a == b {
		return 0
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	if len(ra) == 0 {
		return len(rb)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)

	for i := range prev {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j

		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// Suggest returns the candidates closest to name, nearest first. Comparison
// ignores case, underscores and dashes. Nothing is returned when no candidate
// is within a small edit distance.
func Suggest(name string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}

	norm := fold(name)

	var hits []scored

	for _, c := range candidates {
		d := Distance(norm, fold(c))
		if d <= maxSuggestDistance && d < len(norm) {
			hits = append(hits, scored{name: c, dist: d})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		return a.dist - b.dist
	})

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}

	return out
}

func fold(s string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(s))
}
