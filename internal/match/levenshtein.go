package match

// Levenshtein computes the Levenshtein distance (edit distance) between two strings.
//
// Time complexity: O(len(a) * len(b))
// Space complexity: O(min(len(a), len(b))).
func Levenshtein(a, b string) int {
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

// Similarity returns 1 - distance/maxLen over the normalized forms of a and b.
// 1.0 means the names are equal after normalization.
func Similarity(a, b string) float64 {
	na, nb := NormalizeIdent(a), NormalizeIdent(b)

	maxLen := max(len([]rune(na)), len([]rune(nb)))
	if maxLen == 0 {
		return 1.0
	}

	return 1.0 - float64(Levenshtein(na, nb))/float64(maxLen)
}

// SuggestThreshold is the minimum similarity for Suggest to report a name.
const SuggestThreshold = 0.5

// Suggest returns the known name closest to name. Ties keep the earlier
// entry of known, so callers passing a sorted slice get stable output.
func Suggest(name string, known []string) (string, bool) {
	best, bestScore := "", SuggestThreshold

	for _, k := range known {
		if score := Similarity(name, k); score >= bestScore && (best == "" || score > bestScore) {
			best, bestScore = k, score
		}
	}

	return best, best != ""
}
