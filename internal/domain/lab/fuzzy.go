package lab

import "strings"

// SimilarityRatio computes a similarity score in [0, 1] between two strings,
// case-insensitively. It is the classic sequence-matcher ratio: twice the
// number of matching characters over the total length, where matches are
// found by recursively locating the longest common substring and matching
// the remainders on each side of it.
func SimilarityRatio(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts runes covered by the recursive longest-common-substring
// decomposition of a and b.
func matchingRunes(a, b []rune) int {
	ai, bi, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	n := size
	n += matchingRunes(a[:ai], b[:bi])
	n += matchingRunes(a[ai+size:], b[bi+size:])
	return n
}

// longestCommonSubstring returns the start offsets and length of the longest
// run of runes common to a and b. Single-row dynamic programming keeps the
// extra space linear in len(b).
func longestCommonSubstring(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > size {
					size = curr[j]
					ai = i - size
					bi = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return ai, bi, size
}
