package provider

// similarityRatio returns a measure of similarity of two strings in [0, 1],
// computed as twice the number of matching characters divided by the total
// length of both strings (Ratcliff/Obershelp).
func similarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	matches := matchingChars(a, b)
	return 2.0 * float64(matches) / float64(len(a)+len(b))
}

// matchingChars counts matching characters by finding the longest common
// substring and recursing on the pieces to its left and right.
func matchingChars(a, b string) int {
	size, aIdx, bIdx := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingChars(a[:aIdx], b[:bIdx])
	total += matchingChars(a[aIdx+size:], b[bIdx+size:])
	return total
}

// longestCommonSubstring returns the length of the longest common substring
// of a and b and its starting offsets in each.
func longestCommonSubstring(a, b string) (size, aIdx, bIdx int) {
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
					aIdx = i - size
					bIdx = j - size
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return size, aIdx, bIdx
}
