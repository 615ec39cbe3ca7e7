package vocab

// sequenceRatio is a Ratcliff/Obershelp similarity over two strings:
// 2*M / (len(a)+len(b)) where M sums the lengths of recursively matched
// blocks. Range [0,1], 1 for identical strings.
func sequenceRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	m := matchingBlocks([]byte(a), []byte(b))
	return 2 * float64(m) / float64(len(a)+len(b))
}

func matchingBlocks(a, b []byte) int {
	ai, bi, size := longestCommonBlock(a, b)
	if size == 0 {
		return 0
	}
	total := size
	total += matchingBlocks(a[:ai], b[:bi])
	total += matchingBlocks(a[ai+size:], b[bi+size:])
	return total
}

func longestCommonBlock(a, b []byte) (int, int, int) {
	bestA, bestB, bestSize := 0, 0, 0
	// lengths here are short type names; the quadratic table is fine.
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > bestSize {
					bestSize = cur[j]
					bestA = i - cur[j]
					bestB = j - cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return bestA, bestB, bestSize
}
