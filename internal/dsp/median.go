package dsp

import "sort"

// reflect maps an out-of-range index back into [0,n) by mirroring about the
// edges, repeating the edge sample (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		}
		if i >= n {
			i = 2*n - i - 1
		}
	}
	return i
}

// medianFilter writes the running median of src over a centred window of odd
// size k into dst. window is scratch space of length k.
func medianFilter(dst, src []float64, k int, window []float64) {
	n := len(src)
	if n == 0 {
		return
	}
	half := k / 2
	window = window[:0]
	for i := -half; i <= half; i++ {
		window = append(window, src[reflect(i, n)])
	}
	sort.Float64s(window)

	for p := 0; p < n; p++ {
		dst[p] = window[half]
		if p == n-1 {
			break
		}
		out := src[reflect(p-half, n)]
		in := src[reflect(p+half+1, n)]

		// drop the outgoing value
		j := sort.SearchFloat64s(window, out)
		copy(window[j:], window[j+1:])
		window = window[:k-1]

		// insert the incoming one
		j = sort.SearchFloat64s(window, in)
		window = append(window, 0)
		copy(window[j+1:], window[j:])
		window[j] = in
	}
}
