package transform

import (
	"fmt"
	"math"
)

// Hadamard multiplies x in-place by the Hadamard matrix of dimension
// n x n, where n = len(x). n must be a power of two.
// If normalize is true, the result is divided by 2^(m/2) with m = log2(n),
// which makes the transform orthogonal (and therefore self-inverse).
func Hadamard(x []float64, normalize bool) {
	n := len(x)
	if n == 0 || n&(n-1) != 0 {
		panic(fmt.Sprintf("length must be a power of two: %d", n))
	}
	// Standard butterfly: combine pairwise sums and differences.
	for h := 1; h < n; h *= 2 {
		for i := 0; i < n; i += 2 * h {
			for j := i; j < i+h; j++ {
				a, b := x[j], x[j+h]
				x[j], x[j+h] = a+b, a-b
			}
		}
	}
	if normalize {
		s := 1 / math.Sqrt(float64(n))
		for i := range x {
			x[i] *= s
		}
	}
}
