// Package radon implements line-integral projection operators for
// tomography: a parallel-beam Radon transform whose backprojection is the
// exact discrete adjoint, a frequency-domain ramp filter, filtered
// backprojection, and a fan-beam projector with physical geometry
// parameters.
package radon

import (
	"math"
)

// Uniform returns n angles sampled uniformly over [0, 180) degrees.
func Uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 180 * float64(i) / float64(n)
	}
	return out
}

// diag returns the detector length needed to cover the diagonal of a
// square image of the given width.
func diag(width int) int {
	return int(math.Ceil(math.Sqrt2 * float64(width)))
}
