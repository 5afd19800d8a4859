package transform

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
)

// DCT1 computes the orthonormal type-I discrete cosine transform of
// sequences of a fixed length n.
//
// The transform matrix is sqrt(2/(n-1)) s_k s_j cos(pi j k / (n-1)) with
// s_0 = s_{n-1} = 1/sqrt(2) and s_j = 1 otherwise. It is symmetric and
// orthogonal, so the transform is its own adjoint and its own inverse.
// It is computed from the unnormalized FFTPACK DCT-I of the underlying
// library by scaling the boundary samples of input and output by
// 1/sqrt(2).
type DCT1 struct {
	n     int
	scale float64

	// The plan keeps internal scratch, so transforms are serialized.
	mu   sync.Mutex
	plan *fourier.DCT
	buf  []float64
}

// NewDCT1 creates a transform for sequences of length n.
// n must be at least 2.
func NewDCT1(n int) *DCT1 {
	if n < 2 {
		panic(fmt.Sprintf("sequence too short for DCT-I: %d", n))
	}
	return &DCT1{
		n:     n,
		scale: math.Sqrt(2 / float64(n-1)),
		plan:  fourier.NewDCT(n),
		buf:   make([]float64, n),
	}
}

// Len returns the sequence length of the transform.
func (t *DCT1) Len() int { return t.n }

// Transform computes the orthonormal DCT-I of src into dst and returns
// dst. If dst is nil, a new slice is allocated. Otherwise len(dst) must
// equal len(src), which must equal Len().
func (t *DCT1) Transform(dst, src []float64) []float64 {
	if len(src) != t.n {
		panic(fmt.Sprintf("sequence length mismatch: %d != %d", len(src), t.n))
	}
	if dst == nil {
		dst = make([]float64, t.n)
	} else if len(dst) != t.n {
		panic(fmt.Sprintf("destination length mismatch: %d != %d", len(dst), t.n))
	}
	t.mu.Lock()
	// Fold the endpoint half-weights and the doubled interior terms of
	// the unnormalized DCT-I into the input.
	t.buf[0] = src[0] / math.Sqrt2
	t.buf[t.n-1] = src[t.n-1] / math.Sqrt2
	for j := 1; j < t.n-1; j++ {
		t.buf[j] = src[j] / 2
	}
	t.plan.Transform(dst, t.buf)
	t.mu.Unlock()
	for i := range dst {
		dst[i] *= t.scale
	}
	dst[0] /= math.Sqrt2
	dst[t.n-1] /= math.Sqrt2
	return dst
}
