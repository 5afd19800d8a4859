package radon

import (
	"math/rand"
	"testing"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniform(t *testing.T) {
	assert.Equal(t, []float64{0, 45, 90, 135}, Uniform(4))
}

func randMulti(width, height, channels int, rng *rand.Rand) *rimg64.Multi {
	im := rimg64.NewMulti(width, height, channels)
	for i := range im.Elems {
		im.Elems[i] = rng.NormFloat64()
	}
	return im
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sum(a []float64) float64 {
	var s float64
	for _, v := range a {
		s += v
	}
	return s
}

func TestParallelAdjointness(t *testing.T) {
	// <R u, v> == <u, R' v> must hold to roundoff since projection and
	// backprojection enumerate the same interpolation weights.
	rng := rand.New(rand.NewSource(0))
	p := NewParallel(Uniform(7), 16, false)
	u := randMulti(16, 16, 1, rng)
	v := randMulti(p.DetectorSize(), 7, 1, rng)
	assert.InDelta(t, dot(p.Sinogram(u).Elems, v.Elems), dot(u.Elems, p.Backproject(v).Elems), 1e-9)
}

func TestSinogramMassAxisAligned(t *testing.T) {
	// At axis-aligned angles the sample lattice coincides with the pixel
	// grid up to a constant shift, so the bilinear weights covering each
	// pixel sum to one and the projection integrates the full image mass.
	rng := rand.New(rand.NewSource(1))
	p := NewParallel([]float64{0, 90}, 16, false)
	x := randMulti(16, 16, 1, rng)
	y := p.Sinogram(x)
	want := sum(x.Elems)
	for a := range p.Angles {
		var got float64
		for t2 := 0; t2 < p.DetectorSize(); t2++ {
			got += y.At(t2, a, 0)
		}
		assert.InDelta(t, want, got, 1e-9, "angle %g", p.Angles[a])
	}
}

func TestSinogramMassOblique(t *testing.T) {
	// At oblique angles the rotated sample lattice only approximates a
	// partition of unity, so mass is conserved approximately.
	p := NewParallel([]float64{30, 45, 120}, 16, false)
	x := rimg64.NewMulti(16, 16, 1)
	for i := range x.Elems {
		x.Elems[i] = 1
	}
	y := p.Sinogram(x)
	want := sum(x.Elems)
	for a := range p.Angles {
		var got float64
		for t2 := 0; t2 < p.DetectorSize(); t2++ {
			got += y.At(t2, a, 0)
		}
		assert.InDelta(t, want, got, 0.05*want, "angle %g", p.Angles[a])
	}
}

func TestSinogramCircleDetector(t *testing.T) {
	p := NewParallel(Uniform(4), 12, true)
	assert.Equal(t, 12, p.DetectorSize())
	// Pixels outside the inscribed circle do not contribute.
	x := rimg64.NewMulti(12, 12, 1)
	x.Set(0, 0, 0, 1) // corner pixel
	y := p.Sinogram(x)
	assert.InDelta(t, 0, sum(y.Elems), 1e-12)
}

func TestRampFilterImpulse(t *testing.T) {
	// The discrete ramp response at the impulse position is exactly 1/2,
	// and the response is symmetric about it.
	y := rimg64.NewMulti(21, 1, 1)
	y.Set(10, 0, 0, 1)
	f := RampFilter(y)
	assert.InDelta(t, 0.5, f.At(10, 0, 0), 1e-12)
	for o := 1; o <= 8; o++ {
		assert.InDelta(t, f.At(10-o, 0, 0), f.At(10+o, 0, 0), 1e-12, "offset %d", o)
	}
}

func TestRampFilterZero(t *testing.T) {
	y := rimg64.NewMulti(9, 3, 2)
	f := RampFilter(y)
	assert.Equal(t, 0.0, sum(f.Elems))
}

func TestFBPRoundTrip(t *testing.T) {
	// A centered square should be recovered by filtered backprojection
	// from a reasonably dense angle set.
	const w = 32
	x := rimg64.NewMulti(w, w, 1)
	for i := 12; i < 20; i++ {
		for j := 12; j < 20; j++ {
			x.Set(i, j, 0, 1)
		}
	}
	p := NewParallel(Uniform(60), w, false)
	got := p.FBP(p.Sinogram(x))
	var mse float64
	for i := range x.Elems {
		d := got.Elems[i] - x.Elems[i]
		mse += d * d
	}
	mse /= float64(len(x.Elems))
	assert.Less(t, mse, 0.05)
	assert.Greater(t, got.At(15, 15, 0), got.At(2, 2, 0))
}

func TestNewParallelPanics(t *testing.T) {
	require.Panics(t, func() { NewParallel(Uniform(4), 0, false) })
	require.Panics(t, func() { NewParallel(nil, 8, false) })
}

func TestFanSinogramSymmetry(t *testing.T) {
	// A symmetric image yields detector rows that are symmetric about the
	// central detector pixel.
	const w = 16
	x := rimg64.NewMulti(w, w, 1)
	for i := 5; i < 11; i++ {
		for j := 5; j < 11; j++ {
			x.Set(i, j, 0, 1)
		}
	}
	f, err := NewFan([]float64{0, 90}, w, DefaultFanParams(w))
	require.NoError(t, err)
	y := f.Sinogram(x)
	nd := f.DetectorSize()
	assert.Greater(t, sum(y.Elems), 0.0)
	for a := 0; a < 2; a++ {
		for d := 0; d < nd/2; d++ {
			assert.InDelta(t, y.At(d, a, 0), y.At(nd-1-d, a, 0), 1e-9, "angle %d detector %d", a, d)
		}
	}
}

func TestNewFanRejectsBadGeometry(t *testing.T) {
	params := DefaultFanParams(8)
	_, err := NewFan(Uniform(4), 0, params)
	require.Error(t, err)
	_, err = NewFan(nil, 8, params)
	require.Error(t, err)
	params.DetectorSpacing = 0
	_, err = NewFan(Uniform(4), 8, params)
	require.Error(t, err)
}
