package sensing

import (
	"math/rand"
	"testing"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

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

// testAdjointness checks <A u, v> == <u, A' v> on random vectors.
func testAdjointness(t *testing.T, cs *CompressedSensing, rng *rand.Rand) {
	w, h, c := cs.ImageShape()
	u := randMulti(w, h, c, rng)
	v := make([]float64, cs.MeasurementSize())
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	au := cs.Forward(u)
	atv, err := cs.Adjoint(v)
	require.NoError(t, err)
	assert.InDelta(t, dot(au, v), dot(u.Elems, atv.Elems), 1e-10)
}

func TestDenseAdjointness(t *testing.T) {
	cs, err := New(Config{M: 10, Width: 5, Height: 4, Seed: 1})
	require.NoError(t, err)
	testAdjointness(t, cs, rand.New(rand.NewSource(1)))
}

func TestFastAdjointness(t *testing.T) {
	cs, err := New(Config{M: 12, Width: 6, Height: 5, Fast: true, Seed: 2})
	require.NoError(t, err)
	testAdjointness(t, cs, rand.New(rand.NewSource(2)))
}

func TestChannelwiseAdjointness(t *testing.T) {
	for _, fast := range []bool{false, true} {
		cs, err := New(Config{M: 6, Width: 4, Height: 4, Channels: 3, Channelwise: true, Fast: fast, Seed: 3})
		require.NoError(t, err)
		assert.Equal(t, 18, cs.MeasurementSize())
		testAdjointness(t, cs, rand.New(rand.NewSource(3)))
	}
}

func TestDensePseudoInverse(t *testing.T) {
	// A Adag A x == A x for the Moore-Penrose pseudo-inverse.
	cs, err := New(Config{M: 8, Width: 4, Height: 4, Seed: 4})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(4))
	x := randMulti(4, 4, 1, rng)
	ax := cs.Forward(x)
	xd, err := cs.PseudoInv(ax)
	require.NoError(t, err)
	assert.InDeltaSlice(t, ax, cs.Forward(xd), 1e-9)
}

func TestFastFullSamplingInverts(t *testing.T) {
	// With m == n the SORS operator is orthogonal, so the pseudo-inverse
	// (its adjoint) inverts it exactly.
	cs, err := New(Config{M: 20, Width: 5, Height: 4, Fast: true, Seed: 5})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(5))
	x := randMulti(5, 4, 1, rng)
	got, err := cs.PseudoInv(cs.Forward(x))
	require.NoError(t, err)
	assert.InDeltaSlice(t, x.Elems, got.Elems, 1e-10)
}

func TestMatrixMatchesDense(t *testing.T) {
	cs, err := New(Config{M: 7, Width: 3, Height: 4, Seed: 6})
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(cs.a, cs.Matrix(), 1e-12))
}

func TestFastMatchesMaterialized(t *testing.T) {
	// The fast operator agrees with its own dense instantiation, so the
	// O(n log n) path computes the same linear map as an explicit matrix.
	for _, w := range []int{4, 8} {
		n := w * w
		cs, err := New(Config{M: n, Width: w, Height: w, Fast: true, Seed: int64(w)})
		require.NoError(t, err)
		a := cs.Matrix()
		rng := rand.New(rand.NewSource(int64(w)))
		x := randMulti(w, w, 1, rng)
		want := mat.NewVecDense(n, nil)
		want.MulVec(a, mat.NewVecDense(n, x.Elems))
		assert.InDeltaSlice(t, want.RawVector().Data, cs.Forward(x), 1e-10, "width %d", w)
	}
}

func TestMatrixFastHasOrthonormalRows(t *testing.T) {
	cs, err := New(Config{M: 9, Width: 4, Height: 4, Fast: true, Seed: 7})
	require.NoError(t, err)
	a := cs.Matrix()
	var gram mat.Dense
	gram.Mul(a, a.T())
	eye := mat.NewDense(9, 9, nil)
	for i := 0; i < 9; i++ {
		eye.Set(i, i, 1)
	}
	assert.True(t, mat.EqualApprox(eye, &gram, 1e-10))
}

func TestNewRejectsBadConfigs(t *testing.T) {
	_, err := New(Config{M: 0, Width: 4, Height: 4})
	require.Error(t, err)
	_, err = New(Config{M: 4, Width: 0, Height: 4})
	require.Error(t, err)
	_, err = New(Config{M: 17, Width: 4, Height: 4, Fast: true})
	require.Error(t, err)
}

func TestAdjointRejectsWrongLength(t *testing.T) {
	cs, err := New(Config{M: 5, Width: 4, Height: 4, Seed: 8})
	require.NoError(t, err)
	_, err = cs.Adjoint(make([]float64, 4))
	require.Error(t, err)
}
