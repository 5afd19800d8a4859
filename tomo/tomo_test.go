package tomo

import (
	"math/rand"
	"testing"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johertrich/deepinv/physics"
	"github.com/johertrich/deepinv/radon"
)

func randMulti(width, height, channels int, rng *rand.Rand) *rimg64.Multi {
	im := rimg64.NewMulti(width, height, channels)
	for i := range im.Elems {
		im.Elems[i] = rng.NormFloat64()
	}
	return im
}

func TestParallelAdjointness(t *testing.T) {
	op, err := New(Config{Angles: radon.Uniform(5), Width: 12})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(0))
	res, err := physics.AdjointnessTest(op, randMulti(12, 12, 1, rng), rng)
	require.NoError(t, err)
	assert.InDelta(t, 0, res, 1e-9)
}

func TestFanAdjointness(t *testing.T) {
	// The fan-beam adjoint is the materialized transpose of the forward
	// map, so the adjoint identity holds to roundoff.
	op, err := New(Config{Angles: []float64{0, 60, 120}, Width: 8, FanBeam: true})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(1))
	res, err := physics.AdjointnessTest(op, randMulti(8, 8, 1, rng), rng)
	require.NoError(t, err)
	assert.InDelta(t, 0, res, 1e-9)
}

func TestDeferredWidth(t *testing.T) {
	op, err := New(Config{Angles: radon.Uniform(4)})
	require.NoError(t, err)

	// Before the first projection the geometry is unresolved.
	_, err = op.Adjoint(nil)
	require.Error(t, err)
	_, err = op.PseudoInv(nil)
	require.Error(t, err)
	assert.Equal(t, 0, op.DetectorSize())

	rng := rand.New(rand.NewSource(2))
	x := randMulti(10, 10, 1, rng)
	y := op.Forward(x)
	w, h, c := op.ImageShape()
	assert.Equal(t, [3]int{10, 10, 1}, [3]int{w, h, c})
	assert.Equal(t, op.DetectorSize()*4, len(y))

	xb, err := op.Adjoint(y)
	require.NoError(t, err)
	assert.Equal(t, 10, xb.Width)
}

func TestPseudoInvReconstructs(t *testing.T) {
	// Filtered backprojection recovers a centered square well enough to
	// dominate the background.
	const w = 24
	x := rimg64.NewMulti(w, w, 1)
	for i := 9; i < 15; i++ {
		for j := 9; j < 15; j++ {
			x.Set(i, j, 0, 1)
		}
	}
	op, err := New(Config{Angles: radon.Uniform(40), Width: w})
	require.NoError(t, err)
	got, err := op.PseudoInv(op.Forward(x))
	require.NoError(t, err)
	assert.InDelta(t, 1, got.At(12, 12, 0), 0.3)
	assert.InDelta(t, 0, got.At(1, 1, 0), 0.3)
}

func TestForwardPanicsOnNonSquare(t *testing.T) {
	op, err := New(Config{Angles: radon.Uniform(4)})
	require.NoError(t, err)
	require.Panics(t, func() { op.Forward(rimg64.NewMulti(4, 6, 1)) })
}

func TestAdjointPanicsOnWrongLength(t *testing.T) {
	op, err := New(Config{Angles: radon.Uniform(4), Width: 8})
	require.NoError(t, err)
	require.Panics(t, func() { op.Adjoint(make([]float64, 3)) })
}

func TestNewRejectsEmptyAngles(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
