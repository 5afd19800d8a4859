package physics

import (
	"math/rand"
	"testing"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diagOp scales each element of a 3x1 image by a fixed factor.
type diagOp struct {
	scale []float64
}

func (op diagOp) Forward(x *rimg64.Multi) []float64 {
	out := make([]float64, len(x.Elems))
	for i, v := range x.Elems {
		out[i] = op.scale[i] * v
	}
	return out
}

func (op diagOp) ImageShape() (int, int, int) { return len(op.scale), 1, 1 }

func (op diagOp) Adjoint(y []float64) (*rimg64.Multi, error) {
	im := rimg64.NewMulti(len(op.scale), 1, 1)
	for i, v := range y {
		im.Elems[i] = op.scale[i] * v
	}
	return im, nil
}

func TestPowerMethodDiagonal(t *testing.T) {
	// A'A has eigenvalues 1, 4 and 9.
	op := diagOp{scale: []float64{1, 2, 3}}
	z, it, err := PowerMethod(op, 100, 1e-9, rand.New(rand.NewSource(0)))
	require.NoError(t, err)
	assert.InDelta(t, 9, z, 1e-3)
	assert.Less(t, it, 100)
}

func TestAdjointnessDiagonal(t *testing.T) {
	op := diagOp{scale: []float64{1, 2, 3}}
	rng := rand.New(rand.NewSource(1))
	u := randImage(3, 1, 1, rng)
	res, err := AdjointnessTest(op, u, rng)
	require.NoError(t, err)
	assert.InDelta(t, 0, res, 1e-12)
}

func TestMaterializeTransposes(t *testing.T) {
	op := diagOp{scale: []float64{1, 2, 3}}
	a := Materialize(op.Forward, 3, 1, 1)
	m, n := a.Dims()
	require.Equal(t, 3, m)
	require.Equal(t, 3, n)
	// The adjoint of a diagonal map is the map itself.
	x := MulAdjoint(a, []float64{1, 1, 1}, 3, 1, 1)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, x.Elems, 1e-12)
}

func TestPseudoInvFallsBackToAdjoint(t *testing.T) {
	op := diagOp{scale: []float64{1, 2, 3}}
	x, err := PseudoInv(op, []float64{1, 1, 1})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 3}, x.Elems, 1e-12)
}

func TestGaussianNoiseLevel(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	y := make([]float64, 20000)
	noisy := GaussianNoise(0.5)(y, rng)
	var sq float64
	for _, v := range noisy {
		sq += v * v
	}
	assert.InDelta(t, 0.25, sq/float64(len(noisy)), 0.01)
}
