package physics

import (
	"math/rand"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/floats"
)

// PowerMethod estimates the dominant eigenvalue of A* A by power
// iteration with L2 renormalization at every step. It stops as soon as
// the estimate changes by less than tol, or after maxIter iterations,
// whichever comes first, and returns the estimate together with the
// number of iterations performed. Non-convergence is not an error; the
// best available estimate is returned.
func PowerMethod(op LinearOperator, maxIter int, tol float64, rng *rand.Rand) (float64, int, error) {
	w, h, c := op.ImageShape()
	x := randImage(w, h, c, rng)
	floats.Scale(1/floats.Norm(x.Elems, 2), x.Elems)

	var z, zold float64
	var it int
	for it = 0; it < maxIter; it++ {
		y, err := op.Adjoint(op.Forward(x))
		if err != nil {
			return 0, it, err
		}
		nx := floats.Norm(x.Elems, 2)
		z = floats.Dot(x.Elems, y.Elems) / (nx * nx)
		if abs64(z-zold) < tol {
			break
		}
		zold = z
		floats.ScaleTo(x.Elems, 1/floats.Norm(y.Elems, 2), y.Elems)
	}
	return z, it, nil
}

// AdjointnessTest draws an independent Gaussian probe v in measurement
// space and returns <v, A u> - <A* v, u>, which is zero up to numerical
// precision when the adjoint is implemented correctly.
func AdjointnessTest(op LinearOperator, u *rimg64.Multi, rng *rand.Rand) (float64, error) {
	au := op.Forward(u)
	v := make([]float64, len(au))
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	atv, err := op.Adjoint(v)
	if err != nil {
		return 0, err
	}
	return floats.Dot(v, au) - floats.Dot(atv.Elems, u.Elems), nil
}

func randImage(width, height, channels int, rng *rand.Rand) *rimg64.Multi {
	im := rimg64.NewMulti(width, height, channels)
	for i := range im.Elems {
		im.Elems[i] = rng.NormFloat64()
	}
	return im
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
