package physics

import (
	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"
)

// Materialize instantiates the matrix of a linear forward map by applying
// it to every basis image of the given shape. The result has one column
// per pixel, in the element order of rimg64.Multi. The adjoint of the map
// is then exactly the transpose of the returned matrix.
//
// This costs width*height*channels forward applications and is intended
// for operators without a closed-form adjoint, and for tests.
func Materialize(forward func(*rimg64.Multi) []float64, width, height, channels int) *mat.Dense {
	e := rimg64.NewMulti(width, height, channels)
	n := len(e.Elems)
	var a *mat.Dense
	for j := 0; j < n; j++ {
		e.Elems[j] = 1
		col := forward(e)
		e.Elems[j] = 0
		if a == nil {
			a = mat.NewDense(len(col), n, nil)
		}
		a.SetCol(j, col)
	}
	return a
}

// MulAdjoint applies the transpose of a materialized operator matrix to a
// measurement vector and shapes the result as an image.
func MulAdjoint(a *mat.Dense, y []float64, width, height, channels int) *rimg64.Multi {
	m, n := a.Dims()
	if len(y) != m {
		panic("measurement length does not match operator matrix")
	}
	x := mat.NewVecDense(n, nil)
	x.MulVec(a.T(), mat.NewVecDense(m, y))
	im := rimg64.NewMulti(width, height, channels)
	copy(im.Elems, x.RawVector().Data)
	return im
}
