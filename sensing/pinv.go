package sensing

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// pseudoInverse computes the Moore-Penrose pseudo-inverse of a via a
// thin SVD, discarding singular values below the usual tolerance.
func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	m, n := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return nil, fmt.Errorf("SVD of %dx%d sampling matrix failed", m, n)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	tol := float64(max(m, n)) * s[0] * 2.220446049250313e-16
	d := mat.NewDense(len(s), len(s), nil)
	for i, sv := range s {
		if sv > tol {
			d.Set(i, i, 1/sv)
		}
	}
	var tmp, pinv mat.Dense
	tmp.Mul(&v, d)
	pinv.Mul(&tmp, u.T())
	return &pinv, nil
}
