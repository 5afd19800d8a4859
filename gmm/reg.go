package gmm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Regularized is a read-only view of a mixture with every covariance
// replaced by Sigma_k + reg I, factored once. Building a view per
// reconstruction step keeps the shared Model immutable, so concurrent
// reconstructions over one mixture need no serialization.
type Regularized struct {
	model *Model
	f     *factors
	est   []*mat.Dense
}

// Regularize factors Sigma_k + reg I for all components and precomputes
// the patch estimation matrices (Sigma_k + reg I)^{-1} Sigma_k.
func (m *Model) Regularize(reg float64) (*Regularized, error) {
	if reg < 0 {
		return nil, fmt.Errorf("negative covariance regularization %g", reg)
	}
	f, err := m.factorize(reg)
	if err != nil {
		return nil, err
	}
	d := m.Dim()
	est := make([]*mat.Dense, m.K())
	for k, cov := range m.Covs {
		e := mat.NewDense(d, d, nil)
		if err := f.chols[k].SolveTo(e, cov); err != nil {
			return nil, fmt.Errorf("estimation matrix %d: %w", k, err)
		}
		est[k] = e
	}
	return &Regularized{model: m, f: f, est: est}, nil
}

// Classify assigns every row of x to its most likely component under the
// regularized covariances (the minimal regularized negative log
// posterior).
func (r *Regularized) Classify(x *mat.Dense) []int {
	n, d := x.Dims()
	if d != r.model.Dim() {
		panic(fmt.Sprintf("point dimension %d differs from mixture dimension %d", d, r.model.Dim()))
	}
	var (
		out  = make([]int, n)
		lp   = make([]float64, r.model.K())
		diff = mat.NewVecDense(d, nil)
		sol  = mat.NewVecDense(d, nil)
	)
	for i := 0; i < n; i++ {
		r.model.logComponents(r.f, x.RawRowView(i), lp, diff, sol)
		best := 0
		for k, v := range lp {
			if v > lp[best] {
				best = k
			}
		}
		out[i] = best
	}
	return out
}

// Estimate applies the component estimation matrix of comps[i] to row i
// of x, producing the linear MMSE-style patch estimates.
func (r *Regularized) Estimate(x *mat.Dense, comps []int) *mat.Dense {
	n, d := x.Dims()
	if n != len(comps) {
		panic(fmt.Sprintf("rows differ from assignments: %d != %d", n, len(comps)))
	}
	var (
		out = mat.NewDense(n, d, nil)
		res = mat.NewVecDense(d, nil)
	)
	for i := 0; i < n; i++ {
		res.MulVec(r.est[comps[i]], mat.NewVecDense(d, x.RawRowView(i)))
		out.SetRow(i, res.RawVector().Data)
	}
	return out
}
