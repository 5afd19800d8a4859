package gmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// factors holds Cholesky factorizations of Sigma_k + reg I for all
// components of a model. It is immutable once built.
type factors struct {
	reg     float64
	chols   []*mat.Cholesky
	logdets []float64
}

// factorize builds positive-definite factorizations of all component
// covariances with reg added to the diagonal. A semi-definite covariance
// that fails to factorize is retried with a small trace-scaled jitter.
func (m *Model) factorize(reg float64) (*factors, error) {
	d := m.Dim()
	f := &factors{
		reg:     reg,
		chols:   make([]*mat.Cholesky, m.K()),
		logdets: make([]float64, m.K()),
	}
	for k, cov := range m.Covs {
		s := mat.NewSymDense(d, nil)
		s.CopySym(cov)
		for i := 0; i < d; i++ {
			s.SetSym(i, i, s.At(i, i)+reg)
		}
		var ch mat.Cholesky
		if !ch.Factorize(s) {
			jitter := 1e-9 * (mat.Trace(s)/float64(d) + 1)
			for i := 0; i < d; i++ {
				s.SetSym(i, i, s.At(i, i)+jitter)
			}
			if !ch.Factorize(s) {
				return nil, fmt.Errorf("covariance %d is not positive definite (reg %g)", k, reg)
			}
		}
		f.chols[k] = &ch
		f.logdets[k] = ch.LogDet()
	}
	return f, nil
}

// mahalanobis returns (x-mu)' (Sigma_k + reg I)^{-1} (x-mu) using scratch
// vectors diff and sol of dimension d.
func (f *factors) mahalanobis(k int, x, mu []float64, diff, sol *mat.VecDense) float64 {
	for i := range x {
		diff.SetVec(i, x[i]-mu[i])
	}
	if err := f.chols[k].SolveVecTo(sol, diff); err != nil {
		// Factorization succeeded, so the solve cannot fail.
		panic(err)
	}
	return mat.Dot(diff, sol)
}

// logComponents fills dst[k] with log w_k + log N(x; mu_k, Sigma_k+regI).
func (m *Model) logComponents(f *factors, x []float64, dst []float64, diff, sol *mat.VecDense) {
	d := float64(m.Dim())
	for k := range m.Weights {
		maha := f.mahalanobis(k, x, m.Means[k], diff, sol)
		dst[k] = math.Log(m.Weights[k]) - 0.5*(d*log2Pi+f.logdets[k]+maha)
	}
}

// NegLogLikelihood evaluates the mixture negative log likelihood for
// every row of x.
func (m *Model) NegLogLikelihood(x *mat.Dense) ([]float64, error) {
	f, err := m.factorize(0)
	if err != nil {
		return nil, err
	}
	n, d := x.Dims()
	if d != m.Dim() {
		return nil, fmt.Errorf("point dimension %d differs from mixture dimension %d", d, m.Dim())
	}
	var (
		out  = make([]float64, n)
		lp   = make([]float64, m.K())
		diff = mat.NewVecDense(d, nil)
		sol  = mat.NewVecDense(d, nil)
	)
	for i := 0; i < n; i++ {
		m.logComponents(f, x.RawRowView(i), lp, diff, sol)
		out[i] = -logSumExp(lp)
	}
	return out, nil
}

func logSumExp(x []float64) float64 {
	max := math.Inf(-1)
	for _, v := range x {
		if v > max {
			max = v
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	var sum float64
	for _, v := range x {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
