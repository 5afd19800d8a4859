// Package gmm implements a Gaussian mixture model over patch vectors:
// likelihood evaluation, covariance-regularized classification and
// linear MMSE patch estimation, expectation-maximization fitting, and
// parameter persistence.
package gmm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Model is a mixture of K Gaussians of dimension d.
// Weights sum to one and covariances are symmetric positive
// semi-definite; they are regularized to positive definite whenever an
// inverse is needed. The model is read-only during inference; fitting
// and explicit parameter loads are the only mutations.
type Model struct {
	Weights []float64
	Means   [][]float64
	Covs    []*mat.SymDense
}

// NewModel returns a mixture of k standard Gaussians of dimension d with
// uniform weights.
func NewModel(k, d int) *Model {
	m := &Model{
		Weights: make([]float64, k),
		Means:   make([][]float64, k),
		Covs:    make([]*mat.SymDense, k),
	}
	for i := 0; i < k; i++ {
		m.Weights[i] = 1 / float64(k)
		m.Means[i] = make([]float64, d)
		cov := mat.NewSymDense(d, nil)
		for j := 0; j < d; j++ {
			cov.SetSym(j, j, 1)
		}
		m.Covs[i] = cov
	}
	return m
}

// K returns the number of components.
func (m *Model) K() int { return len(m.Weights) }

// Dim returns the dimension of the patch space.
func (m *Model) Dim() int {
	if len(m.Means) == 0 {
		return 0
	}
	return len(m.Means[0])
}

// Validate checks the mixture invariants.
func (m *Model) Validate() error {
	k, d := m.K(), m.Dim()
	if len(m.Means) != k || len(m.Covs) != k {
		return fmt.Errorf("component counts differ: %d weights, %d means, %d covariances",
			k, len(m.Means), len(m.Covs))
	}
	var sum float64
	for i, w := range m.Weights {
		if w < 0 {
			return fmt.Errorf("negative weight %g in component %d", w, i)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-8 {
		return fmt.Errorf("weights sum to %g, want 1", sum)
	}
	for i := 0; i < k; i++ {
		if len(m.Means[i]) != d {
			return fmt.Errorf("mean %d has dimension %d, want %d", i, len(m.Means[i]), d)
		}
		if n := m.Covs[i].SymmetricDim(); n != d {
			return fmt.Errorf("covariance %d has dimension %d, want %d", i, n, d)
		}
	}
	return nil
}
