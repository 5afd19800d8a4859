package gmm

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// FitOptions controls expectation-maximization fitting.
type FitOptions struct {
	// MaxIter caps the number of EM iterations. Default 100.
	MaxIter int
	// Tol stops the iteration when the mean log likelihood improves by
	// less than Tol in absolute value. Default 1e-4.
	Tol float64
	// CovFloor is added to every covariance diagonal after each M-step
	// to keep the components positive definite. Default 1e-6.
	CovFloor float64
	// Rng seeds the component means. Defaults to a fixed-seed source.
	Rng *rand.Rand
}

func (o *FitOptions) defaults() FitOptions {
	out := FitOptions{MaxIter: 100, Tol: 1e-4, CovFloor: 1e-6}
	if o != nil {
		if o.MaxIter > 0 {
			out.MaxIter = o.MaxIter
		}
		if o.Tol > 0 {
			out.Tol = o.Tol
		}
		if o.CovFloor > 0 {
			out.CovFloor = o.CovFloor
		}
		out.Rng = o.Rng
	}
	if out.Rng == nil {
		out.Rng = rand.New(rand.NewSource(0))
	}
	return out
}

// Fit estimates a k-component mixture from the rows of x by EM.
// Means are seeded from random distinct rows and every component starts
// from the global data variance.
func Fit(x *mat.Dense, k int, opts *FitOptions) (*Model, error) {
	opt := opts.defaults()
	n, d := x.Dims()
	if n < k {
		return nil, fmt.Errorf("%d samples cannot seed %d components", n, k)
	}

	m := NewModel(k, d)
	perm := opt.Rng.Perm(n)
	for c := 0; c < k; c++ {
		copy(m.Means[c], x.RawRowView(perm[c]))
	}
	v := globalVariance(x)
	for c := 0; c < k; c++ {
		for i := 0; i < d; i++ {
			m.Covs[c].SetSym(i, i, v+opt.CovFloor)
		}
	}

	var (
		resp = mat.NewDense(n, k, nil)
		lp   = make([]float64, k)
		diff = mat.NewVecDense(d, nil)
		sol  = mat.NewVecDense(d, nil)
		old  = math.Inf(-1)
	)
	for it := 0; it < opt.MaxIter; it++ {
		// E-step in log space.
		f, err := m.factorize(0)
		if err != nil {
			return nil, err
		}
		var loglik float64
		for i := 0; i < n; i++ {
			m.logComponents(f, x.RawRowView(i), lp, diff, sol)
			lse := logSumExp(lp)
			loglik += lse
			for c := 0; c < k; c++ {
				resp.Set(i, c, math.Exp(lp[c]-lse))
			}
		}
		loglik /= float64(n)

		// M-step: weights, means, then covariances about the new means.
		for c := 0; c < k; c++ {
			var nk float64
			mu := make([]float64, d)
			for i := 0; i < n; i++ {
				r := resp.At(i, c)
				nk += r
				row := x.RawRowView(i)
				for j := 0; j < d; j++ {
					mu[j] += r * row[j]
				}
			}
			if nk < 1e-12 {
				// Empty component: reseed from a random sample.
				copy(mu, x.RawRowView(opt.Rng.Intn(n)))
				nk = 1e-12
			} else {
				for j := 0; j < d; j++ {
					mu[j] /= nk
				}
			}
			m.Weights[c] = nk / float64(n)
			m.Means[c] = mu

			cov := mat.NewSymDense(d, nil)
			for i := 0; i < n; i++ {
				r := resp.At(i, c)
				if r == 0 {
					continue
				}
				row := x.RawRowView(i)
				for a := 0; a < d; a++ {
					da := row[a] - mu[a]
					for b := a; b < d; b++ {
						cov.SetSym(a, b, cov.At(a, b)+r*da*(row[b]-mu[b]))
					}
				}
			}
			for a := 0; a < d; a++ {
				for b := a; b < d; b++ {
					cov.SetSym(a, b, cov.At(a, b)/nk)
				}
				cov.SetSym(a, a, cov.At(a, a)+opt.CovFloor)
			}
			m.Covs[c] = cov
		}
		normalize(m.Weights)

		if math.Abs(loglik-old) < opt.Tol {
			break
		}
		old = loglik
	}
	return m, nil
}

func globalVariance(x *mat.Dense) float64 {
	n, d := x.Dims()
	var mean, sq float64
	for i := 0; i < n; i++ {
		for _, v := range x.RawRowView(i) {
			mean += v
			sq += v * v
		}
	}
	cnt := float64(n * d)
	mean /= cnt
	v := sq/cnt - mean*mean
	if v <= 0 {
		v = 1
	}
	return v
}

func normalize(w []float64) {
	var sum float64
	for _, v := range w {
		sum += v
	}
	for i := range w {
		w[i] /= sum
	}
}
