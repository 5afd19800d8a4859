// Package epll reconstructs images from linear measurements using a
// Gaussian-mixture patch prior, following the approximated
// half-quadratic splitting method of Zoran and Weiss: every splitting
// step averages component-wise linear patch estimates into a consensus
// image and then restores data consistency with a conjugate-gradient
// solve.
package epll

import (
	"fmt"
	"io"

	"github.com/jvlmdr/go-cg/cg"
	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"

	"github.com/johertrich/deepinv/gmm"
	"github.com/johertrich/deepinv/patch"
	"github.com/johertrich/deepinv/physics"
)

// Options controls the reconstruction loop. The zero value selects the
// defaults below.
type Options struct {
	// PatchSize is the side of the square patches. Default 6.
	PatchSize int
	// Betas is the splitting parameter schedule. Nil selects the
	// standard choice [1, 4, 8, 16, 32]/sigmaSq.
	Betas []float64
	// BatchSize limits how many patches are estimated at once. It has
	// no effect on the result, only on memory. -1 (the default)
	// processes all patches in one batch; larger values than the patch
	// count are clipped.
	BatchSize int
	// CGTol and CGIter bound the conjugate-gradient solve.
	// Defaults 1e-5 and 100.
	CGTol  float64
	CGIter int
	// Debug receives conjugate-gradient progress when non-nil.
	Debug io.Writer
}

func (o *Options) defaults(sigmaSq float64) Options {
	out := Options{PatchSize: 6, BatchSize: -1, CGTol: 1e-5, CGIter: 100}
	if o != nil {
		if o.PatchSize > 0 {
			out.PatchSize = o.PatchSize
		}
		if o.Betas != nil {
			out.Betas = append([]float64(nil), o.Betas...)
		}
		if o.BatchSize != 0 {
			out.BatchSize = o.BatchSize
		}
		if o.CGTol > 0 {
			out.CGTol = o.CGTol
		}
		if o.CGIter > 0 {
			out.CGIter = o.CGIter
		}
		out.Debug = o.Debug
	}
	if out.Betas == nil {
		out.Betas = DefaultBetas(sigmaSq)
	}
	return out
}

// DefaultBetas returns the standard splitting schedule
// [1, 4, 8, 16, 32]/sigmaSq.
func DefaultBetas(sigmaSq float64) []float64 {
	base := []float64{1, 4, 8, 16, 32}
	for i := range base {
		base[i] /= sigmaSq
	}
	return base
}

// NegLogLikelihood evaluates the patch prior: the mixture negative log
// likelihood of every patch row.
func NegLogLikelihood(model *gmm.Model, patches *mat.Dense) ([]float64, error) {
	return model.NegLogLikelihood(patches)
}

// Reconstruct estimates the image observed through the linear operator
// op as the measurement y, starting from xInit. sigmaSq is the squared
// noise level and acts as the regularization parameter. The returned
// image has the shape of xInit; xInit is not modified.
func Reconstruct(model *gmm.Model, y []float64, xInit *rimg64.Multi, sigmaSq float64, op physics.LinearOperator, opts *Options) (*rimg64.Multi, error) {
	opt := opts.defaults(sigmaSq)
	if d := patch.Dim(opt.PatchSize, xInit.Channels); d != model.Dim() {
		return nil, fmt.Errorf("patch dimension %d differs from mixture dimension %d", d, model.Dim())
	}
	if opt.PatchSize > xInit.Width || opt.PatchSize > xInit.Height {
		return nil, fmt.Errorf("patch size %d exceeds image %dx%d", opt.PatchSize, xInit.Width, xInit.Height)
	}

	aty, err := op.Adjoint(y)
	if err != nil {
		return nil, err
	}
	x := cloneImage(xInit)
	for _, beta := range opt.Betas {
		x, err = step(model, aty, x, sigmaSq, beta, op, &opt)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}

// ReconstructBatch reconstructs each sample independently, one at a
// time. There is no cross-sample vectorization; samples share only the
// read-only model and operator.
func ReconstructBatch(model *gmm.Model, ys [][]float64, xInits []*rimg64.Multi, sigmaSq float64, op physics.LinearOperator, opts *Options) ([]*rimg64.Multi, error) {
	if len(ys) != len(xInits) {
		return nil, fmt.Errorf("batch sizes differ: %d measurements, %d initializations", len(ys), len(xInits))
	}
	out := make([]*rimg64.Multi, len(ys))
	for i := range ys {
		x, err := Reconstruct(model, ys[i], xInits[i], sigmaSq, op, opts)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		out[i] = x
	}
	return out, nil
}

// step performs one half-quadratic splitting iteration: a batched pass
// over all patches of x followed by the data-consistency solve
// (A'A + beta sigmaSq I) x = A'y + beta sigmaSq xTilde.
func step(model *gmm.Model, aty, x *rimg64.Multi, sigmaSq, beta float64, op physics.LinearOperator, opt *Options) (*rimg64.Multi, error) {
	reg, err := model.Regularize(1 / beta)
	if err != nil {
		return nil, err
	}

	total := patch.Count(x.Width, x.Height, opt.PatchSize)
	batch := opt.BatchSize
	if batch == -1 || batch > total {
		batch = total
	}

	acc := patch.NewAccumulator(x.Width, x.Height, x.Channels)
	inds := make([]int, 0, batch)
	for ind := 0; ind < total; ind += batch {
		n := min(batch, total-ind)
		inds = inds[:0]
		for i := 0; i < n; i++ {
			inds = append(inds, ind+i)
		}
		patches, elems := patch.Extract(x, opt.PatchSize, inds)
		comps := reg.Classify(patches)
		acc.Add(reg.Estimate(patches, comps), elems)
	}
	xTilde, err := acc.Mean()
	if err != nil {
		return nil, err
	}

	// Data consistency by conjugate gradient on the flattened image.
	lambda := beta * sigmaSq
	rhs := make([]float64, len(aty.Elems))
	for i := range rhs {
		rhs[i] = aty.Elems[i] + lambda*xTilde.Elems[i]
	}
	var opErr error
	a := func(v []float64) []float64 {
		im := &rimg64.Multi{Elems: v, Width: x.Width, Height: x.Height, Channels: x.Channels}
		w, err := op.Adjoint(op.Forward(im))
		if err != nil {
			opErr = err
			return v
		}
		out := make([]float64, len(v))
		for i := range out {
			out[i] = w.Elems[i] + lambda*v[i]
		}
		return out
	}
	elems, err := cg.Solve(a, rhs, cloneSlice(x.Elems), opt.CGTol, opt.CGIter, opt.Debug)
	if opErr != nil {
		return nil, opErr
	}
	if err != nil {
		return nil, err
	}
	return &rimg64.Multi{Elems: elems, Width: x.Width, Height: x.Height, Channels: x.Channels}, nil
}

func cloneImage(x *rimg64.Multi) *rimg64.Multi {
	out := rimg64.NewMulti(x.Width, x.Height, x.Channels)
	copy(out.Elems, x.Elems)
	return out
}

func cloneSlice(x []float64) []float64 {
	return append([]float64(nil), x...)
}

func min(a, b int) int {
	if b < a {
		return b
	}
	return a
}
