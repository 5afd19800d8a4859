// Package sensing implements the compressed-sensing measurement
// operator: either a dense i.i.d. Gaussian sampling matrix with an SVD
// pseudo-inverse, or a fast subsampled-orthogonal-with-random-signs
// (SORS) operator built from a random sign flip, a symmetric orthonormal
// DCT-I and a fixed subsampling mask.
package sensing

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"

	"github.com/johertrich/deepinv/physics"
	"github.com/johertrich/deepinv/transform"
)

// Config collects the construction parameters of a compressed-sensing
// operator.
type Config struct {
	// M is the number of measurements (per channel when Channelwise).
	M int
	// Width, Height, Channels give the input image shape.
	// Channels zero means one.
	Width, Height, Channels int
	// Fast selects the SORS operator instead of a dense Gaussian
	// matrix. Dense costs O(mn) per application, fast O(n log n);
	// fast is recommended beyond roughly 32x32 images.
	Fast bool
	// Channelwise applies the same sampling operator independently per
	// channel.
	Channelwise bool
	// Seed fixes the sampling pattern.
	Seed int64
}

// CompressedSensing is a linear measurement operator with a fixed random
// sampling pattern. It is immutable after construction.
type CompressedSensing struct {
	cfg  Config
	name string
	n    int // signal length per application

	// Dense mode.
	a    *mat.Dense
	pinv *mat.Dense

	// Fast mode.
	signs []float64
	mask  []int
	dct   *transform.DCT1
}

// New builds the operator, drawing the sampling pattern from the seeded
// generator once. The pattern is fixed thereafter.
func New(cfg Config) (*CompressedSensing, error) {
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Channels < 0 {
		return nil, fmt.Errorf("bad image shape %dx%dx%d", cfg.Width, cfg.Height, cfg.Channels)
	}
	if cfg.M <= 0 {
		return nil, fmt.Errorf("non-positive measurement count %d", cfg.M)
	}
	n := cfg.Width * cfg.Height
	if !cfg.Channelwise {
		n *= cfg.Channels
	}
	cs := &CompressedSensing{
		cfg:  cfg,
		name: fmt.Sprintf("CS_m%d", cfg.M),
		n:    n,
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Fast {
		if cfg.M > n {
			return nil, fmt.Errorf("cannot subsample %d of %d coefficients", cfg.M, n)
		}
		cs.signs = make([]float64, n)
		for i := range cs.signs {
			if rng.Float64() > 0.5 {
				cs.signs[i] = -1
			} else {
				cs.signs[i] = 1
			}
		}
		cs.mask = append([]int(nil), rng.Perm(n)[:cfg.M]...)
		sort.Ints(cs.mask)
		cs.dct = transform.NewDCT1(n)
		return cs, nil
	}

	data := make([]float64, cfg.M*n)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	cs.a = mat.NewDense(cfg.M, n, data)
	cs.a.Scale(1/math.Sqrt(float64(cfg.M)), cs.a)
	pinv, err := pseudoInverse(cs.a)
	if err != nil {
		return nil, err
	}
	cs.pinv = pinv
	return cs, nil
}

// Name returns the operator tag.
func (cs *CompressedSensing) Name() string { return cs.name }

// ImageShape reports the signal dimensions.
func (cs *CompressedSensing) ImageShape() (width, height, channels int) {
	return cs.cfg.Width, cs.cfg.Height, cs.cfg.Channels
}

// MeasurementSize returns the total length of a measurement vector.
func (cs *CompressedSensing) MeasurementSize() int {
	if cs.cfg.Channelwise {
		return cs.cfg.M * cs.cfg.Channels
	}
	return cs.cfg.M
}

// Forward applies the sampling operator. With Channelwise set, the
// measurement vector is the concatenation of the per-channel
// measurements.
func (cs *CompressedSensing) Forward(x *rimg64.Multi) []float64 {
	cs.checkImage(x)
	if !cs.cfg.Channelwise {
		return cs.apply(x.Elems)
	}
	out := make([]float64, cs.cfg.M*cs.cfg.Channels)
	vec := make([]float64, cs.n)
	for k := 0; k < cs.cfg.Channels; k++ {
		cs.channel(vec, x, k)
		copy(out[k*cs.cfg.M:], cs.apply(vec))
	}
	return out
}

// Adjoint applies the exact adjoint of Forward.
func (cs *CompressedSensing) Adjoint(y []float64) (*rimg64.Multi, error) {
	return cs.backward(y, cs.applyAdjoint)
}

// PseudoInv applies the Moore-Penrose pseudo-inverse. In fast mode this
// equals the adjoint, which is exact on the measured subspace of the
// partial orthogonal transform.
func (cs *CompressedSensing) PseudoInv(y []float64) (*rimg64.Multi, error) {
	if cs.cfg.Fast {
		return cs.Adjoint(y)
	}
	return cs.backward(y, cs.applyPinv)
}

// Matrix instantiates the operator as a dense matrix, one column per
// pixel. Intended for diagnostics on small shapes.
func (cs *CompressedSensing) Matrix() *mat.Dense {
	return physics.Materialize(cs.Forward, cs.cfg.Width, cs.cfg.Height, cs.cfg.Channels)
}

func (cs *CompressedSensing) backward(y []float64, apply func([]float64) []float64) (*rimg64.Multi, error) {
	if len(y) != cs.MeasurementSize() {
		return nil, fmt.Errorf("measurement has %d elements, want %d", len(y), cs.MeasurementSize())
	}
	im := rimg64.NewMulti(cs.cfg.Width, cs.cfg.Height, cs.cfg.Channels)
	if !cs.cfg.Channelwise {
		copy(im.Elems, apply(y))
		return im, nil
	}
	for k := 0; k < cs.cfg.Channels; k++ {
		vec := apply(y[k*cs.cfg.M : (k+1)*cs.cfg.M])
		for i := 0; i < cs.cfg.Width; i++ {
			for j := 0; j < cs.cfg.Height; j++ {
				im.Set(i, j, k, vec[i*cs.cfg.Height+j])
			}
		}
	}
	return im, nil
}

// apply computes A v for a flattened signal vector.
func (cs *CompressedSensing) apply(vec []float64) []float64 {
	if cs.cfg.Fast {
		tmp := make([]float64, cs.n)
		for i, v := range vec {
			tmp[i] = cs.signs[i] * v
		}
		t := cs.dct.Transform(nil, tmp)
		out := make([]float64, cs.cfg.M)
		for i, idx := range cs.mask {
			out[i] = t[idx]
		}
		return out
	}
	out := mat.NewVecDense(cs.cfg.M, nil)
	out.MulVec(cs.a, mat.NewVecDense(cs.n, vec))
	return out.RawVector().Data
}

// applyAdjoint computes A' y: zero-fill, DCT-I (which is its own
// adjoint), sign flip in fast mode; the transpose in dense mode.
func (cs *CompressedSensing) applyAdjoint(y []float64) []float64 {
	if cs.cfg.Fast {
		tmp := make([]float64, cs.n)
		for i, idx := range cs.mask {
			tmp[idx] = y[i]
		}
		t := cs.dct.Transform(nil, tmp)
		for i := range t {
			t[i] *= cs.signs[i]
		}
		return t
	}
	out := mat.NewVecDense(cs.n, nil)
	out.MulVec(cs.a.T(), mat.NewVecDense(cs.cfg.M, y))
	return out.RawVector().Data
}

func (cs *CompressedSensing) applyPinv(y []float64) []float64 {
	out := mat.NewVecDense(cs.n, nil)
	out.MulVec(cs.pinv, mat.NewVecDense(cs.cfg.M, y))
	return out.RawVector().Data
}

func (cs *CompressedSensing) checkImage(x *rimg64.Multi) {
	if x.Width != cs.cfg.Width || x.Height != cs.cfg.Height || x.Channels != cs.cfg.Channels {
		panic(fmt.Sprintf("image is %dx%dx%d, operator wants %dx%dx%d",
			x.Width, x.Height, x.Channels, cs.cfg.Width, cs.cfg.Height, cs.cfg.Channels))
	}
}

// channel copies channel k into a flat vector.
func (cs *CompressedSensing) channel(dst []float64, x *rimg64.Multi, k int) {
	for i := 0; i < x.Width; i++ {
		for j := 0; j < x.Height; j++ {
			dst[i*x.Height+j] = x.At(i, j, k)
		}
	}
}
