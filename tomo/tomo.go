// Package tomo implements the tomography measurement operator: a Radon
// transform forward map with an unfiltered-backprojection adjoint and a
// filtered-backprojection pseudo-inverse in parallel-beam geometry, and a
// fan-beam variant whose adjoint is materialized numerically from the
// forward map.
package tomo

import (
	"fmt"
	"sync"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"

	"github.com/johertrich/deepinv/physics"
	"github.com/johertrich/deepinv/radon"
)

// Config collects the construction parameters of a tomography operator.
type Config struct {
	// Angles is the projection angle set in degrees (see radon.Uniform).
	Angles []float64
	// Width is the side of the square input image. Zero defers the
	// width to the first Forward call.
	Width int
	// Channels is the number of image channels. Zero means one.
	Channels int
	// Circle restricts projections to the circle inscribed in the image
	// (parallel beam only).
	Circle bool
	// FanBeam selects fan-beam instead of parallel-beam geometry.
	FanBeam bool
	// Fan holds the fan-beam geometry. The zero value selects
	// radon.DefaultFanParams for the resolved width.
	Fan radon.FanParams
}

// Operator is a tomography measurement operator. Measurements are
// flattened sinograms with the detector coordinate varying slowest.
//
// When the image width is deferred, the projector is finalized by the
// first Forward call; the adjoint and pseudo-inverse return a
// configuration error until then.
type Operator struct {
	cfg Config

	mu  sync.Mutex
	par *radon.Parallel
	fan *radon.Fan
	adj *mat.Dense // cached fan-beam adjoint, built on first use
}

// New creates the operator. With a non-zero Config.Width the projector
// is built eagerly and the lazy branch disappears.
func New(cfg Config) (*Operator, error) {
	if len(cfg.Angles) == 0 {
		return nil, fmt.Errorf("empty angle set")
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	op := &Operator{cfg: cfg}
	if cfg.Width > 0 {
		if err := op.build(cfg.Width); err != nil {
			return nil, err
		}
	}
	return op, nil
}

// build finalizes the projector for the given image width.
// Callers must hold mu unless the operator is still being constructed.
func (op *Operator) build(width int) error {
	op.cfg.Width = width
	if !op.cfg.FanBeam {
		op.par = radon.NewParallel(op.cfg.Angles, width, op.cfg.Circle)
		return nil
	}
	params := op.cfg.Fan
	if params.DetectorPixels == 0 {
		params = radon.DefaultFanParams(width)
	}
	fan, err := radon.NewFan(op.cfg.Angles, width, params)
	if err != nil {
		return err
	}
	op.fan = fan
	return nil
}

// ImageShape reports the signal dimensions. Width and height are zero
// until the image width has been resolved.
func (op *Operator) ImageShape() (width, height, channels int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.cfg.Width, op.cfg.Width, op.cfg.Channels
}

// DetectorSize returns the number of detector bins per angle, or zero
// while the width is unresolved in parallel-beam geometry.
func (op *Operator) DetectorSize() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.detSize()
}

func (op *Operator) detSize() int {
	switch {
	case op.fan != nil:
		return op.fan.DetectorSize()
	case op.par != nil:
		return op.par.DetectorSize()
	case op.cfg.FanBeam && op.cfg.Fan.DetectorPixels > 0:
		return op.cfg.Fan.DetectorPixels
	default:
		return 0
	}
}

// Forward projects the image to a flattened sinogram, resolving the
// image width on first use.
func (op *Operator) Forward(x *rimg64.Multi) []float64 {
	if x.Width != x.Height {
		panic(fmt.Sprintf("image is %dx%d, tomography wants a square image", x.Width, x.Height))
	}
	if x.Channels != op.cfg.Channels {
		panic(fmt.Sprintf("image has %d channels, operator wants %d", x.Channels, op.cfg.Channels))
	}
	op.mu.Lock()
	if op.par == nil && op.fan == nil {
		if err := op.build(x.Width); err != nil {
			op.mu.Unlock()
			panic(err)
		}
	}
	par, fan := op.par, op.fan
	op.mu.Unlock()

	if fan != nil {
		return fan.Sinogram(x).Elems
	}
	return par.Sinogram(x).Elems
}

// Adjoint applies the exact adjoint of Forward: unfiltered
// backprojection for parallel beam, the materialized transpose for fan
// beam. It fails while the image width is unknown.
func (op *Operator) Adjoint(y []float64) (*rimg64.Multi, error) {
	op.mu.Lock()
	par, fan := op.par, op.fan
	op.mu.Unlock()
	if par == nil && fan == nil {
		return nil, fmt.Errorf("image width unknown: set Config.Width or apply Forward first")
	}
	if fan != nil {
		return op.fanAdjoint(y)
	}
	return par.Backproject(op.sinogram(y)), nil
}

// PseudoInv reconstructs an image from a sinogram: filtered
// backprojection for parallel beam; for fan beam the ramp filter
// followed by the adjoint, as an approximation.
func (op *Operator) PseudoInv(y []float64) (*rimg64.Multi, error) {
	op.mu.Lock()
	par, fan := op.par, op.fan
	op.mu.Unlock()
	if par == nil && fan == nil {
		return nil, fmt.Errorf("image width unknown: set Config.Width or apply Forward first")
	}
	if fan != nil {
		return op.fanAdjoint(radon.RampFilter(op.sinogram(y)).Elems)
	}
	return par.FBP(op.sinogram(y)), nil
}

// sinogram shapes a flat measurement vector as a detector x angle image.
func (op *Operator) sinogram(y []float64) *rimg64.Multi {
	det := op.detSize()
	n := det * len(op.cfg.Angles) * op.cfg.Channels
	if len(y) != n {
		panic(fmt.Sprintf("measurement has %d elements, want %d", len(y), n))
	}
	return &rimg64.Multi{Elems: y, Width: det, Height: len(op.cfg.Angles), Channels: op.cfg.Channels}
}

func (op *Operator) fanAdjoint(y []float64) (*rimg64.Multi, error) {
	op.mu.Lock()
	if op.adj == nil {
		fan := op.fan
		op.adj = physics.Materialize(func(im *rimg64.Multi) []float64 {
			return fan.Sinogram(im).Elems
		}, op.cfg.Width, op.cfg.Width, op.cfg.Channels)
	}
	adj := op.adj
	op.mu.Unlock()
	m, _ := adj.Dims()
	if len(y) != m {
		panic(fmt.Sprintf("measurement has %d elements, want %d", len(y), m))
	}
	return physics.MulAdjoint(adj, y, op.cfg.Width, op.cfg.Width, op.cfg.Channels), nil
}
