package radon

import (
	"fmt"
	"math"

	"github.com/jvlmdr/go-cv/rimg64"
)

// Parallel is a parallel-beam projector over a fixed angle set for
// square images of a fixed width. The projector is immutable after
// construction.
//
// Sinogram and Backproject enumerate identical interpolation weights, so
// Backproject is the exact transpose of Sinogram up to roundoff.
type Parallel struct {
	Angles []float64 // degrees
	Width  int
	// Circle restricts both projection and backprojection to the circle
	// inscribed in the square image. The detector then spans the image
	// width instead of its diagonal.
	Circle bool

	det      int
	sin, cos []float64
}

// NewParallel creates a projector for the given angles (in degrees).
func NewParallel(angles []float64, width int, circle bool) *Parallel {
	if width <= 0 {
		panic(fmt.Sprintf("non-positive image width: %d", width))
	}
	if len(angles) == 0 {
		panic("empty angle set")
	}
	p := &Parallel{
		Angles: append([]float64(nil), angles...),
		Width:  width,
		Circle: circle,
		det:    diag(width),
		sin:    make([]float64, len(angles)),
		cos:    make([]float64, len(angles)),
	}
	if circle {
		p.det = width
	}
	for i, a := range angles {
		t := a * math.Pi / 180
		p.sin[i], p.cos[i] = math.Sin(t), math.Cos(t)
	}
	return p
}

// DetectorSize returns the number of detector bins per angle.
func (p *Parallel) DetectorSize() int { return p.det }

// Sinogram projects the image across all angles. The result has the
// detector coordinate along x, the angle index along y, and one channel
// per input channel.
func (p *Parallel) Sinogram(x *rimg64.Multi) *rimg64.Multi {
	if x.Width != p.Width || x.Height != p.Width {
		panic(fmt.Sprintf("image is %dx%d, projector wants %dx%d", x.Width, x.Height, p.Width, p.Width))
	}
	if p.Circle {
		x = p.masked(x)
	}
	y := rimg64.NewMulti(p.det, len(p.Angles), x.Channels)
	c := float64(p.Width-1) / 2
	dc := float64(p.det-1) / 2
	for a := range p.Angles {
		cs, sn := p.cos[a], p.sin[a]
		for t := 0; t < p.det; t++ {
			for s := 0; s < p.det; s++ {
				px := c + (float64(t)-dc)*cs - (float64(s)-dc)*sn
				py := c + (float64(t)-dc)*sn + (float64(s)-dc)*cs
				p.eachTap(px, py, func(i, j int, w float64) {
					for k := 0; k < x.Channels; k++ {
						y.Set(t, a, k, y.At(t, a, k)+w*x.At(i, j, k))
					}
				})
			}
		}
	}
	return y
}

// Backproject smears a sinogram back into image space. It is the exact
// adjoint of Sinogram.
func (p *Parallel) Backproject(y *rimg64.Multi) *rimg64.Multi {
	if y.Width != p.det || y.Height != len(p.Angles) {
		panic(fmt.Sprintf("sinogram is %dx%d, projector wants %dx%d", y.Width, y.Height, p.det, len(p.Angles)))
	}
	x := rimg64.NewMulti(p.Width, p.Width, y.Channels)
	c := float64(p.Width-1) / 2
	dc := float64(p.det-1) / 2
	for a := range p.Angles {
		cs, sn := p.cos[a], p.sin[a]
		for t := 0; t < p.det; t++ {
			for s := 0; s < p.det; s++ {
				px := c + (float64(t)-dc)*cs - (float64(s)-dc)*sn
				py := c + (float64(t)-dc)*sn + (float64(s)-dc)*cs
				p.eachTap(px, py, func(i, j int, w float64) {
					for k := 0; k < y.Channels; k++ {
						x.Set(i, j, k, x.At(i, j, k)+w*y.At(t, a, k))
					}
				})
			}
		}
	}
	if p.Circle {
		x = p.masked(x)
	}
	return x
}

// FBP reconstructs an image from a sinogram by filtered backprojection:
// ramp filter along the detector axis, backprojection, and the standard
// pi/(2 n) scale for n angles.
func (p *Parallel) FBP(y *rimg64.Multi) *rimg64.Multi {
	x := p.Backproject(RampFilter(y))
	s := math.Pi / (2 * float64(len(p.Angles)))
	for i := range x.Elems {
		x.Elems[i] *= s
	}
	return x
}

// eachTap visits the bilinear interpolation taps of a continuous image
// position, skipping taps outside the image.
func (p *Parallel) eachTap(px, py float64, visit func(i, j int, w float64)) {
	i0 := int(math.Floor(px))
	j0 := int(math.Floor(py))
	fx := px - float64(i0)
	fy := py - float64(j0)
	for di := 0; di <= 1; di++ {
		i := i0 + di
		if i < 0 || i >= p.Width {
			continue
		}
		wi := 1 - fx
		if di == 1 {
			wi = fx
		}
		for dj := 0; dj <= 1; dj++ {
			j := j0 + dj
			if j < 0 || j >= p.Width {
				continue
			}
			wj := 1 - fy
			if dj == 1 {
				wj = fy
			}
			if w := wi * wj; w != 0 {
				visit(i, j, w)
			}
		}
	}
}

// masked zeroes pixels outside the inscribed circle.
func (p *Parallel) masked(x *rimg64.Multi) *rimg64.Multi {
	out := rimg64.NewMulti(x.Width, x.Height, x.Channels)
	c := float64(p.Width-1) / 2
	r2 := float64(p.Width) * float64(p.Width) / 4
	for i := 0; i < x.Width; i++ {
		for j := 0; j < x.Height; j++ {
			dx, dy := float64(i)-c, float64(j)-c
			if dx*dx+dy*dy > r2 {
				continue
			}
			for k := 0; k < x.Channels; k++ {
				out.Set(i, j, k, x.At(i, j, k))
			}
		}
	}
	return out
}
