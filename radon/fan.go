package radon

import (
	"fmt"
	"math"

	"github.com/jvlmdr/go-cv/rimg64"
)

// FanParams describes a fan-beam scanning geometry. All distances are in
// the same physical unit; PixelSpacing converts between that unit and
// image pixels.
type FanParams struct {
	// PixelSpacing is the distance between two pixels in the image.
	PixelSpacing float64
	// SourceRadius is the distance between the x-ray source and the
	// rotation axis (the middle of the image).
	SourceRadius float64
	// DetectorRadius is the distance between the detector and the
	// rotation axis.
	DetectorRadius float64
	// DetectorPixels is the number of detector pixels.
	DetectorPixels int
	// DetectorSpacing is the distance between two detector pixels.
	DetectorSpacing float64
}

// DefaultFanParams returns a geometry that covers a square image of the
// given width with a moderate magnification.
func DefaultFanParams(width int) FanParams {
	w := float64(width)
	return FanParams{
		PixelSpacing:    1,
		SourceRadius:    1.5 * w,
		DetectorRadius:  1.5 * w,
		DetectorPixels:  2*diag(width) + 1,
		DetectorSpacing: 2,
	}
}

func (p FanParams) validate() error {
	if p.PixelSpacing <= 0 {
		return fmt.Errorf("non-positive pixel spacing %g", p.PixelSpacing)
	}
	if p.SourceRadius <= 0 || p.DetectorRadius <= 0 {
		return fmt.Errorf("non-positive radius (source %g, detector %g)", p.SourceRadius, p.DetectorRadius)
	}
	if p.DetectorPixels <= 0 {
		return fmt.Errorf("non-positive detector pixel count %d", p.DetectorPixels)
	}
	if p.DetectorSpacing <= 0 {
		return fmt.Errorf("non-positive detector spacing %g", p.DetectorSpacing)
	}
	return nil
}

// Fan is a fan-beam projector over a fixed angle set for square images
// of a fixed width. The source rotates around the image center; every
// measurement integrates along the ray from the source to one detector
// pixel. There is no closed-form inverse or adjoint; adjoints are
// materialized numerically from the forward map.
type Fan struct {
	Angles []float64 // degrees
	Width  int
	Params FanParams

	sin, cos []float64
}

// NewFan creates a fan-beam projector.
func NewFan(angles []float64, width int, params FanParams) (*Fan, error) {
	if width <= 0 {
		return nil, fmt.Errorf("non-positive image width: %d", width)
	}
	if len(angles) == 0 {
		return nil, fmt.Errorf("empty angle set")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	f := &Fan{
		Angles: append([]float64(nil), angles...),
		Width:  width,
		Params: params,
		sin:    make([]float64, len(angles)),
		cos:    make([]float64, len(angles)),
	}
	for i, a := range angles {
		t := a * math.Pi / 180
		f.sin[i], f.cos[i] = math.Sin(t), math.Cos(t)
	}
	return f, nil
}

// DetectorSize returns the number of detector pixels per angle.
func (f *Fan) DetectorSize() int { return f.Params.DetectorPixels }

// Sinogram projects the image across all source positions. The result
// has the detector pixel index along x and the angle index along y.
func (f *Fan) Sinogram(x *rimg64.Multi) *rimg64.Multi {
	if x.Width != f.Width || x.Height != f.Width {
		panic(fmt.Sprintf("image is %dx%d, projector wants %dx%d", x.Width, x.Height, f.Width, f.Width))
	}
	var (
		nd = f.Params.DetectorPixels
		y  = rimg64.NewMulti(nd, len(f.Angles), x.Channels)
		c  = float64(f.Width-1) / 2
		// Geometry in pixel units.
		rs = f.Params.SourceRadius / f.Params.PixelSpacing
		rd = f.Params.DetectorRadius / f.Params.PixelSpacing
		ds = f.Params.DetectorSpacing / f.Params.PixelSpacing
		dc = float64(nd-1) / 2
	)
	const step = 0.5 // ray sampling step in pixels
	for a := range f.Angles {
		cs, sn := f.cos[a], f.sin[a]
		sx, sy := c+rs*cs, c+rs*sn
		for d := 0; d < nd; d++ {
			off := (float64(d) - dc) * ds
			// Detector pixel position: opposite the source, offset
			// along the detector axis.
			px := c - rd*cs - off*sn
			py := c - rd*sn + off*cs
			ux, uy := px-sx, py-sy
			l := math.Hypot(ux, uy)
			ux, uy = ux/l, uy/l
			for t := 0.0; t <= l; t += step {
				qx, qy := sx+t*ux, sy+t*uy
				for k := 0; k < x.Channels; k++ {
					v := bilinear(x, qx, qy, k)
					if v != 0 {
						y.Set(d, a, k, y.At(d, a, k)+v*step*f.Params.PixelSpacing)
					}
				}
			}
		}
	}
	return y
}

// bilinear samples channel k of the image at a continuous position,
// treating everything outside the image as zero.
func bilinear(x *rimg64.Multi, px, py float64, k int) float64 {
	i0 := int(math.Floor(px))
	j0 := int(math.Floor(py))
	fx := px - float64(i0)
	fy := py - float64(j0)
	var v float64
	for di := 0; di <= 1; di++ {
		i := i0 + di
		if i < 0 || i >= x.Width {
			continue
		}
		wi := 1 - fx
		if di == 1 {
			wi = fx
		}
		for dj := 0; dj <= 1; dj++ {
			j := j0 + dj
			if j < 0 || j >= x.Height {
				continue
			}
			wj := 1 - fy
			if dj == 1 {
				wj = fy
			}
			v += wi * wj * x.At(i, j, k)
		}
	}
	return v
}
