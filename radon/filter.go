package radon

import (
	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/dsp/fourier"
)

// RampFilter applies the frequency-domain ramp filter 2|f| to every
// projection of a sinogram (detector axis along x), with zero padding to
// a power of two of at least twice the detector length.
func RampFilter(y *rimg64.Multi) *rimg64.Multi {
	det := y.Width
	p := padSize(det)
	fft := fourier.NewFFT(p)

	out := rimg64.NewMulti(y.Width, y.Height, y.Channels)
	row := make([]float64, p)
	coeff := make([]complex128, p/2+1)
	for a := 0; a < y.Height; a++ {
		for k := 0; k < y.Channels; k++ {
			for t := 0; t < p; t++ {
				if t < det {
					row[t] = y.At(t, a, k)
				} else {
					row[t] = 0
				}
			}
			fft.Coefficients(coeff, row)
			for i := range coeff {
				f := float64(i) / float64(p)
				coeff[i] *= complex(2*f, 0)
			}
			fft.Sequence(row, coeff)
			// The round trip is unnormalized and scales by p.
			for t := 0; t < det; t++ {
				out.Set(t, a, k, row[t]/float64(p))
			}
		}
	}
	return out
}

func padSize(det int) int {
	p := 64
	for p < 2*det {
		p *= 2
	}
	return p
}
