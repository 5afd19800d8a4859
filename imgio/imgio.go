// Package imgio converts between image.Image and float images, reads
// and writes PNG files, resizes, and computes reconstruction quality
// metrics.
package imgio

import (
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/nfnt/resize"
)

// FromGray converts an image to a single-channel float image with
// intensities in [0, 1], using the standard luminance weights for color
// inputs.
func FromGray(im image.Image) *rimg64.Multi {
	b := im.Bounds()
	out := rimg64.NewMulti(b.Dx(), b.Dy(), 1)
	for i := 0; i < b.Dx(); i++ {
		for j := 0; j < b.Dy(); j++ {
			g := color.Gray16Model.Convert(im.At(b.Min.X+i, b.Min.Y+j)).(color.Gray16)
			out.Set(i, j, 0, float64(g.Y)/math.MaxUint16)
		}
	}
	return out
}

// FromRGB converts an image to a three-channel float image in [0, 1].
func FromRGB(im image.Image) *rimg64.Multi {
	b := im.Bounds()
	out := rimg64.NewMulti(b.Dx(), b.Dy(), 3)
	for i := 0; i < b.Dx(); i++ {
		for j := 0; j < b.Dy(); j++ {
			r, g, bl, _ := im.At(b.Min.X+i, b.Min.Y+j).RGBA()
			out.Set(i, j, 0, float64(r)/math.MaxUint16)
			out.Set(i, j, 1, float64(g)/math.MaxUint16)
			out.Set(i, j, 2, float64(bl)/math.MaxUint16)
		}
	}
	return out
}

// ToImage converts a one- or three-channel float image back to an
// image.Image, clamping intensities to [0, 1].
func ToImage(f *rimg64.Multi) image.Image {
	if f.Channels == 1 {
		out := image.NewGray16(image.Rect(0, 0, f.Width, f.Height))
		for i := 0; i < f.Width; i++ {
			for j := 0; j < f.Height; j++ {
				out.SetGray16(i, j, color.Gray16{Y: to16(f.At(i, j, 0))})
			}
		}
		return out
	}
	out := image.NewRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for i := 0; i < f.Width; i++ {
		for j := 0; j < f.Height; j++ {
			out.SetRGBA64(i, j, color.RGBA64{
				R: to16(f.At(i, j, 0)),
				G: to16(f.At(i, j, 1)),
				B: to16(f.At(i, j, 2)),
				A: math.MaxUint16,
			})
		}
	}
	return out
}

func to16(v float64) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return math.MaxUint16
	}
	return uint16(v*math.MaxUint16 + 0.5)
}

// Load decodes an image file (PNG or JPEG).
func Load(name string) (image.Image, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	im, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return im, nil
}

// SavePNG writes a float image to a PNG file.
func SavePNG(name string, f *rimg64.Multi) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, ToImage(f))
}

// Resize scales a float image to the given size with bilinear
// interpolation.
func Resize(f *rimg64.Multi, width, height int) *rimg64.Multi {
	im := resize.Resize(uint(width), uint(height), ToImage(f), resize.Bilinear)
	if f.Channels == 1 {
		return FromGray(im)
	}
	return FromRGB(im)
}

// MSE returns the mean squared difference of two equally shaped images.
func MSE(a, b *rimg64.Multi) float64 {
	if len(a.Elems) != len(b.Elems) {
		panic("image shapes differ")
	}
	var sum float64
	for i := range a.Elems {
		d := a.Elems[i] - b.Elems[i]
		sum += d * d
	}
	return sum / float64(len(a.Elems))
}

// PSNR returns the peak signal-to-noise ratio in decibels for the given
// peak intensity.
func PSNR(a, b *rimg64.Multi, peak float64) float64 {
	mse := MSE(a, b)
	if mse == 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(peak*peak/mse)
}
