package patch

import (
	"fmt"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"
)

// Accumulator gathers per-patch pixel estimates into image space,
// counting how many patches cover each pixel.
type Accumulator struct {
	Width, Height, Channels int

	sum   []float64
	count []float64
}

// NewAccumulator creates an empty accumulator for the given image shape.
func NewAccumulator(width, height, channels int) *Accumulator {
	n := width * height * channels
	return &Accumulator{
		Width: width, Height: height, Channels: channels,
		sum:   make([]float64, n),
		count: make([]float64, n),
	}
}

// Add scatter-adds a batch of patch estimates. Each row of est is added
// at the flat element indices in the corresponding entry of elems, as
// returned by Extract, and the coverage of those elements is incremented.
func (a *Accumulator) Add(est *mat.Dense, elems [][]int) {
	r, c := est.Dims()
	if r != len(elems) {
		panic(fmt.Sprintf("rows differ from index sets: %d != %d", r, len(elems)))
	}
	for i := 0; i < r; i++ {
		ei := elems[i]
		if len(ei) != c {
			panic(fmt.Sprintf("index set has wrong length: %d != %d", len(ei), c))
		}
		row := est.RawRowView(i)
		for t, idx := range ei {
			a.sum[idx] += row[t]
			a.count[idx]++
		}
	}
}

// Counts returns the per-element coverage counts.
func (a *Accumulator) Counts() []float64 { return a.count }

// Mean returns the coverage-averaged image. It fails if any element was
// never covered, which cannot happen for full stride-1 passes with a
// patch size no larger than either image dimension.
func (a *Accumulator) Mean() (*rimg64.Multi, error) {
	im := rimg64.NewMulti(a.Width, a.Height, a.Channels)
	for i, s := range a.sum {
		if a.count[i] == 0 {
			return nil, fmt.Errorf("element %d has zero patch coverage", i)
		}
		im.Elems[i] = s / a.count[i]
	}
	return im, nil
}
