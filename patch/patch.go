// Package patch provides overlapping fixed-size patch views of an image:
// deterministic linear position indexing, batched extraction into a row
// matrix, and scatter-accumulation of per-patch estimates back into image
// space with coverage counts.
package patch

import (
	"fmt"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"
)

// Count returns the number of stride-1 patches of the given size in a
// width x height image.
func Count(width, height, size int) int {
	if width < size || height < size {
		return 0
	}
	return (width - size + 1) * (height - size + 1)
}

// Dim returns the length of a patch vector.
func Dim(size, channels int) int { return size * size * channels }

// Position maps a linear patch index to its (x, y) offset in the image.
// Indices advance along y first, matching pos = x*(height-size+1) + y.
func Position(pos, height, size int) (x, y int) {
	rows := height - size + 1
	return pos / rows, pos % rows
}

// Extract copies the patches at the given linear positions out of the
// image. It returns one patch per row, and for every row the flat element
// indices (in rimg64 layout) of the pixels the patch covers, in the same
// order as the row entries.
func Extract(im *rimg64.Multi, size int, inds []int) (*mat.Dense, [][]int) {
	total := Count(im.Width, im.Height, size)
	d := Dim(size, im.Channels)
	rows := mat.NewDense(len(inds), d, nil)
	elems := make([][]int, len(inds))
	for r, pos := range inds {
		if pos < 0 || pos >= total {
			panic(fmt.Sprintf("patch index out of range: %d (total %d)", pos, total))
		}
		px, py := Position(pos, im.Height, size)
		ei := make([]int, d)
		var t int
		for u := 0; u < size; u++ {
			for v := 0; v < size; v++ {
				for k := 0; k < im.Channels; k++ {
					idx := ((px+u)*im.Height + (py + v)) * im.Channels
					ei[t] = idx + k
					rows.Set(r, t, im.Elems[idx+k])
					t++
				}
			}
		}
		elems[r] = ei
	}
	return rows, elems
}
