package patch

import (
	"math/rand"
	"testing"

	"github.com/jvlmdr/go-cv/rimg64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rampImage(width, height, channels int) *rimg64.Multi {
	im := rimg64.NewMulti(width, height, channels)
	for i := range im.Elems {
		im.Elems[i] = float64(i)
	}
	return im
}

func TestCount(t *testing.T) {
	assert.Equal(t, 9, Count(4, 4, 2))
	assert.Equal(t, 1, Count(3, 3, 3))
	assert.Equal(t, 0, Count(2, 3, 3))
}

func TestExtractValuesAndIndices(t *testing.T) {
	im := rampImage(4, 5, 2)
	inds := []int{0, 5, Count(4, 5, 3) - 1}
	rows, elems := Extract(im, 3, inds)
	n, d := rows.Dims()
	require.Equal(t, len(inds), n)
	require.Equal(t, Dim(3, 2), d)
	for r := range inds {
		for tt, idx := range elems[r] {
			assert.Equal(t, im.Elems[idx], rows.At(r, tt), "row %d entry %d", r, tt)
		}
	}
	// First patch covers the top-left corner.
	assert.Equal(t, im.At(0, 0, 0), rows.At(0, 0))
	assert.Equal(t, im.At(2, 2, 1), rows.At(0, d-1))
}

func TestAccumulatorIdentityRoundTrip(t *testing.T) {
	// Scattering unchanged patches and averaging must reproduce the
	// image, with every element covered at least once.
	im := rampImage(6, 7, 1)
	const size = 3
	total := Count(im.Width, im.Height, size)
	inds := make([]int, total)
	for i := range inds {
		inds[i] = i
	}
	rows, elems := Extract(im, size, inds)
	acc := NewAccumulator(im.Width, im.Height, im.Channels)
	acc.Add(rows, elems)
	for i, c := range acc.Counts() {
		assert.GreaterOrEqual(t, c, 1.0, "element %d", i)
	}
	out, err := acc.Mean()
	require.NoError(t, err)
	assert.InDeltaSlice(t, im.Elems, out.Elems, 1e-12)
}

func TestAccumulatorZeroCoverage(t *testing.T) {
	acc := NewAccumulator(4, 4, 1)
	_, err := acc.Mean()
	require.Error(t, err)
}

func TestSample(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	ims := []*rimg64.Multi{rampImage(8, 8, 1), rampImage(5, 5, 1)}
	rows, err := Sample(ims, 3, 40, rng)
	require.NoError(t, err)
	n, d := rows.Dims()
	assert.Equal(t, 40, n)
	assert.Equal(t, Dim(3, 1), d)
}

func TestSampleSkipsSmallImages(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	ims := []*rimg64.Multi{rampImage(8, 8, 1), rampImage(2, 2, 1)}
	rows, err := Sample(ims, 4, 30, rng)
	require.NoError(t, err)
	n, _ := rows.Dims()
	assert.LessOrEqual(t, n, 30)
	assert.Greater(t, n, 0)
}
