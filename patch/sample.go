package patch

import (
	"fmt"
	"math/rand"

	"github.com/jvlmdr/go-cv/rimg64"
	"gonum.org/v1/gonum/mat"
)

// Sample draws n patches uniformly over the patches of all images and
// returns them as rows. Images smaller than the patch size are skipped,
// so fewer than n rows may be returned. All images must have the same
// number of channels.
func Sample(ims []*rimg64.Multi, size, n int, rng *rand.Rand) (*mat.Dense, error) {
	if len(ims) == 0 {
		return nil, fmt.Errorf("no images to sample from")
	}
	channels := ims[0].Channels
	for _, im := range ims {
		if im.Channels != channels {
			return nil, fmt.Errorf("channels differ: %d, %d", im.Channels, channels)
		}
	}
	// Distribute the patch count uniformly over images.
	counts := make([]int, len(ims))
	for i := 0; i < n; i++ {
		counts[rng.Intn(len(ims))]++
	}

	var rows []*mat.Dense
	var total int
	for i, im := range ims {
		if counts[i] == 0 || Count(im.Width, im.Height, size) == 0 {
			continue
		}
		inds := make([]int, counts[i])
		for j := range inds {
			inds[j] = rng.Intn(Count(im.Width, im.Height, size))
		}
		r, _ := Extract(im, size, inds)
		rows = append(rows, r)
		total += counts[i]
	}
	if total == 0 {
		return nil, fmt.Errorf("all images smaller than patch size %d", size)
	}
	out := mat.NewDense(total, Dim(size, channels), nil)
	var at int
	for _, r := range rows {
		m, _ := r.Dims()
		for i := 0; i < m; i++ {
			out.SetRow(at, r.RawRowView(i))
			at++
		}
	}
	return out, nil
}
