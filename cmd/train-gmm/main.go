// Command train-gmm fits a Gaussian mixture to patches sampled from a
// set of training images and saves the parameters for later
// reconstruction.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/jvlmdr/go-cv/rimg64"

	"github.com/johertrich/deepinv/gmm"
	"github.com/johertrich/deepinv/imgio"
	"github.com/johertrich/deepinv/patch"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "[flags] weights.json image...")
		flag.PrintDefaults()
	}
}

func main() {
	var (
		patchSize = flag.Int("patch", 6, "Patch size of the prior.")
		comps     = flag.Int("components", 20, "Number of mixture components.")
		samples   = flag.Int("samples", 50000, "Number of patches to sample.")
		maxIter   = flag.Int("iter", 100, "Maximum EM iterations.")
		seed      = flag.Int64("seed", 0, "Seed for patch sampling.")
	)
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	weightsFile := flag.Arg(0)

	var ims []*rimg64.Multi
	for _, fname := range flag.Args()[1:] {
		im, err := imgio.Load(fname)
		if err != nil {
			log.Fatalln("load image:", err)
		}
		ims = append(ims, imgio.FromGray(im))
	}

	rng := rand.New(rand.NewSource(*seed))
	rows, err := patch.Sample(ims, *patchSize, *samples, rng)
	if err != nil {
		log.Fatalln("sample patches:", err)
	}
	n, d := rows.Dims()
	log.Printf("fitting %d components to %d patches of dimension %d", *comps, n, d)

	model, err := gmm.Fit(rows, *comps, &gmm.FitOptions{MaxIter: *maxIter, Rng: rng})
	if err != nil {
		log.Fatalln("fit mixture:", err)
	}

	nll, err := model.NegLogLikelihood(rows)
	if err != nil {
		log.Fatalln("evaluate mixture:", err)
	}
	var mean float64
	for _, v := range nll {
		mean += v
	}
	log.Printf("mean negative log likelihood %.4f", mean/float64(len(nll)))

	if err := gmm.SaveWeights(weightsFile, model); err != nil {
		log.Fatalln("save weights:", err)
	}
}
