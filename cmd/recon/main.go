// Command recon reconstructs an image from simulated noisy measurements
// using a Gaussian-mixture patch prior. The measurement operator is
// either compressed sensing or parallel-beam tomography. The mixture is
// loaded from a weights file, or fitted on the fly from patches of the
// initial estimate.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"github.com/jvlmdr/go-cv/rimg64"

	"github.com/johertrich/deepinv/epll"
	"github.com/johertrich/deepinv/gmm"
	"github.com/johertrich/deepinv/imgio"
	"github.com/johertrich/deepinv/patch"
	"github.com/johertrich/deepinv/physics"
	"github.com/johertrich/deepinv/radon"
	"github.com/johertrich/deepinv/sensing"
	"github.com/johertrich/deepinv/tomo"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage:", os.Args[0], "[flags] input.png output.png")
		flag.PrintDefaults()
	}
}

func main() {
	var (
		opName    = flag.String("op", "cs", "Measurement operator (cs or tomo).")
		width     = flag.Int("width", 64, "Resize the input to width x width pixels.")
		ratio     = flag.Float64("ratio", 0.5, "Measurement ratio m/n for compressed sensing.")
		fast      = flag.Bool("fast", false, "Use the fast SORS operator instead of a dense matrix.")
		angles    = flag.Int("angles", 60, "Number of projection angles for tomography.")
		circle    = flag.Bool("circle", false, "Restrict tomography to the inscribed circle.")
		sigma     = flag.Float64("noise", 0.05, "Gaussian noise level on the measurements.")
		patchSize = flag.Int("patch", 6, "Patch size of the prior.")
		comps     = flag.Int("components", 20, "Mixture components when fitting on the fly.")
		weights   = flag.String("gmm", "", "Mixture weights file (.json or .gob); empty fits from the input.")
		seed      = flag.Int64("seed", 0, "Seed for sampling patterns and noise.")
	)
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}
	inFile, outFile := flag.Arg(0), flag.Arg(1)

	im, err := imgio.Load(inFile)
	if err != nil {
		log.Fatalln("load image:", err)
	}
	x := imgio.Resize(imgio.FromGray(im), *width, *width)

	op, err := buildOperator(*opName, x, *ratio, *fast, *angles, *circle, *seed)
	if err != nil {
		log.Fatalln("build operator:", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	y := physics.GaussianNoise(*sigma)(op.Forward(x), rng)
	log.Printf("simulated %d measurements at noise level %g", len(y), *sigma)

	xInit, err := physics.PseudoInv(op, y)
	if err != nil {
		log.Fatalln("initial estimate:", err)
	}

	model, err := loadOrFit(*weights, xInit, *patchSize, *comps, rng)
	if err != nil {
		log.Fatalln("mixture model:", err)
	}

	opt := &epll.Options{PatchSize: *patchSize}
	xHat, err := epll.Reconstruct(model, y, xInit, *sigma**sigma, op, opt)
	if err != nil {
		log.Fatalln("reconstruct:", err)
	}

	log.Printf("PSNR init %.2f dB, reconstruction %.2f dB",
		imgio.PSNR(x, xInit, 1), imgio.PSNR(x, xHat, 1))
	if err := imgio.SavePNG(outFile, xHat); err != nil {
		log.Fatalln("save image:", err)
	}
}

func buildOperator(name string, x *rimg64.Multi, ratio float64, fast bool, angles int, circle bool, seed int64) (physics.LinearOperator, error) {
	switch name {
	case "cs":
		n := x.Width * x.Height
		return sensing.New(sensing.Config{
			M:      int(ratio * float64(n)),
			Width:  x.Width,
			Height: x.Height,
			Fast:   fast,
			Seed:   seed,
		})
	case "tomo":
		return tomo.New(tomo.Config{
			Angles: radon.Uniform(angles),
			Width:  x.Width,
			Circle: circle,
		})
	default:
		return nil, fmt.Errorf("unknown operator %q (want cs or tomo)", name)
	}
}

func loadOrFit(fname string, xInit *rimg64.Multi, size, k int, rng *rand.Rand) (*gmm.Model, error) {
	if fname != "" {
		return gmm.LoadWeights(fname)
	}
	log.Printf("fitting %d-component mixture on %dx%d patches", k, size, size)
	rows, err := patch.Sample([]*rimg64.Multi{xInit}, size, 20*k*patch.Dim(size, xInit.Channels), rng)
	if err != nil {
		return nil, err
	}
	return gmm.Fit(rows, k, &gmm.FitOptions{Rng: rng})
}
