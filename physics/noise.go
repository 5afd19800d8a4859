package physics

import "math/rand"

// NoiseModel perturbs a clean measurement vector.
// The input is not modified.
type NoiseModel func(y []float64, rng *rand.Rand) []float64

// GaussianNoise returns a noise model adding i.i.d. N(0, sigma^2) noise.
func GaussianNoise(sigma float64) NoiseModel {
	return func(y []float64, rng *rand.Rand) []float64 {
		out := make([]float64, len(y))
		for i, v := range y {
			out[i] = v + sigma*rng.NormFloat64()
		}
		return out
	}
}
