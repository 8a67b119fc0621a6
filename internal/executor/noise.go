package executor

import "math/rand"

// Perturbation adjusts a heuristic's base confidence before it is reported.
// It exists to simulate executor unreliability in demos while letting tests
// inject fully deterministic behavior.
type Perturbation func(confidence float64) float64

// NoNoise reports the base confidence unchanged.
func NoNoise(confidence float64) float64 {
	return confidence
}

// UniformNoise subtracts a uniform random value in [0, temperature) from the
// base confidence, flooring at 0.1. Higher temperatures simulate less
// reliable executors. Pass a seeded rand.Rand for reproducible runs; nil
// uses the shared global source.
func UniformNoise(temperature float64, rng *rand.Rand) Perturbation {
	if temperature <= 0 {
		return NoNoise
	}
	return func(confidence float64) float64 {
		var noise float64
		if rng != nil {
			noise = rng.Float64() * temperature
		} else {
			noise = rand.Float64() * temperature
		}
		perturbed := confidence - noise
		if perturbed < 0.1 {
			perturbed = 0.1
		}
		return perturbed
	}
}
