package simutil

import (
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
)

// DefaultSeed is the root seed used when a configuration leaves it blank.
const DefaultSeed = "kickoff"

// roughGaussianSamples is the number of uniform draws summed per deviate.
const roughGaussianSamples = 6

// RNGFactory produces deterministic RNG instances for simulation subsystems.
type RNGFactory func(rootSeed, label string) *rand.Rand

// DeterministicSeedValue hashes the root seed and subsystem label into a
// non-zero seed value.
func DeterministicSeedValue(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// NewDeterministicRNG returns an RNG seeded from the root seed and label.
func NewDeterministicRNG(rootSeed, label string) *rand.Rand {
	rootSeed = strings.TrimSpace(rootSeed)
	if rootSeed == "" {
		rootSeed = DefaultSeed
	}
	return rand.New(rand.NewSource(DeterministicSeedValue(rootSeed, label)))
}

// RandomFloat draws from rng, falling back to a default-seeded source so a
// missing RNG never panics.
func RandomFloat(rng *rand.Rand) float64 {
	if rng == nil {
		return NewDeterministicRNG(DefaultSeed, "fallback").Float64()
	}
	return rng.Float64()
}

// RoughGaussian approximates a standard normal deviate by summing uniform
// draws. The result is symmetric around zero and bounded to roughly ±4.24.
func RoughGaussian(rng *rand.Rand) float64 {
	sum := 0.0
	for i := 0; i < roughGaussianSamples; i++ {
		sum += RandomFloat(rng)
	}
	return (sum - roughGaussianSamples/2.0) / 0.707
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
