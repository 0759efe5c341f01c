package service

import (
	"math"
	"math/rand/v2"
)

// sampler wraps a seeded PCG source so every draw in a build comes from
// one deterministic stream.
type sampler struct {
	r *rand.Rand
}

func newSampler(seed int64) *sampler {
	return &sampler{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)))}
}

// uniform draws from [low, high).
func (s *sampler) uniform(low, high float64) float64 {
	return low + s.r.Float64()*(high-low)
}

// intBetween draws an integer from [low, high).
func (s *sampler) intBetween(low, high int) int {
	if high <= low {
		return low
	}
	return low + s.r.IntN(high-low)
}

func (s *sampler) normal(mean, stddev float64) float64 {
	return mean + stddev*s.r.NormFloat64()
}

// logNormal draws exp(N(mu, sigma)).
func (s *sampler) logNormal(mu, sigma float64) float64 {
	return math.Exp(s.normal(mu, sigma))
}

// chance reports true with probability p.
func (s *sampler) chance(p float64) bool {
	return s.r.Float64() < p
}

func (s *sampler) letter() byte {
	return byte('A' + s.r.IntN(26))
}

func (s *sampler) digit() byte {
	return byte('0' + s.r.IntN(10))
}

func pickOne[T any](s *sampler, items []T) T {
	return items[s.r.IntN(len(items))]
}

// pickWeighted draws one item with probability proportional to its weight.
// Weights and items align by index.
func pickWeighted[T any](s *sampler, items []T, weights []float64) T {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	target := s.r.Float64() * total
	for i, w := range weights {
		target -= w
		if target < 0 {
			return items[i]
		}
	}
	return items[len(items)-1]
}

// pickDistinct draws n items without replacement.
func pickDistinct[T any](s *sampler, items []T, n int) []T {
	if n > len(items) {
		n = len(items)
	}
	perm := s.r.Perm(len(items))
	out := make([]T, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, items[idx])
	}
	return out
}
