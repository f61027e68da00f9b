package rng

import (
	"math"
)

// Uniform draws from [lo, hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Bernoulli returns true with probability p.
func Bernoulli(src Source, p float64) bool {
	return src.Float64() < p
}

// Exponential draws with the given mean.
func Exponential(src Source, mean float64) float64 {
	return src.ExpFloat64() * mean
}

// Normal draws from N(mu, sigma).
func Normal(src Source, mu, sigma float64) float64 {
	return mu + sigma*src.NormFloat64()
}

// LogNormal draws exp(N(mu, sigma)).
func LogNormal(src Source, mu, sigma float64) float64 {
	return math.Exp(Normal(src, mu, sigma))
}

// Gamma draws from Gamma(shape, 1) using Marsaglia and Tsang.
func Gamma(src Source, shape float64) float64 {
	if shape < 1 {
		// Boost with U^(1/shape).
		u := src.Float64()
		return Gamma(src, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := src.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := src.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if u > 0 && math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta draws from Beta(a, b) as Gx/(Gx+Gy).
func Beta(src Source, a, b float64) float64 {
	x := Gamma(src, a)
	y := Gamma(src, b)
	if x+y == 0 {
		return 0
	}
	return x / (x + y)
}

// poissonKnuthLimit is the rate above which Poisson switches to the
// normal approximation.
const poissonKnuthLimit = 30

// Poisson draws a non-negative count with the given rate. Rates below
// poissonKnuthLimit use Knuth's exact method; larger rates use a rounded
// normal approximation N(lambda, sqrt(lambda)) clamped at zero.
func Poisson(src Source, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	if lambda >= poissonKnuthLimit {
		k := math.Round(Normal(src, lambda, math.Sqrt(lambda)))
		if k < 0 {
			return 0
		}
		return int(k)
	}

	l := math.Exp(-lambda)
	k := 0
	p := src.Float64()
	for p > l {
		k++
		p *= src.Float64()
	}
	return k
}

// Pick draws one key from weights, walking keys in the given order so the
// result depends only on the stream and the canonical key order, never on map
// iteration. Keys missing from weights have zero weight. If every weight is
// zero the first key is returned.
func Pick[K comparable](src Source, keys []K, weights map[K]float64) K {
	var total float64
	for _, k := range keys {
		total += weights[k]
	}
	if total <= 0 {
		return keys[0]
	}

	u := src.Float64() * total
	var acc float64
	last := keys[0]
	for _, k := range keys {
		w := weights[k]
		if w <= 0 {
			continue
		}
		acc += w
		last = k
		if u < acc {
			return k
		}
	}
	return last
}

// PickIndex draws an index from a weight slice, as Pick does for maps.
func PickIndex(src Source, weights []float64) int {
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return 0
	}

	u := src.Float64() * total
	var acc float64
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		last = i
		if u < acc {
			return i
		}
	}
	return last
}

// SampleIndices returns k distinct indices from [0, n) using a partial
// Fisher-Yates shuffle. The result is in selection order.
func SampleIndices(src Source, n, k int) []int {
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + src.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}
