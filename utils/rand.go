package utils

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"time"

	"golang.org/x/exp/rand"
)

// Rand is a seedable random stream. It is not safe for concurrent use; callers that share one
// guard it with their own lock.
type Rand struct {
	*rand.Rand
	seed string
}

// NewRand derives a reproducible stream from an arbitrary seed string.
func NewRand(seed string) *Rand {
	hasher := fnv.New64a()
	hasher.Write([]byte(seed))
	return &Rand{Rand: rand.New(rand.NewSource(hasher.Sum64())), seed: seed}
}

// NewTimeRand seeds a stream from the wall clock, for components without a configured seed.
func NewTimeRand() *Rand {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(time.Now().UnixNano()))
	return NewRand(fmt.Sprintf("%x", buf))
}

func (r *Rand) Seed() string {
	return r.seed
}

// Bool returns true with probability p.
func (r *Rand) Bool(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float64() < p
}

// FloatN returns a uniform value in [0, upper).
func (r *Rand) FloatN(upper float64) float64 {
	return r.Float64() * upper
}

// IntRange returns a uniform value in [lo, hi].
func (r *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}

func (r *Rand) Gaussian() float64 {
	return r.NormFloat64()
}

// GaussianTruncated redraws standard normal samples until one lies within [-bound, bound].
func (r *Rand) GaussianTruncated(bound float64) float64 {
	for {
		x := r.NormFloat64()
		if x >= -bound && x <= bound {
			return x
		}
	}
}

// Exponential returns a sample of the unit-mean exponential distribution.
func (r *Rand) Exponential() float64 {
	return r.ExpFloat64()
}

// Gamma samples a gamma distribution with unit scale using Marsaglia and Tsang's method.
func (r *Rand) Gamma(shape float64) float64 {
	if shape <= 0 {
		panic("gamma shape must be positive")
	}
	if shape < 1 {
		u := r.Float64()
		return r.Gamma(1+shape) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := r.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// IndexCumulative picks an index with probability proportional to the increments of a
// nondecreasing cumulative weight slice.
func (r *Rand) IndexCumulative(cumProbs []float64) int {
	n := len(cumProbs)
	if n == 0 {
		panic("empty cumulative weights")
	}
	target := r.Float64() * cumProbs[n-1]
	idx := sort.Search(n, func(i int) bool { return cumProbs[i] > target })
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// IndexWeighted picks an index with probability proportional to relProbs.
func (r *Rand) IndexWeighted(relProbs []float64) int {
	cum := make([]float64, len(relProbs))
	sum := 0.0
	for i, p := range relProbs {
		sum += p
		cum[i] = sum
	}
	return r.IndexCumulative(cum)
}
