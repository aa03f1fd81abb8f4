package pass

import (
	"hash/fnv"
	mathrand "math/rand"
)

// Source supplies the randomized choices a pass makes. Implemented by
// Rand (production, seeded) and by the fixed sources in
// internal/testutil (tests).
type Source interface {
	// Chance reports true with probability p.
	Chance(p float64) bool
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// Rand is a seeded pseudo-random Source. Not safe for concurrent use;
// the pipeline gives each function its own instance.
type Rand struct {
	r *mathrand.Rand
}

// NewRand returns a Source seeded with the given value.
func NewRand(seed int64) *Rand {
	return &Rand{r: mathrand.New(mathrand.NewSource(seed))}
}

// Chance implements Source.
func (r *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.r.Float64() < p
}

// Intn implements Source.
func (r *Rand) Intn(n int) int {
	return r.r.Intn(n)
}

// DeriveSeed mixes the master seed with a function name so every
// function gets an independent but reproducible random stream. Parallel
// workers therefore cannot perturb each other's decisions.
func DeriveSeed(master int64, name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return master ^ int64(h.Sum64())
}
