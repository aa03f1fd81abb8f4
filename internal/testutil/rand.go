package testutil

// Fixed random sources satisfying pass.Source. Probabilistic passes are
// tested with AlwaysSource so every candidate site is transformed, and
// NeverSource to prove the no-op path reports no modification.

// AlwaysSource takes every chance and returns a fixed value from Intn.
type AlwaysSource struct {
	// N is returned from Intn (clamped to n-1 when out of range).
	N int
}

// Chance always reports true.
func (AlwaysSource) Chance(float64) bool { return true }

// Intn returns N when it fits in [0, n), otherwise n-1.
func (s AlwaysSource) Intn(n int) int {
	if s.N >= 0 && s.N < n {
		return s.N
	}
	return n - 1
}

// NeverSource declines every chance.
type NeverSource struct{}

// Chance always reports false.
func (NeverSource) Chance(float64) bool { return false }

// Intn returns 0.
func (NeverSource) Intn(int) int { return 0 }
