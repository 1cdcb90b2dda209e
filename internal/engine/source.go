package engine

import (
	"math/rand/v2"
	"slices"
	"sync"
)

// Source is the randomness used by ticket generation and drawing. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// Rand is safe for concurrent use.
var Rand Source = globalSource{}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// LockedSource makes a seeded generator safe to share between goroutines.
type LockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewLockedSource(seed uint64) *LockedSource {
	return &LockedSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *LockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func shuffle(src Source, xs []int) {
	for i := len(xs) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func perm(src Source, n int) []int {
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i
	}
	shuffle(src, xs)
	return xs
}

// sample picks k distinct values from [lo, hi] and returns them ascending.
func sample(src Source, lo, hi, k int) []int {
	pool := make([]int, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		pool = append(pool, v)
	}
	shuffle(src, pool)
	out := slices.Clone(pool[:k])
	slices.Sort(out)
	return out
}
