package orchestrator

import (
	"math/rand"
	"time"
)

// Rand is the randomness source behind every selection decision. Injected
// so tests can replay ticks deterministically.
type Rand interface {
	// Float64 returns a uniform value in [0.0, 1.0).
	Float64() float64
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
}

// NewRand returns a seeded source; seed 0 draws from the clock.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
