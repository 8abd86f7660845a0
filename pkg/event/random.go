package event

import (
	"math/rand/v2"
	"sync"
)

// Random is the source RANDOM events draw from
type Random interface {
	Float64() float64
}

// LockedRand is a seeded source safe for concurrent use
type LockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLockedRand(seed uint64) *LockedRand {
	return &LockedRand{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float64 returns a uniform draw in [0, 1)
func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// globalRand draws from the runtime's shared source
type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
