package game

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniform draws in [0, 1)
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	return rand.Float64()
}

// DefaultSource returns the process-wide goroutine-safe generator
func DefaultSource() RandomSource {
	return globalSource{}
}

// SeededSource is a deterministic source safe for concurrent use
type SeededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource creates a reproducible source
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
