package randomutil

import (
	"math/rand"
)

// RandomGenerator is the source of randomness for floors sampling. *rand.Rand satisfies it,
// so tests can seed one or supply a scripted implementation.
type RandomGenerator interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

type RandomNumberGenerator struct{}

func (RandomNumberGenerator) Intn(n int) int {
	return rand.Intn(n)
}

func (RandomNumberGenerator) Float64() float64 {
	return rand.Float64()
}

func (RandomNumberGenerator) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
