package randomutil

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomNumberGeneratorRanges(t *testing.T) {
	rg := RandomNumberGenerator{}
	for i := 0; i < 1000; i++ {
		n := rg.Intn(100)
		assert.True(t, n >= 0 && n < 100)
		f := rg.Float64()
		assert.True(t, f >= 0 && f < 1)
	}
}

func TestSeededRandSatisfiesRandomGenerator(t *testing.T) {
	var first, second RandomGenerator = rand.New(rand.NewSource(7)), rand.New(rand.NewSource(7))
	assert.Equal(t, first.Intn(1000), second.Intn(1000))
	assert.Equal(t, first.Float64(), second.Float64())
}
