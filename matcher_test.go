package tilerecon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	a := pattern(1)
	b := pattern(2)
	half := mutate(a, 32)

	assert.Equal(t, 1.0, a.Score(&a, false))
	assert.Equal(t, 0.0, a.Score(&b, false))
	assert.Equal(t, 0.5, a.Score(&half, false))
	assert.Equal(t, half.Score(&a, false), a.Score(&half, false))
}

func TestScoreSkipTransparent(t *testing.T) {
	// Top row opaque red, the rest transparent.
	var deco PixelBlock
	for p := range TileSize {
		copy(deco[p*4:], []byte{200, 0, 0, 255})
	}
	target := overlay(pattern(3), deco)

	assert.Equal(t, 1.0, deco.Score(&target, true))
	assert.Equal(t, 0.125, deco.Score(&target, false))

	// Only a's transparency is skipped.
	assert.Less(t, target.Score(&deco, true), 1.0)
}

func TestScoreNothingChecked(t *testing.T) {
	var empty PixelBlock
	other := pattern(1)
	assert.Equal(t, 0.0, empty.Score(&other, true))
}

func TestScoreLengthMismatch(t *testing.T) {
	assert.Equal(t, 0.0, Score(make([]byte, 8), make([]byte, 12), false))
	assert.Equal(t, 1.0, Score(make([]byte, 8), make([]byte, 8), false))
}
