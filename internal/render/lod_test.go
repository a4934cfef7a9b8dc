package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLodFiresOnlyOnCrossing(t *testing.T) {
	lod := NewLodPolicy(0.1, 3, 1)
	var calls []bool
	lod.Register(CategoryParks, func(simplified bool) { calls = append(calls, simplified) })

	var fired []int
	for i, scale := range []float64{0.5, 0.05, 0.05, 0.5} {
		if len(lod.SetScale(scale)) > 0 {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{1, 3}, fired)
	assert.Equal(t, []bool{true, false}, calls)
}

func TestLodCategoriesSwitchIndependently(t *testing.T) {
	lod := NewLodPolicy(0, 0, 0)
	assert.Equal(t, DefaultCriticalScale, lod.CriticalScale())

	counts := map[Category]int{}
	for _, c := range []Category{CategoryParks, CategoryPaths, CategoryMarks} {
		c := c
		lod.Register(c, func(bool) { counts[c]++ })
	}
	transitions := lod.SetScale(0.01)
	assert.Len(t, transitions, 3)
	assert.True(t, lod.Simplified(CategoryPaths))

	// A category registered while simplified starts simplified and does
	// not fire again for the same side.
	lod.Register(CategoryLines, func(bool) { counts[CategoryLines]++ })
	assert.True(t, lod.Simplified(CategoryLines))
	assert.Empty(t, lod.SetScale(0.02))

	lod.SetScale(2)
	assert.Equal(t, 2, counts[CategoryParks])
	assert.Equal(t, 1, counts[CategoryLines])
	assert.False(t, lod.SimplifiedAll()[CategoryMarks])
}

func TestLodRejectsInvalidScale(t *testing.T) {
	lod := NewLodPolicy(0.1, 3, 1)
	assert.Nil(t, lod.SetScale(0))
	assert.Nil(t, lod.SetScale(-1))
	assert.Equal(t, 1.0, lod.Scale())
}

func TestPointFactor(t *testing.T) {
	assert.Equal(t, 1.0, PointFactorAt(0.5, 3))
	assert.Equal(t, 1.0, PointFactorAt(3, 3))
	assert.Equal(t, 0.5, PointFactorAt(6, 3))
	assert.Equal(t, 0.05, PointFactorAt(1000, 3))
	// Quantised to 1/20 steps so nearby scales share glyph templates.
	assert.Equal(t, 0.95, PointFactorAt(3.01, 3))

	lod := NewLodPolicy(0.1, 3, 1)
	lod.SetScale(12)
	assert.Equal(t, 0.25, lod.PointFactor())
}
