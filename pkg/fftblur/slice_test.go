package fftblur

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusblur/internal/models"
)

// newSliceBuffer returns a buffer over a 6x4 region at (2, 1) whose left
// half sits at raw depth 17 and right half at 26. With 15 divisions the
// levels are 17 apart, so 17 is on a level and 26 lies between 17 and 34.
func newSliceBuffer(t *testing.T, quality models.Quality) (*Buffer, *fakeDepth) {
	b := newWorkBuffer(6, 4)
	b.source.rect = image.Rect(2, 1, 8, 5)
	require.NoError(t, b.updateWork(3))
	require.NoError(t, b.depth.SetDivision(quality, 15))

	m := &fakeDepth{depth: func(x, y int) int {
		if x < 5 {
			return 17
		}
		return 26
	}}
	return b, m
}

func TestMakeDepthSliceHard(t *testing.T) {
	b, m := newSliceBuffer(t, models.QualityLow)

	require.NoError(t, b.MakeDepthSlice(m, 17))
	for x := 0; x < 6; x++ {
		for y := 0; y < 4; y++ {
			expected := 0.0
			if x < 3 {
				expected = 1
			}
			assert.Equal(t, expected, maskAt(b, x, y), "at (%d,%d)", x, y)
		}
	}

	require.NoError(t, b.MakeDepthSlice(m, 34))
	assert.Equal(t, 0.0, maskAt(b, 0, 0))
	assert.Equal(t, 1.0, maskAt(b, 5, 3))

	// no pixel rounds to this level
	require.NoError(t, b.MakeDepthSlice(m, 51))
	for x := 0; x < 6; x++ {
		assert.Equal(t, 0.0, maskAt(b, x, 0))
	}
}

func TestMakeDepthSliceSoft(t *testing.T) {
	b, m := newSliceBuffer(t, models.QualityNormal)
	dval := b.depth.DVal[26]
	require.InDelta(t, 9.0/17, dval, 1e-12)

	require.NoError(t, b.MakeDepthSlice(m, 17))
	assert.Equal(t, 1.0, maskAt(b, 0, 0))
	assert.InDelta(t, 1-dval, maskAt(b, 4, 2), 1e-12)

	require.NoError(t, b.MakeDepthSlice(m, 34))
	assert.Equal(t, 0.0, maskAt(b, 2, 0))
	assert.InDelta(t, dval, maskAt(b, 3, 1), 1e-12)

	// the two layers sum to one everywhere
	sum := make([]float64, 6*4)
	for _, look := range []int{17, 34} {
		require.NoError(t, b.MakeDepthSlice(m, look))
		b.accumulate(sum)
	}
	for i, v := range sum {
		assert.InDelta(t, 1, v, 1e-12, "pixel %d", i)
	}
}

func TestMakeDepthSliceBorder(t *testing.T) {
	b, m := newSliceBuffer(t, models.QualityLow)
	b.work.image[0] = 5

	require.NoError(t, b.MakeDepthSlice(m, 17))
	assert.Equal(t, 0.0, b.work.image[0])
	assert.Equal(t, 0.0, b.work.image[b.work.origin-1])
}

func TestMakeDepthBehind(t *testing.T) {
	b, m := newSliceBuffer(t, models.QualityLow)

	m.focal = 26
	require.NoError(t, b.MakeDepthBehind(m))
	assert.Equal(t, 0.0, maskAt(b, 0, 0))
	assert.Equal(t, 1.0, maskAt(b, 5, 0))

	m.focal = 0
	require.NoError(t, b.MakeDepthBehind(m))
	assert.Equal(t, 1.0, maskAt(b, 0, 0))
	assert.Equal(t, 1.0, maskAt(b, 5, 3))

	m.focal = 40
	require.NoError(t, b.MakeDepthBehind(m))
	assert.Equal(t, 0.0, maskAt(b, 5, 3))
}

func TestMakeDepthSliceNoWork(t *testing.T) {
	b := &Buffer{}
	m := &fakeDepth{depth: func(x, y int) int { return 0 }}
	assert.ErrorIs(t, b.MakeDepthSlice(m, 0), errNoWork)
	assert.ErrorIs(t, b.MakeDepthBehind(m), errNoWork)
}
