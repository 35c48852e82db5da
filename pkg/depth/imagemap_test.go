package depth

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusblur/pkg/config"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestImageMapUpdate(t *testing.T) {
	store := config.DefaultBlur()
	store.FocalDepth = 50

	m := NewImageMap(uniformGray(8, 8, 200))
	changed, err := m.Update(image.Rect(0, 0, 32, 16), &store)
	require.NoError(t, err)
	assert.True(t, changed)

	assert.Equal(t, 200, m.Depth(0, 0))
	assert.Equal(t, 200, m.Depth(31, 15))
	assert.Equal(t, 128, m.FocalDepth())

	// same inputs
	changed, err = m.Update(image.Rect(0, 0, 32, 16), &store)
	require.NoError(t, err)
	assert.False(t, changed)

	// only the focal plane moved
	store.FocalDepth = 0
	changed, err = m.Update(image.Rect(0, 0, 32, 16), &store)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, m.FocalDepth())
}

func TestImageMapInvert(t *testing.T) {
	store := config.DefaultBlur()
	store.DepthInvert = true

	m := NewImageMap(uniformGray(4, 4, 55))
	_, err := m.Update(image.Rect(0, 0, 4, 4), &store)
	require.NoError(t, err)
	assert.Equal(t, 200, m.Depth(1, 1))
}

// TestImageMapClamp verifies coordinates outside the map read the edge
func TestImageMapClamp(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 2, 1))
	src.SetGray(0, 0, color.Gray{Y: 10})
	src.SetGray(1, 0, color.Gray{Y: 90})

	store := config.DefaultBlur()
	m := NewImageMap(src)
	_, err := m.Update(image.Rect(0, 0, 2, 1), &store)
	require.NoError(t, err)

	assert.Equal(t, 10, m.Depth(-5, 0))
	assert.Equal(t, 90, m.Depth(7, 3))
}

func TestImageMapErrors(t *testing.T) {
	store := config.DefaultBlur()

	_, err := NewImageMap(nil).Update(image.Rect(0, 0, 4, 4), &store)
	assert.ErrorIs(t, err, ErrNoDepthImage)

	_, err = NewImageMap(uniformGray(4, 4, 1)).Update(image.Rectangle{}, &store)
	assert.Error(t, err)

	assert.Equal(t, 0, NewImageMap(nil).Depth(3, 3))
}
