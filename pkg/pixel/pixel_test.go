package pixel

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: uint8(x + y), A: 0xff})
		}
	}
	return img
}

func TestImageDrawableGetSet(t *testing.T) {
	d := NewImageDrawable(patternImage(8, 6), false)
	require.Equal(t, 3, d.BPP())
	require.False(t, d.HasAlpha())

	r := image.Rect(2, 1, 5, 4)
	buf := make([]byte, d.BPP()*r.Dx()*r.Dy())
	d.GetRect(buf, r)

	// first pixel is (2,1)
	assert.Equal(t, []byte{20, 10, 3}, buf[:3])
	// last pixel is (4,3)
	assert.Equal(t, []byte{40, 30, 7}, buf[len(buf)-3:])

	for i := range buf {
		buf[i] = 99
	}
	d.SetRect(buf, r)
	assert.Equal(t, color.NRGBA{R: 99, G: 99, B: 99, A: 0xff}, d.Image().NRGBAAt(3, 2))
	// outside the rectangle is untouched
	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 2, A: 0xff}, d.Image().NRGBAAt(1, 1))
}

func TestImageDrawableAlpha(t *testing.T) {
	img := patternImage(4, 4)
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	d := FromImage(img)
	require.True(t, d.HasAlpha())
	require.Equal(t, 4, d.BPP())

	buf := make([]byte, 4)
	d.GetRect(buf, image.Rect(0, 0, 1, 1))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestMaskIntersect(t *testing.T) {
	d := NewImageDrawable(patternImage(10, 10), false)

	r, ok := d.MaskIntersect()
	assert.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 10, 10), r)

	d.Select(image.Rect(5, 5, 20, 20))
	r, ok = d.MaskIntersect()
	assert.True(t, ok)
	assert.Equal(t, image.Rect(5, 5, 10, 10), r)

	d.Select(image.Rect(20, 20, 30, 30))
	_, ok = d.MaskIntersect()
	assert.False(t, ok)
}

func TestImagePreviewDraw(t *testing.T) {
	area := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	p := NewImagePreview(image.Pt(10, 10), 4, 4, 3, area)

	w, h := p.Size()
	require.Equal(t, 4, w)
	require.Equal(t, 4, h)
	assert.Equal(t, image.Pt(10, 10), p.Position())

	data := make([]byte, 3*4*4)
	for i := range data {
		data[i] = 128
	}
	p.Draw(0, 0, 4, 4, data, 3*4)
	assert.Equal(t, color.NRGBA{R: 128, G: 128, B: 128, A: 0xff}, area.NRGBAAt(3, 3))
}

// TestImagePreviewDrawScaled verifies a viewport larger than the area is shrunk
func TestImagePreviewDrawScaled(t *testing.T) {
	area := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	p := NewImagePreview(image.Point{}, 16, 16, 4, area)

	data := make([]byte, 4*16*16)
	for i := 0; i < len(data); i += 4 {
		data[i], data[i+1], data[i+2], data[i+3] = 0, 0, 0xff, 0xff
	}
	p.Draw(0, 0, 16, 16, data, 4*16)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, color.NRGBA{B: 0xff, A: 0xff}, area.NRGBAAt(x, y))
		}
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := t.TempDir()
	img := patternImage(5, 5)

	path := filepath.Join(dir, "out", "pattern.png")
	require.NoError(t, SaveImage(path, img))

	loaded, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), loaded.Bounds())
	r, g, b, _ := loaded.At(3, 2).RGBA()
	assert.Equal(t, uint32(30*0x101), r)
	assert.Equal(t, uint32(20*0x101), g)
	assert.Equal(t, uint32(5*0x101), b)

	_, err = LoadImage(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}
