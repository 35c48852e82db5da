package fftblur

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"focusblur/internal/models"
	"focusblur/pkg/config"
	"focusblur/pkg/diffusion"
	"focusblur/pkg/pixel"
)

// countingDiffusion wraps the disc model and counts weight lookups
type countingDiffusion struct {
	*diffusion.Model
	weights   int
	updateErr error
}

func (d *countingDiffusion) Update(s *config.Blur) (bool, error) {
	if d.updateErr != nil {
		return false, d.updateErr
	}
	return d.Model.Update(s)
}

func (d *countingDiffusion) Weight(level, baseX, baseY, x, y int) float64 {
	d.weights++
	return d.Model.Weight(level, baseX, baseY, x, y)
}

// fakeDepth is a depth map driven by a closure
type fakeDepth struct {
	depth     func(x, y int) int
	focal     int
	updateErr error
	changed   bool
	updates   int
}

func (m *fakeDepth) Update(bounds image.Rectangle, s *config.Blur) (bool, error) {
	m.updates++
	if m.updateErr != nil {
		return false, m.updateErr
	}
	return m.changed, nil
}

func (m *fakeDepth) Depth(x, y int) int { return m.depth(x, y) }

func (m *fakeDepth) FocalDepth() int { return m.focal }

// fakeShine multiplies every pixel by a constant
type fakeShine struct {
	factor    float64
	updateErr error
}

func (s *fakeShine) Update(d pixel.Drawable, st *config.Blur) error { return s.updateErr }

func (s *fakeShine) Factor(pix []byte, hasAlpha bool) float64 { return s.factor }

// countingDrawable counts pixel reads
type countingDrawable struct {
	*pixel.ImageDrawable
	gets int
}

func (d *countingDrawable) GetRect(dst []byte, r image.Rectangle) {
	d.gets++
	d.ImageDrawable.GetRect(dst, r)
}

// fakePreview records the last draw
type fakePreview struct {
	pos           image.Point
	width, height int
	drawn         []byte
	drawnAt       image.Rectangle
	draws         int
}

func (p *fakePreview) Position() image.Point { return p.pos }

func (p *fakePreview) Size() (int, int) { return p.width, p.height }

func (p *fakePreview) Draw(x, y, w, h int, data []byte, rowstride int) {
	p.draws++
	p.drawn = append([]byte(nil), data...)
	p.drawnAt = image.Rect(x, y, x+w, y+h)
}

var errRefresh = errors.New("refresh failed")

func fillImage(w, h int, f func(x, y int) color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, f(x, y))
		}
	}
	return img
}

func uniformImage(w, h int, c color.NRGBA) *image.NRGBA {
	return fillImage(w, h, func(x, y int) color.NRGBA { return c })
}

// noiseImage is a deterministic pseudo-random opaque image
func noiseImage(w, h int) *image.NRGBA {
	seed := uint32(12345)
	next := func() uint8 {
		seed = seed*1664525 + 1013904223
		return uint8(seed >> 24)
	}
	return fillImage(w, h, func(x, y int) color.NRGBA {
		return color.NRGBA{R: next(), G: next(), B: next(), A: 0xff}
	})
}

// newParam builds a parameter set over img with the disc model
func newParam(img *image.NRGBA, radius float64, quality models.Quality) *Param {
	store := config.DefaultBlur()
	store.ModelRadius = radius
	store.Quality = quality
	store.QualityPreview = quality

	return &Param{
		Store:     &store,
		Drawable:  &countingDrawable{ImageDrawable: pixel.NewImageDrawable(img, false)},
		Diffusion: &countingDiffusion{Model: diffusion.New()},
		Shine:     &fakeShine{factor: 1},
	}
}

// mustUpdate runs Update and expects a live buffer
func mustUpdate(t *testing.T, buf *Buffer, p *Param, preview pixel.Preview) *Buffer {
	t.Helper()
	buf, err := Update(buf, p, preview)
	require.NoError(t, err)
	require.NotNil(t, buf)
	return buf
}

// maskAt reads the image array at source-relative (x, y)
func maskAt(b *Buffer, x, y int) float64 {
	return b.work.image[b.work.origin+x*b.work.colPadded+y]
}
