// Package fftblur blurs an image region by convolving it in the frequency
// domain, optionally one depth layer at a time.
//
// A Buffer owns every piece of state the blur needs between edits: the
// source pixels, the padded transform arrays with their plans, and the depth
// quantization table. Update refreshes only the parts whose inputs changed,
// so repeated previews with the same selection, kernel or depth map reuse
// the work already done.
//
// The path only applies to the lower quality tiers; when Update returns
// ErrNotApplicable the caller must blur with another algorithm.
package fftblur

import (
	"errors"
	"fmt"
	"image"
	"math"

	log "github.com/sirupsen/logrus"

	"focusblur/internal/models"
	"focusblur/pkg/config"
	"focusblur/pkg/depth"
	"focusblur/pkg/pixel"
)

const (
	// minRadius is the smallest kernel radius worth transforming
	minRadius = 3

	// maxNormalDepthRadius bounds the radius for soft depth layers
	maxNormalDepthRadius = 63

	defaultMaxSourceBytes  = 256 << 20
	defaultMaxWorkElements = 32 << 20
)

var (
	// ErrNotApplicable means the parameters are outside what this path
	// supports; the caller should fall back to another algorithm
	ErrNotApplicable = errors.New("frequency-domain blur not applicable")

	// ErrOutOfMemory means a buffer would exceed the configured limits
	ErrOutOfMemory = errors.New("out of memory")

	// ErrBufferFailure means the work buffer could not be built and the
	// whole Buffer was destroyed
	ErrBufferFailure = errors.New("failed to update working buffer")

	// ErrNoKernel is returned by Convolve before any kernel was made
	ErrNoKernel = errors.New("no kernel loaded")

	errNoWork = errors.New("work buffer not allocated")

	errSourceRendered = errors.New("source already holds a rendered result")
)

// Diffusion is the point-spread model that kernels are sampled from
type Diffusion interface {
	// Update loads the store values and reports whether weights changed
	Update(s *config.Blur) (bool, error)
	// Radius is the model radius without softness
	Radius() float64
	// RadiusInt is the integer extent of non-zero weights
	RadiusInt() int
	Weight(level, baseX, baseY, x, y int) float64
}

// DepthMap supplies per-pixel depth in drawable coordinates
type DepthMap interface {
	depth.Map
	// Update prepares the map for the drawable bounds and reports whether
	// depths or the focal plane changed
	Update(bounds image.Rectangle, s *config.Blur) (bool, error)
}

// Shine boosts highlights before they are spread
type Shine interface {
	Update(d pixel.Drawable, s *config.Blur) error
	Factor(pix []byte, hasAlpha bool) float64
}

// Param is everything one Update or Render call borrows. Update may switch
// off Store.EnableDepthMap and Store.EnableShine when their data cannot be
// refreshed.
type Param struct {
	Store     *config.Blur
	Drawable  pixel.Drawable
	Diffusion Diffusion
	DepthMap  DepthMap
	Shine     Shine

	// Limits, zero selects the defaults
	MaxSourceBytes  int
	MaxWorkElements int
}

// Buffer holds the source region, the transform work arrays and the depth
// tables of one blur session. It must not be used from more than one
// goroutine at a time.
type Buffer struct {
	source source
	work   work
	depth  depth.Quantizer

	maxSourceBytes  int
	maxWorkElements int
}

// Update validates the parameters and brings buf up to date with them.
//
// buf may be nil, in which case a Buffer is allocated once the parameters
// are known to be supported. On ErrNotApplicable buf is returned untouched.
// Any other error destroys the buffer and nil is returned with it.
func Update(buf *Buffer, p *Param, preview pixel.Preview) (*Buffer, error) {
	quality := p.Store.Quality
	if preview != nil {
		quality = p.Store.QualityPreview
	}

	if quality == models.QualityBest {
		return buf, ErrNotApplicable
	}

	changed, err := p.Diffusion.Update(p.Store)
	if err != nil {
		log.Warnf("failed to update diffusion model: %v", err)
		return buf, fmt.Errorf("%w: %v", ErrNotApplicable, err)
	}
	if changed {
		buf.InvalidateDiffusion()
	}

	// without softness
	radius := int(math.Ceil(p.Diffusion.Radius()))
	rng := p.Diffusion.RadiusInt()

	if radius < minRadius ||
		(quality == models.QualityNormal &&
			p.Store.EnableDepthMap &&
			radius > maxNormalDepthRadius) {
		return buf, ErrNotApplicable
	}

	r, ok := sourceRect(p.Drawable, preview)
	if !ok || r.Dx() <= rng || r.Dy() <= rng {
		return buf, ErrNotApplicable
	}

	if buf == nil {
		buf = &Buffer{}
	}
	buf.setLimits(p)

	// the source must be current before depth counting and work sizing
	if err := buf.updateSource(p.Drawable, preview); err != nil {
		log.Errorf("failed to update source buffer: %v", err)
		buf.Destroy()
		return nil, err
	}

	if p.Store.EnableDepthMap {
		if err := buf.updateDepth(p, quality, rng); err != nil {
			log.Warnf("failed to update depth info, but continue: %v", err)
			p.Store.EnableDepthMap = false
		}
	}

	if err := buf.updateWork(rng); err != nil {
		log.Errorf("failed to update working buffer: %v", err)
		buf.Destroy()
		return nil, fmt.Errorf("%w: %w", ErrBufferFailure, err)
	}

	if p.Store.EnableShine {
		if p.Shine == nil {
			err = errors.New("no shine provider")
		} else {
			err = p.Shine.Update(p.Drawable, p.Store)
		}
		if err != nil {
			log.Warnf("failed to update shine data, but continue: %v", err)
			p.Store.EnableShine = false
		}
	}

	return buf, nil
}

// Destroy releases every buffer and table. It is safe on a nil Buffer.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.clearSource()
	b.clearWork()
	b.depth.Reset()
}

// InvalidateDepthMap forces the depth layers to be recounted
func (b *Buffer) InvalidateDepthMap() {
	if b != nil {
		b.depth.Invalidate()
	}
}

// InvalidateDiffusion forces the next kernel to be rebuilt
func (b *Buffer) InvalidateDiffusion() {
	if b != nil {
		b.work.loaded = false
	}
}

// Layers returns the number of distinct depth layers in the region and
// whether that count is current
func (b *Buffer) Layers() (int, bool) {
	if b == nil {
		return 0, false
	}
	return b.depth.Count()
}

// Rect returns the source rectangle in drawable coordinates
func (b *Buffer) Rect() image.Rectangle {
	if b == nil {
		return image.Rectangle{}
	}
	return b.source.rect
}

func (b *Buffer) setLimits(p *Param) {
	b.maxSourceBytes = p.MaxSourceBytes
	if b.maxSourceBytes <= 0 {
		b.maxSourceBytes = defaultMaxSourceBytes
	}
	b.maxWorkElements = p.MaxWorkElements
	if b.maxWorkElements <= 0 {
		b.maxWorkElements = defaultMaxWorkElements
	}
}

func (b *Buffer) updateDepth(p *Param, quality models.Quality, radius int) error {
	if p.DepthMap == nil {
		return errors.New("no depth map provider")
	}

	changed, err := p.DepthMap.Update(p.Drawable.Bounds(), p.Store)
	if err != nil {
		return err
	}
	if changed {
		b.InvalidateDepthMap()
	}

	if err := b.depth.SetDivision(quality, radius); err != nil {
		return err
	}
	b.depth.Recount(p.DepthMap, b.source.rect)

	return nil
}
