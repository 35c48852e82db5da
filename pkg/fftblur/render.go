package fftblur

import (
	"errors"
	"math"

	"focusblur/pkg/depth"
)

// coverageEpsilon is the smallest coverage treated as a real contribution;
// smaller values are transform round-off
const coverageEpsilon = 1e-6

// Render blurs the source region into the output buffer: the source pixels
// themselves for a full-image update, the preview buffer otherwise.
//
// Each depth layer is masked, convolved with the kernel of its distance from
// the focal plane and accumulated together with the convolved mask itself.
// Dividing by that coverage blends the layers and keeps the region edges
// from darkening. Without a depth map the whole region is one layer blurred
// at the full model radius.
//
// A full-image render overwrites the source pixels, so it can run only once
// per Update.
func (b *Buffer) Render(p *Param) error {
	s := &b.source
	if s.data == nil {
		return errors.New("no source data to render")
	}
	if s.dirty {
		return errSourceRendered
	}
	if b.work.image == nil {
		return errNoWork
	}

	useDepth := p.Store.EnableDepthMap && p.DepthMap != nil && b.depth.Division() > 0

	var looks []int
	focal := 0
	if useDepth {
		b.depth.Recount(p.DepthMap, s.rect)
		looks = b.depth.Levels()
		focal = p.DepthMap.FocalDepth()
	} else {
		looks = []int{depth.Max}
	}

	n := s.width * s.height
	coverage := make([]float64, n)
	mask := make([]float64, n)
	sums := make([][]float64, s.bpp)
	for c := range sums {
		sums[c] = make([]float64, n)
	}

	var factors []float64
	if p.Store.EnableShine && p.Shine != nil {
		factors = b.shineFactors(p.Shine)
	}

	for _, look := range looks {
		level := abs(look - focal)
		if err := b.MakeKernel(p.Diffusion, level); err != nil {
			return err
		}

		if useDepth {
			if err := b.MakeDepthSlice(p.DepthMap, look); err != nil {
				return err
			}
		} else {
			b.fillInterior(1)
		}
		b.interior(mask)

		if err := b.Convolve(); err != nil {
			return err
		}
		b.accumulate(coverage)

		for c := 0; c < s.bpp; c++ {
			b.loadLayer(mask, c, factors)
			if err := b.Convolve(); err != nil {
				return err
			}
			b.accumulate(sums[c])
		}
	}

	out := s.data
	if s.preview != nil {
		out = s.dataPreview
	} else {
		// data now holds the result, the next update must reload it
		s.dirty = true
	}
	b.composite(out, coverage, sums)

	return nil
}

// fillInterior clears the image array and sets the source region to v
func (b *Buffer) fillInterior(v float64) {
	w := &b.work
	b.fillZero()
	for x := 0; x < b.source.width; x++ {
		off := w.origin + x*w.colPadded
		for y := 0; y < b.source.height; y++ {
			w.image[off+y] = v
		}
	}
}

// loadLayer fills the image array with channel c weighted by mask. Colour
// is premultiplied by alpha and boosted by the shine factors when given.
func (b *Buffer) loadLayer(mask []float64, c int, factors []float64) {
	w := &b.work
	s := &b.source
	h := s.height
	alpha := s.hasAlpha && c == s.bpp-1

	b.fillZero()
	for x := 0; x < s.width; x++ {
		off := w.origin + x*w.colPadded
		for y := 0; y < h; y++ {
			i := x*h + y
			m := mask[i]
			if m == 0 {
				continue
			}

			px := (y*s.width + x) * s.bpp
			a := 1.0
			if s.hasAlpha {
				a = float64(s.data[px+s.bpp-1]) / 255
			}

			var v float64
			if alpha {
				v = 255 * a
			} else {
				v = float64(s.data[px+c]) * a
				if factors != nil {
					v *= factors[i]
				}
			}
			w.image[off+y] = m * v
		}
	}
}

// composite divides the channel sums by the coverage and packs the result
func (b *Buffer) composite(out []byte, coverage []float64, sums [][]float64) {
	s := &b.source
	h := s.height

	for x := 0; x < s.width; x++ {
		for y := 0; y < h; y++ {
			i := x*h + y
			px := (y*s.width + x) * s.bpp

			cov := coverage[i]
			if cov < coverageEpsilon {
				copy(out[px:px+s.bpp], s.data[px:px+s.bpp])
				continue
			}

			if !s.hasAlpha {
				for c := 0; c < s.bpp; c++ {
					out[px+c] = clampByte(sums[c][i] / cov)
				}
				continue
			}

			alphaSum := sums[s.bpp-1][i]
			out[px+s.bpp-1] = clampByte(alphaSum / cov)
			for c := 0; c < s.channels; c++ {
				if alphaSum < coverageEpsilon {
					out[px+c] = 0
					continue
				}
				out[px+c] = clampByte(sums[c][i] * 255 / alphaSum)
			}
		}
	}
}

// shineFactors evaluates the highlight boost of every source pixel, x-major
func (b *Buffer) shineFactors(sh Shine) []float64 {
	s := &b.source
	h := s.height
	factors := make([]float64, s.width*h)
	for x := 0; x < s.width; x++ {
		for y := 0; y < h; y++ {
			px := (y*s.width + x) * s.bpp
			factors[x*h+y] = sh.Factor(s.data[px:px+s.bpp], s.hasAlpha)
		}
	}
	return factors
}

func clampByte(v float64) byte {
	return byte(math.Round(max(0, min(v, 255))))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
