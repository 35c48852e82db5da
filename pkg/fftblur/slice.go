package fftblur

import (
	"focusblur/pkg/depth"
)

// MakeDepthSlice fills the image array with the mask of the pixels that
// belong to the quantized level look. In normal quality a pixel between two
// levels contributes 1-d to the lower one and d to the upper one; the other
// tiers assign each pixel wholly to its nearest level.
func (b *Buffer) MakeDepthSlice(m depth.Map, look int) error {
	w := &b.work
	if w.image == nil {
		return errNoWork
	}

	b.fillZero()

	t := &b.depth.Table
	s := &b.source

	if b.depth.Soft() {
		for x := s.rect.Min.X; x < s.rect.Max.X; x++ {
			off := w.origin + (x-s.rect.Min.X)*w.colPadded
			for y := s.rect.Min.Y; y < s.rect.Max.Y; y, off = y+1, off+1 {
				orig := m.Depth(x, y)

				if t.FVal[orig] == look {
					w.image[off] = 1 - t.DVal[orig]
					continue
				}
				if t.CVal[orig] == look {
					w.image[off] = t.DVal[orig]
				}
			}
		}
		return nil
	}

	for x := s.rect.Min.X; x < s.rect.Max.X; x++ {
		off := w.origin + (x-s.rect.Min.X)*w.colPadded
		for y := s.rect.Min.Y; y < s.rect.Max.Y; y, off = y+1, off+1 {
			if t.RVal[m.Depth(x, y)] == look {
				w.image[off] = 1
			}
		}
	}
	return nil
}

// MakeDepthBehind fills the image array with the pixels at or beyond the
// focal depth. A single transform cannot vary per pixel, so this only
// approximates what lies behind the focal plane.
func (b *Buffer) MakeDepthBehind(m depth.Map) error {
	w := &b.work
	if w.image == nil {
		return errNoWork
	}

	look := m.FocalDepth()

	b.fillZero()

	t := &b.depth.Table
	s := &b.source

	for x := s.rect.Min.X; x < s.rect.Max.X; x++ {
		off := w.origin + (x-s.rect.Min.X)*w.colPadded
		for y := s.rect.Min.Y; y < s.rect.Max.Y; y, off = y+1, off+1 {
			if t.RVal[m.Depth(x, y)] >= look {
				w.image[off] = 1
			}
		}
	}
	return nil
}
