package fftblur

import (
	"errors"
	"fmt"
	"image"

	log "github.com/sirupsen/logrus"

	"focusblur/pkg/pixel"
)

// source is the pixel region being blurred. In preview mode the blurred
// result goes to dataPreview and data keeps the original pixels.
type source struct {
	drawable pixel.Drawable
	preview  pixel.Preview

	rect          image.Rectangle
	width, height int

	bpp       int
	channels  int
	hasAlpha  bool
	rowstride int

	size        int
	data        []byte
	dataPreview []byte

	// dirty is set once data holds a rendered result instead of the
	// drawable's pixels
	dirty bool
}

// updateSource points the source at the current selection or viewport and
// reloads the pixels when the rectangle moved.
func (b *Buffer) updateSource(d pixel.Drawable, preview pixel.Preview) error {
	s := &b.source
	s.drawable = d
	s.preview = preview

	r, ok := sourceRect(d, preview)
	if !ok {
		return errors.New("empty source region")
	}

	s.hasAlpha = d.HasAlpha()
	s.bpp = d.BPP()
	s.channels = s.bpp
	if s.hasAlpha {
		s.channels--
	}
	s.rowstride = s.bpp * r.Dx()

	size := s.rowstride * r.Dy()
	if size > b.maxSourceBytes {
		return fmt.Errorf("%w: source region needs %d bytes", ErrOutOfMemory, size)
	}

	switch {
	case preview == nil:
		s.dataPreview = nil
	case s.dataPreview == nil || size != s.size:
		s.dataPreview = make([]byte, size)
	}

	reload := false
	if s.data == nil || size != s.size {
		log.Debugf("allocating source buffer of %d bytes", size)
		s.data = make([]byte, size)
		s.size = size
		reload = true
	}

	if !reload && !s.dirty && r == s.rect {
		return nil
	}

	s.rect = r
	s.width = r.Dx()
	s.height = r.Dy()

	// need to recount
	b.depth.Invalidate()

	d.GetRect(s.data, r)
	s.dirty = false

	return nil
}

// sourceRect returns the selection, or the preview viewport clipped to the
// drawable, and false when it is empty
func sourceRect(d pixel.Drawable, preview pixel.Preview) (image.Rectangle, bool) {
	if preview == nil {
		return d.MaskIntersect()
	}

	pos := preview.Position()
	w, h := preview.Size()
	r := image.Rect(pos.X, pos.Y, pos.X+w, pos.Y+h).Intersect(d.Bounds())
	return r, !r.Empty()
}

func (b *Buffer) clearSource() {
	b.source = source{}
}

// Draw writes the blurred region back. A full-image result goes through the
// drawable, after which the source is dirty and dropped; a preview result is
// handed to the preview surface.
func (b *Buffer) Draw() error {
	s := &b.source

	if s.preview == nil {
		if s.data == nil {
			return errors.New("no source data to draw")
		}
		s.drawable.SetRect(s.data, s.rect)

		// this buffer has been dirty
		b.clearSource()
		return nil
	}

	if s.dataPreview == nil {
		return errors.New("no preview data to draw")
	}
	// the region is offset inside the viewport when the viewport overhangs
	// the drawable
	at := s.rect.Min.Sub(s.preview.Position())
	s.preview.Draw(at.X, at.Y, s.width, s.height, s.dataPreview, s.rowstride)

	return nil
}
