// Package pixel defines the pixel source and preview surfaces the blur core
// reads from and writes to, with adapters over Go images.
package pixel

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Drawable is a rectangular pixel source with an optional selection.
// Pixel data is packed row-major, BPP bytes per pixel, alpha last.
type Drawable interface {
	Bounds() image.Rectangle
	// MaskIntersect returns the selection clipped to the bounds and false
	// when the intersection is empty
	MaskIntersect() (image.Rectangle, bool)
	BPP() int
	HasAlpha() bool
	GetRect(dst []byte, r image.Rectangle)
	SetRect(src []byte, r image.Rectangle)
}

// Preview is a viewport used for interactive feedback
type Preview interface {
	Position() image.Point
	Size() (w, h int)
	Draw(x, y, w, h int, data []byte, rowstride int)
}

// ImageDrawable adapts an NRGBA image. Without alpha it exposes three
// bytes per pixel and writes back fully opaque pixels.
type ImageDrawable struct {
	img       *image.NRGBA
	selection image.Rectangle
	alpha     bool
}

// NewImageDrawable wraps img with the whole image selected
func NewImageDrawable(img *image.NRGBA, alpha bool) *ImageDrawable {
	return &ImageDrawable{img: img, selection: img.Bounds(), alpha: alpha}
}

// FromImage converts any image into an ImageDrawable, keeping alpha only when
// the source model carries it
func FromImage(src image.Image) *ImageDrawable {
	b := src.Bounds()
	img := image.NewNRGBA(b)
	if n, ok := src.(*image.NRGBA); ok {
		// straight copy keeps translucent colours exact
		for y := b.Min.Y; y < b.Max.Y; y++ {
			copy(img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)],
				n.Pix[n.PixOffset(b.Min.X, y):n.PixOffset(b.Max.X, y)])
		}
	} else {
		draw.Draw(img, b, src, b.Min, draw.Src)
	}

	alpha := false
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff {
			alpha = true
			break
		}
	}
	return NewImageDrawable(img, alpha)
}

// Image returns the underlying image
func (d *ImageDrawable) Image() *image.NRGBA {
	return d.img
}

// Select sets the selection rectangle
func (d *ImageDrawable) Select(r image.Rectangle) {
	d.selection = r
}

func (d *ImageDrawable) Bounds() image.Rectangle {
	return d.img.Bounds()
}

func (d *ImageDrawable) MaskIntersect() (image.Rectangle, bool) {
	r := d.selection.Intersect(d.img.Bounds())
	return r, !r.Empty()
}

func (d *ImageDrawable) BPP() int {
	if d.alpha {
		return 4
	}
	return 3
}

func (d *ImageDrawable) HasAlpha() bool {
	return d.alpha
}

func (d *ImageDrawable) GetRect(dst []byte, r image.Rectangle) {
	bpp := d.BPP()
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := d.img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			copy(dst[i:i+bpp], d.img.Pix[off:off+bpp])
			i += bpp
			off += 4
		}
	}
}

func (d *ImageDrawable) SetRect(src []byte, r image.Rectangle) {
	bpp := d.BPP()
	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := d.img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			copy(d.img.Pix[off:off+bpp], src[i:i+bpp])
			if !d.alpha {
				d.img.Pix[off+3] = 0xff
			}
			i += bpp
			off += 4
		}
	}
}

// ImagePreview shows a viewport of a drawable on a display area that may be
// smaller than the viewport; drawn pixels are scaled to fit.
type ImagePreview struct {
	pos    image.Point
	width  int
	height int
	bpp    int
	area   *image.NRGBA
}

// NewImagePreview creates a preview of the w×h viewport at pos, displayed on
// area. bpp must match the drawable being previewed.
func NewImagePreview(pos image.Point, w, h, bpp int, area *image.NRGBA) *ImagePreview {
	return &ImagePreview{pos: pos, width: w, height: h, bpp: bpp, area: area}
}

func (p *ImagePreview) Position() image.Point {
	return p.pos
}

func (p *ImagePreview) Size() (int, int) {
	return p.width, p.height
}

// Area returns the display image
func (p *ImagePreview) Area() *image.NRGBA {
	return p.area
}

// Draw places the packed pixels at (x, y) of the viewport, scaled onto the
// display area
func (p *ImagePreview) Draw(x, y, w, h int, data []byte, rowstride int) {
	tile := image.NewNRGBA(image.Rect(0, 0, w, h))
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			s := j*rowstride + i*p.bpp
			d := tile.PixOffset(i, j)
			copy(tile.Pix[d:d+3], data[s:s+3])
			if p.bpp == 4 {
				tile.Pix[d+3] = data[s+3]
			} else {
				tile.Pix[d+3] = 0xff
			}
		}
	}

	ab := p.area.Bounds()
	sx := float64(ab.Dx()) / float64(p.width)
	sy := float64(ab.Dy()) / float64(p.height)
	dr := image.Rect(
		ab.Min.X+int(float64(x)*sx), ab.Min.Y+int(float64(y)*sy),
		ab.Min.X+int(float64(x+w)*sx), ab.Min.Y+int(float64(y+h)*sy),
	)

	if dr.Dx() == w && dr.Dy() == h {
		draw.Draw(p.area, dr, tile, image.Point{}, draw.Src)
		return
	}
	xdraw.ApproxBiLinear.Scale(p.area, dr, tile, tile.Bounds(), draw.Src, nil)
}
