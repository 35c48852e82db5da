package depth

import (
	"errors"
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"focusblur/pkg/config"
)

// ErrNoDepthImage is returned when an ImageMap has nothing to sample from
var ErrNoDepthImage = errors.New("no depth image")

// ImageMap is a depth map read from a grayscale image. The image is scaled to
// the bounds of the picture being blurred; bright pixels are far unless the
// store asks for inversion.
type ImageMap struct {
	src    image.Image
	gray   *image.Gray
	bounds image.Rectangle
	invert bool
	focal  int
}

// NewImageMap wraps a depth image. Update must be called before sampling.
func NewImageMap(src image.Image) *ImageMap {
	return &ImageMap{src: src}
}

// Update scales the depth image to bounds and picks up the focal depth. It
// reports whether the sampled depths or the focal plane changed.
func (m *ImageMap) Update(bounds image.Rectangle, s *config.Blur) (bool, error) {
	if m.src == nil || m.src.Bounds().Empty() {
		return false, ErrNoDepthImage
	}
	if bounds.Empty() {
		return false, errors.New("empty depth map bounds")
	}

	focal := int(math.Round(s.FocalDepth / 100 * Max))
	focal = max(0, min(focal, Max))

	changed := false
	if m.gray == nil || bounds != m.bounds || s.DepthInvert != m.invert {
		gray := image.NewGray(bounds)
		xdraw.ApproxBiLinear.Scale(gray, bounds, m.src, m.src.Bounds(), draw.Src, nil)
		if s.DepthInvert {
			for i, v := range gray.Pix {
				gray.Pix[i] = Max - v
			}
		}
		m.gray = gray
		m.bounds = bounds
		m.invert = s.DepthInvert
		changed = true
	}

	if focal != m.focal {
		m.focal = focal
		changed = true
	}

	return changed, nil
}

// Depth returns the raw depth at (x, y), clamping to the map bounds
func (m *ImageMap) Depth(x, y int) int {
	if m.gray == nil {
		return 0
	}
	b := m.bounds
	x = max(b.Min.X, min(x, b.Max.X-1))
	y = max(b.Min.Y, min(y, b.Max.Y-1))
	return int(m.gray.Pix[m.gray.PixOffset(x, y)])
}

// FocalDepth returns the raw depth of the in-focus plane
func (m *ImageMap) FocalDepth() int {
	return m.focal
}
