// Package shine boosts highlights before blurring so that bright spots bloom
// into visible discs instead of being averaged away.
package shine

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"focusblur/pkg/config"
	"focusblur/pkg/pixel"
)

// maxGain is the extra multiplier applied to pure white at 100% level
const maxGain = 3.0

// Shine holds the highlight threshold of the current selection
type Shine struct {
	threshold float64
	gain      float64
	ready     bool
}

// New returns an unconfigured Shine; Factor is 1 until Update succeeds
func New() *Shine {
	return &Shine{}
}

// Update measures the selection luminance and places the threshold ShineSigma
// standard deviations above its mean
func (s *Shine) Update(d pixel.Drawable, st *config.Blur) error {
	s.ready = false

	if st.ShineLevel <= 0 || st.ShineLevel > 100 {
		return fmt.Errorf("shine level must be within (0, 100], got %g", st.ShineLevel)
	}
	r, ok := d.MaskIntersect()
	if !ok {
		return errors.New("empty selection")
	}

	bpp := d.BPP()
	data := make([]byte, bpp*r.Dx()*r.Dy())
	d.GetRect(data, r)

	lum := make([]float64, 0, r.Dx()*r.Dy())
	for i := 0; i < len(data); i += bpp {
		lum = append(lum, luminance(data[i:i+bpp]))
	}

	mean, std := stat.MeanStdDev(lum, nil)
	if math.IsNaN(std) {
		// single pixel selection
		std = 0
	}
	threshold := mean + st.ShineSigma*std
	s.threshold = max(0, min(threshold, 254))
	s.gain = maxGain * st.ShineLevel / 100
	s.ready = true

	return nil
}

// Threshold returns the luminance above which pixels are boosted
func (s *Shine) Threshold() float64 {
	return s.threshold
}

// Factor returns the multiplier for the colour channels of one packed pixel
func (s *Shine) Factor(pix []byte, hasAlpha bool) float64 {
	if !s.ready || (hasAlpha && len(pix) == 4 && pix[3] == 0) {
		return 1
	}
	l := luminance(pix)
	if l <= s.threshold {
		return 1
	}
	return 1 + s.gain*(l-s.threshold)/(255-s.threshold)
}

func luminance(pix []byte) float64 {
	if len(pix) < 3 {
		return float64(pix[0])
	}
	return 0.299*float64(pix[0]) + 0.587*float64(pix[1]) + 0.114*float64(pix[2])
}
