// Package depth quantizes raw depth values into a small number of layers and
// tracks which layers actually occur in a region.
package depth

import (
	"errors"
	"image"
	"math"

	"focusblur/internal/models"
)

// Max is the largest raw depth value a depth map can report
const Max = 255

// Layer caps per quality tier
const (
	lowDivision       = 15
	defectiveDivision = 7
)

// ErrInvalidDivision is returned when a table is requested with no layers
var ErrInvalidDivision = errors.New("depth division must be positive")

// Map provides raw per-pixel depth in image coordinates
type Map interface {
	// Depth returns the raw depth at (x, y) in [0, Max]
	Depth(x, y int) int

	// FocalDepth returns the raw depth of the in-focus plane
	FocalDepth() int
}

// Table maps every raw depth value to quantized levels. Levels are expressed
// back on the raw scale, so a level is itself a valid raw depth.
type Table struct {
	// RVal is the nearest level
	RVal [Max + 1]int

	// FVal and CVal are the levels just below and above the value
	FVal [Max + 1]int
	CVal [Max + 1]int

	// DVal is the blend fraction toward CVal, 0 when the value sits on a level
	DVal [Max + 1]float64

	division int
}

// Division returns the layer count the table was built for, 0 if never built
func (t *Table) Division() int {
	return t.division
}

// Occurrence records which quantized levels appear in the current region
type Occurrence struct {
	seen  [Max + 1]bool
	count int
	valid bool
}

// Invalidate marks the occurrence set as needing a recount
func (o *Occurrence) Invalidate() {
	o.valid = false
	o.count = 0
}

// Count returns the distinct level count and whether it is current
func (o *Occurrence) Count() (int, bool) {
	return o.count, o.valid
}

// Seen reports whether the level occurred during the last recount
func (o *Occurrence) Seen(level int) bool {
	if !o.valid || level < 0 || level > Max {
		return false
	}
	return o.seen[level]
}

// Levels lists the occurring levels in ascending order
func (o *Occurrence) Levels() []int {
	if !o.valid {
		return nil
	}
	levels := make([]int, 0, o.count)
	for level, ok := range o.seen {
		if ok {
			levels = append(levels, level)
		}
	}
	return levels
}

func (o *Occurrence) mark(level int) {
	if !o.seen[level] {
		o.seen[level] = true
		o.count++
	}
}

// Quantizer couples a quantization table with the occurrence set it feeds.
// Rebuilding the table always invalidates the occurrence set.
type Quantizer struct {
	Table
	Occurrence

	quality models.Quality
}

// Quality returns the tier the quantizer was last configured for
func (q *Quantizer) Quality() models.Quality {
	return q.quality
}

// Soft reports whether masks blend between the floor and ceil levels
func (q *Quantizer) Soft() bool {
	return q.quality == models.QualityNormal
}

// SetDivision picks the layer count for a kernel radius and quality tier and
// rebuilds the table when it changed.
func (q *Quantizer) SetDivision(quality models.Quality, radius int) error {
	if quality != q.quality {
		// soft and hard tiers count different level sets
		q.Occurrence.Invalidate()
	}
	q.quality = quality

	division := radius
	switch quality {
	case models.QualityLow:
		division = min(division, lowDivision)
	case models.QualityDefective:
		division = min(division, defectiveDivision)
	}
	division = min(division, Max)

	_, err := q.Rebuild(division)
	return err
}

// Rebuild fills the table for the given layer count. It reports whether the
// table changed; asking for the current division is a no-op.
func (q *Quantizer) Rebuild(division int) (bool, error) {
	if division <= 0 {
		return false, ErrInvalidDivision
	}
	if division == q.division {
		return false, nil
	}

	dfac := float64(Max) / float64(division)
	t := &q.Table

	for i := 0; i <= Max; i++ {
		fval := float64(i) / dfac

		r := math.RoundToEven(fval)
		if math.Abs(r-fval) < 0.001 {
			level := int(math.RoundToEven(r * dfac))
			t.RVal[i], t.FVal[i], t.CVal[i] = level, level, level
			t.DVal[i] = 0
			continue
		}

		f := math.Floor(fval)
		c := math.Ceil(fval)
		d := c - f

		t.RVal[i] = int(math.RoundToEven(r * dfac))
		t.FVal[i] = int(math.RoundToEven(f * dfac))
		t.CVal[i] = int(math.RoundToEven(c * dfac))
		if d > 0 {
			t.DVal[i] = (fval - f) / d
		} else {
			t.DVal[i] = 0
		}
	}

	t.division = division
	q.Occurrence.Invalidate()

	return true, nil
}

// Recount scans the region and records every level a mask will need. It is a
// no-op while the occurrence set is still valid.
func (q *Quantizer) Recount(m Map, r image.Rectangle) {
	if q.valid {
		return
	}

	q.seen = [Max + 1]bool{}
	q.count = 0

	soft := q.Soft()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			orig := m.Depth(x, y)

			if soft {
				q.mark(q.FVal[orig])
				q.mark(q.CVal[orig])
			} else {
				q.mark(q.RVal[orig])
			}
		}
	}

	q.valid = true
}

// Reset drops the table and the occurrence set
func (q *Quantizer) Reset() {
	*q = Quantizer{}
}
