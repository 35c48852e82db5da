// Package diffusion models how a point spreads when it is out of focus.
//
// The model is a disc with an anti-aliased edge. Its radius grows linearly
// with the level, from a single sharp pixel at level 0 to the full model
// radius at depth.Max. Weights of every level are normalized to sum to one.
package diffusion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"focusblur/pkg/config"
	"focusblur/pkg/depth"
)

// MaxLevel is the level that spreads over the full model radius
const MaxLevel = depth.Max

// Model is a disc point-spread function with per-level weight tables
type Model struct {
	radius    float64
	softness  float64
	radiusInt int
	ready     bool

	// normalized (2*radiusInt+1)² tables, built on demand
	tables map[int][]float64
}

// New returns a model that has not been configured yet
func New() *Model {
	return &Model{tables: make(map[int][]float64)}
}

// Update loads the radius and softness from the store. It reports whether
// the weights changed, in which case kernels built from them are stale.
func (m *Model) Update(s *config.Blur) (bool, error) {
	if s.ModelRadius < 0 || math.IsNaN(s.ModelRadius) {
		return false, fmt.Errorf("invalid model radius %g", s.ModelRadius)
	}
	if s.Softness < 0 || math.IsNaN(s.Softness) {
		return false, fmt.Errorf("invalid softness %g", s.Softness)
	}

	if m.ready && s.ModelRadius == m.radius && s.Softness == m.softness {
		return false, nil
	}

	m.radius = s.ModelRadius
	m.softness = s.Softness
	m.radiusInt = int(math.Ceil(m.radius + m.softness/2))
	m.tables = make(map[int][]float64)
	m.ready = true

	return true, nil
}

// Radius is the model radius without softness
func (m *Model) Radius() float64 {
	return m.radius
}

// RadiusInt is the integer extent covering every non-zero weight
func (m *Model) RadiusInt() int {
	return m.radiusInt
}

// LevelRadius returns the disc radius used at level
func (m *Model) LevelRadius(level int) float64 {
	level = max(0, min(level, MaxLevel))
	return m.radius * float64(level) / MaxLevel
}

// Weight returns the normalized weight at offset (x-baseX, y-baseY) from
// the centre of the disc
func (m *Model) Weight(level, baseX, baseY, x, y int) float64 {
	dx, dy := x-baseX, y-baseY
	n := m.radiusInt
	if dx < -n || dx > n || dy < -n || dy > n {
		return 0
	}
	table := m.table(level)
	return table[(dx+n)*(2*n+1)+dy+n]
}

func (m *Model) table(level int) []float64 {
	level = max(0, min(level, MaxLevel))
	if t, ok := m.tables[level]; ok {
		return t
	}

	n := m.radiusInt
	size := 2*n + 1
	t := make([]float64, size*size)

	lr := m.LevelRadius(level)
	if lr < 0.5 {
		t[n*size+n] = 1
		m.tables[level] = t
		return t
	}

	soft := 1 + m.softness
	for dx := -n; dx <= n; dx++ {
		for dy := -n; dy <= n; dy++ {
			d := math.Hypot(float64(dx), float64(dy))
			w := (lr + soft/2 - d) / soft
			t[(dx+n)*size+dy+n] = max(0, min(w, 1))
		}
	}
	floats.Scale(1/floats.Sum(t), t)

	m.tables[level] = t
	return t
}
