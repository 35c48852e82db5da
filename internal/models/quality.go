package models

import (
	"fmt"
	"strings"
)

// Quality is the rendering tier selected by the user. Tiers are ordered from
// the fastest approximation to the highest fidelity.
type Quality int

const (
	// QualityDefective is the coarsest tier, used for fast previews
	QualityDefective Quality = iota

	// QualityLow limits depth quantization to a handful of layers
	QualityLow

	// QualityNormal blends adjacent depth layers with soft edges
	QualityNormal

	// QualityBest is rendered per pixel and never takes the frequency-domain path
	QualityBest
)

var qualityNames = []string{"defective", "low", "normal", "best"}

// String returns the lower-case name of the tier
func (q Quality) String() string {
	if q < QualityDefective || q > QualityBest {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

// Valid reports whether q names one of the known tiers
func (q Quality) Valid() bool {
	return q >= QualityDefective && q <= QualityBest
}

// ParseQuality converts a tier name (case-insensitive) into a Quality
func ParseQuality(s string) (Quality, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range qualityNames {
		if n == name {
			return Quality(i), nil
		}
	}
	return QualityNormal, fmt.Errorf("unknown quality %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (q Quality) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("invalid quality %d", int(q))
	}
	return []byte(q.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (q *Quality) UnmarshalText(text []byte) error {
	parsed, err := ParseQuality(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
