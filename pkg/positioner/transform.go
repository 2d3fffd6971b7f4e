package positioner

import (
	"math"
	"strconv"
)

// Range is a closed numeric interval.
type Range struct {
	Min float64 `mapstructure:"min"`
	Max float64 `mapstructure:"max"`
}

// Clamp limits v to the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Min, math.Min(r.Max, v))
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Transform is the pan/zoom state of a profile picture relative to its frame.
// Offsets are pixels; Scale is a multiplicative factor about the center.
type Transform struct {
	OffsetX float64 `json:"image_position_x"`
	OffsetY float64 `json:"image_position_y"`
	Scale   float64 `json:"image_scale"`
}

// Identity is the untouched position.
var Identity = Transform{OffsetX: 0, OffsetY: 0, Scale: 1}

// CSS renders the transform the way a style attribute expects it.
func (t Transform) CSS() string {
	return "translate(" + formatFloat(t.OffsetX) + "px, " + formatFloat(t.OffsetY) + "px) scale(" + formatFloat(t.Scale) + ")"
}

// Clamped returns t with offsets limited to [-limit, limit] and scale to zoom.
func (t Transform) Clamped(limit float64, zoom Range) Transform {
	offsets := Range{Min: -limit, Max: limit}
	return Transform{
		OffsetX: offsets.Clamp(t.OffsetX),
		OffsetY: offsets.Clamp(t.OffsetY),
		Scale:   zoom.Clamp(t.Scale),
	}
}

// round trims float drift from repeated step additions (1.15 + 0.15 ...).
func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(round(v), 'f', -1, 64)
}
