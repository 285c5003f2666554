package action

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Geometry is the frame size in pixels.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// IsZero reports whether the geometry is still unknown.
func (g Geometry) IsZero() bool {
	return g.Width <= 0 || g.Height <= 0
}

// Position defaults.
const (
	DefaultDeadZone     = 1.0 / 6.0
	DefaultScale        = 20.0
	DefaultMaxMagnitude = 10

	// DefaultScrollCooldown spaces scroll commands of the default pointing binding.
	DefaultScrollCooldown = 300 * time.Millisecond
)

// PositionConfig configures a PositionAction.
type PositionConfig struct {
	// Axis is the auxiliary point to follow, e.g. "index_y". Keys ending in
	// "_x" are measured against the frame width, everything else the height.
	Axis string
	// DeadZone is the half-width of the neutral band around the center, as a
	// fraction of the axis extent.
	DeadZone float64
	// Scale is how many pixels past the dead zone make one unit of magnitude.
	Scale float64
	// MaxMagnitude caps the magnitude in either direction.
	MaxMagnitude int
}

// PositionAction turns a live coordinate into a continuous scroll. It is
// evaluated every frame with no edge triggering: the offset from the center
// of the frame, minus a dead zone, is scaled linearly to a scroll amount.
type PositionAction struct {
	axis     string
	center   float64
	deadZone float64
	scale    float64
	max      int
}

// NewPositionAction builds a PositionAction for a frame of the given size.
func NewPositionAction(cfg PositionConfig, geom Geometry) (*PositionAction, error) {
	if cfg.Axis == "" {
		cfg.Axis = gesture.PointIndexY
	}
	if cfg.DeadZone == 0 {
		cfg.DeadZone = DefaultDeadZone
	}
	if cfg.Scale == 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.MaxMagnitude == 0 {
		cfg.MaxMagnitude = DefaultMaxMagnitude
	}

	if cfg.DeadZone < 0 || cfg.DeadZone >= 0.5 {
		return nil, fmt.Errorf("%w: dead zone %.3f must be in [0, 0.5)", ErrInvalidBinding, cfg.DeadZone)
	}
	if cfg.Scale < 0 || math.IsNaN(cfg.Scale) {
		return nil, fmt.Errorf("%w: scale %.3f must be positive", ErrInvalidBinding, cfg.Scale)
	}
	if cfg.MaxMagnitude < 0 {
		return nil, fmt.Errorf("%w: max magnitude %d must be positive", ErrInvalidBinding, cfg.MaxMagnitude)
	}
	if geom.IsZero() {
		return nil, fmt.Errorf("%w: position action needs the frame geometry", ErrInvalidBinding)
	}

	extent := float64(geom.Height)
	if strings.HasSuffix(cfg.Axis, "_x") {
		extent = float64(geom.Width)
	}

	return &PositionAction{
		axis:     cfg.Axis,
		center:   extent / 2,
		deadZone: extent * cfg.DeadZone,
		scale:    cfg.Scale,
		max:      cfg.MaxMagnitude,
	}, nil
}

// Center returns the neutral coordinate.
func (a *PositionAction) Center() float64 {
	return a.center
}

// DeadZone returns the dead zone half-width in pixels.
func (a *PositionAction) DeadZone() float64 {
	return a.deadZone
}

// Magnitude maps a coordinate to a signed magnitude. Positions above (or left
// of) the center are positive. Inside the dead zone, boundary included, the
// magnitude is zero; mirrored positions give mirrored magnitudes.
func (a *PositionAction) Magnitude(v float64) int {
	offset := a.center - v
	if math.Abs(offset) <= a.deadZone {
		return 0
	}

	var m float64
	if offset > 0 {
		m = (offset - a.deadZone) / a.scale
	} else {
		m = (offset + a.deadZone) / a.scale
	}

	// Conversion truncates toward zero, which keeps the mapping symmetric.
	n := int(m)
	if n > a.max {
		n = a.max
	}
	if n < -a.max {
		n = -a.max
	}
	return n
}

// Execute scrolls by the magnitude of the current coordinate. A missing
// point is treated as centered.
func (a *PositionAction) Execute(in Input) Outcome {
	v, ok := in.Points.Value(a.axis)
	if !ok {
		v = a.center
	}

	if math.Abs(a.center-v) <= a.deadZone {
		return Outcome{Label: "Center - Stop"}
	}

	m := a.Magnitude(v)
	if m == 0 {
		return Outcome{Label: "Pointing: Ready"}
	}

	direction := "Up"
	if m < 0 {
		direction = "Down"
	}

	return Outcome{
		Commands: []Command{Scroll(m)},
		Label:    fmt.Sprintf("Scroll %s (%d)", direction, abs(m)),
		Progress: float64(abs(m)) / float64(a.max),
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
