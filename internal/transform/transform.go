package transform

import "math"

const (
	MinScale    = 0.5
	MaxScale    = 5.0
	MinRotation = -180.0
	MaxRotation = 180.0

	// WheelFactor converts a wheel deltaY into a zoom delta.
	WheelFactor = 0.001
	// DragFactor halves pointer motion; the compositor doubles offsets so
	// a drag tracks the pointer 1:1 on the canvas.
	DragFactor = 0.5
)

// Transform is the user-adjusted framing of the raw image on the canvas.
type Transform struct {
	Scale           float64 `json:"scale"`
	RotationDegrees float64 `json:"rotation"`
	OffsetX         float64 `json:"offset_x"`
	OffsetY         float64 `json:"offset_y"`
}

func Identity() Transform {
	return Transform{Scale: 1}
}

func (t *Transform) ZoomBy(delta float64) {
	t.Scale = clamp(t.Scale+delta, MinScale, MaxScale)
}

// SetScale sets an absolute scale, as a slider would.
func (t *Transform) SetScale(v float64) {
	t.Scale = clamp(v, MinScale, MaxScale)
}

func (t *Transform) PanBy(dx, dy float64) {
	t.OffsetX += dx
	t.OffsetY += dy
}

func (t *Transform) RotateTo(deg float64) {
	t.RotationDegrees = clamp(deg, MinRotation, MaxRotation)
}

func (t *Transform) Reset() {
	*t = Identity()
}

// Wheel applies a mouse wheel gesture.
func (t *Transform) Wheel(deltaY float64) {
	t.ZoomBy(-deltaY * WheelFactor)
}

// Drag applies a pointer drag of (dx, dy) screen pixels.
func (t *Transform) Drag(dx, dy float64) {
	t.PanBy(dx*DragFactor, dy*DragFactor)
}

// Normalize clamps a transform that arrived from outside, replacing NaN or
// infinite components with identity values.
func (t Transform) Normalize() Transform {
	out := Identity()
	if finite(t.Scale) {
		out.Scale = clamp(t.Scale, MinScale, MaxScale)
	}
	if finite(t.RotationDegrees) {
		out.RotationDegrees = clamp(t.RotationDegrees, MinRotation, MaxRotation)
	}
	if finite(t.OffsetX) {
		out.OffsetX = t.OffsetX
	}
	if finite(t.OffsetY) {
		out.OffsetY = t.OffsetY
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
