package transform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoomByClamps(t *testing.T) {
	tests := []struct {
		name   string
		deltas []float64
		want   float64
	}{
		{name: "small step", deltas: []float64{0.25}, want: 1.25},
		{name: "upper bound", deltas: []float64{10}, want: MaxScale},
		{name: "lower bound", deltas: []float64{-10}, want: MinScale},
		{name: "repeated zoom out", deltas: []float64{-0.3, -0.3, -0.3}, want: MinScale},
		{name: "bounce off upper", deltas: []float64{100, -1}, want: 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr := Identity()
			for _, d := range tc.deltas {
				tr.ZoomBy(d)
			}
			assert.InDelta(t, tc.want, tr.Scale, 1e-9)
		})
	}
}

func TestRotateToClamps(t *testing.T) {
	tr := Identity()
	tr.RotateTo(270)
	assert.Equal(t, MaxRotation, tr.RotationDegrees)
	tr.RotateTo(-400)
	assert.Equal(t, MinRotation, tr.RotationDegrees)
	tr.RotateTo(45)
	assert.Equal(t, 45.0, tr.RotationDegrees)
}

func TestPanIsUnbounded(t *testing.T) {
	tr := Identity()
	tr.PanBy(1e6, -1e6)
	tr.PanBy(1, 1)
	assert.Equal(t, 1e6+1, tr.OffsetX)
	assert.Equal(t, -1e6+1, tr.OffsetY)
}

func TestResetRestoresIdentity(t *testing.T) {
	tr := Identity()
	tr.ZoomBy(2)
	tr.RotateTo(-90)
	tr.PanBy(12, 7)
	tr.Reset()
	assert.Equal(t, Transform{Scale: 1}, tr)
}

func TestGestures(t *testing.T) {
	tr := Identity()
	tr.Wheel(-500)
	assert.InDelta(t, 1.5, tr.Scale, 1e-9)
	tr.Drag(10, -4)
	assert.Equal(t, 5.0, tr.OffsetX)
	assert.Equal(t, -2.0, tr.OffsetY)
	tr.SetScale(9)
	assert.Equal(t, MaxScale, tr.Scale)
}

func TestNormalize(t *testing.T) {
	got := Transform{Scale: math.NaN(), RotationDegrees: 999, OffsetX: math.Inf(1), OffsetY: 3}.Normalize()
	assert.Equal(t, Transform{Scale: 1, RotationDegrees: MaxRotation, OffsetY: 3}, got)
}
