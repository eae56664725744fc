// Package compositor renders a raw image through a transform onto the fixed
// portrait canvas submitted for generation.
package compositor

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"chronobooth/internal/domain"
	"chronobooth/internal/transform"
)

const (
	Width  = 900
	Height = 1200

	// offsetGain maps transform offsets to canvas pixels.
	offsetGain = 2.0
)

// Background fills canvas areas the image does not cover.
var Background = color.RGBA{R: 0x0f, G: 0x17, B: 0x2a, A: 0xff}

// BaseScale is the cover-fit factor for an iw×ih source on the canvas.
func BaseScale(iw, ih int) float64 {
	if iw <= 0 || ih <= 0 {
		return 1
	}
	return math.Max(float64(Width)/float64(iw), float64(Height)/float64(ih))
}

// Matrix returns the source-to-canvas affine transform for src.
func Matrix(bounds image.Rectangle, t transform.Transform) f64.Aff3 {
	iw, ih := bounds.Dx(), bounds.Dy()
	s := t.Scale * BaseScale(iw, ih)
	rad := t.RotationDegrees * math.Pi / 180
	sin, cos := math.Sincos(rad)

	cx := float64(bounds.Min.X) + float64(iw)/2
	cy := float64(bounds.Min.Y) + float64(ih)/2
	tx := float64(Width)/2 + t.OffsetX*offsetGain
	ty := float64(Height)/2 + t.OffsetY*offsetGain

	a, b := s*cos, -s*sin
	d, e := s*sin, s*cos
	return f64.Aff3{
		a, b, tx - (a*cx + b*cy),
		d, e, ty - (d*cx + e*cy),
	}
}

// Render draws src through t onto a fresh canvas. A nil src yields only the
// background.
func Render(src image.Image, t transform.Transform) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: Background}, image.Point{}, draw.Src)
	if src == nil {
		return dst
	}
	bounds := src.Bounds()
	if bounds.Empty() {
		return dst
	}
	draw.BiLinear.Transform(dst, Matrix(bounds, t), src, bounds, draw.Over, nil)
	return dst
}

// Compose produces the framed JPEG submitted to the gateway.
func Compose(raw *domain.RawImage, t transform.Transform) ([]byte, error) {
	if raw == nil || raw.Image == nil {
		return nil, domain.ErrNoImage
	}
	return EncodeJPEG(Render(raw.Image, t))
}
