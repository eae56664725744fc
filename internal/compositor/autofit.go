package compositor

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"

	"chronobooth/internal/transform"
)

// resizer adapts imaging to the smartcrop.Resizer interface.
type resizer struct {
	filter imaging.ResampleFilter
}

func (r resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.filter)
}

// Suggest proposes a transform that frames the most salient 3:4 region of src.
func Suggest(ctx context.Context, src image.Image) (transform.Transform, error) {
	if src == nil {
		return transform.Identity(), nil
	}
	analyzer := smartcrop.NewAnalyzer(resizer{filter: imaging.Lanczos})

	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	done := make(chan cropResult, 1)
	go func() {
		crop, err := analyzer.FindBestCrop(src, Width, Height)
		done <- cropResult{crop: crop, err: err}
	}()

	var crop image.Rectangle
	select {
	case <-ctx.Done():
		return transform.Identity(), ctx.Err()
	case res := <-done:
		if res.err != nil {
			return transform.Identity(), fmt.Errorf("finding best crop: %w", res.err)
		}
		crop = res.crop
	}
	return fitCrop(src.Bounds(), crop), nil
}

// fitCrop returns the transform that maps crop onto the full canvas.
func fitCrop(bounds, crop image.Rectangle) transform.Transform {
	t := transform.Identity()
	if crop.Empty() {
		return t
	}
	base := BaseScale(bounds.Dx(), bounds.Dy())
	t.SetScale(float64(Width) / float64(crop.Dx()) / base)

	s := t.Scale * base
	cx := float64(bounds.Min.X) + float64(bounds.Dx())/2
	cy := float64(bounds.Min.Y) + float64(bounds.Dy())/2
	ccx := float64(crop.Min.X) + float64(crop.Dx())/2
	ccy := float64(crop.Min.Y) + float64(crop.Dy())/2
	t.OffsetX = -s * (ccx - cx) / offsetGain
	t.OffsetY = -s * (ccy - cy) / offsetGain
	return t
}
