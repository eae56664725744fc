package gemini

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"strconv"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"chronobooth/internal/domain"
)

const (
	syntheticVideoWidth  = 240
	syntheticVideoFrames = 8
)

var syntheticScenarios = []domain.Scenario{
	{
		Title:            "Lighthouse Keeper",
		ShortDescription: "Cornwall, 1890",
		VisualDirective:  "climbing the spiral stairs of a storm-battered lighthouse with an oil lamp, sea spray on the windows. Expression: Stoic resolve. Moody blue-grey palette, wet plate photograph look.",
	},
	{
		Title:            "Orbital Garden",
		ShortDescription: "Low Earth Orbit, 2140",
		VisualDirective:  "tending hydroponic plants in a rotating space station garden, Earth visible through a curved window. Expression: Calm curiosity. Soft white LED light, clean sci-fi cinematography.",
	},
	{
		Title:            "Silk Road Caravan",
		ShortDescription: "Samarkand, 1300",
		VisualDirective:  "bargaining with spice traders beside a line of camels at dusk, lanterns being lit. Expression: Playful haggling grin. Warm golden hour light, richly textured painting turned photoreal.",
	},
}

// Synthetic is an offline gateway producing deterministic placeholder assets
// so the full flow runs without an API key.
type Synthetic struct {
	next atomic.Uint64
}

func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

func (s *Synthetic) InventScenario(ctx context.Context) (domain.Scenario, error) {
	if err := ctx.Err(); err != nil {
		return domain.Scenario{}, err
	}
	i := s.next.Add(1) - 1
	return syntheticScenarios[i%uint64(len(syntheticScenarios))], nil
}

func (s *Synthetic) RenderSceneWithSubject(ctx context.Context, framed []byte, directive string) (*domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tint(framed, deterministicSeed("scene", directive), stripes)
}

func (s *Synthetic) ApplyEdit(ctx context.Context, img *domain.Media, instruction string) (*domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return tint(img.Data, deterministicSeed("edit", instruction), diagonals)
}

// AnimateScene returns a short looping GIF that slowly zooms into the scene.
// Offline clients show it as an image; the snapshot's video_mime tells them
// which element to use.
func (s *Synthetic) AnimateScene(ctx context.Context, img *domain.Media, directive string) (*domain.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decoded, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: synthetic decode: %v", domain.ErrProviderFailure, err)
	}
	base := imaging.Resize(decoded, syntheticVideoWidth, 0, imaging.Box)
	b := base.Bounds()
	accent := colorFromSeed(deterministicSeed("video", directive), 2)
	accent.A = 48

	anim := &gif.GIF{LoopCount: 0}
	for i := 0; i < syntheticVideoFrames; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Zoom from 100% to roughly 115% across the loop.
		scale := 1 - 0.13*float64(i)/float64(syntheticVideoFrames-1)
		crop := imaging.CropCenter(base, maxInt(1, int(float64(b.Dx())*scale)), maxInt(1, int(float64(b.Dy())*scale)))
		frame := imaging.Resize(crop, b.Dx(), b.Dy(), imaging.Box)
		stripes(frame, accent)

		paletted := image.NewPaletted(frame.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, paletted.Bounds(), frame, image.Point{})
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, 12)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("%w: synthetic encode: %v", domain.ErrProviderFailure, err)
	}
	return &domain.Media{Data: buf.Bytes(), MIME: "image/gif"}, nil
}

func (s *Synthetic) DescribeScene(ctx context.Context, img *domain.Media) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	seed := deterministicSeed("analysis", img.Data)
	score := 1 + int(mustParseHexByte(seed[:2]))%10
	return fmt.Sprintf("Offline analysis (%s): the scene renders as a stylised recreation. Clothing and setting are placeholders. Realism: %d/10.", seed, score), nil
}

// VideoKeyAvailable is always true offline.
func (s *Synthetic) VideoKeyAvailable() bool {
	return true
}

type pattern func(img *image.NRGBA, c color.NRGBA)

func stripes(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	stripeHeight := maxInt(32, b.Dy()/12)
	for y := b.Min.Y; y < b.Max.Y; y += stripeHeight * 2 {
		stripe := image.Rect(b.Min.X, y, b.Max.X, minInt(b.Max.Y, y+stripeHeight))
		draw.Draw(img, stripe, &image.Uniform{C: c}, image.Point{}, draw.Over)
	}
}

func diagonals(img *image.NRGBA, c color.NRGBA) {
	b := img.Bounds()
	step := maxInt(16, b.Dx()/32)
	for x := b.Min.X; x < b.Max.X+b.Dy(); x += step {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			xx := x - (y - b.Min.Y)
			if xx >= b.Min.X && xx < b.Max.X {
				img.Set(xx, y, c)
			}
		}
	}
}

func tint(src []byte, seed string, p pattern) (*domain.Media, error) {
	decoded, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: synthetic decode: %v", domain.ErrProviderFailure, err)
	}
	img := imaging.Clone(decoded)
	accent := colorFromSeed(seed, 1)
	accent.A = 72
	p(img, accent)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("%w: synthetic encode: %v", domain.ErrProviderFailure, err)
	}
	return &domain.Media{Data: buf.Bytes(), MIME: "image/jpeg"}, nil
}

func colorFromSeed(seed string, shift int) color.NRGBA {
	if seed == "" {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	segment := doubled[start : start+6]
	return color.NRGBA{
		R: mustParseHexByte(segment[0:2]),
		G: mustParseHexByte(segment[2:4]),
		B: mustParseHexByte(segment[4:6]),
		A: 255,
	}
}

func mustParseHexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func deterministicSeed(parts ...any) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(fmt.Sprintf("%v", part)))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}
