package compositor

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync/atomic"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	// Registers the WebP decoder for uploads.
	_ "golang.org/x/image/webp"

	"chronobooth/internal/domain"
)

const JPEGQuality = 90

// DefaultMaxPixels bounds the decoded area of any input image.
const DefaultMaxPixels = 40_000_000

var maxPixels atomic.Int64

// SetMaxPixels changes the decoded-area limit. Non-positive values restore
// DefaultMaxPixels.
func SetMaxPixels(n int64) {
	if n <= 0 {
		n = DefaultMaxPixels
	}
	maxPixels.Store(n)
}

func pixelLimit() int64 {
	if n := maxPixels.Load(); n > 0 {
		return n
	}
	return DefaultMaxPixels
}

// CheckPixels reads only the image header and rejects images whose decoded
// bitmap would exceed the pixel limit. It returns the detected format.
func CheckPixels(data []byte) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: empty dimensions", domain.ErrUnsupportedImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > pixelLimit() {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrUnsupportedImage, cfg.Width, cfg.Height, pixelLimit())
	}
	return format, nil
}

// Format is an output encoding for downloads.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat maps a query value onto a Format, defaulting to JPEG.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported format %q", v)
	}
}

func (f Format) MIME() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// Decode reads an encoded image, applying EXIF orientation.
func Decode(data []byte) (*domain.RawImage, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoSelection
	}
	format, err := CheckPixels(data)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	b := img.Bounds()
	return &domain.RawImage{
		Data:   data,
		MIME:   "image/" + format,
		Width:  b.Dx(),
		Height: b.Dy(),
		Image:  img,
	}, nil
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode writes img in the requested format.
func Encode(img image.Image, f Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case FormatJPEG:
		return EncodeJPEG(img)
	case FormatPNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case FormatWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: JPEGQuality})
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// Transcode re-encodes an opaque asset. JPEG input requested as JPEG is
// returned unchanged.
func Transcode(data []byte, mime string, f Format) ([]byte, error) {
	if f == FormatJPEG && strings.EqualFold(mime, "image/jpeg") {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	return Encode(img, f)
}
