// Package capture produces raw images from an uploaded file or a live camera
// feed.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chronobooth/internal/compositor"
	"chronobooth/internal/domain"
)

// DefaultMaxUploadBytes bounds a single upload.
const DefaultMaxUploadBytes = 20 << 20

// Source yields at most one RawImage per activation.
type Source interface {
	Produce(ctx context.Context) (*domain.RawImage, error)
}

// FileSource decodes a user-selected file. A nil or empty selection reports
// ErrNoSelection, which callers treat as a silent no-op.
type FileSource struct {
	r        io.Reader
	maxBytes int64
}

func NewFileSource(r io.Reader, maxBytes int64) *FileSource {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &FileSource{r: r, maxBytes: maxBytes}
}

func (s *FileSource) Produce(ctx context.Context) (*domain.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.r == nil {
		return nil, domain.ErrNoSelection
	}
	data, err := io.ReadAll(io.LimitReader(s.r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.ErrNoSelection
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrUnsupportedImage, s.maxBytes)
	}
	return compositor.Decode(data)
}

// IsNoSelection reports whether err means the user dismissed the picker.
func IsNoSelection(err error) bool {
	return errors.Is(err, domain.ErrNoSelection)
}
