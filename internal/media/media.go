// Package media stores profile photos.
package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
)

var ErrNotFound = errors.New("media not found")

// Constraints bounds both image dimensions, in pixels.
type Constraints struct {
	MinPx int
	MaxPx int
}

// Store accepts an image stream and returns its public URL.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader, c Constraints) (string, error)
}

// Inspect reads the image header from r and checks it against c. The
// returned reader replays the consumed header followed by the rest of r.
func Inspect(r io.Reader, c Constraints) (io.Reader, string, error) {
	var head bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, "", apperrors.InvalidMedia("file is not a supported image")
	}
	if c.MinPx > 0 && (cfg.Width < c.MinPx || cfg.Height < c.MinPx) {
		return nil, "", apperrors.InvalidMedia("image must be at least %dx%d pixels", c.MinPx, c.MinPx)
	}
	if c.MaxPx > 0 && (cfg.Width > c.MaxPx || cfg.Height > c.MaxPx) {
		return nil, "", apperrors.InvalidMedia("image must be at most %dx%d pixels", c.MaxPx, c.MaxPx)
	}
	return io.MultiReader(&head, r), format, nil
}

func publicURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/media/" + id
}

// ContentType maps a decoded image format to its MIME type.
func ContentType(format string) string {
	switch format {
	case "jpeg", "png", "gif":
		return "image/" + format
	}
	return "application/octet-stream"
}
