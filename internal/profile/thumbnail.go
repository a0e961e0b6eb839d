package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"

	"finder/internal/domain"

	"github.com/disintegration/imaging"
)

// Avatars are fitted into this box, keeping the aspect ratio
const (
	ThumbWidth  = 120
	ThumbHeight = 120
)

// Upload limits. Pictures are rejected before full decoding when either is exceeded.
const (
	MaxUploadBytes = 4 << 20     // Encoded size
	MaxPixels      = 4096 * 4096 // Declared width x height
)

var ErrUnsupportedImage = errors.New("unsupported image")

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.BMP:  "image/bmp",
	imaging.TIFF: "image/tiff",
}

// Thumbnail decodes r, shrinks it to fit ThumbWidth x ThumbHeight (never
// enlarging) and re-encodes it in the format implied by ext. Oversized input
// is refused from its header, before the pixels are decoded.
func Thumbnail(r io.Reader, ext string) ([]byte, string, error) {
	format, err := imaging.FormatFromExtension(strings.TrimPrefix(ext, "."))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedImage, ext)
	}

	raw, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(raw) > MaxUploadBytes {
		return nil, "", fmt.Errorf("%w: larger than %d bytes", ErrUnsupportedImage, MaxUploadBytes)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d pixels", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	thumb := imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), contentTypes[format], nil
}

// EnsureDefaultAvatar writes the shared default picture when the store lacks it
func EnsureDefaultAvatar(ctx context.Context, images ImageStore) error {
	ok, err := images.Exists(ctx, domain.DefaultAvatar)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	placeholder := imaging.New(ThumbWidth, ThumbHeight, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, placeholder, imaging.PNG); err != nil {
		return err
	}
	return images.Put(ctx, domain.DefaultAvatar, buf.Bytes(), "image/png")
}
