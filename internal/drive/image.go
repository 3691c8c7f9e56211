package drive

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
)

var (
	ErrBadFormat     = errors.New("unsupported image format")
	ErrTooSmall      = errors.New("image dimensions below minimum")
	ErrBadAspect     = errors.New("image aspect ratio out of bounds")
	errEmptyImage    = errors.New("empty image payload")
	errDecodedBounds = errors.New("decoded image has empty bounds")
)

// ImageOptions bound what the gallery accepts and how hard uploads are
// downscaled before hitting Drive.
type ImageOptions struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	// Aspect ratio (width/height) bounds; zero values disable the check.
	MinAspect float64
	MaxAspect float64
	Quality   int
}

// ProcessImage validates the payload, downscales it to MaxWidth when needed
// and re-encodes as JPEG. Returns the encoded bytes and final dimensions.
func ProcessImage(data []byte, opts ImageOptions) ([]byte, int, int, error) {
	if len(data) == 0 {
		return nil, 0, 0, errEmptyImage
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrBadFormat, err)
	}
	if format != "jpeg" && format != "png" {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrBadFormat, format)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, errDecodedBounds
	}
	if width < opts.MinWidth || height < opts.MinHeight {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d", ErrTooSmall, width, height)
	}

	aspect := float64(width) / float64(height)
	if opts.MinAspect > 0 && aspect < opts.MinAspect {
		return nil, 0, 0, fmt.Errorf("%w: %.2f", ErrBadAspect, aspect)
	}
	if opts.MaxAspect > 0 && aspect > opts.MaxAspect {
		return nil, 0, 0, fmt.Errorf("%w: %.2f", ErrBadAspect, aspect)
	}

	if opts.MaxWidth > 0 && width > opts.MaxWidth {
		newWidth := opts.MaxWidth
		newHeight := height * newWidth / width
		dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		src = dst
		width, height = newWidth, newHeight
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = 85
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), width, height, nil
}
