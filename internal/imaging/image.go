package imaging

import (
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/snappedai/snapsearch/internal/errors"

	_ "image/gif"

	_ "golang.org/x/image/webp"
)

// maxOptimizedDim bounds the longest edge after optimization. Provider
// lookups do not benefit from larger inputs.
const maxOptimizedDim = 1600

const jpegQuality = 85

// Dimensions returns the pixel width and height of the image at path
// without decoding the full pixel data.
func Dimensions(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, errors.New(err).
			Component("imaging").
			Category(errors.CategoryImage).
			Context("path", path).
			Build()
	}
	return cfg.Width, cfg.Height, nil
}

// Crop extracts the rectangle at (x, y) with the given width and height
// from src and writes it to dst. The rectangle must lie fully inside the
// image.
func Crop(src, dst string, x, y, width, height int) error {
	if width <= 0 || height <= 0 || x < 0 || y < 0 {
		return errors.Newf("invalid crop rectangle %dx%d at (%d, %d)", width, height, x, y).
			Component("imaging").
			Category(errors.CategoryValidation).
			Build()
	}

	img, err := decode(src)
	if err != nil {
		return err
	}

	bounds := img.Bounds()
	if x+width > bounds.Dx() || y+height > bounds.Dy() {
		return errors.Newf("crop rectangle %dx%d at (%d, %d) exceeds image bounds %dx%d",
			width, height, x, y, bounds.Dx(), bounds.Dy()).
			Component("imaging").
			Category(errors.CategoryValidation).
			Build()
	}

	cropped := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Copy(cropped, image.Point{}, img,
		image.Rect(bounds.Min.X+x, bounds.Min.Y+y, bounds.Min.X+x+width, bounds.Min.Y+y+height),
		draw.Src, nil)

	return encode(dst, cropped)
}

// Optimize rewrites src scaled down so its longest edge is at most maxDim
// pixels, returning whether a resize happened. A non-positive maxDim uses
// the package default. Smaller images are left untouched.
func Optimize(src string, maxDim int) (bool, error) {
	if maxDim <= 0 {
		maxDim = maxOptimizedDim
	}

	img, err := decode(src)
	if err != nil {
		return false, err
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return false, nil
	}

	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)

	resized := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	if err := encode(src, resized); err != nil {
		return false, err
	}
	return true, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("imaging").
			Category(errors.CategoryImage).
			Context("path", path).
			Build()
	}
	return img, nil
}

// encode writes the image in the format implied by the destination
// extension. Formats without an encoder fall back to JPEG.
func encode(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryImage).
			Context("path", path).
			Build()
	}
	return nil
}
