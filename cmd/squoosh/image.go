package main

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Extra input decoders beyond imaging's built-ins.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	squooshkit "github.com/bnowak008/squoosh-kit-sub000"
)

// loadPixels reads an image file in any registered format and flattens it to
// a tightly packed RGBA buffer.
func loadPixels(path string) (*squooshkit.ImageBuffer, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	flat := imaging.Clone(src)
	b := flat.Bounds()
	return &squooshkit.ImageBuffer{
		Data:   flat.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// savePixels writes a raw buffer to path; the format follows the extension.
func savePixels(img *squooshkit.ImageBuffer, path string) error {
	if err := img.Validate(); err != nil {
		return err
	}
	out := &image.NRGBA{
		Pix:    img.Data,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
	if err := imaging.Save(out, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
