package assemble

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// decodeFrame reads one PNG screenshot.
func decodeFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("assemble: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("assemble: decode %s: %w", path, err)
	}
	return img, nil
}

// toPaletted fits src into a frame of the given size and dithers it onto the
// Plan 9 palette. Frames of another size are scaled, never cropped.
func toPaletted(src image.Image, size image.Point) *image.Paletted {
	bounds := image.Rectangle{Max: size}

	var img image.Image = src
	if src.Bounds().Size() != size {
		scaled := image.NewRGBA(bounds)
		draw.ApproxBiLinear.Scale(scaled, bounds, src, src.Bounds(), draw.Src, nil)
		img = scaled
	}

	dst := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(dst, bounds, img, img.Bounds().Min)
	return dst
}

// centiseconds converts a frame duration in milliseconds to the GIF delay
// unit, rounding to the nearest unit with a floor of one.
func centiseconds(ms int) int {
	cs := (ms + 5) / 10
	if cs < 1 {
		cs = 1
	}
	return cs
}

// palettedBytes is the pixel memory of n paletted frames of the given size.
func palettedBytes(n int, size image.Point) int64 {
	return int64(n) * int64(size.X) * int64(size.Y)
}
