package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
)

// BlankThreshold is the mean channel intensity above which a capture is
// treated as a near-white, blank screenshot.
const BlankThreshold = 250.0

// MeanIntensity decodes an image and returns the mean 8-bit value over the
// R, G and B channels of every pixel. Alpha is ignored.
func MeanIntensity(data []byte) (float64, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("image: decode: %w", err)
	}

	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0, fmt.Errorf("image: empty raster")
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sum += uint64(r>>8) + uint64(g>>8) + uint64(bl>>8)
		}
	}

	return float64(sum) / float64(n*3), nil
}

// IsBlank reports whether the image's mean intensity exceeds BlankThreshold.
func IsBlank(data []byte) (bool, error) {
	mean, err := MeanIntensity(data)
	if err != nil {
		return false, err
	}
	return mean > BlankThreshold, nil
}
