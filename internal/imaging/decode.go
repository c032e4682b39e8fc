package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"
)

// Decode reads a PNG, JPEG or TIFF response into a Buffer holding the first
// three channels on a 0..255 scale.
func Decode(data []byte) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

func FromImage(img image.Image) Buffer {
	bounds := img.Bounds()
	b := NewBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			r, g, bl, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			b.Set(x, y, 0, float64(r)/257)
			b.Set(x, y, 1, float64(g)/257)
			b.Set(x, y, 2, float64(bl)/257)
		}
	}
	return b
}

func DecodeFile(path string) (Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Buffer{}, fmt.Errorf("failed to read image file: %w", err)
	}
	return Decode(data)
}
