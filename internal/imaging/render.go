package imaging

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
)

// PreviewRenderer displays processed buffers by writing them as PNG files.
type PreviewRenderer struct {
	Dir string
}

func NewPreviewRenderer(dir string) *PreviewRenderer {
	return &PreviewRenderer{Dir: dir}
}

// Show renders values in [0, 1] to <Dir>/<name>.png and returns the path.
// Values outside that range are clamped.
func (r *PreviewRenderer) Show(b Buffer, name string) (string, error) {
	if b.Empty() {
		return "", ErrEmptyImage
	}
	if err := os.MkdirAll(r.Dir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create preview folder: %w", err)
	}

	dc := gg.NewContext(b.Width, b.Height)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			dc.SetRGB(unit(b.At(x, y, 0)), unit(b.At(x, y, 1)), unit(b.At(x, y, 2)))
			dc.SetPixel(x, y)
		}
	}

	path := filepath.Join(r.Dir, name+".png")
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("failed to save preview: %w", err)
	}
	return path, nil
}

func unit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(math.Max(v, 0), 1)
}
