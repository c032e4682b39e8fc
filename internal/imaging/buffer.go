package imaging

import "math"

const Channels = 3

// Buffer is a height x width x 3 pixel array stored row-major with interleaved
// channels. Processing steps return new buffers and never modify their input.
type Buffer struct {
	Width  int
	Height int
	Pix    []float64
}

func NewBuffer(width, height int) Buffer {
	return Buffer{Width: width, Height: height, Pix: make([]float64, width*height*Channels)}
}

func (b Buffer) offset(x, y, c int) int {
	return (y*b.Width+x)*Channels + c
}

func (b Buffer) At(x, y, c int) float64 { return b.Pix[b.offset(x, y, c)] }

func (b Buffer) Set(x, y, c int, v float64) { b.Pix[b.offset(x, y, c)] = v }

func (b Buffer) Empty() bool { return len(b.Pix) == 0 }

func (b Buffer) Clone() Buffer {
	out := Buffer{Width: b.Width, Height: b.Height, Pix: make([]float64, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// MinMax ignores NaN values. An all-NaN buffer reports 0, 0.
func (b Buffer) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range b.Pix {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return 0, 0
	}
	return lo, hi
}
