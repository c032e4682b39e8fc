package imaging

import (
	"errors"
	"math"
)

// ErrDegenerateImage marks a flat image. It is a warning: the buffer returned
// alongside it is zero-filled and safe to use.
var ErrDegenerateImage = errors.New("image has no contrast, normalized to zeros")

var ErrEmptyImage = errors.New("image buffer is empty")

type ClipRange struct {
	Low  float64
	High float64
}

// UnitClip clamps into [0, 1].
var UnitClip = &ClipRange{Low: 0, High: 1}

// Normalize rescales values linearly into [0, 1] using the buffer's min and max.
func Normalize(b Buffer) (Buffer, error) {
	if b.Empty() {
		return Buffer{}, ErrEmptyImage
	}
	out := NewBuffer(b.Width, b.Height)
	lo, hi := b.MinMax()
	span := hi - lo
	if span == 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return out, ErrDegenerateImage
	}
	for i, v := range b.Pix {
		if math.IsNaN(v) {
			continue
		}
		out.Pix[i] = (v - lo) / span
	}
	return out, nil
}

func Brighten(b Buffer, factor float64) Buffer {
	out := NewBuffer(b.Width, b.Height)
	for i, v := range b.Pix {
		out.Pix[i] = v * factor
	}
	return out
}

func Clip(b Buffer, r ClipRange) Buffer {
	out := NewBuffer(b.Width, b.Height)
	for i, v := range b.Pix {
		out.Pix[i] = math.Min(math.Max(v, r.Low), r.High)
	}
	return out
}

// Process normalizes, brightens by factor and, when clip is set, clamps the
// result. A returned ErrDegenerateImage comes with a usable buffer.
func Process(raw Buffer, factor float64, clip *ClipRange) (Buffer, error) {
	normalized, err := Normalize(raw)
	if err != nil && !errors.Is(err, ErrDegenerateImage) {
		return Buffer{}, err
	}
	out := Brighten(normalized, factor)
	if clip != nil {
		out = Clip(out, *clip)
	}
	return out, err
}
