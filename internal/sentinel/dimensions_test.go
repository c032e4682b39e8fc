package sentinel

import (
	"testing"

	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestBBoxToDimensionsVienna(t *testing.T) {
	w, h := BBoxToDimensions(properties.DefaultBBox, 60)
	assert.InDelta(t, 230, w, 2)
	assert.InDelta(t, 201, h, 2)
}

func TestBBoxToDimensionsScalesWithResolution(t *testing.T) {
	w60, h60 := BBoxToDimensions(properties.DefaultBBox, 60)
	w30, h30 := BBoxToDimensions(properties.DefaultBBox, 30)
	assert.InDelta(t, 2*w60, w30, 1)
	assert.InDelta(t, 2*h60, h30, 1)
}

func TestBBoxToDimensionsClamps(t *testing.T) {
	huge := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{10, 10}}
	w, h := BBoxToDimensions(huge, 10)
	assert.Equal(t, MaxDimension, w)
	assert.Equal(t, MaxDimension, h)

	tiny := orb.Bound{Min: orb.Point{16, 48}, Max: orb.Point{16.000001, 48.000001}}
	w, h = BBoxToDimensions(tiny, 60)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}
