package sentinel

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MaxDimension is the largest width or height the Process API accepts.
const MaxDimension = 2500

// BBoxToDimensions returns the pixel size of a WGS84 bounding box at the given
// resolution in meters per pixel.
func BBoxToDimensions(bbox orb.Bound, resolution float64) (width, height int) {
	center := bbox.Center()
	widthMeters := geo.DistanceHaversine(
		orb.Point{bbox.Min.X(), center.Y()},
		orb.Point{bbox.Max.X(), center.Y()},
	)
	heightMeters := geo.DistanceHaversine(
		orb.Point{center.X(), bbox.Min.Y()},
		orb.Point{center.X(), bbox.Max.Y()},
	)
	return calculatePixels(widthMeters, resolution), calculatePixels(heightMeters, resolution)
}

func calculatePixels(distance, resolution float64) int {
	pixels := int(math.Round(distance / resolution))
	if pixels < 1 {
		return 1
	}
	if pixels > MaxDimension {
		return MaxDimension
	}
	return pixels
}
