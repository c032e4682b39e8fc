package layer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidLayer is returned when a persisted response cannot be used as a
// raster layer. It is distinct from fetch failures.
var ErrInvalidLayer = errors.New("layer failed to load")

const minBands = 3

var registerOnce sync.Once

type Info struct {
	Path          string
	Name          string
	Width         int
	Height        int
	Bands         int
	GeoTransform  [6]float64
	Projection    string
	Georeferenced bool
}

// Load opens path with GDAL and checks it is a raster with at least three bands.
func Load(path, name string) (*Info, error) {
	registerOnce.Do(godal.RegisterAll)

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayer, err)
	}

	ds, err := godal.Open(path, godal.ErrLogger(func(ec godal.ErrorCategory, code int, msg string) error {
		if ec == godal.CE_Warning {
			return nil
		}
		return errors.New(msg)
	}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLayer, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < minBands {
		return nil, fmt.Errorf("%w: %s has %d band(s), need %d", ErrInvalidLayer, path, st.NBands, minBands)
	}

	info := &Info{
		Path:       path,
		Name:       name,
		Width:      st.SizeX,
		Height:     st.SizeY,
		Bands:      st.NBands,
		Projection: ds.Projection(),
	}
	if gt, err := ds.GeoTransform(); err == nil && gt != [6]float64{0, 1, 0, 0, 0, 1} {
		info.GeoTransform = gt
		info.Georeferenced = true
	}
	return info, nil
}

// PixelToLonLat returns the coordinates of the pixel's upper-left corner.
func (i *Info) PixelToLonLat(x, y int) (float64, float64, error) {
	if !i.Georeferenced {
		return 0, 0, fmt.Errorf("layer %s is not georeferenced", i.Name)
	}
	gt := i.GeoTransform
	lon := gt[0] + float64(x)*gt[1] + float64(y)*gt[2]
	lat := gt[3] + float64(x)*gt[4] + float64(y)*gt[5]
	return lon, lat, nil
}

// LonLatToPixel assumes a north-up geotransform.
func (i *Info) LonLatToPixel(lon, lat float64) (int, int, error) {
	if !i.Georeferenced {
		return 0, 0, fmt.Errorf("layer %s is not georeferenced", i.Name)
	}
	gt := i.GeoTransform
	col := int(math.Floor((lon - gt[0]) / gt[1]))
	row := int(math.Floor((lat - gt[3]) / gt[5]))
	if col < 0 || col >= i.Width || row < 0 || row >= i.Height {
		return 0, 0, fmt.Errorf("latitude %f and longitude %f are out of bounds for the image", lat, lon)
	}
	return col, row, nil
}

func (i *Info) Bound() (orb.Bound, error) {
	west, north, err := i.PixelToLonLat(0, 0)
	if err != nil {
		return orb.Bound{}, err
	}
	east, south, _ := i.PixelToLonLat(i.Width, i.Height)
	return orb.Bound{
		Min: orb.Point{math.Min(west, east), math.Min(south, north)},
		Max: orb.Point{math.Max(west, east), math.Max(south, north)},
	}, nil
}

// Footprint describes the layer extent as a GeoJSON polygon feature.
func (i *Info) Footprint() (*geojson.Feature, error) {
	b, err := i.Bound()
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(b.ToPolygon())
	f.Properties["name"] = i.Name
	f.Properties["path"] = i.Path
	f.Properties["width"] = i.Width
	f.Properties["height"] = i.Height
	f.Properties["bands"] = i.Bands
	return f, nil
}
