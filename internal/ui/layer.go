package ui

import (
	"context"
	"errors"
	"fmt"

	"github.com/forest-guardian/truecolor-cli/internal/layer"
)

var errNoPersistedImage = errors.New("no downloaded image found. Fetch imagery with download enabled first")

// LoadLatestLayer opens the most recently persisted response as a raster layer.
func (m *Menu) LoadLatestLayer(_ context.Context) error {
	if m.ledger == nil {
		return errNoPersistedImage
	}
	record, ok, err := m.ledger.LatestPersisted()
	if err != nil {
		return err
	}
	if !ok {
		return errNoPersistedImage
	}
	name := fmt.Sprintf("Sentinel Image %s to %s", record.StartDate, record.EndDate)
	return LoadLayer(m.console, m.loadLayer, record.ResponsePath, name)
}

// LoadLayer loads path and prints its description and footprint.
func LoadLayer(c *Console, load func(path, name string) (*layer.Info, error), path, name string) error {
	info, err := load(path, name)
	if err != nil {
		return err
	}

	c.PrintSuccess("Layer loaded: " + describeLayer(info))
	if f, err := info.Footprint(); err == nil {
		raw, err := f.MarshalJSON()
		if err == nil {
			fmt.Fprintf(c.Writer(), "%sFootprint: %s%s\n", ColorGreen, raw, ColorReset)
		}
	} else {
		c.PrintWarning("The layer has no georeference; it cannot be placed on a map.")
	}
	return nil
}

func describeLayer(info *layer.Info) string {
	return fmt.Sprintf("%s (%dx%d, %d bands) from %s", info.Name, info.Width, info.Height, info.Bands, info.Path)
}
