package sentinel

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *properties.Config {
	return &properties.Config{
		BBox:       properties.DefaultBBox,
		CRS:        "http://www.opengis.net/def/crs/OGC/1.3/CRS84",
		Resolution: properties.DefaultResolution,
	}
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func TestBuildKeepsTimeInterval(t *testing.T) {
	b := NewBuilder(testConfig(), nil)
	cases := [][2]string{
		{"2024-01-01", "2024-01-10"},
		{"2023-06-15", "2023-06-15"},
		{"2020-12-31", "2021-01-01"},
	}
	for _, c := range cases {
		desc, err := b.Build(mustRange(t, c[0], c[1]), OutputOptions{FileFormat: FormatPNG})
		require.NoError(t, err)
		start, end := desc.TimeInterval()
		assert.Equal(t, c[0], start)
		assert.Equal(t, c[1], end)
	}
}

func TestPNGScenario(t *testing.T) {
	b := NewBuilder(testConfig(), nil)
	desc, err := b.Build(mustRange(t, "2024-01-01", "2024-01-10"), OutputOptions{FileFormat: FormatPNG})
	require.NoError(t, err)

	assert.Equal(t, MimePNG, desc.MimeType)
	assert.Equal(t, MosaickingLeastCC, desc.MosaickingOrder)
	assert.Equal(t, CollectionSentinel2L1C, desc.Collection)
	assert.Equal(t, ModeTrueColor, desc.Mode)
	assert.Contains(t, desc.Evalscript, "return [sample.B04, sample.B03, sample.B02];")
}

func TestResolveMimeType(t *testing.T) {
	cases := map[FileFormat]MimeType{
		FormatTIFF: MimeTIFF,
		FormatPNG:  MimePNG,
		FormatJPEG: MimeJPEG,
		"png":      MimeTIFF,
		"jpeg":     MimeTIFF,
		" PNG ":    MimeTIFF,
		"":         MimeTIFF,
		"GIF":      MimeTIFF,
		"JPG":      MimeTIFF,
	}
	for format, want := range cases {
		got, _ := ResolveMimeType(format)
		assert.Equal(t, want, got, "format %q", format)
	}

	_, fellBack := ResolveMimeType("BMP")
	assert.True(t, fellBack)
	_, fellBack = ResolveMimeType("png")
	assert.True(t, fellBack)
	_, fellBack = ResolveMimeType(FormatJPEG)
	assert.False(t, fellBack)
}

func TestMimeExtension(t *testing.T) {
	assert.Equal(t, "tiff", MimeTIFF.Extension())
	assert.Equal(t, "png", MimePNG.Extension())
	assert.Equal(t, "jpg", MimeJPEG.Extension())
}

func TestModes(t *testing.T) {
	b := NewBuilder(testConfig(), nil)
	dates := mustRange(t, "2024-01-01", "2024-01-10")

	clm, err := b.Build(dates, OutputOptions{Mode: ModeCloudMask})
	require.NoError(t, err)
	assert.Contains(t, clm.Evalscript, "CLM")
	assert.Equal(t, MosaickingDefault, clm.MosaickingOrder)
	assert.Equal(t, 1.0, ModeCloudMask.Brightness())

	clouds, err := b.Build(dates, OutputOptions{Mode: ModeWithClouds})
	require.NoError(t, err)
	assert.NotContains(t, clouds.Evalscript, "CLM")
	assert.Equal(t, MosaickingDefault, clouds.MosaickingOrder)
	assert.Equal(t, 2.0, ModeWithClouds.Brightness())

	m, err := ParseMode("Cloud-Mask")
	require.NoError(t, err)
	assert.Equal(t, ModeCloudMask, m)
	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeTrueColor, m)
	_, err = ParseMode("infrared")
	assert.Error(t, err)
}

func TestBuildRejectsZeroRange(t *testing.T) {
	_, err := NewBuilder(testConfig(), nil).Build(DateRange{}, OutputOptions{})
	assert.Error(t, err)
}

func TestValidateDateRange(t *testing.T) {
	r := mustRange(t, "2024-02-05", "2024-01-01")
	assert.True(t, errors.Is(r.Validate(), ErrInvalidDateRange))

	assert.NoError(t, mustRange(t, "2024-01-01", "2024-01-01").Validate())
	assert.ErrorIs(t, DateRange{}.Validate(), ErrIncompleteDateRange)
	assert.NotErrorIs(t, DateRange{}.Validate(), ErrInvalidDateRange)
	assert.ErrorIs(t, mustRange(t, "0001-01-01", "2024-01-01").Validate(), ErrIncompleteDateRange)

	_, err := ParseDateRange("2024-13-01", "2024-01-01")
	assert.Error(t, err)
	_, err = ParseDateRange("2024-01-01", "01/02/2024")
	assert.Error(t, err)
}

func TestPayload(t *testing.T) {
	b := NewBuilder(testConfig(), nil)
	desc, err := b.Build(mustRange(t, "2024-01-01", "2024-01-10"), OutputOptions{FileFormat: FormatJPEG})
	require.NoError(t, err)

	body, err := desc.Payload()
	require.NoError(t, err)

	var got struct {
		Input struct {
			Bounds struct {
				Properties map[string]string `json:"properties"`
				BBox       []float64         `json:"bbox"`
			} `json:"bounds"`
			Data []struct {
				Type       string `json:"type"`
				DataFilter struct {
					TimeRange struct {
						From string `json:"from"`
						To   string `json:"to"`
					} `json:"timeRange"`
					MosaickingOrder string `json:"mosaickingOrder"`
				} `json:"dataFilter"`
			} `json:"data"`
		} `json:"input"`
		Output struct {
			Width     int `json:"width"`
			Height    int `json:"height"`
			Responses []struct {
				Identifier string            `json:"identifier"`
				Format     map[string]string `json:"format"`
			} `json:"responses"`
		} `json:"output"`
		Evalscript string `json:"evalscript"`
	}
	require.NoError(t, json.Unmarshal(body, &got))

	assert.Equal(t, []float64{16.280155, 48.151886, 16.466296, 48.260341}, got.Input.Bounds.BBox)
	require.Len(t, got.Input.Data, 1)
	assert.Equal(t, "sentinel-2-l1c", got.Input.Data[0].Type)
	assert.Equal(t, "2024-01-01T00:00:00Z", got.Input.Data[0].DataFilter.TimeRange.From)
	assert.Equal(t, "2024-01-10T23:59:59Z", got.Input.Data[0].DataFilter.TimeRange.To)
	assert.Equal(t, "leastCC", got.Input.Data[0].DataFilter.MosaickingOrder)
	assert.Equal(t, desc.Width, got.Output.Width)
	require.Len(t, got.Output.Responses, 1)
	assert.Equal(t, "default", got.Output.Responses[0].Identifier)
	assert.Equal(t, "image/jpeg", got.Output.Responses[0].Format["type"])

	again, err := desc.Payload()
	require.NoError(t, err)
	assert.Equal(t, body, again)
}
