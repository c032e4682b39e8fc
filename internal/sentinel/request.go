package sentinel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forest-guardian/truecolor-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

const CollectionSentinel2L1C = "sentinel-2-l1c"

type FileFormat string

const (
	FormatTIFF FileFormat = "TIFF"
	FormatPNG  FileFormat = "PNG"
	FormatJPEG FileFormat = "JPEG"
)

var FileFormats = []FileFormat{FormatTIFF, FormatPNG, FormatJPEG}

type MimeType string

const (
	MimeTIFF MimeType = "image/tiff"
	MimePNG  MimeType = "image/png"
	MimeJPEG MimeType = "image/jpeg"
)

var mimeTypeMapping = map[FileFormat]MimeType{
	FormatTIFF: MimeTIFF,
	FormatPNG:  MimePNG,
	FormatJPEG: MimeJPEG,
}

// Extension is the file extension used for persisted responses.
func (m MimeType) Extension() string {
	switch m {
	case MimePNG:
		return "png"
	case MimeJPEG:
		return "jpg"
	default:
		return "tiff"
	}
}

// ResolveMimeType maps a file format selection to a mime type. The lookup is
// exact; anything else, including lowercase names, falls back to TIFF. The
// second result reports whether that happened.
func ResolveMimeType(format FileFormat) (MimeType, bool) {
	if m, ok := mimeTypeMapping[format]; ok {
		return m, false
	}
	return MimeTIFF, true
}

type MosaickingOrder string

const (
	MosaickingDefault MosaickingOrder = ""
	MosaickingLeastCC MosaickingOrder = "leastCC"
)

// Mode selects one of the imagery variants: evalscript, mosaicking order and
// how the result is brightened for display.
type Mode string

const (
	ModeTrueColor  Mode = "true-color"
	ModeCloudMask  Mode = "cloud-mask"
	ModeWithClouds Mode = "with-clouds"
)

var Modes = []Mode{ModeTrueColor, ModeCloudMask, ModeWithClouds}

func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeTrueColor, nil
	}
	for _, m := range Modes {
		if string(m) == strings.ToLower(strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

func (m Mode) evalscript() string {
	if m == ModeCloudMask {
		return evalscriptCloudMask
	}
	return evalscriptTrueColor
}

func (m Mode) mosaickingOrder() MosaickingOrder {
	if m == ModeTrueColor {
		return MosaickingLeastCC
	}
	return MosaickingDefault
}

// Brightness is the factor applied to the normalized image before display.
func (m Mode) Brightness() float64 {
	if m == ModeCloudMask {
		return 1.0
	}
	return 2.0
}

type OutputOptions struct {
	FileFormat    FileFormat
	PersistToDisk bool
	Mode          Mode
	LoadLayer     bool
}

type RequestDescriptor struct {
	Evalscript      string
	Collection      string
	DateRange       DateRange
	MosaickingOrder MosaickingOrder
	MimeType        MimeType
	BBox            orb.Bound
	CRS             string
	Width           int
	Height          int
	Mode            Mode
}

// TimeInterval returns the requested dates as yyyy-MM-dd strings.
func (d *RequestDescriptor) TimeInterval() (string, string) {
	return d.DateRange.StartString(), d.DateRange.EndString()
}

type processRequest struct {
	Input      processInput  `json:"input"`
	Output     processOutput `json:"output"`
	Evalscript string        `json:"evalscript"`
}

type processInput struct {
	Bounds processBounds `json:"bounds"`
	Data   []processData `json:"data"`
}

type processBounds struct {
	Properties map[string]string `json:"properties"`
	BBox       [4]float64        `json:"bbox"`
}

type processData struct {
	Type       string     `json:"type"`
	DataFilter dataFilter `json:"dataFilter"`
}

type dataFilter struct {
	TimeRange       timeRange       `json:"timeRange"`
	MosaickingOrder MosaickingOrder `json:"mosaickingOrder,omitempty"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type processOutput struct {
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Responses []processResponse `json:"responses"`
}

type processResponse struct {
	Identifier string            `json:"identifier"`
	Format     map[string]string `json:"format"`
}

// Payload serializes the descriptor into a Process API request body. The output
// is deterministic, so it doubles as the persisted request.json.
func (d *RequestDescriptor) Payload() ([]byte, error) {
	from, to := d.DateRange.Interval()
	req := processRequest{
		Input: processInput{
			Bounds: processBounds{
				Properties: map[string]string{"crs": d.CRS},
				BBox:       [4]float64{d.BBox.Min.X(), d.BBox.Min.Y(), d.BBox.Max.X(), d.BBox.Max.Y()},
			},
			Data: []processData{{
				Type: d.Collection,
				DataFilter: dataFilter{
					TimeRange:       timeRange{From: from, To: to},
					MosaickingOrder: d.MosaickingOrder,
				},
			}},
		},
		Output: processOutput{
			Width:  d.Width,
			Height: d.Height,
			Responses: []processResponse{{
				Identifier: "default",
				Format:     map[string]string{"type": string(d.MimeType)},
			}},
		},
		Evalscript: d.Evalscript,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return body, nil
}

// Builder turns user selections into request descriptors for the configured area.
type Builder struct {
	cfg    *properties.Config
	width  int
	height int
	log    *zerolog.Logger
}

func NewBuilder(cfg *properties.Config, log *zerolog.Logger) *Builder {
	w, h := BBoxToDimensions(cfg.BBox, cfg.Resolution)
	return &Builder{cfg: cfg, width: w, height: h, log: log}
}

func (b *Builder) Dimensions() (int, int) { return b.width, b.height }

// Build does not check date ordering; callers validate the range first.
func (b *Builder) Build(dates DateRange, opts OutputOptions) (*RequestDescriptor, error) {
	if dates.Start.IsZero() || dates.End.IsZero() {
		return nil, fmt.Errorf("cannot build request without a date range")
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeTrueColor
	}

	mime, fellBack := ResolveMimeType(opts.FileFormat)
	if fellBack && b.log != nil {
		b.log.Debug().Str("file_format", string(opts.FileFormat)).Msg("unknown file format, using TIFF")
	}

	return &RequestDescriptor{
		Evalscript:      mode.evalscript(),
		Collection:      CollectionSentinel2L1C,
		DateRange:       dates,
		MosaickingOrder: mode.mosaickingOrder(),
		MimeType:        mime,
		BBox:            b.cfg.BBox,
		CRS:             b.cfg.CRS,
		Width:           b.width,
		Height:          b.height,
		Mode:            mode,
	}, nil
}
