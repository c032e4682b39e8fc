package properties

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
)

const (
	DefaultTokenURL   = "https://services.sentinel-hub.com/auth/realms/main/protocol/openid-connect/token"
	DefaultProcessURL = "https://services.sentinel-hub.com/api/v1/process"
	DefaultResolution = 60.0
)

// Vienna, WGS84.
var DefaultBBox = orb.Bound{
	Min: orb.Point{16.280155, 48.151886},
	Max: orb.Point{16.466296, 48.260341},
}

type Credential struct {
	ClientID     string
	ClientSecret string
}

// Config is built once at startup and passed to every component that needs it.
type Config struct {
	Credentials []Credential
	TokenURL    string `validate:"required,url"`
	ProcessURL  string `validate:"required,url"`

	BBox       orb.Bound
	CRS        string  `validate:"required"`
	Resolution float64 `validate:"gt=0"`

	DataFolder    string `validate:"required"`
	PreviewFolder string `validate:"required"`
	HistoryFile   string `validate:"required"`

	Retries        int           `validate:"gte=1,lte=20"`
	RetryDelay     time.Duration `validate:"gte=0"`
	RequestTimeout time.Duration `validate:"gt=0"`

	DiscordErrorURL   string `validate:"omitempty,url"`
	DiscordSuccessURL string `validate:"omitempty,url"`

	LogLevel   string `validate:"omitempty,oneof=debug info warn error"`
	LogConsole bool
}

// HasCredentials reports whether at least one usable client id/secret pair is set.
func (c *Config) HasCredentials() bool {
	for _, cred := range c.Credentials {
		if cred.ClientID != "" && cred.ClientSecret != "" {
			return true
		}
	}
	return false
}

// LoadEnv loads the first .env file found. A missing file is not an error.
func LoadEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env", "../.env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return
		}
	}
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		TokenURL:          envOr("SH_TOKEN_URL", DefaultTokenURL),
		ProcessURL:        envOr("SH_PROCESS_URL", DefaultProcessURL),
		BBox:              DefaultBBox,
		CRS:               "http://www.opengis.net/def/crs/OGC/1.3/CRS84",
		Resolution:        DefaultResolution,
		DataFolder:        envOr("DATA_FOLDER", "test_dir"),
		PreviewFolder:     envOr("PREVIEW_FOLDER", "previews"),
		HistoryFile:       envOr("HISTORY_FILE", "history.csv"),
		Retries:           3,
		RetryDelay:        5 * time.Second,
		RequestTimeout:    2 * time.Minute,
		DiscordErrorURL:   os.Getenv("DISCORD_ERROR_NOTIFICATION_URL"),
		DiscordSuccessURL: os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL"),
		LogLevel:          strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogConsole:        os.Getenv("LOG_CONSOLE") != "false",
	}

	creds, err := parseCredentials(os.Getenv("SH_CLIENT_ID"), os.Getenv("SH_CLIENT_SECRET"))
	if err != nil {
		return nil, err
	}
	cfg.Credentials = creds

	if v := os.Getenv("SH_BBOX"); v != "" {
		bbox, err := ParseBBox(v)
		if err != nil {
			return nil, err
		}
		cfg.BBox = bbox
	}
	if v := os.Getenv("SH_RESOLUTION"); v != "" {
		res, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid SH_RESOLUTION %q: %w", v, err)
		}
		cfg.Resolution = res
	}
	if v := os.Getenv("SH_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SH_RETRIES %q: %w", v, err)
		}
		cfg.Retries = n
	}
	if v := os.Getenv("SH_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SH_RETRY_DELAY %q: %w", v, err)
		}
		cfg.RetryDelay = d
	}
	if v := os.Getenv("SH_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SH_TIMEOUT %q: %w", v, err)
		}
		cfg.RequestTimeout = d
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the bounding box orientation.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.BBox.Min.X() >= c.BBox.Max.X() || c.BBox.Min.Y() >= c.BBox.Max.Y() {
		return fmt.Errorf("invalid configuration: bounding box %v is empty", c.BBox)
	}
	return nil
}

// ParseBBox parses "west,south,east,north" in degrees.
func ParseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("invalid bounding box %q: expected west,south,east,north", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("invalid bounding box %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func parseCredentials(ids, secrets string) ([]Credential, error) {
	if ids == "" && secrets == "" {
		return nil, nil
	}
	idList := strings.Split(ids, ",")
	secretList := strings.Split(secrets, ",")
	if len(idList) != len(secretList) {
		return nil, fmt.Errorf("mismatched number of client IDs and secrets")
	}
	creds := make([]Credential, 0, len(idList))
	for i := range idList {
		creds = append(creds, Credential{
			ClientID:     strings.TrimSpace(idList[i]),
			ClientSecret: strings.TrimSpace(secretList[i]),
		})
	}
	return creds, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
