package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sramlab/pufrecon/internal/bitstream"
)

// GeometryConfig describes how a decoded capture is cut into regions and
// segments.
type GeometryConfig struct {
	RegionBits    int      `yaml:"region_bits" validate:"gt=0"`
	SegmentBits   int      `yaml:"segment_bits" validate:"gt=0"`
	SegmentPolicy string   `yaml:"segment_policy" validate:"oneof=strict allow-short-last"`
	Regions       []string `yaml:"regions" validate:"min=1,unique,dive,required"`
}

// RenderConfig holds image dimensions.
type RenderConfig struct {
	TileWidth  int `yaml:"tile_width" validate:"gt=0"`
	TileHeight int `yaml:"tile_height" validate:"gt=0"`
	GridCols   int `yaml:"grid_cols" validate:"gt=0"`
	Width      int `yaml:"width" validate:"gt=0"`
	Height     int `yaml:"height" validate:"gt=0"`
}

// OutputConfig selects where images go.
type OutputConfig struct {
	Dir      string `yaml:"dir" validate:"required"`
	Sink     string `yaml:"sink" validate:"oneof=file s3 minio"`
	Bucket   string `yaml:"bucket,omitempty" validate:"required_unless=Sink file"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty" validate:"required_if=Sink minio"`
	UseSSL   bool   `yaml:"use_ssl,omitempty"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Config is the in-memory representation of ~/.pufrecon/pufrecon.yaml.
type Config struct {
	Geometry  GeometryConfig `yaml:"geometry"`
	Render    RenderConfig   `yaml:"render"`
	Output    OutputConfig   `yaml:"output"`
	Log       LogConfig      `yaml:"log"`
	Reference string         `yaml:"reference,omitempty"`
	Segments  int            `yaml:"segments" validate:"gt=0"`
	Workers   int            `yaml:"workers" validate:"gte=0"`
}

var validate = validator.New()

// Dir returns the absolute path to ~/.pufrecon/.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".pufrecon"), nil
}

// ConfigPath returns the absolute path to ~/.pufrecon/pufrecon.yaml.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pufrecon.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// DefaultConfig returns the Config written on first pufrecon init.
func DefaultConfig() *Config {
	g := bitstream.DefaultGeometry()
	return &Config{
		Geometry: GeometryConfig{
			RegionBits:    g.RegionBits,
			SegmentBits:   g.SegmentBits,
			SegmentPolicy: g.Policy.String(),
			Regions:       append([]string(nil), g.Regions...),
		},
		Render: RenderConfig{
			TileWidth:  256,
			TileHeight: 256,
			GridCols:   4,
			Width:      1024,
			Height:     1024,
		},
		Output: OutputConfig{
			Dir:  "RECOVER_BMPs",
			Sink: "file",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Reference: "AubieImage.csv",
		Segments:  32,
	}
}

// Validate checks field constraints and that the geometry is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Bitstream(); err != nil {
		return err
	}
	return nil
}

// Bitstream converts the geometry section and validates it.
func (c *Config) Bitstream() (bitstream.Geometry, error) {
	policy, err := bitstream.ParseSegmentPolicy(c.Geometry.SegmentPolicy)
	if err != nil {
		return bitstream.Geometry{}, err
	}
	g := bitstream.Geometry{
		RegionBits:  c.Geometry.RegionBits,
		SegmentBits: c.Geometry.SegmentBits,
		Policy:      policy,
		Regions:     append([]string(nil), c.Geometry.Regions...),
	}
	if err := g.Validate(); err != nil {
		return bitstream.Geometry{}, err
	}
	return g, nil
}

// Parse decodes YAML over the defaults, so omitted keys keep their default
// values.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads ~/.pufrecon/pufrecon.yaml, applies environment overrides and
// validates the result.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadOrDefault is Load, falling back to defaults when the file is absent.
func LoadOrDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return finish(DefaultConfig())
	}
	return LoadFile(path)
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	var err error
	// Expand ~ in paths at load time.
	if cfg.Output.Dir, err = ExpandPath(cfg.Output.Dir); err != nil {
		return nil, err
	}
	if cfg.Reference, err = ExpandPath(cfg.Reference); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment keys that override the YAML file. Process environment wins
// over ~/.pufrecon/.env.
const (
	EnvOutputDir      = "PUFRECON_OUTPUT_DIR"
	EnvOutputSink     = "PUFRECON_OUTPUT_SINK"
	EnvBucket         = "PUFRECON_BUCKET"
	EnvEndpoint       = "PUFRECON_ENDPOINT"
	EnvWorkers        = "PUFRECON_WORKERS"
	EnvLogLevel       = "PUFRECON_LOG_LEVEL"
	EnvMinioAccessKey = "PUFRECON_MINIO_ACCESS_KEY"
	EnvMinioSecretKey = "PUFRECON_MINIO_SECRET_KEY"
)

func applyEnv(cfg *Config) error {
	dotenv, err := LoadDotEnv()
	if err != nil {
		return err
	}
	get := func(k string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[k])
	}
	set := func(k string, dst *string) {
		if v := get(k); v != "" {
			*dst = v
		}
	}
	set(EnvOutputDir, &cfg.Output.Dir)
	set(EnvOutputSink, &cfg.Output.Sink)
	set(EnvBucket, &cfg.Output.Bucket)
	set(EnvEndpoint, &cfg.Output.Endpoint)
	set(EnvLogLevel, &cfg.Log.Level)
	if v := get(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %q is not a number", EnvWorkers, v)
		}
		cfg.Workers = n
	}
	return nil
}

// Save marshals cfg and writes it to ~/.pufrecon/pufrecon.yaml.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}
