package converter

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-icon/ico"
	"github.com/nvr-ai/go-icon/images"
)

// Config is the on-disk configuration of the converter. The list of icon
// sizes is fixed and deliberately absent.
type Config struct {
	// Resampler is the resampling backend name.
	Resampler string `yaml:"resampler"`
	// EntryEncoding is the container layout: png or auto.
	EntryEncoding string `yaml:"entry_encoding"`
	// FileMode is the octal permission of written icons, e.g. "0644".
	FileMode string `yaml:"file_mode"`
	// Verbose enables per-stage logging and the timing report.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Resampler:     string(images.DefaultResampler),
		EntryEncoding: string(ico.EncodingPNG),
		FileMode:      fmt.Sprintf("%04o", uint32(DefaultFileMode)),
	}
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks that every field names something that exists.
func (c *Config) Validate() error {
	if _, err := images.NewResampler(images.ResamplerName(c.Resampler)); err != nil {
		return fmt.Errorf("resampler: %w", err)
	}
	if c.EntryEncoding != "" && !ico.EntryEncoding(c.EntryEncoding).Valid() {
		return fmt.Errorf("entry_encoding %q must be one of png, auto", c.EntryEncoding)
	}
	if _, err := c.fileMode(); err != nil {
		return err
	}
	return nil
}

func (c *Config) fileMode() (os.FileMode, error) {
	if c.FileMode == "" {
		return DefaultFileMode, nil
	}
	mode, err := strconv.ParseUint(c.FileMode, 8, 32)
	if err != nil || mode == 0 || mode > 0o777 {
		return 0, fmt.Errorf("file_mode %q is not an octal permission", c.FileMode)
	}
	return os.FileMode(mode), nil
}

// Options converts the configuration into converter options. The config must
// have passed Validate.
func (c *Config) Options() Options {
	mode, err := c.fileMode()
	if err != nil {
		mode = DefaultFileMode
	}
	return Options{
		Resampler: images.ResamplerName(c.Resampler),
		Encoding:  ico.EntryEncoding(c.EntryEncoding),
		FileMode:  mode,
	}
}
