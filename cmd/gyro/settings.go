package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/sensorkit/sensors/gyro"
)

const (
	adapterMCP2221 = "mcp2221"
	adapterGeneric = "generic"
	adapterNanoPi  = "nanopi"
)

// Settings is the YAML settings file layout. Command line flags take precedence.
type Settings struct {
	Adapter  string      `yaml:"adapter"`
	Device   string      `yaml:"device,omitempty"`
	Bus      int         `yaml:"bus"`
	Speed    int         `yaml:"speed_khz,omitempty"`
	Address  int         `yaml:"address"`
	Range    string      `yaml:"range"`
	Rate     string      `yaml:"rate"`
	Expand   bool        `yaml:"expand"`
	Interval string      `yaml:"interval,omitempty"`
	Offset   gyro.Vector `yaml:"offset"`
}

func defaultSettings() Settings {
	return Settings{
		Adapter: adapterMCP2221,
		Bus:     -1,
		Address: gyro.FXAS21002CAddress,
		Range:   "2000",
		Rate:    "200",
	}
}

// loadSettings reads the settings file over the defaults. A missing file is not an error.
func loadSettings(path string) (Settings, error) {
	s := defaultSettings()
	if path == "" {
		return s, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("could not open settings file: %w", err)
	}
	defer func() { _ = f.Close() }()
	err = yaml.NewDecoder(f).Decode(&s)
	if err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("could not decode settings file %s: %w", path, err)
	}
	return s, nil
}

func saveSettings(path string, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create settings file: %w", err)
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	err = enc.Encode(s)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("could not encode settings: %w", err)
	}
	err = enc.Close()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("could not flush settings: %w", err)
	}
	return f.Close()
}

// settingsFromContext loads the settings file named by --config and applies explicitly set flags.
func settingsFromContext(c *cli.Context) (Settings, error) {
	s, err := loadSettings(c.String("config"))
	if err != nil {
		return s, err
	}
	if c.IsSet("adapter") {
		s.Adapter = c.String("adapter")
	}
	if c.IsSet("device") {
		s.Device = c.String("device")
	}
	if c.IsSet("bus") {
		s.Bus = c.Int("bus")
	}
	if c.IsSet("speed") {
		s.Speed = c.Int("speed")
	}
	if c.IsSet("addr") {
		s.Address = c.Int("addr")
	}
	if c.IsSet("range") {
		s.Range = c.String("range")
	}
	if c.IsSet("rate") {
		s.Rate = c.String("rate")
	}
	if c.IsSet("expand") {
		s.Expand = c.Bool("expand")
	}
	return s, nil
}

// GyroConfig validates range and rate and builds the measurement configuration.
func (s Settings) GyroConfig() (gyro.Config, error) {
	fsr, err := gyro.ParseFullScaleRange(s.Range)
	if err != nil {
		return gyro.Config{}, err
	}
	odr, err := gyro.ParseOutputDataRate(s.Rate)
	if err != nil {
		return gyro.Config{}, err
	}
	config := gyro.Config{
		Range:     fsr,
		DataRate:  odr,
		Expansion: gyro.ExpansionOff,
	}
	if s.Expand {
		config.Expansion = gyro.ExpansionOn
	}
	return config, nil
}

// SampleInterval is the configured polling interval or the output data rate period.
func (s Settings) SampleInterval(config gyro.Config) (time.Duration, error) {
	if s.Interval == "" {
		return config.DataRate.Period(), nil
	}
	interval, err := time.ParseDuration(s.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid sampling interval: %w", err)
	}
	if interval <= 0 {
		return 0, fmt.Errorf("sampling interval must be positive, got %s", interval)
	}
	return interval, nil
}

func (s Settings) validate() error {
	switch s.Adapter {
	case adapterMCP2221, adapterGeneric, adapterNanoPi:
	default:
		return fmt.Errorf("unknown adapter %q", s.Adapter)
	}
	if s.Address < 0x08 || s.Address > 0x77 {
		return fmt.Errorf("address %#x outside the 7-bit range", s.Address)
	}
	return nil
}
