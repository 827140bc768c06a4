package gyro

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FullScaleRange selects the measurement range (CTRL_REG0 FS[1:0]).
type FullScaleRange byte

const (
	Range2000DPS FullScaleRange = 0 // (00b) -- default
	Range1000DPS FullScaleRange = 1 // (01b)
	Range500DPS  FullScaleRange = 2 // (10b)
	Range250DPS  FullScaleRange = 3 // (11b)

	RangeDefault = Range2000DPS
)

// sensitivity in dps/LSB indexed by FullScaleRange
var sensitivity = [...]float64{
	0.0625,
	0.03125,
	0.015625,
	0.0078125,
}

var rangeDPS = [...]int{2000, 1000, 500, 250}

func (r FullScaleRange) valid() bool {
	return int(r) < len(sensitivity)
}

// Sensitivity returns the angular velocity of one LSB in dps, without range expansion.
func (r FullScaleRange) Sensitivity() float64 {
	if !r.valid() {
		return sensitivity[RangeDefault]
	}
	return sensitivity[r]
}

// DPS returns the nominal full scale in degrees per second, without range expansion.
func (r FullScaleRange) DPS() int {
	if !r.valid() {
		return rangeDPS[RangeDefault]
	}
	return rangeDPS[r]
}

func (r FullScaleRange) String() string {
	if !r.valid() {
		return fmt.Sprintf("FullScaleRange(%d)", r)
	}
	return fmt.Sprintf("±%d dps", r.DPS())
}

// ParseFullScaleRange accepts the nominal range in dps ("250", "500", "1000", "2000").
func ParseFullScaleRange(s string) (FullScaleRange, error) {
	dps, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return RangeDefault, fmt.Errorf("invalid full scale range %q: %w", s, err)
	}
	for i, v := range rangeDPS {
		if v == dps {
			return FullScaleRange(i), nil
		}
	}
	return RangeDefault, fmt.Errorf("unsupported full scale range: %d dps", dps)
}

// OutputDataRate selects the sampling frequency (CTRL_REG1 DR[2:0]).
type OutputDataRate byte

const (
	Rate800Hz  OutputDataRate = 0 // (000b)
	Rate400Hz  OutputDataRate = 1 // (001b)
	Rate200Hz  OutputDataRate = 2 // (010b) -- default
	Rate100Hz  OutputDataRate = 3 // (011b)
	Rate50Hz   OutputDataRate = 4 // (100b)
	Rate25Hz   OutputDataRate = 5 // (101b)
	Rate12_5Hz OutputDataRate = 6 // (110b)
	// Rate12_5HzAlt is the second encoding of 12.5 Hz; the device treats 110b and 111b alike.
	Rate12_5HzAlt OutputDataRate = 7 // (111b)

	RateDefault = Rate200Hz
)

var rateHz = [...]float64{800, 400, 200, 100, 50, 25, 12.5, 12.5}

func (r OutputDataRate) valid() bool {
	return int(r) < len(rateHz)
}

// Hz returns the sampling frequency.
func (r OutputDataRate) Hz() float64 {
	if !r.valid() {
		return rateHz[RateDefault]
	}
	return rateHz[r]
}

// Period returns the time between two consecutive samples.
func (r OutputDataRate) Period() time.Duration {
	return time.Duration(float64(time.Second) / r.Hz())
}

func (r OutputDataRate) String() string {
	if !r.valid() {
		return fmt.Sprintf("OutputDataRate(%d)", r)
	}
	return strconv.FormatFloat(r.Hz(), 'f', -1, 64) + " Hz"
}

// ParseOutputDataRate accepts the frequency in Hz ("800" ... "12.5"). 12.5 Hz maps to Rate12_5Hz.
func ParseOutputDataRate(s string) (OutputDataRate, error) {
	hz, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "Hz"), 64)
	if err != nil {
		return RateDefault, fmt.Errorf("invalid output data rate %q: %w", s, err)
	}
	for i, v := range rateHz {
		if v == hz {
			return OutputDataRate(i), nil
		}
	}
	return RateDefault, fmt.Errorf("unsupported output data rate: %v Hz", hz)
}

// RangeExpansion doubles every full scale range when enabled (CTRL_REG3 FS_DOUBLE).
type RangeExpansion byte

const (
	ExpansionOff RangeExpansion = 0
	ExpansionOn  RangeExpansion = 1

	ExpansionDefault = ExpansionOff
)

func (e RangeExpansion) factor() float64 {
	return float64(e) + 1
}

func (e RangeExpansion) String() string {
	switch e {
	case ExpansionOff:
		return "off"
	case ExpansionOn:
		return "on"
	default:
		return fmt.Sprintf("RangeExpansion(%d)", e)
	}
}

// Config is the measurement configuration applied by Initialize.
type Config struct {
	Range     FullScaleRange `yaml:"range"`
	DataRate  OutputDataRate `yaml:"rate"`
	Expansion RangeExpansion `yaml:"expansion"`
}

// DefaultConfig returns ±2000 dps, 200 Hz, no expansion.
func DefaultConfig() Config {
	return Config{
		Range:     RangeDefault,
		DataRate:  RateDefault,
		Expansion: ExpansionDefault,
	}
}

// normalized replaces every out-of-range field with its default.
func (c Config) normalized() Config {
	if c.Expansion != ExpansionOff && c.Expansion != ExpansionOn {
		c.Expansion = ExpansionOff
	}
	if !c.Range.valid() {
		c.Range = RangeDefault
	}
	if !c.DataRate.valid() {
		c.DataRate = RateDefault
	}
	return c
}

// Scale returns dps per LSB for this configuration. It does not depend on DataRate.
func (c Config) Scale() float64 {
	c = c.normalized()
	return c.Range.Sensitivity() * c.Expansion.factor()
}

// FullScale returns the effective full scale in dps, including range expansion.
func (c Config) FullScale() int {
	c = c.normalized()
	return c.Range.DPS() * int(c.Expansion.factor())
}
