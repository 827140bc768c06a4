package gyro

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sensorkit/sensors"
)

// FXAS21002CAddress is the default 7-bit address (SA0 low).
const FXAS21002CAddress = 0x20

// FXAS21002CWhoAmI is the fixed content of the WHO_AM_I register.
const FXAS21002CWhoAmI = 0xD7

// Register map
const (
	regStatus     byte = 0x00
	regOutXMSB    byte = 0x01
	regOutXLSB    byte = 0x02
	regOutYMSB    byte = 0x03
	regOutYLSB    byte = 0x04
	regOutZMSB    byte = 0x05
	regOutZLSB    byte = 0x06
	regDRStatus   byte = 0x07
	regFStatus    byte = 0x08
	regFSetup     byte = 0x09
	regFEvent     byte = 0x0A
	regIntSrcFlag byte = 0x0B
	regWhoAmI     byte = 0x0C
	regCtrl0      byte = 0x0D
	regRTCfg      byte = 0x0E
	regRTSrc      byte = 0x0F
	regRTThs      byte = 0x10
	regRTCount    byte = 0x11
	regTemp       byte = 0x12
	regCtrl1      byte = 0x13
	regCtrl2      byte = 0x14
	regCtrl3      byte = 0x15
)

const (
	// CTRL_REG1 bits 1:0 are ACTIVE and READY; both cleared means standby
	ctrl1ModeMask = 0x03
	ctrl1Active   = 0x02
	ctrl1DRShift  = 2

	// FIFO disabled, FIFO and rate threshold interrupts on INT2, data-ready interrupt enabled on INT1,
	// active high push-pull outputs
	ctrl2Interrupts = 0x0E

	// rate threshold detection enabled on X, Y and Z
	rtCfgAllAxes = 0x07
	// THS = 13 of 127: about one tenth of full scale (rate threshold = THS * FSR / 128)
	rtThreshold = 0x00 | 0x0D
	// debounce counter, up to 255
	rtCount = 0x04

	drStatusZYXDR = 0x08

	rtSrcEventActive = 0x40
)

// raw words at or above signThreshold are folded to negative by subtracting signOffset
const (
	signThreshold = 32769
	signOffset    = 65535
)

var ErrUnknownUnit = fmt.Errorf("fxas21002c: unknown temperature unit")
var ErrUnexpectedIdentity = fmt.Errorf("fxas21002c: unexpected WHO_AM_I value")

type FXAS21002CConfig struct {
	Address byte
}

type FXAS21002COption func(*FXAS21002CConfig)

func WithAddress(address byte) FXAS21002COption {
	return func(c *FXAS21002CConfig) {
		c.Address = address
	}
}

// FXAS21002C represents NXP FXAS21002C 3-axis digital gyroscope
// See: https://www.nxp.com/docs/en/data-sheet/FXAS21002.pdf
//
// Usage:
//
//	g := NewFXAS21002C(bus)
//	err := g.Initialize(ctx, DefaultConfig())
//	v, err := g.ReadVector(ctx)
//
// The driver does not serialize access. Callers sharing one instance between goroutines must
// guard it with their own lock; the standby and activate sequences are read-modify-write.
type FXAS21002C struct {
	dev    sensors.RegisterDevice
	config Config
}

// NewFXAS21002C creates a gyroscope connector on the given bus. The default address is 0x20.
func NewFXAS21002C(trans sensors.I2CBus, opts ...FXAS21002COption) *FXAS21002C {
	config := &FXAS21002CConfig{
		Address: FXAS21002CAddress,
	}
	for _, opt := range opts {
		opt(config)
	}
	return NewFXAS21002CDevice(sensors.NewRegisterDevice(trans, config.Address))
}

// NewFXAS21002CDevice creates a gyroscope connector on an already addressed register device.
func NewFXAS21002CDevice(dev sensors.RegisterDevice) *FXAS21002C {
	return &FXAS21002C{dev: dev, config: DefaultConfig()}
}

// Config returns the configuration applied by the last successful Initialize.
func (g *FXAS21002C) Config() Config {
	return g.config
}

// Initialize puts the device in standby, writes range expansion, full scale range, output data
// rate, interrupt routing and rate threshold settings, then activates it.
//
// Out-of-range fields are replaced with their defaults. The stored configuration changes only
// when the whole sequence succeeds.
func (g *FXAS21002C) Initialize(ctx context.Context, config Config) error {
	config = config.normalized()
	err := g.standby(ctx)
	if err != nil {
		return err
	}
	err = g.dev.WriteRegister(ctx, regCtrl3, byte(config.Expansion))
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set range expansion: %w", err)
	}
	err = g.dev.WriteRegister(ctx, regCtrl0, byte(config.Range))
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set full scale range: %w", err)
	}
	// bits 1:0 stay cleared so the device remains in standby
	err = g.dev.WriteRegister(ctx, regCtrl1, byte(config.DataRate)<<ctrl1DRShift)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set output data rate: %w", err)
	}
	err = g.dev.WriteRegister(ctx, regCtrl2, ctrl2Interrupts)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set interrupt routing: %w", err)
	}
	err = g.setRateThreshold(ctx)
	if err != nil {
		return err
	}
	err = g.activate(ctx)
	if err != nil {
		return err
	}
	g.config = config
	slog.Debug("fxas21002c initialized", "range", config.Range, "rate", config.DataRate, "expansion", config.Expansion)
	return nil
}

func (g *FXAS21002C) readCtrl1(ctx context.Context) (byte, error) {
	buf := make([]byte, 1)
	err := g.dev.ReadRegister(ctx, regCtrl1, buf)
	if err != nil {
		return 0, fmt.Errorf("fxas21002c: could not read CTRL_REG1: %w", err)
	}
	return buf[0], nil
}

func (g *FXAS21002C) standby(ctx context.Context) error {
	reg, err := g.readCtrl1(ctx)
	if err != nil {
		return err
	}
	err = g.dev.WriteRegister(ctx, regCtrl1, reg&^ctrl1ModeMask)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not enter standby: %w", err)
	}
	return nil
}

func (g *FXAS21002C) setRateThreshold(ctx context.Context) error {
	err := g.dev.WriteRegister(ctx, regRTCfg, rtCfgAllAxes)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not enable rate threshold detection: %w", err)
	}
	err = g.dev.WriteRegister(ctx, regRTThs, rtThreshold)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set rate threshold: %w", err)
	}
	err = g.dev.WriteRegister(ctx, regRTCount, rtCount)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not set rate threshold debounce count: %w", err)
	}
	return nil
}

func (g *FXAS21002C) activate(ctx context.Context) error {
	reg, err := g.readCtrl1(ctx)
	if err != nil {
		return err
	}
	reg &^= ctrl1ModeMask
	err = g.dev.WriteRegister(ctx, regCtrl1, reg)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not enter standby before activation: %w", err)
	}
	reg |= ctrl1Active
	err = g.dev.WriteRegister(ctx, regCtrl1, reg)
	if err != nil {
		return fmt.Errorf("fxas21002c: could not activate: %w", err)
	}
	return nil
}

// ReadRawAngularVelocity reads OUT_X_MSB..OUT_Z_LSB and returns the unsigned big-endian words.
func (g *FXAS21002C) ReadRawAngularVelocity(ctx context.Context) (RawVector, error) {
	buf := make([]byte, 6)
	err := g.dev.ReadRegister(ctx, regOutXMSB, buf)
	if err != nil {
		return RawVector{}, fmt.Errorf("fxas21002c: could not read angular velocity: %w", err)
	}
	return rawVector(buf), nil
}

// ReadAngularVelocity returns angular velocity in dps for the selected axis, or X, Y and Z when
// axis is AxisAll or unrecognized.
func (g *FXAS21002C) ReadAngularVelocity(ctx context.Context, axis Axis) ([]float64, error) {
	v, err := g.ReadVector(ctx)
	if err != nil {
		return nil, err
	}
	return v.Select(axis), nil
}

// ReadVector returns angular velocity in dps on all three axes.
func (g *FXAS21002C) ReadVector(ctx context.Context) (Vector, error) {
	raw, err := g.ReadRawAngularVelocity(ctx)
	if err != nil {
		return Vector{}, err
	}
	return raw.Scale(g.config.Scale()), nil
}

// ReadRawTemperature returns the TEMP register content.
func (g *FXAS21002C) ReadRawTemperature(ctx context.Context) (byte, error) {
	buf := make([]byte, 1)
	err := g.dev.ReadRegister(ctx, regTemp, buf)
	if err != nil {
		return 0, fmt.Errorf("fxas21002c: could not read temperature: %w", err)
	}
	return buf[0], nil
}

// ReadTemperature returns the die temperature in the given unit, Celsius when unit is empty.
// ErrUnknownUnit is returned for any other unit than C, K or F; the register is read regardless.
func (g *FXAS21002C) ReadTemperature(ctx context.Context, unit TemperatureUnit) (float64, error) {
	raw, err := g.ReadRawTemperature(ctx)
	if err != nil {
		return 0, err
	}
	return convertTemperature(raw, unit)
}

// ReadIdentity returns the WHO_AM_I register content.
func (g *FXAS21002C) ReadIdentity(ctx context.Context) (byte, error) {
	buf := make([]byte, 1)
	err := g.dev.ReadRegister(ctx, regWhoAmI, buf)
	if err != nil {
		return 0, fmt.Errorf("fxas21002c: could not read WHO_AM_I: %w", err)
	}
	return buf[0], nil
}

// CheckIdentity verifies that the device answers with the FXAS21002C identity.
func (g *FXAS21002C) CheckIdentity(ctx context.Context) error {
	id, err := g.ReadIdentity(ctx)
	if err != nil {
		return err
	}
	if id != FXAS21002CWhoAmI {
		return fmt.Errorf("%w: got 0x%02x, expected 0x%02x", ErrUnexpectedIdentity, id, FXAS21002CWhoAmI)
	}
	return nil
}

// DataReady reports whether a new X, Y, Z set is available (DR_STATUS ZYXDR).
func (g *FXAS21002C) DataReady(ctx context.Context) (bool, error) {
	buf := make([]byte, 1)
	err := g.dev.ReadRegister(ctx, regDRStatus, buf)
	if err != nil {
		return false, fmt.Errorf("fxas21002c: could not read DR_STATUS: %w", err)
	}
	return buf[0]&drStatusZYXDR != 0, nil
}

// RateThresholdEvent is the decoded RT_SRC register. Reading it clears the event flags.
type RateThresholdEvent struct {
	Active    bool `yaml:"active"`
	X         bool `yaml:"x"`
	XNegative bool `yaml:"x_negative"`
	Y         bool `yaml:"y"`
	YNegative bool `yaml:"y_negative"`
	Z         bool `yaml:"z"`
	ZNegative bool `yaml:"z_negative"`
}

// ReadRateThresholdEvent reads and decodes RT_SRC.
func (g *FXAS21002C) ReadRateThresholdEvent(ctx context.Context) (RateThresholdEvent, error) {
	buf := make([]byte, 1)
	err := g.dev.ReadRegister(ctx, regRTSrc, buf)
	if err != nil {
		return RateThresholdEvent{}, fmt.Errorf("fxas21002c: could not read RT_SRC: %w", err)
	}
	return decodeRateThresholdEvent(buf[0]), nil
}

/*
RT_SRC layout:
bit 6 EA    one or more event flags asserted
bit 5 ZRT   Z-axis rate event
bit 4 Z_RT_POL  Z-axis polarity (1 = negative)
bit 3 YRT   Y-axis rate event
bit 2 Y_RT_POL
bit 1 XRT   X-axis rate event
bit 0 X_RT_POL
*/
func decodeRateThresholdEvent(src byte) RateThresholdEvent {
	return RateThresholdEvent{
		Active:    src&rtSrcEventActive != 0,
		Z:         src&0x20 != 0,
		ZNegative: src&0x10 != 0,
		Y:         src&0x08 != 0,
		YNegative: src&0x04 != 0,
		X:         src&0x02 != 0,
		XNegative: src&0x01 != 0,
	}
}

// TemperatureUnit is "C", "K" or "F"; matching is case-insensitive. The empty unit means Celsius.
type TemperatureUnit string

const (
	Celsius    TemperatureUnit = "C"
	Kelvin     TemperatureUnit = "K"
	Fahrenheit TemperatureUnit = "F"
)

func convertTemperature(raw byte, unit TemperatureUnit) (float64, error) {
	// 8-bit two's complement, 1 °C/LSB
	celsius := float64(int8(raw))
	switch TemperatureUnit(strings.ToUpper(string(unit))) {
	case Celsius, "":
		return celsius, nil
	case Kelvin:
		return celsius + 273.15, nil
	case Fahrenheit:
		return celsius*1.8 + 32, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUnit, string(unit))
	}
}
