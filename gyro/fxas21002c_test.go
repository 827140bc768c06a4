package gyro

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// registerBus emulates the device register file behind an auto-incrementing register pointer
// and records every transaction.
type registerBus struct {
	address   byte
	regs      [0x20]byte
	pointer   byte
	ops       []busOp
	failWrite map[byte]error
	failRead  map[byte]error
	// failWriteAt fails the n-th register write (1-based) counted in writeCount
	failWriteAt map[int]error
	writeCount  int
}

type busOp struct {
	read bool
	reg  byte
	data []byte
}

func (o busOp) String() string {
	if o.read {
		return fmt.Sprintf("read 0x%02x[%d]", o.reg, len(o.data))
	}
	return fmt.Sprintf("write 0x%02x %s", o.reg, hex.EncodeToString(o.data))
}

func newRegisterBus() *registerBus {
	return &registerBus{address: FXAS21002CAddress}
}

func (b *registerBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	if address != b.address {
		return fmt.Errorf("no device at 0x%02x", address)
	}
	if len(buffer) == 0 {
		return nil
	}
	b.pointer = buffer[0]
	if len(buffer) == 1 {
		return nil
	}
	b.writeCount++
	if err, ok := b.failWriteAt[b.writeCount]; ok {
		return err
	}
	if err, ok := b.failWrite[b.pointer]; ok {
		return err
	}
	data := append([]byte(nil), buffer[1:]...)
	copy(b.regs[b.pointer:], data)
	b.ops = append(b.ops, busOp{reg: b.pointer, data: data})
	return nil
}

func (b *registerBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	if address != b.address {
		return fmt.Errorf("no device at 0x%02x", address)
	}
	if err, ok := b.failRead[b.pointer]; ok {
		return err
	}
	copy(buffer, b.regs[b.pointer:])
	b.ops = append(b.ops, busOp{read: true, reg: b.pointer, data: append([]byte(nil), buffer...)})
	return nil
}

func (b *registerBus) Release(ctx context.Context) error {
	return nil
}

func (b *registerBus) writes() []busOp {
	var res []busOp
	for _, op := range b.ops {
		if !op.read {
			res = append(res, op)
		}
	}
	return res
}

func w(reg byte, data ...byte) busOp {
	return busOp{reg: reg, data: data}
}

func r(reg byte, n int, value byte) busOp {
	data := make([]byte, n)
	data[0] = value
	return busOp{read: true, reg: reg, data: data}
}

// MockI2CBus is a mock implementation of sensors.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestFXAS21002C_InitializeSequence(t *testing.T) {
	bus := newRegisterBus()
	// device running at 100 Hz, active and ready
	bus.regs[regCtrl1] = 0x0F
	g := NewFXAS21002C(bus)

	err := g.Initialize(context.Background(), DefaultConfig())
	require.NoError(t, err)

	expected := []busOp{
		r(regCtrl1, 1, 0x0F),
		w(regCtrl1, 0x0C),
		w(regCtrl3, 0x00),
		w(regCtrl0, 0x00),
		w(regCtrl1, 0x08),
		w(regCtrl2, 0x0E),
		w(regRTCfg, 0x07),
		w(regRTThs, 0x0D),
		w(regRTCount, 0x04),
		r(regCtrl1, 1, 0x08),
		w(regCtrl1, 0x08),
		w(regCtrl1, 0x0A),
	}
	assert.Equal(t, expected, bus.ops)
	assert.Equal(t, DefaultConfig(), g.Config())
	assert.Equal(t, byte(0x0A), bus.regs[regCtrl1], "device should end up active")
}

func TestFXAS21002C_InitializeStandbyFirst(t *testing.T) {
	bus := newRegisterBus()
	bus.regs[regCtrl1] = 0xFF
	g := NewFXAS21002C(bus)

	require.NoError(t, g.Initialize(context.Background(), Config{Range: Range500DPS, DataRate: Rate50Hz, Expansion: ExpansionOn}))

	writes := bus.writes()
	require.NotEmpty(t, writes)
	// first write leaves the other bits untouched and clears the mode bits
	assert.Equal(t, w(regCtrl1, 0xFC), writes[0])
	configRegs := map[byte]bool{regCtrl3: true, regCtrl0: true, regCtrl2: true}
	for i, op := range writes {
		if configRegs[op.reg] {
			assert.Greater(t, i, 0, "configuration write %s before standby", op)
		}
		if op.reg == regCtrl1 && i < len(writes)-1 {
			assert.Zero(t, op.data[0]&ctrl1ModeMask, "write %d (%s) should keep standby", i, op)
		}
	}
	n := len(writes)
	assert.Equal(t, w(regCtrl1, 0x10), writes[n-2], "activation starts from standby")
	assert.Equal(t, w(regCtrl1, 0x12), writes[n-1], "activation sets ACTIVE")
	assert.Equal(t, byte(0x01), bus.regs[regCtrl3])
	assert.Equal(t, byte(0x02), bus.regs[regCtrl0])
}

func TestFXAS21002C_InitializeTwice(t *testing.T) {
	bus := newRegisterBus()
	g := NewFXAS21002C(bus)
	config := Config{Range: Range250DPS, DataRate: Rate12_5HzAlt, Expansion: ExpansionOn}
	ctx := context.Background()

	require.NoError(t, g.Initialize(ctx, config))
	first := bus.writes()
	state := bus.regs
	bus.ops = nil
	require.NoError(t, g.Initialize(ctx, config))
	second := bus.writes()

	require.Len(t, second, len(first))
	// the standby write depends on the state found on the device, everything after it must match
	assert.Zero(t, first[0].data[0]&ctrl1ModeMask)
	assert.Zero(t, second[0].data[0]&ctrl1ModeMask)
	assert.Equal(t, first[1:], second[1:])
	assert.Equal(t, state, bus.regs)
	assert.Equal(t, config, g.Config())
}

func TestFXAS21002C_InitializeClampsOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		given    Config
		expected Config
	}{
		{"expansion", Config{Range: Range1000DPS, DataRate: Rate400Hz, Expansion: 2}, Config{Range: Range1000DPS, DataRate: Rate400Hz, Expansion: ExpansionOff}},
		{"range", Config{Range: 4, DataRate: Rate25Hz, Expansion: ExpansionOn}, Config{Range: RangeDefault, DataRate: Rate25Hz, Expansion: ExpansionOn}},
		{"rate", Config{Range: Range250DPS, DataRate: 8, Expansion: ExpansionOff}, Config{Range: Range250DPS, DataRate: RateDefault, Expansion: ExpansionOff}},
		{"all", Config{Range: 0xFF, DataRate: 0xFF, Expansion: 0xFF}, DefaultConfig()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newRegisterBus()
			g := NewFXAS21002C(bus)
			require.NoError(t, g.Initialize(context.Background(), tt.given))
			assert.Equal(t, tt.expected, g.Config())
			assert.Equal(t, byte(tt.expected.Expansion), bus.regs[regCtrl3])
			assert.Equal(t, byte(tt.expected.Range), bus.regs[regCtrl0])
			assert.Equal(t, byte(tt.expected.DataRate)<<2|ctrl1Active, bus.regs[regCtrl1])
		})
	}
}

func TestFXAS21002C_InitializeTransportError(t *testing.T) {
	errBus := errors.New("i2c write failed")
	steps := []struct {
		reg      byte
		expected string
	}{
		{regCtrl3, "could not set range expansion"},
		{regCtrl0, "could not set full scale range"},
		{regCtrl2, "could not set interrupt routing"},
		{regRTCfg, "could not enable rate threshold detection"},
		{regRTThs, "could not set rate threshold"},
		{regRTCount, "could not set rate threshold debounce count"},
	}
	for _, step := range steps {
		t.Run(fmt.Sprintf("0x%02x", step.reg), func(t *testing.T) {
			bus := newRegisterBus()
			bus.failWrite = map[byte]error{step.reg: errBus}
			g := NewFXAS21002C(bus)
			before := g.Config()

			err := g.Initialize(context.Background(), Config{Range: Range250DPS, DataRate: Rate800Hz, Expansion: ExpansionOn})
			require.Error(t, err)
			assert.ErrorIs(t, err, errBus)
			assert.Contains(t, err.Error(), step.expected)
			assert.Equal(t, before, g.Config(), "configuration must not change on failure")
			for _, op := range bus.writes() {
				if op.reg == regCtrl1 {
					assert.Zero(t, op.data[0]&ctrl1Active, "device must not be activated")
				}
			}
		})
	}
}

func TestFXAS21002C_InitializeCtrl1WriteError(t *testing.T) {
	errBus := errors.New("i2c write failed")
	// CTRL_REG1 is written 1st (standby), 4th (data rate), 9th and 10th (activation)
	steps := []struct {
		write    int
		expected string
		active   bool
	}{
		{1, "fxas21002c: could not enter standby", true},
		{4, "fxas21002c: could not set output data rate", false},
		{9, "fxas21002c: could not enter standby before activation", false},
		{10, "fxas21002c: could not activate", false},
	}
	for _, step := range steps {
		t.Run(fmt.Sprintf("write %d", step.write), func(t *testing.T) {
			bus := newRegisterBus()
			g := NewFXAS21002C(bus)
			ctx := context.Background()
			applied := Config{Range: Range500DPS, DataRate: Rate200Hz, Expansion: ExpansionOff}
			require.NoError(t, g.Initialize(ctx, applied))

			bus.writeCount = 0
			bus.failWriteAt = map[int]error{step.write: errBus}
			err := g.Initialize(ctx, Config{Range: Range2000DPS, DataRate: Rate12_5Hz, Expansion: ExpansionOn})
			require.Error(t, err)
			assert.ErrorIs(t, err, errBus)
			assert.Contains(t, err.Error(), step.expected)
			assert.Equal(t, step.write, bus.writeCount, "no writes after the failing one")
			assert.Equal(t, applied, g.Config(), "configuration must not change on failure")
			assert.Equal(t, step.active, bus.regs[regCtrl1]&ctrl1Active != 0)
		})
	}
}

func TestFXAS21002C_InitializeStandbyReadError(t *testing.T) {
	bus := new(MockI2CBus)
	errRead := errors.New("i2c read failed")
	bus.On("WriteToAddr", mock.Anything, byte(FXAS21002CAddress), []byte{regCtrl1}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(FXAS21002CAddress), mock.Anything).Return(nil, errRead).Once()
	g := NewFXAS21002C(bus)

	err := g.Initialize(context.Background(), DefaultConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, errRead)
	assert.Contains(t, err.Error(), "fxas21002c: could not read CTRL_REG1")
	bus.AssertExpectations(t)
}

func TestFXAS21002C_WithAddress(t *testing.T) {
	bus := new(MockI2CBus)
	bus.On("WriteToAddr", mock.Anything, byte(0x21), []byte{regTemp}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x21), mock.Anything).Return([]byte{0x19}, nil).Once()
	g := NewFXAS21002C(bus, WithAddress(0x21))

	raw, err := g.ReadRawTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(25), raw)
	bus.AssertExpectations(t)
}

func TestFXAS21002C_ReadRawAngularVelocity(t *testing.T) {
	tests := []struct {
		given    []byte
		expected RawVector
	}{
		{[]byte{0x7F, 0xFF, 0x00, 0x01, 0x80, 0x00}, RawVector{X: 32767, Y: 1, Z: 32768}},
		{[]byte{0x00, 0x00, 0xFF, 0xFF, 0x80, 0x01}, RawVector{X: 0, Y: 65535, Z: 32769}},
		{[]byte{0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}, RawVector{X: 0x1234, Y: 0x5678, Z: 0x9ABC}},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			bus := newRegisterBus()
			copy(bus.regs[regOutXMSB:], test.given)
			g := NewFXAS21002C(bus)
			raw, err := g.ReadRawAngularVelocity(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.expected, raw)
			assert.Equal(t, []busOp{{read: true, reg: regOutXMSB, data: test.given}}, bus.ops)
		})
	}
}

func TestFXAS21002C_ReadRawAngularVelocityError(t *testing.T) {
	bus := new(MockI2CBus)
	errBus := errors.New("i2c write failed")
	bus.On("WriteToAddr", mock.Anything, byte(FXAS21002CAddress), []byte{regOutXMSB}).Return(errBus).Twice()
	g := NewFXAS21002C(bus)

	_, err := g.ReadRawAngularVelocity(context.Background())
	assert.ErrorIs(t, err, errBus)
	v, err := g.ReadAngularVelocity(context.Background(), AxisAll)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, errBus)
	bus.AssertExpectations(t)
}

func TestSigned(t *testing.T) {
	tests := []struct {
		given    uint16
		expected int32
	}{
		{0, 0},
		{1, 1},
		{32767, 32767},
		{32768, 32768},
		{32769, -32766},
		{65534, -1},
		{65535, 0},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d", test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, signed(test.given))
		})
	}
}

func TestConfig_ScaleIndependentOfRate(t *testing.T) {
	table := []float64{0.0625, 0.03125, 0.015625, 0.0078125}
	for fsr := 0; fsr < 4; fsr++ {
		for exp := 0; exp < 2; exp++ {
			for odr := 0; odr < 8; odr++ {
				c := Config{Range: FullScaleRange(fsr), DataRate: OutputDataRate(odr), Expansion: RangeExpansion(exp)}
				assert.Equal(t, table[fsr]*float64(exp+1), c.Scale(), "fsr=%d exp=%d odr=%d", fsr, exp, odr)
			}
		}
	}
}

func TestFXAS21002C_ReadAngularVelocityScaling(t *testing.T) {
	tests := []struct {
		config   Config
		expected float64
	}{
		{Config{Range: Range2000DPS}, 1.0},
		{Config{Range: Range1000DPS}, 0.5},
		{Config{Range: Range500DPS}, 0.25},
		{Config{Range: Range250DPS}, 0.125},
		{Config{Range: Range2000DPS, Expansion: ExpansionOn}, 2.0},
		{Config{Range: Range250DPS, Expansion: ExpansionOn, DataRate: Rate800Hz}, 0.25},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s-%s", test.config.Range, test.config.Expansion), func(t *testing.T) {
			bus := newRegisterBus()
			g := NewFXAS21002C(bus)
			require.NoError(t, g.Initialize(context.Background(), test.config))
			// 16 LSB on X, -16 on Y, 0 on Z
			copy(bus.regs[regOutXMSB:], []byte{0x00, 0x10, 0xFF, 0xEF, 0x00, 0x00})
			v, err := g.ReadVector(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Vector{X: test.expected, Y: -test.expected, Z: 0}, v)
		})
	}
}

func TestFXAS21002C_ReadAngularVelocityAxis(t *testing.T) {
	bus := newRegisterBus()
	// X = 256, Y = 512, Z = 32769
	copy(bus.regs[regOutXMSB:], []byte{0x01, 0x00, 0x02, 0x00, 0x80, 0x01})
	g := NewFXAS21002C(bus)
	ctx := context.Background()

	tests := []struct {
		axis     string
		expected []float64
	}{
		{"x", []float64{16}},
		{"X", []float64{16}},
		{"y", []float64{32}},
		{"Y", []float64{32}},
		{"z", []float64{-2047.875}},
		{"Z", []float64{-2047.875}},
		{"", []float64{16, 32, -2047.875}},
		{"Q", []float64{16, 32, -2047.875}},
		{"xy", []float64{16, 32, -2047.875}},
	}
	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			v, err := g.ReadAngularVelocity(ctx, ParseAxis(tt.axis))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestFXAS21002C_ReadTemperature(t *testing.T) {
	tests := []struct {
		raw      byte
		unit     TemperatureUnit
		expected float64
	}{
		{200, "C", -56},
		{200, "c", -56},
		{200, "K", 217.15},
		{200, "k", 217.15},
		{200, "F", -68.8},
		{200, "f", -68.8},
		{200, "", -56},
		{25, Celsius, 25},
		{25, Kelvin, 298.15},
		{25, Fahrenheit, 77},
		{127, Celsius, 127},
		{128, Celsius, -128},
		{255, Celsius, -1},
		{0, Celsius, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d%s", tt.raw, tt.unit), func(t *testing.T) {
			bus := newRegisterBus()
			bus.regs[regTemp] = tt.raw
			g := NewFXAS21002C(bus)
			temp, err := g.ReadTemperature(context.Background(), tt.unit)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, temp, 1e-9)
		})
	}
}

func TestFXAS21002C_ReadTemperatureUnknownUnit(t *testing.T) {
	bus := newRegisterBus()
	bus.regs[regTemp] = 200
	g := NewFXAS21002C(bus)

	for _, unit := range []TemperatureUnit{"q", "celsius", "CK"} {
		temp, err := g.ReadTemperature(context.Background(), unit)
		assert.ErrorIs(t, err, ErrUnknownUnit)
		assert.Zero(t, temp)
	}
	// register is still read for every call
	assert.Len(t, bus.ops, 3)

	raw, err := g.ReadRawTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(200), raw)
}

func TestFXAS21002C_ReadTemperatureTransportError(t *testing.T) {
	errBus := errors.New("i2c read failed")
	bus := newRegisterBus()
	bus.failRead = map[byte]error{regTemp: errBus}
	g := NewFXAS21002C(bus)

	_, err := g.ReadTemperature(context.Background(), "q")
	assert.ErrorIs(t, err, errBus)
	assert.NotErrorIs(t, err, ErrUnknownUnit)
}

func TestFXAS21002C_CheckIdentity(t *testing.T) {
	bus := newRegisterBus()
	bus.regs[regWhoAmI] = FXAS21002CWhoAmI
	g := NewFXAS21002C(bus)
	assert.NoError(t, g.CheckIdentity(context.Background()))

	bus.regs[regWhoAmI] = 0xD1
	err := g.CheckIdentity(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedIdentity)
	assert.EqualError(t, err, "fxas21002c: unexpected WHO_AM_I value: got 0xd1, expected 0xd7")

	bus.regs[regWhoAmI] = 0x05
	err = g.CheckIdentity(context.Background())
	assert.EqualError(t, err, "fxas21002c: unexpected WHO_AM_I value: got 0x05, expected 0xd7")
}

func TestFXAS21002C_DataReady(t *testing.T) {
	bus := newRegisterBus()
	g := NewFXAS21002C(bus)

	bus.regs[regDRStatus] = 0x0F
	ready, err := g.DataReady(context.Background())
	require.NoError(t, err)
	assert.True(t, ready)

	bus.regs[regDRStatus] = 0x07
	ready, err = g.DataReady(context.Background())
	require.NoError(t, err)
	assert.False(t, ready)
}

func TestDecodeRateThresholdEvent(t *testing.T) {
	tests := []struct {
		given    byte
		expected RateThresholdEvent
	}{
		{0x00, RateThresholdEvent{}},
		{0x4A, RateThresholdEvent{Active: true, Y: true, X: true}},
		{0x7F, RateThresholdEvent{Active: true, X: true, XNegative: true, Y: true, YNegative: true, Z: true, ZNegative: true}},
		{0x60, RateThresholdEvent{Active: true, Z: true}},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString([]byte{test.given}), func(t *testing.T) {
			assert.Equal(t, test.expected, decodeRateThresholdEvent(test.given))
		})
	}
}

func TestFXAS21002C_ReadRateThresholdEvent(t *testing.T) {
	bus := newRegisterBus()
	bus.regs[regRTSrc] = 0x43
	g := NewFXAS21002C(bus)

	ev, err := g.ReadRateThresholdEvent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RateThresholdEvent{Active: true, X: true, XNegative: true}, ev)
}
