package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorkit/sensors/gyro"
)

func TestLoadSettings_Missing(t *testing.T) {
	s, err := loadSettings(filepath.Join(t.TempDir(), "gyro.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(), s)
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.yaml")
	content := `adapter: nanopi
bus: 2
address: 0x21
range: "250"
rate: "12.5"
expand: true
interval: 100ms
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	s, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, adapterNanoPi, s.Adapter)
	assert.Equal(t, 2, s.Bus)
	assert.Equal(t, 0x21, s.Address)
	require.NoError(t, s.validate())

	config, err := s.GyroConfig()
	require.NoError(t, err)
	assert.Equal(t, gyro.Config{
		Range:     gyro.Range250DPS,
		DataRate:  gyro.Rate12_5Hz,
		Expansion: gyro.ExpansionOn,
	}, config)
	interval, err := s.SampleInterval(config)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, interval)
}

func TestLoadSettings_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus: [1"), 0o644))
	_, err := loadSettings(path)
	assert.Error(t, err)
}

func TestSaveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gyro.yaml")
	s := defaultSettings()
	s.Offset = gyro.Vector{X: 0.125, Y: -0.25, Z: 1.5}
	s.Interval = "20ms"
	require.NoError(t, saveSettings(path, s))
	loaded, err := loadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettings_GyroConfigErrors(t *testing.T) {
	s := defaultSettings()
	s.Range = "300"
	_, err := s.GyroConfig()
	assert.EqualError(t, err, "unsupported full scale range: 300 dps")

	s = defaultSettings()
	s.Rate = "fast"
	_, err = s.GyroConfig()
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	s := defaultSettings()
	assert.NoError(t, s.validate())
	interval, err := s.SampleInterval(gyro.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, interval)
	s.Interval = "-1s"
	_, err = s.SampleInterval(gyro.DefaultConfig())
	assert.EqualError(t, err, "sampling interval must be positive, got -1s")

	s.Adapter = "ftdi"
	assert.EqualError(t, s.validate(), `unknown adapter "ftdi"`)

	s = defaultSettings()
	s.Address = 0x80
	assert.EqualError(t, s.validate(), "address 0x80 outside the 7-bit range")
}
