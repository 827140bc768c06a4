package gyro

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Axis selects a single axis of a reading. AxisAll selects X, Y and Z.
type Axis int

const (
	AxisAll Axis = iota
	AxisX
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return "all"
	}
}

// ParseAxis accepts "x", "y" or "z" in any case. Anything else selects all axes.
func ParseAxis(s string) Axis {
	switch strings.ToLower(s) {
	case "x":
		return AxisX
	case "y":
		return AxisY
	case "z":
		return AxisZ
	default:
		return AxisAll
	}
}

// RawVector holds the unsigned output words as read from the device.
type RawVector struct {
	X, Y, Z uint16
}

func rawVector(buf []byte) RawVector {
	return RawVector{
		X: binary.BigEndian.Uint16(buf[0:2]),
		Y: binary.BigEndian.Uint16(buf[2:4]),
		Z: binary.BigEndian.Uint16(buf[4:6]),
	}
}

// Signed folds each word into a signed count.
func (r RawVector) Signed() (x, y, z int32) {
	return signed(r.X), signed(r.Y), signed(r.Z)
}

// Scale converts the raw words into dps using the given dps/LSB factor.
func (r RawVector) Scale(scale float64) Vector {
	x, y, z := r.Signed()
	return Vector{
		X: float64(x) * scale,
		Y: float64(y) * scale,
		Z: float64(z) * scale,
	}
}

func (r RawVector) String() string {
	return fmt.Sprintf("x: %5d, y: %5d, z: %5d", r.X, r.Y, r.Z)
}

// signed reproduces the device library conversion: words from 32769 up are shifted down by 65535,
// so 32768 stays positive and 0xFFFF maps to 0.
func signed(word uint16) int32 {
	if word >= signThreshold {
		return int32(word) - signOffset
	}
	return int32(word)
}

// Vector is an angular velocity in degrees per second.
type Vector struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (v Vector) String() string {
	return fmt.Sprintf("x: %8.3f, y: %8.3f, z: %8.3f", v.X, v.Y, v.Z)
}

// Select returns one component for AxisX, AxisY and AxisZ, or all three in X, Y, Z order.
func (v Vector) Select(axis Axis) []float64 {
	switch axis {
	case AxisX:
		return []float64{v.X}
	case AxisY:
		return []float64{v.Y}
	case AxisZ:
		return []float64{v.Z}
	default:
		return []float64{v.X, v.Y, v.Z}
	}
}

func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}
