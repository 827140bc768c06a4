package gyro

import (
	"context"
)

// VectorBehaviorFunc defines the function signature for gyroscope behavior.
// It returns angular velocity in dps or an error.
type VectorBehaviorFunc func(ctx context.Context) (Vector, error)

// MockGyroscope is a mock implementation of a gyroscope that uses a behavior function
// to produce results without requiring any hardware.
// This can be used to mock any gyroscope like FXAS21002C.
type MockGyroscope struct {
	behavior VectorBehaviorFunc
}

// NewMockGyroscope creates a new mock gyroscope with the given behavior function.
// The behavior function is called whenever ReadVector or ReadAngularVelocity is invoked.
//
// Example usage:
//
//	// Device at rest with a small bias on Z
//	g := NewMockGyroscope(func(ctx context.Context) (Vector, error) {
//		return Vector{Z: 0.25}, nil
//	})
//
//	// Error simulation
//	g := NewMockGyroscope(func(ctx context.Context) (Vector, error) {
//		return Vector{}, fmt.Errorf("bus failure")
//	})
func NewMockGyroscope(behavior VectorBehaviorFunc) *MockGyroscope {
	return &MockGyroscope{behavior: behavior}
}

// ReadVector returns the reading produced by the behavior function.
func (m *MockGyroscope) ReadVector(ctx context.Context) (Vector, error) {
	return m.behavior(ctx)
}

// ReadAngularVelocity applies the same axis selection as the real driver.
func (m *MockGyroscope) ReadAngularVelocity(ctx context.Context, axis Axis) ([]float64, error) {
	v, err := m.behavior(ctx)
	if err != nil {
		return nil, err
	}
	return v.Select(axis), nil
}

// NewMockFXAS21002C creates a new mock FXAS21002C (alias for NewMockGyroscope).
func NewMockFXAS21002C(behavior VectorBehaviorFunc) *MockGyroscope {
	return NewMockGyroscope(behavior)
}
