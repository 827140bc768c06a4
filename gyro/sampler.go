package gyro

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// AngularVelocityReader is anything producing angular velocity readings in dps.
type AngularVelocityReader interface {
	ReadVector(ctx context.Context) (Vector, error)
}

var _ AngularVelocityReader = &FXAS21002C{}

type SamplerOpts struct {
	Interval time.Duration
	Buffer   int
	Logger   *slog.Logger
}

type SamplerOpt func(*SamplerOpts)

func WithInterval(interval time.Duration) SamplerOpt {
	return func(o *SamplerOpts) {
		o.Interval = interval
	}
}

func WithBuffer(size int) SamplerOpt {
	return func(o *SamplerOpts) {
		o.Buffer = size
	}
}

func WithLogger(log *slog.Logger) SamplerOpt {
	return func(o *SamplerOpts) {
		o.Logger = log
	}
}

// Sampler polls a reader at a fixed interval and streams offset corrected readings.
//
// The sampler must be the only user of its reader while it runs.
type Sampler struct {
	reader AngularVelocityReader
	config SamplerOpts

	mx     sync.Mutex
	offset Vector
}

// NewSampler creates a sampler. The default interval is the default output data rate period.
func NewSampler(reader AngularVelocityReader, opts ...SamplerOpt) *Sampler {
	config := SamplerOpts{
		Interval: RateDefault.Period(),
		Buffer:   10,
		Logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Sampler{reader: reader, config: config}
}

// Offset returns the zero-rate offset subtracted from every sample.
func (s *Sampler) Offset() Vector {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.offset
}

// SetOffset replaces the zero-rate offset.
func (s *Sampler) SetOffset(offset Vector) {
	s.mx.Lock()
	s.offset = offset
	s.mx.Unlock()
}

// Calibrate averages n consecutive readings, keeping the device still, and stores the result as
// the zero-rate offset.
func (s *Sampler) Calibrate(ctx context.Context, n int) (Vector, error) {
	if n <= 0 {
		return Vector{}, fmt.Errorf("invalid number of calibration samples: %d", n)
	}
	var offset Vector
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for i := 0; i < n; i++ {
		v, err := s.reader.ReadVector(ctx)
		if err != nil {
			return Vector{}, fmt.Errorf("calibration sample %d failed: %w", i, err)
		}
		offset.X += v.X / float64(n)
		offset.Y += v.Y / float64(n)
		offset.Z += v.Z / float64(n)
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return Vector{}, ctx.Err()
		case <-ticker.C:
		}
	}
	s.SetOffset(offset)
	s.config.Logger.Info("gyroscope offset calibrated", "samples", n, "offset", offset.String())
	return offset, nil
}

// Run starts polling in a goroutine and returns the sample channel. The channel is closed once ctx
// is done. Failed reads are logged and skipped; samples are dropped while the consumer lags.
func (s *Sampler) Run(ctx context.Context) <-chan Vector {
	data := make(chan Vector, s.config.Buffer)
	go func() {
		defer close(data)
		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()
		s.config.Logger.Debug("gyroscope sampler started", "interval", s.config.Interval)
		for {
			select {
			case <-ctx.Done():
				s.config.Logger.Debug("gyroscope sampler stopped")
				return
			case <-ticker.C:
			}
			v, err := s.reader.ReadVector(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.config.Logger.Error("gyroscope read failed", "error", err)
				continue
			}
			select {
			case data <- v.Sub(s.Offset()):
			default:
				s.config.Logger.Warn("gyroscope sample dropped")
			}
		}
	}()
	return data
}
