package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/sensorkit/sensors"
	"github.com/sensorkit/sensors/adapter"
	"github.com/sensorkit/sensors/i2c"
)

// openBus opens the transport selected in settings. The returned function releases it.
func openBus(ctx context.Context, s Settings) (sensors.I2CBus, func() error, error) {
	switch s.Adapter {
	case adapterMCP2221:
		var opts []adapter.MCP2221Option
		if s.Device != "" {
			id, err := strconv.Atoi(s.Device)
			if err != nil {
				return nil, nil, fmt.Errorf("MCP2221 device must be an enumeration index: %w", err)
			}
			opts = append(opts, adapter.WithDeviceID(id))
		}
		a := adapter.NewMCP2221(opts...)
		return a, func() error { return a.Release(ctx) }, nil
	case adapterGeneric:
		bus, err := i2c.NewGenericBus(s.Device)
		if err != nil {
			return nil, nil, err
		}
		if s.Speed > 0 {
			err = bus.SetSpeed(physic.Frequency(s.Speed) * physic.KiloHertz)
			if err != nil {
				_ = bus.Close()
				return nil, nil, err
			}
		}
		return bus, bus.Close, nil
	case adapterNanoPi:
		npi := nanopi.NewNeoAdaptor()
		err := npi.I2cBusAdaptor.Connect()
		if err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := i2c.NewGobotBus(npi, s.Bus)
		return bus, func() error {
			err := bus.Close()
			if err != nil {
				slog.Warn("could not close i2c connections", "error", err)
			}
			return npi.I2cBusAdaptor.Finalize()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", s.Adapter)
	}
}
