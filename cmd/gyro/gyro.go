package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/sensorkit/sensors/cmd/gyro/console"
	"github.com/sensorkit/sensors/gyro"
	"github.com/sensorkit/sensors/snsctx"
)

type gyroAction func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error

// withGyro resolves settings, opens the transport and hands a connected driver to the action.
func withGyro(action gyroAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := settingsFromContext(c)
		if err != nil {
			return console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
		}
		err = s.validate()
		if err != nil {
			return console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
		}
		ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
		ctx = snsctx.WithLogger(ctx, slog.Default())
		bus, release, err := openBus(ctx, s)
		if err != nil {
			return console.Exit(console.ExitTransport, "could not open %s transport: %s", s.Adapter, console.Red(err))
		}
		defer func() {
			err := release()
			if err != nil {
				slog.Warn("could not release transport", "adapter", s.Adapter, "error", err)
			}
		}()
		g := gyro.NewFXAS21002C(bus, gyro.WithAddress(byte(s.Address)))
		return action(ctx, c, g, s)
	}
}

func initialize(ctx context.Context, g *gyro.FXAS21002C, s Settings) (gyro.Config, error) {
	config, err := s.GyroConfig()
	if err != nil {
		return config, console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
	}
	err = g.Initialize(ctx, config)
	if err != nil {
		return config, console.Exit(console.ExitDevice, "error initializing FXAS21002C: %s", console.Red(err))
	}
	return g.Config(), nil
}

var initCmd = cli.Command{
	Name:  "init",
	Usage: "verify identity and apply range, rate and expansion settings",
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		err := g.CheckIdentity(ctx)
		if errors.Is(err, gyro.ErrUnexpectedIdentity) {
			console.Warnf("%s", err)
		} else if err != nil {
			return console.Exit(console.ExitDevice, "error reading identity: %s", console.Red(err))
		}
		config, err := initialize(ctx, g, s)
		if err != nil {
			return err
		}
		console.PInfof(console.PictoGyro, "range %s, rate %s, expansion %s (full scale ±%d dps, %g dps/LSB)",
			console.White(config.Range), console.White(config.DataRate), console.White(config.Expansion),
			config.FullScale(), config.Scale())
		return nil
	}),
}

var rawCmd = cli.Command{
	Name:  "raw",
	Usage: "read unscaled output words",
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		raw, err := g.ReadRawAngularVelocity(ctx)
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading FXAS21002C: %s", console.Red(err))
		}
		x, y, z := raw.Signed()
		console.Printf("raw    %s\n", console.White(raw))
		console.Printf("signed x: %5d, y: %5d, z: %5d\n", x, y, z)
		return nil
	}),
}

var readCmd = cli.Command{
	Name:      "read",
	Usage:     "read angular velocity in dps",
	ArgsUsage: "[x|y|z]",
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		_, err := initialize(ctx, g, s)
		if err != nil {
			return err
		}
		axis := gyro.ParseAxis(c.Args().First())
		values, err := g.ReadAngularVelocity(ctx, axis)
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading FXAS21002C: %s", console.Red(err))
		}
		labels := []string{"x", "y", "z"}
		if axis != gyro.AxisAll {
			labels = []string{axis.String()}
		}
		for i, v := range values {
			console.Printf("%s: %s dps\n", console.Cyan(labels[i]), console.White(v))
		}
		return nil
	}),
}

var tempCmd = cli.Command{
	Name:      "temp",
	Usage:     "read die temperature",
	ArgsUsage: "[C|K|F]",
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		unit := gyro.Celsius
		if c.Args().Present() {
			unit = gyro.TemperatureUnit(c.Args().First())
		}
		t, err := g.ReadTemperature(ctx, unit)
		if errors.Is(err, gyro.ErrUnknownUnit) {
			return console.Exit(console.ExitConfig, "%s", console.Red(err))
		}
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading temperature: %s", console.Red(err))
		}
		console.PInfof(console.PictoThermometer, "temperature: %s %s", console.White(t), unit)
		return nil
	}),
}

func formatIdentity(id byte) string {
	return fmt.Sprintf("0x%02x", id)
}

type status struct {
	Identity  string                  `yaml:"who_am_i"`
	DataReady bool                    `yaml:"data_ready"`
	Event     gyro.RateThresholdEvent `yaml:"rate_threshold"`
	Settings  Settings                `yaml:"settings"`
}

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "dump identity, data ready flag and rate threshold event as YAML",
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		id, err := g.ReadIdentity(ctx)
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading identity: %s", console.Red(err))
		}
		ready, err := g.DataReady(ctx)
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading data ready flag: %s", console.Red(err))
		}
		event, err := g.ReadRateThresholdEvent(ctx)
		if err != nil {
			return console.Exit(console.ExitDevice, "error reading rate threshold event: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(console.Writer())
		err = enc.Encode(status{
			Identity:  formatIdentity(id),
			DataReady: ready,
			Event:     event,
			Settings:  s,
		})
		if err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return enc.Close()
	}),
}

var watchCmd = cli.Command{
	Name:  "watch",
	Usage: "stream offset corrected angular velocity until interrupted",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Usage: "stop after this many samples, 0 streams forever",
		},
	},
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		config, err := initialize(ctx, g, s)
		if err != nil {
			return err
		}
		interval, err := s.SampleInterval(config)
		if err != nil {
			return console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
		}
		ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
		defer cancel()
		sampler := gyro.NewSampler(g, gyro.WithInterval(interval), gyro.WithLogger(slog.Default()))
		sampler.SetOffset(s.Offset)
		n := streamSamples(ctx, sampler, c.Int("count"), func(v gyro.Vector) {
			console.Printf("%s\n", v)
		})
		console.PInfof(console.PictoFinish, "%d samples", n)
		return nil
	}),
}

// streamSamples hands samples to out until ctx is done or count samples were seen (count > 0).
// It returns once the sampler has stopped, so the transport can be released right after.
func streamSamples(ctx context.Context, sampler *gyro.Sampler, count int, out func(gyro.Vector)) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	samples := sampler.Run(ctx)
	n := 0
	for v := range samples {
		out(v)
		n++
		if count > 0 && n >= count {
			break
		}
	}
	cancel()
	for range samples {
	}
	return n
}

var zeroCmd = cli.Command{
	Name:  "zero",
	Usage: "measure the zero-rate offset with the device at rest",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "samples",
			Value: 200,
			Usage: "number of samples to average",
		},
	},
	Action: withGyro(func(ctx context.Context, c *cli.Context, g *gyro.FXAS21002C, s Settings) error {
		config, err := initialize(ctx, g, s)
		if err != nil {
			return err
		}
		answer, err := console.YesOrNo("keep the device still; start calibration?")
		if err != nil {
			return console.Exit(1, "prompt error: %s", console.Red(err))
		}
		if answer != console.Yes {
			console.PInfof(console.PictoStop, "calibration cancelled")
			return nil
		}
		interval, err := s.SampleInterval(config)
		if err != nil {
			return console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
		}
		sampler := gyro.NewSampler(g, gyro.WithInterval(interval), gyro.WithLogger(slog.Default()))
		offset, err := sampler.Calibrate(ctx, c.Int("samples"))
		if err != nil {
			return console.Exit(console.ExitDevice, "calibration failed: %s", console.Red(err))
		}
		console.PInfof(console.PictoPin, "offset %s", console.White(offset))
		path := c.String("config")
		if path == "" {
			return nil
		}
		save, err := console.Confirm("save offset to " + path + "?")
		if err != nil {
			return console.Exit(1, "prompt error: %s", console.Red(err))
		}
		if !save {
			return nil
		}
		// reload so flag overrides do not end up in the file
		stored, err := loadSettings(path)
		if err != nil {
			return console.Exit(console.ExitConfig, "settings error: %s", console.Red(err))
		}
		stored.Offset = offset
		err = saveSettings(path, stored)
		if err != nil {
			return console.Exit(console.ExitConfig, "could not save settings: %s", console.Red(err))
		}
		console.PInfof(console.PictoKey, "offset saved to %s", console.White(path))
		return nil
	}),
}
