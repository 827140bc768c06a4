package main

import (
	"context"
	"strconv"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/sensorkit/sensors/adapter"
	"github.com/sensorkit/sensors/cmd/gyro/console"
	"github.com/sensorkit/sensors/snsctx"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 bridge maintenance",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

func mcp2221FromContext(c *cli.Context) (*adapter.MCP2221, context.Context, error) {
	ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
	var opts []adapter.MCP2221Option
	if c.IsSet("device") {
		id, err := strconv.Atoi(c.String("device"))
		if err != nil {
			return nil, ctx, console.Exit(console.ExitConfig, "MCP2221 device must be an enumeration index: %s", console.Red(err))
		}
		opts = append(opts, adapter.WithDeviceID(id))
	}
	return adapter.NewMCP2221(opts...), ctx, nil
}

func printStatus(status *adapter.MCP2221Status) error {
	enc := yaml.NewEncoder(console.Writer())
	err := enc.Encode(status)
	if err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return enc.Close()
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "show I2C engine status",
	Action: func(c *cli.Context) error {
		a, ctx, err := mcp2221FromContext(c)
		if err != nil {
			return err
		}
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(console.ExitTransport, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer and free the bus",
	Action: func(c *cli.Context) error {
		a, ctx, err := mcp2221FromContext(c)
		if err != nil {
			return err
		}
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(console.ExitTransport, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}
