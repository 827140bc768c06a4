package main

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"
)

// set by the dev tool at link time
var (
	AppVersion = "dev"
	GitCommit  string
	BuildTime  string
)

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "gyro"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", AppVersion, BuildTime, GitCommit)
	app.Usage = "FXAS21002C gyroscope cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and adapter report dumps",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML settings file",
			EnvVars: []string{"GYRO_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   adapterMCP2221,
			Usage:   "transport: mcp2221, generic (Linux i2c-dev) or nanopi",
		},
		&cli.StringFlag{
			Name:  "device",
			Usage: "i2c bus name for generic (e.g. /dev/i2c-1), enumeration index for mcp2221",
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: -1,
			Usage: "bus number for nanopi, -1 selects the board default",
		},
		&cli.IntFlag{
			Name:  "speed",
			Usage: "bus speed in kHz for generic",
		},
		&cli.IntFlag{
			Name:  "addr",
			Value: 0x20,
			Usage: "device address",
		},
		&cli.StringFlag{
			Name:  "range",
			Value: "2000",
			Usage: "full scale range in dps: 250, 500, 1000 or 2000",
		},
		&cli.StringFlag{
			Name:  "rate",
			Value: "200",
			Usage: "output data rate in Hz: 800, 400, 200, 100, 50, 25 or 12.5",
		},
		&cli.BoolFlag{
			Name:  "expand",
			Usage: "double the full scale range",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stderr, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&initCmd,
		&rawCmd,
		&readCmd,
		&tempCmd,
		&statusCmd,
		&watchCmd,
		&zeroCmd,
		&usbCmd,
		&mcp2221Cmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		log.Printf("unexpected error: %v", err)
		return 1
	}
	return 0
}
