package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit codes returned by the gyro tool
const (
	ExitConfig    = 2
	ExitTransport = 3
	ExitDevice    = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
