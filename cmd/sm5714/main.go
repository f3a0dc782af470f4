package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sm5714/cmd/sm5714/console"
	"github.com/mklimuk/sm5714/snsctx"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	app := cli.NewApp()
	app.Name = "sm5714"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "SM5714 fuel gauge and charger cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging and wire dumps",
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   adapterMCP2221,
			Usage:   "bus adapter: mcp2221, generic or nanopi",
		},
		&cli.StringFlag{
			Name:    "device",
			Aliases: []string{"d"},
			Value:   "/dev/i2c-1",
			Usage:   "i2c device of the generic adapter",
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: 0,
			Usage: "i2c bus number of the nanopi adapter",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			EnvVars: []string{"SM5714_CONFIG"},
			Usage:   "platform description file",
		},
	}
	// errors are reported and turned into exit codes below
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Before = func(c *cli.Context) error {
		verbose := c.Bool("verbose")
		slog.SetDefault(console.NewLogger(verbose))
		c.Context = snsctx.SetVerbose(c.Context, verbose)
		return nil
	}
	app.Commands = cli.Commands{
		&gaugeCmd,
		&chargerCmd,
		&regCmd,
		&batteryCmd,
		&mcp2221Cmd,
		&usbCmd,
	}
	err := app.Run(args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			slog.Error("command failed", "error", err)
			return exerr.ExitCode()
		}
		slog.Error("unexpected error", "error", err)
		return 1
	}
	return 0
}
