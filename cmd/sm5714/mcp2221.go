package main

import (
	"context"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sm5714/adapter"
	"github.com/mklimuk/sm5714/cmd/sm5714/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "USB bridge maintenance",
	Subcommands: cli.Commands{
		mcp2221YAMLCmd("status", "show the bridge I2C engine status", func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			return a.Status(ctx)
		}),
		mcp2221YAMLCmd("release", "cancel a stuck transfer and free the bus", func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			return a.ReleaseBus(ctx)
		}),
		mcp2221YAMLCmd("gpio", "read the GP pins, e.g. the charger interrupt line", func(ctx context.Context, a *adapter.MCP2221) (any, error) {
			return a.ReadGPIO(ctx)
		}),
	},
}

func mcp2221YAMLCmd(name, usage string, query func(ctx context.Context, a *adapter.MCP2221) (any, error)) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			res, err := query(c.Context, adapter.NewMCP2221())
			if err != nil {
				return console.Fail("adapter communication error", err)
			}
			enc := yaml.NewEncoder(console.Writer())
			defer func() { _ = enc.Close() }()
			err = enc.Encode(res)
			if err != nil {
				return console.Fail("encoding error", err)
			}
			return nil
		},
	}
}
