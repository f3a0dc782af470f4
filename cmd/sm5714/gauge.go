package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sm5714/cmd/sm5714/console"
	"github.com/mklimuk/sm5714/fuelgauge"
)

var gaugeCmd = cli.Command{
	Name:  "gauge",
	Usage: "fuel gauge readings",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "delay",
			Usage: "wait between the SRAM address and data transfers",
		},
	},
	Subcommands: cli.Commands{
		&gaugeReadCmd,
		&gaugeSRAMCmd,
		&gaugeIDCmd,
	},
}

func withGauge(c *cli.Context, fn func(g *fuelgauge.Gauge) error) error {
	b, err := openBoard(c)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer b.close(c.Context)
	conn, err := b.conn(busFuelGauge)
	if err != nil {
		return console.Fail("bus error", err)
	}
	defer func() { _ = conn.Close(c.Context) }()
	return fn(fuelgauge.New(conn, fuelgauge.WithReadDelay(c.Duration("delay"))))
}

var gaugeReadCmd = cli.Command{
	Name:  "read",
	Usage: "read state of charge, voltage, current, temperature and cycles",
	Action: func(c *cli.Context) error {
		return withGauge(c, func(g *fuelgauge.Gauge) error {
			r := g.Read(c.Context)
			console.PInfof(console.PictoBattery, "%s", console.White(r))
			if r.Err != nil {
				return console.Fail("incomplete reading", r.Err)
			}
			return nil
		})
	},
}

var gaugeSRAMCmd = cli.Command{
	Name:      "sram",
	Usage:     "read one SRAM word",
	ArgsUsage: "<sub-address>",
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(1, "expected one sub-address argument")
		}
		sub, err := parseUint(c.Args().First(), 8)
		if err != nil {
			return console.Fail("invalid sub-address", err)
		}
		return withGauge(c, func(g *fuelgauge.Gauge) error {
			v, err := g.ReadSRAM(c.Context, byte(sub))
			if err != nil {
				return console.Fail("sram read error", err)
			}
			console.Printf("%#02x: %#04x (%d)\n", sub, v, v)
			return nil
		})
	},
}

var gaugeIDCmd = cli.Command{
	Name:  "id",
	Usage: "read the device id register",
	Action: func(c *cli.Context) error {
		return withGauge(c, func(g *fuelgauge.Gauge) error {
			id, err := g.DeviceID(c.Context)
			if err != nil {
				return console.Fail("device id read error", err)
			}
			console.Printf("device id: %s\n", console.White(fmt.Sprintf("%#04x", id)))
			return nil
		})
	},
}
