package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sm5714/charger"
	"github.com/mklimuk/sm5714/cmd/sm5714/console"
	"github.com/mklimuk/sm5714/platform"
)

var chargerCmd = cli.Command{
	Name:  "charger",
	Usage: "charger configuration",
	Subcommands: cli.Commands{
		&chargerProbeCmd,
		chargerEnableCmd(true),
		chargerEnableCmd(false),
		&chargerStatusCmd,
		&chargerEncodeCmd,
	},
}

func withCharger(c *cli.Context, fn func(b *board, ch *charger.Charger) error) error {
	b, err := openBoard(c)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer b.close(c.Context)
	conn, err := b.conn(busPMIC)
	if err != nil {
		return console.Fail("bus error", err)
	}
	defer func() { _ = conn.Close(c.Context) }()
	return fn(b, charger.NewOnConn(conn))
}

var chargerProbeCmd = cli.Command{
	Name:  "probe",
	Usage: "program the charger setpoints from the platform file",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
	},
	Action: func(c *cli.Context) error {
		return withCharger(c, func(b *board, ch *charger.Charger) error {
			ev, err := b.evaluator()
			if err != nil {
				return console.Fail("platform error", err)
			}
			config, err := platform.FetchChargerConfig(c.Context, ev)
			if err != nil {
				return console.Fail("charger configuration error", err)
			}
			console.PInfof(console.PictoPlug, "%s", console.White(config))
			if !c.Bool("yes") {
				answer, err := console.YesOrNo("write charger registers?")
				if err != nil {
					return console.Fail("prompt error", err)
				}
				if answer != console.Yes {
					console.Warnf("aborted")
					return nil
				}
			}
			if err := ch.Probe(c.Context, config); err != nil {
				return console.Fail("probe error", err)
			}
			console.Infof("charger configured")
			return nil
		})
	},
}

func chargerEnableCmd(enabled bool) *cli.Command {
	name, state := "disable", console.Red("disabled")
	if enabled {
		name, state = "enable", console.Green("enabled")
	}
	return &cli.Command{
		Name:  name,
		Usage: name + " charging",
		Action: func(c *cli.Context) error {
			return withCharger(c, func(_ *board, ch *charger.Charger) error {
				if err := ch.EnableCharging(c.Context, enabled); err != nil {
					return console.Fail("charger write error", err)
				}
				console.Infof("charging %s", state)
				return nil
			})
		},
	}
}

var chargerStatusCmd = cli.Command{
	Name:  "status",
	Usage: "dump the charger status registers",
	Action: func(c *cli.Context) error {
		return withCharger(c, func(_ *board, ch *charger.Charger) error {
			status, err := ch.Status(c.Context)
			if err != nil {
				return console.Fail("status read error", err)
			}
			enc := yaml.NewEncoder(console.Writer())
			defer func() { _ = enc.Close() }()
			if err := enc.Encode(status); err != nil {
				return console.Fail("encoding error", err)
			}
			return nil
		})
	},
}

var chargerEncodeCmd = cli.Command{
	Name:  "encode",
	Usage: "show the register codes for the given currents",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "icl", Usage: "input current limit in mA"},
		&cli.UintFlag{Name: "ichg", Usage: "charging current in mA"},
		&cli.UintFlag{Name: "topoff", Usage: "top-off current in mA"},
	},
	Action: func(c *cli.Context) error {
		if c.IsSet("icl") {
			console.Printf("ICL    %5d mA: %#02x\n", c.Uint("icl"), charger.InputCurrentLimitCode(c.Uint("icl")))
		}
		if c.IsSet("ichg") {
			console.Printf("ICHG   %5d mA: %#02x\n", c.Uint("ichg"), charger.ChargingCurrentCode(c.Uint("ichg")))
		}
		if c.IsSet("topoff") {
			console.Printf("TOPOFF %5d mA: %#02x\n", c.Uint("topoff"), charger.TopoffCurrentCode(c.Uint("topoff")))
		}
		return nil
	},
}
