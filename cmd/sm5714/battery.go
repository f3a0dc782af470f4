package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sm5714/battery"
	"github.com/mklimuk/sm5714/cmd/sm5714/console"
	"github.com/mklimuk/sm5714/session"
)

var batteryCmd = cli.Command{
	Name:  "battery",
	Usage: "battery class view of the fuel gauge and charger",
	Subcommands: cli.Commands{
		&batteryStatusCmd,
		&batteryInfoCmd,
		&batteryWatchCmd,
		&batteryUpCmd,
		&batteryDownCmd,
	},
}

func withSession(c *cli.Context, fn func(s *session.Session) error) error {
	b, err := openBoard(c)
	if err != nil {
		return console.Fail("adapter initialization error", err)
	}
	defer b.close(c.Context)
	s, err := b.session(c.Context)
	if err != nil {
		return console.Fail("battery prepare error", err)
	}
	defer func() {
		if err := s.Release(c.Context); err != nil {
			slog.WarnContext(c.Context, "session release failed", "error", err)
		}
	}()
	return fn(s)
}

func printStatus(tag battery.Tag, status battery.Status) {
	console.PInfof(console.PictoBattery, "tag=%d state=%s capacity=%d mWh voltage=%d mV rate=%d mW",
		tag, console.White(status.PowerState), status.Capacity, status.Voltage, status.Rate)
	if status.Declined != 0 {
		console.Warnf("declined attributes: %#x", uint32(status.Declined))
	}
}

var batteryStatusCmd = cli.Command{
	Name:  "status",
	Usage: "query the battery status",
	Action: func(c *cli.Context) error {
		return withSession(c, func(s *session.Session) error {
			tag, err := s.QueryTag(c.Context)
			if err != nil {
				return console.Fail("tag error", err)
			}
			status, err := s.QueryStatus(c.Context, tag)
			if err != nil {
				return console.Fail("status error", err)
			}
			printStatus(tag, status)
			return nil
		})
	},
}

var defaultInfoLevels = []battery.QueryLevel{
	battery.LevelInformation,
	battery.LevelGranularity,
	battery.LevelTemperature,
	battery.LevelDeviceName,
	battery.LevelManufactureName,
	battery.LevelManufactureDate,
	battery.LevelUniqueID,
	battery.LevelSerialNumber,
}

var batteryInfoCmd = cli.Command{
	Name:      "info",
	Usage:     "query battery information levels",
	ArgsUsage: "[level...]",
	Action: func(c *cli.Context) error {
		levels := defaultInfoLevels
		if c.NArg() > 0 {
			levels = nil
			for _, arg := range c.Args().Slice() {
				l, err := battery.ParseQueryLevel(arg)
				if err != nil {
					return console.Fail("invalid level", err)
				}
				levels = append(levels, l)
			}
		}
		return withSession(c, func(s *session.Session) error {
			tag := s.Tag()
			out := make(map[string]any, len(levels))
			for _, l := range levels {
				res, err := s.QueryInformation(c.Context, tag, l, 0)
				if errors.Is(err, battery.ErrUnsupported) {
					console.Warnf("%s: unsupported", l)
					continue
				}
				if err != nil {
					return console.Fail("query error", err)
				}
				out[l.String()] = infoValue(res)
			}
			enc := yaml.NewEncoder(console.Writer())
			defer func() { _ = enc.Close() }()
			if err := enc.Encode(out); err != nil {
				return console.Fail("encoding error", err)
			}
			return nil
		})
	},
}

func infoValue(res battery.QueryResult) any {
	switch res.Level {
	case battery.LevelInformation:
		return res.Information
	case battery.LevelGranularity:
		return res.Scales
	case battery.LevelTemperature:
		return res.Temperature
	case battery.LevelManufactureDate:
		return res.Date.Format(time.DateOnly)
	default:
		return res.Text
	}
}

var batteryWatchCmd = cli.Command{
	Name:  "watch",
	Usage: "poll the battery status until interrupted",
	Flags: []cli.Flag{
		&cli.DurationFlag{Name: "interval", Value: 5 * time.Second},
	},
	Action: func(c *cli.Context) error {
		return withSession(c, func(s *session.Session) error {
			poller := battery.NewPoller(c.Duration("interval"), slog.Default())
			if err := s.Register(c.Context, poller); err != nil {
				return console.Fail("register error", err)
			}
			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
			defer cancel()
			err := poller.Run(ctx, func(p battery.Poll) {
				if p.Err == nil {
					printStatus(p.Tag, p.Status)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return console.Fail("poll error", err)
			}
			return nil
		})
	},
}

var batteryUpCmd = cli.Command{
	Name:  "up",
	Usage: "configure the charger and enable charging",
	Action: func(c *cli.Context) error {
		return withSession(c, func(s *session.Session) error {
			if err := s.PowerUp(c.Context); err != nil {
				return console.Fail("power up error", err)
			}
			console.Infof("charging %s", console.Green("enabled"))
			return nil
		})
	},
}

var batteryDownCmd = cli.Command{
	Name:  "down",
	Usage: "prepare the battery for power down",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "final", Usage: "last power down before shutdown"},
	},
	Action: func(c *cli.Context) error {
		return withSession(c, func(s *session.Session) error {
			if err := s.PowerDown(c.Context, c.Bool("final")); err != nil {
				return console.Fail("power down error", err)
			}
			return nil
		})
	},
}
