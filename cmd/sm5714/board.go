package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/adapter"
	"github.com/mklimuk/sm5714/bus"
	"github.com/mklimuk/sm5714/charger"
	"github.com/mklimuk/sm5714/fuelgauge"
	"github.com/mklimuk/sm5714/i2c"
	"github.com/mklimuk/sm5714/platform"
	"github.com/mklimuk/sm5714/session"
)

const (
	adapterMCP2221 = "mcp2221"
	adapterGeneric = "generic"
	adapterNanoPi  = "nanopi"
)

const (
	busPMIC      = "pmic"
	busFuelGauge = "fuelgauge"
)

// board is the opened transport plus the optional platform description.
type board struct {
	transport sm5714.I2CBus
	closer    func(ctx context.Context) error
	file      *platform.File
}

func openBoard(c *cli.Context) (*board, error) {
	b := &board{}
	if path := c.String("config"); path != "" {
		f, err := platform.LoadFile(path)
		if err != nil {
			return nil, err
		}
		b.file = f
	}
	switch name := c.String("adapter"); name {
	case adapterMCP2221:
		b.transport = adapter.NewMCP2221()
	case adapterGeneric:
		gb, err := i2c.NewGenericBus(c.String("device"))
		if err != nil {
			return nil, err
		}
		slog.Debug("bus opened", "bus", gb.String())
		b.transport = gb
		b.closer = func(context.Context) error { return gb.Close() }
	case adapterNanoPi:
		nb, err := adapter.NewNanoPiBus(adapter.WithBus(c.Int("bus")), adapter.WithGobotLogger(slog.Default()))
		if err != nil {
			return nil, err
		}
		b.transport = nb
		b.closer = nb.Close
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
	return b, nil
}

// conn opens a bus endpoint for one of the chip functions. The platform file
// overrides the default addresses.
func (b *board) conn(name string) (*bus.Conn, error) {
	var address byte
	switch name {
	case busPMIC:
		address = charger.DefaultAddress
		if b.file != nil && b.file.Buses.PMIC.Address != 0 {
			address = b.file.Buses.PMIC.Address
		}
	case busFuelGauge:
		address = fuelgauge.DefaultAddress
		if b.file != nil && b.file.Buses.FuelGauge.Address != 0 {
			address = b.file.Buses.FuelGauge.Address
		}
	default:
		return nil, fmt.Errorf("unknown bus %q, expected %s or %s", name, busPMIC, busFuelGauge)
	}
	return bus.New(b.transport, address, bus.WithName(name), bus.WithLogger(slog.Default())), nil
}

func (b *board) evaluator() (platform.Evaluator, error) {
	if b.file == nil {
		return nil, fmt.Errorf("%w: no platform file, use --config", sm5714.ErrConfigUnavailable)
	}
	return b.file, nil
}

// session prepares a battery session over both endpoints.
func (b *board) session(ctx context.Context) (*session.Session, error) {
	ev, err := b.evaluator()
	if err != nil {
		return nil, err
	}
	pmic, err := b.conn(busPMIC)
	if err != nil {
		return nil, err
	}
	gauge, err := b.conn(busFuelGauge)
	if err != nil {
		return nil, err
	}
	s := session.New(ev, session.WithLogger(slog.Default()))
	err = s.Prepare(ctx, pmic, gauge)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (b *board) close(ctx context.Context) {
	if b.closer == nil {
		return
	}
	if err := b.closer(ctx); err != nil {
		slog.WarnContext(ctx, "could not close adapter", "error", err)
	}
}

func parseUint(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("invalid %d-bit value %q: %w", bits, s, err)
	}
	return v, nil
}
