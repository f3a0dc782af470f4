// Package charger configures the SM5714 charger block.
package charger

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/mklimuk/sm5714/register"
)

// Config holds the charger setpoints supplied by the platform.
type Config struct {
	Autostop          bool `yaml:"autostop"`
	InputCurrentLimit uint `yaml:"input_current_limit_ma"`
	ChargingCurrent   uint `yaml:"charging_current_ma"`
	TopoffCurrent     uint `yaml:"topoff_current_ma"`
}

func (c Config) String() string {
	autostop := "OFF"
	if c.Autostop {
		autostop = "ON"
	}
	return fmt.Sprintf("Autostop=%s ICL=%d mA ICHG=%d mA TOP=%d mA", autostop, c.InputCurrentLimit, c.ChargingCurrent, c.TopoffCurrent)
}

// Registers is the register access the charger needs. *register.Map satisfies it.
type Registers interface {
	Read(ctx context.Context, addr byte) (uint16, error)
	Update(ctx context.Context, addr byte, mask, value uint16) error
}

type Opts struct {
	Logger *slog.Logger
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

type Charger struct {
	regs Registers
	log  *slog.Logger
}

func New(regs Registers, opts ...Opt) *Charger {
	config := Opts{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Charger{regs: regs, log: config.Logger}
}

// NewOnConn is a shorthand for a charger over a bus endpoint.
func NewOnConn(conn register.Conn, opts ...Opt) *Charger {
	return New(register.New(conn), opts...)
}

func (c *Charger) SetAutostop(ctx context.Context, enabled bool) error {
	err := c.regs.Update(ctx, RegChgCntl4, MaskAutostop, autostopBits(enabled))
	if err != nil {
		return fmt.Errorf("charger: set autostop: %w", err)
	}
	return nil
}

func (c *Charger) SetInputCurrentLimit(ctx context.Context, mA uint) error {
	code := InputCurrentLimitCode(mA)
	c.log.DebugContext(ctx, "input current limit", "mA", mA, "code", code)
	err := c.regs.Update(ctx, RegVBusCntl, MaskInputCurrentLimit, code)
	if err != nil {
		return fmt.Errorf("charger: set input current limit: %w", err)
	}
	return nil
}

func (c *Charger) SetChargingCurrent(ctx context.Context, mA uint) error {
	code := ChargingCurrentCode(mA)
	c.log.DebugContext(ctx, "charging current", "mA", mA, "code", code)
	err := c.regs.Update(ctx, RegChgCntl2, MaskChargingCurrent, code)
	if err != nil {
		return fmt.Errorf("charger: set charging current: %w", err)
	}
	return nil
}

func (c *Charger) SetTopoffCurrent(ctx context.Context, mA uint) error {
	code := TopoffCurrentCode(mA)
	c.log.DebugContext(ctx, "topoff current", "mA", mA, "code", code)
	err := c.regs.Update(ctx, RegChgCntl5, MaskTopoffCurrent, code)
	if err != nil {
		return fmt.Errorf("charger: set topoff current: %w", err)
	}
	return nil
}

// EnableCharging toggles the charge enable bit. It is not part of Probe.
func (c *Charger) EnableCharging(ctx context.Context, enabled bool) error {
	err := c.regs.Update(ctx, RegCntl1, MaskChargeEnable, chargeEnableBits(enabled))
	if err != nil {
		return fmt.Errorf("charger: set charge enable=%t: %w", enabled, err)
	}
	c.log.InfoContext(ctx, "charging", "enabled", enabled)
	return nil
}

// Probe applies autostop, input current limit, charging current and topoff
// current in that order. A failing field does not skip the others; all
// failures are returned combined.
func (c *Charger) Probe(ctx context.Context, config Config) error {
	c.log.InfoContext(ctx, "probing charger", "config", config.String())
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return c.SetAutostop(ctx, config.Autostop) },
		func(ctx context.Context) error { return c.SetInputCurrentLimit(ctx, config.InputCurrentLimit) },
		func(ctx context.Context) error { return c.SetChargingCurrent(ctx, config.ChargingCurrent) },
		func(ctx context.Context) error { return c.SetTopoffCurrent(ctx, config.TopoffCurrent) },
	}
	var err error
	for _, step := range steps {
		multierr.AppendInto(&err, step(ctx))
	}
	return err
}

// Status holds the raw charger status registers.
type Status struct {
	Status1 uint16 `yaml:"status1"`
	Status2 uint16 `yaml:"status2"`
	Status3 uint16 `yaml:"status3"`
	Status4 uint16 `yaml:"status4"`
	Status5 uint16 `yaml:"status5"`
}

func (c *Charger) Status(ctx context.Context) (Status, error) {
	var s Status
	fields := []struct {
		reg byte
		dst *uint16
	}{
		{RegStatus1, &s.Status1},
		{RegStatus2, &s.Status2},
		{RegStatus3, &s.Status3},
		{RegStatus4, &s.Status4},
		{RegStatus5, &s.Status5},
	}
	for _, f := range fields {
		v, err := c.regs.Read(ctx, f.reg)
		if err != nil {
			return s, fmt.Errorf("charger: read status %#02x: %w", f.reg, err)
		}
		*f.dst = v
	}
	return s, nil
}
