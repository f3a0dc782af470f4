// Package fuelgauge reads the SM5714 fuel gauge.
//
// Measurements live in the gauge SRAM and are fetched with a sequenced
// transaction: the sub-address is written to the read address register, the
// read data register is selected as the trigger, and two bytes are read back
// without a restart in between.
package fuelgauge

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/sm5714/bus"
	"github.com/mklimuk/sm5714/register"
)

var ErrNoRegisterAccess = errors.New("fuelgauge: register access not available")

// Conn is the bus endpoint of the gauge. *bus.Conn satisfies it.
type Conn interface {
	register.Conn
	WriteWriteRead(ctx context.Context, frame1, frame2, data []byte, delay, timeout time.Duration) error
}

// SRAMReader fetches one raw SRAM word.
type SRAMReader interface {
	ReadSRAM(ctx context.Context, sub byte) (uint16, error)
}

type Opts struct {
	ReadDelay time.Duration
	Timeout   time.Duration
	Logger    *slog.Logger
}

type Opt func(*Opts)

// WithReadDelay sets the settle time observed before the data phase.
func WithReadDelay(delay time.Duration) Opt {
	return func(o *Opts) {
		o.ReadDelay = delay
	}
}

func WithTimeout(timeout time.Duration) Opt {
	return func(o *Opts) {
		o.Timeout = timeout
	}
}

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

type Gauge struct {
	sram SRAMReader
	regs *register.Map
	log  *slog.Logger
}

func New(conn Conn, opts ...Opt) *Gauge {
	config := Opts{
		Timeout: bus.UseDefault,
		Logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Gauge{
		sram: &sramWindow{conn: conn, delay: config.ReadDelay, timeout: config.Timeout},
		regs: register.New(conn),
		log:  config.Logger,
	}
}

type sramWindow struct {
	conn    Conn
	delay   time.Duration
	timeout time.Duration
}

func (w *sramWindow) ReadSRAM(ctx context.Context, sub byte) (uint16, error) {
	var raw [2]byte
	err := w.conn.WriteWriteRead(ctx, []byte{RegSRAMRAddr, sub, 0}, []byte{RegSRAMRData}, raw[:], w.delay, w.timeout)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw[:]), nil
}

// ReadSRAM returns the raw word at the SRAM sub-address.
func (g *Gauge) ReadSRAM(ctx context.Context, sub byte) (uint16, error) {
	raw, err := g.sram.ReadSRAM(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("fuelgauge: read sram %#02x: %w", sub, err)
	}
	return raw, nil
}

// SoC returns the state of charge in tenths of a percent.
func (g *Gauge) SoC(ctx context.Context) (uint, error) {
	raw, err := g.ReadSRAM(ctx, SRAMSoC)
	if err != nil {
		return 0, err
	}
	soc := DecodeSoC(raw)
	g.log.DebugContext(ctx, "soc", "raw", raw, "tenths", soc)
	return soc, nil
}

// Voltage returns the open-circuit voltage estimate in mV.
func (g *Gauge) Voltage(ctx context.Context) (uint, error) {
	return g.voltage(ctx, SRAMOCV)
}

func (g *Gauge) BatteryVoltage(ctx context.Context) (uint, error) {
	return g.voltage(ctx, SRAMVBat)
}

func (g *Gauge) SystemVoltage(ctx context.Context) (uint, error) {
	return g.voltage(ctx, SRAMVSys)
}

func (g *Gauge) AverageVoltage(ctx context.Context) (uint, error) {
	return g.voltage(ctx, SRAMVBatAvg)
}

func (g *Gauge) voltage(ctx context.Context, sub byte) (uint, error) {
	raw, err := g.ReadSRAM(ctx, sub)
	if err != nil {
		return 0, err
	}
	mv := DecodeVoltage(raw)
	g.log.DebugContext(ctx, "voltage", "sram", sub, "raw", raw, "mV", mv)
	return mv, nil
}

// Current returns the battery current in mA, negative while discharging.
func (g *Gauge) Current(ctx context.Context) (int, error) {
	return g.current(ctx, SRAMCurrent)
}

func (g *Gauge) AverageCurrent(ctx context.Context) (int, error) {
	return g.current(ctx, SRAMCurrentAvg)
}

func (g *Gauge) current(ctx context.Context, sub byte) (int, error) {
	raw, err := g.ReadSRAM(ctx, sub)
	if err != nil {
		return 0, err
	}
	ma := DecodeCurrent(raw)
	g.log.DebugContext(ctx, "current", "sram", sub, "raw", raw, "mA", ma)
	return ma, nil
}

// Temperature returns the battery temperature in whole degrees Celsius.
func (g *Gauge) Temperature(ctx context.Context) (int, error) {
	raw, err := g.ReadSRAM(ctx, SRAMTemperature)
	if err != nil {
		return 0, err
	}
	t := DecodeTemperature(raw)
	g.log.DebugContext(ctx, "temperature", "raw", raw, "C", t)
	return t, nil
}

func (g *Gauge) CycleCount(ctx context.Context) (uint, error) {
	raw, err := g.ReadSRAM(ctx, SRAMSoCCycle)
	if err != nil {
		return 0, err
	}
	return DecodeCycleCount(raw), nil
}

// State returns the raw gauge state word.
func (g *Gauge) State(ctx context.Context) (uint16, error) {
	return g.ReadSRAM(ctx, SRAMState)
}

func (g *Gauge) DeviceID(ctx context.Context) (uint16, error) {
	if g.regs == nil {
		return 0, ErrNoRegisterAccess
	}
	id, err := g.regs.Read(ctx, RegDeviceID)
	if err != nil {
		return 0, fmt.Errorf("fuelgauge: read device id: %w", err)
	}
	return id, nil
}
