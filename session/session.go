// Package session owns the bus endpoints of one SM5714 and exposes it to the
// host as a battery miniport.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/battery"
	"github.com/mklimuk/sm5714/bus"
	"github.com/mklimuk/sm5714/charger"
	"github.com/mklimuk/sm5714/fuelgauge"
	"github.com/mklimuk/sm5714/platform"
	"github.com/mklimuk/sm5714/register"
)

// Bus indexes.
const (
	BusPMIC      = 0
	BusFuelGauge = 1
	MaxBuses     = 2
)

var (
	ErrNotAttached = errors.New("session: bus not attached")
	ErrNoCharger   = errors.New("session: charger bus not attached")
	ErrNoGauge     = errors.New("session: fuel gauge bus not attached")
)

// Gauge is the fuel gauge the session reads. *fuelgauge.Gauge satisfies it.
type Gauge interface {
	SoC(ctx context.Context) (uint, error)
	Voltage(ctx context.Context) (uint, error)
	Current(ctx context.Context) (int, error)
	Temperature(ctx context.Context) (int, error)
	CycleCount(ctx context.Context) (uint, error)
}

type Opts struct {
	Logger    *slog.Logger
	Gauge     Gauge
	GaugeOpts []fuelgauge.Opt
}

type Opt func(*Opts)

func WithLogger(logger *slog.Logger) Opt {
	return func(o *Opts) {
		o.Logger = logger
	}
}

// WithGauge replaces the gauge built from the fuel gauge bus.
func WithGauge(g Gauge) Opt {
	return func(o *Opts) {
		o.Gauge = g
	}
}

func WithGaugeOpts(opts ...fuelgauge.Opt) Opt {
	return func(o *Opts) {
		o.GaugeOpts = append(o.GaugeOpts, opts...)
	}
}

type Session struct {
	log      *slog.Logger
	platform platform.Evaluator
	config   Opts

	conns   [MaxBuses]*bus.Conn
	regs    [MaxBuses]*register.Map
	gauge   Gauge
	charger *charger.Charger

	// stateMx guards the tags and serializes miniport requests.
	stateMx sync.Mutex
	tag     battery.Tag
	// lastTag is the last tag handed out; it only moves forward.
	lastTag  battery.Tag
	capacity platform.Capacity
}

var _ battery.Miniport = &Session{}

func New(ev platform.Evaluator, opts ...Opt) *Session {
	config := Opts{
		Logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Session{
		log:      config.Logger,
		platform: ev,
		config:   config,
	}
}

// Prepare attaches the bus endpoints, indexed by BusPMIC and BusFuelGauge,
// reads the battery description and issues a new battery tag. A nil conn
// leaves its index unattached. Endpoints of a previous Prepare that are not
// passed again are closed, and the previous tag is invalid even when Prepare
// fails.
func (s *Session) Prepare(ctx context.Context, conns ...*bus.Conn) error {
	if len(conns) > MaxBuses {
		return fmt.Errorf("session: %d buses given, at most %d supported", len(conns), MaxBuses)
	}
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	s.tag = battery.TagInvalid
	if err := s.detach(ctx, conns...); err != nil {
		s.log.WarnContext(ctx, "could not close previous bus endpoints", "error", err)
	}

	capacity, err := platform.FetchCapacity(ctx, s.platform)
	if err != nil {
		s.log.ErrorContext(ctx, "could not fetch battery capacity", "error", err)
		return fmt.Errorf("session: prepare: %w", err)
	}
	for i, conn := range conns {
		s.conns[i] = conn
		if conn != nil {
			s.regs[i] = register.New(conn)
		}
	}
	s.gauge = s.config.Gauge
	if s.gauge == nil && s.conns[BusFuelGauge] != nil {
		s.gauge = fuelgauge.New(s.conns[BusFuelGauge], append([]fuelgauge.Opt{fuelgauge.WithLogger(s.log)}, s.config.GaugeOpts...)...)
	}
	if s.regs[BusPMIC] != nil {
		s.charger = charger.New(s.regs[BusPMIC], charger.WithLogger(s.log))
	}
	s.capacity = capacity
	s.lastTag = s.lastTag.Next()
	s.tag = s.lastTag
	s.log.InfoContext(ctx, "battery prepared", "tag", s.tag,
		"designed_mWh", capacity.DesignedCapacity, "full_mWh", capacity.FullChargedCapacity,
		"technology", capacity.Technology, "design_mV", capacity.DesignVoltage)
	return nil
}

// Release invalidates the battery tag and closes every attached endpoint.
// Tags issued by later Prepare calls never repeat earlier ones.
func (s *Session) Release(ctx context.Context) error {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	s.tag = battery.TagInvalid
	return s.detach(ctx)
}

// detach clears every slot and closes the endpoints not listed in keep.
// Callers hold stateMx.
func (s *Session) detach(ctx context.Context, keep ...*bus.Conn) error {
	var err error
	for i, conn := range s.conns {
		if conn != nil && !slices.Contains(keep, conn) {
			err = multierr.Append(err, conn.Close(ctx))
		}
		s.conns[i] = nil
		s.regs[i] = nil
	}
	s.gauge = nil
	s.charger = nil
	return err
}

// PowerUp reads the charger setpoints, applies them and enables charging.
func (s *Session) PowerUp(ctx context.Context) error {
	chg, err := s.chargerOrErr()
	if err != nil {
		return err
	}
	config, err := platform.FetchChargerConfig(ctx, s.platform)
	if err != nil {
		s.log.ErrorContext(ctx, "could not fetch charger config", "error", err)
		return fmt.Errorf("session: power up: %w", err)
	}
	s.log.InfoContext(ctx, "charger config", "config", config.String())
	err = chg.Probe(ctx, config)
	if err != nil {
		return fmt.Errorf("session: power up: %w", err)
	}
	return chg.EnableCharging(ctx, true)
}

// PowerDown disables charging when the device is going to its final off state.
func (s *Session) PowerDown(ctx context.Context, final bool) error {
	if !final {
		return nil
	}
	chg, err := s.chargerOrErr()
	if err != nil {
		return err
	}
	return chg.EnableCharging(ctx, false)
}

// Charger returns the charger on the PMIC bus, or nil.
func (s *Session) Charger() *charger.Charger {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	return s.charger
}

func (s *Session) chargerOrErr() (*charger.Charger, error) {
	chg := s.Charger()
	if chg == nil {
		return nil, ErrNoCharger
	}
	return chg, nil
}

// Tag returns the current battery tag, TagInvalid when not prepared.
func (s *Session) Tag() battery.Tag {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	return s.tag
}

// Conn returns the endpoint at index. An index outside [0, MaxBuses) is a
// programming error and panics.
func (s *Session) Conn(index int) *bus.Conn {
	if index < 0 || index >= MaxBuses {
		panic(fmt.Sprintf("session: bus index %d out of range", index))
	}
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	return s.conns[index]
}

func (s *Session) registers(index int) (*register.Map, error) {
	if index < 0 || index >= MaxBuses {
		panic(fmt.Sprintf("session: bus index %d out of range", index))
	}
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	regs := s.regs[index]
	if regs == nil {
		return nil, fmt.Errorf("%w: %w: index %d", sm5714.ErrBusTransport, ErrNotAttached, index)
	}
	return regs, nil
}

func (s *Session) ReadRegister(ctx context.Context, index int, addr byte) (uint16, error) {
	regs, err := s.registers(index)
	if err != nil {
		return 0, err
	}
	return regs.Read(ctx, addr)
}

func (s *Session) WriteRegister(ctx context.Context, index int, addr byte, value uint16) error {
	regs, err := s.registers(index)
	if err != nil {
		return err
	}
	return regs.Write(ctx, addr, value)
}

func (s *Session) UpdateRegister(ctx context.Context, index int, addr byte, mask, value uint16) error {
	regs, err := s.registers(index)
	if err != nil {
		return err
	}
	return regs.Update(ctx, addr, mask, value)
}

// Register hands the session to the host battery class.
func (s *Session) Register(ctx context.Context, r battery.Registrar) error {
	return r.Register(ctx, s)
}
