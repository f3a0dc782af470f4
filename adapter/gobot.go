package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
	"gobot.io/x/gobot/v2/drivers/i2c"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/sm5714"
)

var (
	_ sm5714.I2CBus         = &GobotBus{}
	_ sm5714.CountingReader = &GobotBus{}
)

// GobotBus drives an I2C bus exposed by a gobot platform adaptor. One
// connection per target address is opened lazily and kept until Release.
type GobotBus struct {
	mx        sync.Mutex
	connector i2c.Connector
	bus       int
	conns     map[byte]i2c.Connection
	log       *slog.Logger
	finalize  func() error
}

type GobotOpts struct {
	Bus    int
	Logger *slog.Logger
}

type GobotOpt func(*GobotOpts)

func WithBus(bus int) GobotOpt {
	return func(o *GobotOpts) {
		o.Bus = bus
	}
}

func WithGobotLogger(l *slog.Logger) GobotOpt {
	return func(o *GobotOpts) {
		o.Logger = l
	}
}

func NewGobotBus(connector i2c.Connector, opts ...GobotOpt) *GobotBus {
	o := GobotOpts{Bus: connector.DefaultI2cBus(), Logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &GobotBus{
		connector: connector,
		bus:       o.Bus,
		conns:     make(map[byte]i2c.Connection),
		log:       o.Logger,
	}
}

// NewNanoPiBus connects the NanoPi NEO I2C adaptor. Close finalizes it.
func NewNanoPiBus(opts ...GobotOpt) (*GobotBus, error) {
	npi := nanopi.NewNeoAdaptor()
	err := npi.I2cBusAdaptor.Connect()
	if err != nil {
		return nil, fmt.Errorf("adaptor connect error: %w", err)
	}
	b := NewGobotBus(npi, opts...)
	b.finalize = npi.I2cBusAdaptor.Finalize
	return b, nil
}

func (b *GobotBus) connection(address byte) (i2c.Connection, error) {
	if c, ok := b.conns[address]; ok {
		return c, nil
	}
	c, err := b.connector.GetI2cConnection(int(address), b.bus)
	if err != nil {
		return nil, fmt.Errorf("could not open connection to %#02x on bus %d: %w", address, b.bus, err)
	}
	b.conns[address] = c
	return c, nil
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.connection(address)
	if err != nil {
		return err
	}
	n, err := c.Write(buffer)
	if err != nil {
		return fmt.Errorf("write to %#02x failed: %w", address, err)
	}
	if n != len(buffer) {
		return fmt.Errorf("short write to %#02x: %d of %d", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	n, err := b.ReadCountFromAddr(ctx, address, buffer)
	if err != nil {
		return err
	}
	if n != len(buffer) {
		return fmt.Errorf("short read from %#02x: %d of %d", address, n, len(buffer))
	}
	return nil
}

func (b *GobotBus) ReadCountFromAddr(ctx context.Context, address byte, buffer []byte) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	c, err := b.connection(address)
	if err != nil {
		return 0, err
	}
	n, err := c.Read(buffer)
	if err != nil {
		return n, fmt.Errorf("read from %#02x failed: %w", address, err)
	}
	return n, nil
}

// Release closes the open connections.
func (b *GobotBus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var err error
	for addr, c := range b.conns {
		multierr.AppendInto(&err, c.Close())
		delete(b.conns, addr)
	}
	return err
}

func (b *GobotBus) Close(ctx context.Context) error {
	err := b.Release(ctx)
	if b.finalize != nil {
		multierr.AppendInto(&err, b.finalize())
	}
	return err
}
