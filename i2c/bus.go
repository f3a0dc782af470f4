// Package i2c provides host I2C buses for sm5714 devices.
package i2c

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// DefaultSpeed is the SM5714 fast mode clock.
const DefaultSpeed = 400 * physic.KiloHertz

// GenericBus is a host I2C bus opened through periph.io.
type GenericBus struct {
	*TxBus
	bus i2c.BusCloser
}

type GenericBusOpts struct {
	Speed physic.Frequency
}

type GenericBusOpt func(*GenericBusOpts)

// WithSpeed sets the bus clock. Zero keeps the driver default.
func WithSpeed(speed physic.Frequency) GenericBusOpt {
	return func(o *GenericBusOpts) {
		o.Speed = speed
	}
}

// NewGenericBus opens the named bus, "" selecting the first available one.
func NewGenericBus(dev string, opts ...GenericBusOpt) (*GenericBus, error) {
	config := GenericBusOpts{
		Speed: DefaultSpeed,
	}
	for _, opt := range opts {
		opt(&config)
	}
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("could not init host: %w", err)
	}
	for _, driver := range state.Loaded {
		slog.Debug("host driver loaded", "driver", driver.String())
	}
	bus, err := i2creg.Open(dev)
	if err != nil {
		return nil, fmt.Errorf("could not open i2c bus: %w", err)
	}
	return newGenericBus(bus, config)
}

func newGenericBus(bus i2c.BusCloser, config GenericBusOpts) (*GenericBus, error) {
	if config.Speed > 0 {
		err := bus.SetSpeed(config.Speed)
		if err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("could not set i2c bus speed to %s: %w", config.Speed, err)
		}
	}
	return &GenericBus{
		TxBus: NewTxBus(bus),
		bus:   bus,
	}, nil
}

func (b *GenericBus) String() string {
	return b.bus.String()
}

func (b *GenericBus) Close() error {
	return b.bus.Close()
}
