package i2c

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/sm5714"
)

var (
	_ sm5714.I2CBus    = &TxBus{}
	_ sm5714.Sequencer = &TxBus{}
)

// TxBus adapts a combined write-then-read bus to sm5714.I2CBus. Both the
// tinygo machine.I2C and periph.io i2c.Bus have the required Tx method.
type TxBus struct {
	mx  sync.Mutex
	bus drivers.I2C
}

func NewTxBus(bus drivers.I2C) *TxBus {
	return &TxBus{bus: bus}
}

func (b *TxBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	err := b.bus.Tx(uint16(address), nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *TxBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	err := b.bus.Tx(uint16(address), buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *TxBus) Release(ctx context.Context) error {
	return nil
}

// Sequence joins adjacent write segments into one frame and issues each
// frame together with the read that follows it as a single Tx, so the read
// starts with a repeated start. A read with a delay is issued on its own
// after the delay.
func (b *TxBus) Sequence(ctx context.Context, address byte, transfers []sm5714.Transfer) (int, error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	var pending []byte
	total := 0
	flush := func(r []byte) error {
		if len(pending) == 0 && len(r) == 0 {
			return nil
		}
		err := b.bus.Tx(uint16(address), pending, r)
		if err != nil {
			return fmt.Errorf("could not run i2c sequence on %x: %w", address, err)
		}
		total += len(pending) + len(r)
		pending = nil
		return nil
	}
	for _, t := range transfers {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		if t.Delay > 0 {
			if err := flush(nil); err != nil {
				return total, err
			}
			timer := time.NewTimer(t.Delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return total, ctx.Err()
			}
		}
		if len(t.Write) > 0 {
			pending = append(pending, t.Write...)
		}
		if len(t.Read) > 0 {
			if err := flush(t.Read); err != nil {
				return total, err
			}
		}
	}
	return total, flush(nil)
}
