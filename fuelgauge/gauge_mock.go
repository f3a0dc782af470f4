package fuelgauge

import (
	"context"
	"fmt"
	"log/slog"
)

// BehaviorFunc produces raw SRAM words for a mock gauge.
type BehaviorFunc func(ctx context.Context, sub byte) (uint16, error)

func (f BehaviorFunc) ReadSRAM(ctx context.Context, sub byte) (uint16, error) {
	return f(ctx, sub)
}

// NewMockGauge creates a gauge backed by the behavior function instead of a
// bus. Decoding runs exactly as on hardware. DeviceID is not available.
//
// Example usage:
//
//	g := NewMockGauge(StaticSRAM(map[byte]uint16{SRAMSoC: 0x1E00}))
func NewMockGauge(behavior BehaviorFunc) *Gauge {
	return &Gauge{sram: behavior, log: slog.Default()}
}

// StaticSRAM returns a behavior serving fixed words. Unknown sub-addresses fail.
func StaticSRAM(words map[byte]uint16) BehaviorFunc {
	return func(ctx context.Context, sub byte) (uint16, error) {
		raw, ok := words[sub]
		if !ok {
			return 0, fmt.Errorf("no value for sram %#02x", sub)
		}
		return raw, nil
	}
}
