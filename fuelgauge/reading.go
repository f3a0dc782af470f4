package fuelgauge

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"
)

// Reading is a snapshot of the primary gauge quantities. Attributes that
// could not be read are left zero and their errors are combined in Err.
type Reading struct {
	SoC         uint // tenths of a percent
	Voltage     physic.ElectricPotential
	Current     physic.ElectricCurrent
	Temperature physic.Temperature
	CycleCount  uint
	Err         error
}

func (g *Gauge) Read(ctx context.Context) Reading {
	var r Reading
	var err error
	soc, e := g.SoC(ctx)
	if !multierr.AppendInto(&err, e) {
		r.SoC = soc
	}
	mv, e := g.Voltage(ctx)
	if !multierr.AppendInto(&err, e) {
		r.Voltage = physic.ElectricPotential(mv) * physic.MilliVolt
	}
	ma, e := g.Current(ctx)
	if !multierr.AppendInto(&err, e) {
		r.Current = physic.ElectricCurrent(ma) * physic.MilliAmpere
	}
	t, e := g.Temperature(ctx)
	if !multierr.AppendInto(&err, e) {
		r.Temperature = physic.ZeroCelsius + physic.Temperature(t)*physic.Celsius
	}
	cycles, e := g.CycleCount(ctx)
	if !multierr.AppendInto(&err, e) {
		r.CycleCount = cycles
	}
	r.Err = err
	return r
}

func (r Reading) String() string {
	return fmt.Sprintf("SoC=%d.%d%% V=%s I=%s T=%s cycles=%d", r.SoC/10, r.SoC%10, r.Voltage, r.Current, r.Temperature, r.CycleCount)
}
