package platform

import (
	"context"
	"fmt"
	"math"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/charger"
)

// Capacity describes the battery pack.
type Capacity struct {
	DesignedCapacity    uint32 // mWh
	FullChargedCapacity uint32 // mWh
	Technology          uint8
	DesignVoltage       uint32 // mV
}

// FetchCapacity evaluates BATT. The first two arguments (designed and full
// charged capacity) are required; technology and design voltage are optional.
func FetchCapacity(ctx context.Context, ev Evaluator) (Capacity, error) {
	args, err := ev.Evaluate(ctx, MethodBattery)
	if err != nil {
		return Capacity{}, err
	}
	if len(args) < 2 {
		return Capacity{}, fmt.Errorf("%w: %s returned %d arguments", sm5714.ErrConfigUnavailable, MethodBattery, len(args))
	}
	var c Capacity
	if c.DesignedCapacity, err = uint32Arg(MethodBattery, args, 0); err != nil {
		return Capacity{}, err
	}
	if c.FullChargedCapacity, err = uint32Arg(MethodBattery, args, 1); err != nil {
		return Capacity{}, err
	}
	if len(args) > 2 && args[2].Integer {
		c.Technology = uint8(args[2].Value)
	}
	if len(args) > 3 && args[3].Integer {
		if v, err := uint32Arg(MethodBattery, args, 3); err == nil {
			c.DesignVoltage = v
		}
	}
	return c, nil
}

// FetchChargerConfig evaluates PMIC: autostop, input current limit, charging
// current and topoff current, all integers.
func FetchChargerConfig(ctx context.Context, ev Evaluator) (charger.Config, error) {
	args, err := ev.Evaluate(ctx, MethodPMIC)
	if err != nil {
		return charger.Config{}, err
	}
	if len(args) < 4 {
		return charger.Config{}, fmt.Errorf("%w: %s returned %d arguments", sm5714.ErrConfigUnavailable, MethodPMIC, len(args))
	}
	var values [4]uint32
	for i := range values {
		if values[i], err = uint32Arg(MethodPMIC, args, i); err != nil {
			return charger.Config{}, err
		}
	}
	return charger.Config{
		Autostop:          values[0] != 0,
		InputCurrentLimit: uint(values[1]),
		ChargingCurrent:   uint(values[2]),
		TopoffCurrent:     uint(values[3]),
	}, nil
}

func uint32Arg(method string, args []Argument, i int) (uint32, error) {
	arg := args[i]
	if !arg.Integer {
		return 0, fmt.Errorf("%w: %s argument %d is not an integer: %q", sm5714.ErrConfigUnavailable, method, i, arg.Raw)
	}
	if arg.Value < 0 || arg.Value > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %s argument %d out of range: %d", sm5714.ErrConfigUnavailable, method, i, arg.Value)
	}
	return uint32(arg.Value), nil
}
