package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/battery"
)

const (
	chemistry       = "LION"
	uniqueID        = "SM5714FG"
	manufactureName = "SS"
	deviceName      = "SM5714"
	serialNumber    = "5714"
)

var manufactureDate = time.Date(2021, time.September, 1, 0, 0, 0, 0, time.UTC)

// onLineCurrent is the current (mA) from which the battery is reported as on
// external power. Charger source detection is not consulted.
const onLineCurrent = 8

// checkTag must be called with stateMx held.
func (s *Session) checkTag(tag battery.Tag) error {
	if s.tag == battery.TagInvalid || tag != s.tag {
		return fmt.Errorf("%w: tag %d, current %d", sm5714.ErrInvalidSession, tag, s.tag)
	}
	return nil
}

func (s *Session) QueryTag(ctx context.Context) (battery.Tag, error) {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if s.tag == battery.TagInvalid {
		return battery.TagInvalid, fmt.Errorf("%w: no battery", sm5714.ErrInvalidSession)
	}
	return s.tag, nil
}

func (s *Session) QueryInformation(ctx context.Context, tag battery.Tag, level battery.QueryLevel, atRate int32) (battery.QueryResult, error) {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if err := s.checkTag(tag); err != nil {
		return battery.QueryResult{}, err
	}
	s.log.DebugContext(ctx, "query information", "level", level.String())
	res := battery.QueryResult{Level: level}
	switch level {
	case battery.LevelInformation:
		info := s.information(ctx)
		res.Information = &info
	case battery.LevelUniqueID:
		res.Text = uniqueID
	case battery.LevelManufactureName:
		res.Text = manufactureName
	case battery.LevelDeviceName:
		res.Text = deviceName
	case battery.LevelSerialNumber:
		res.Text = serialNumber
	case battery.LevelManufactureDate:
		res.Date = manufactureDate
	case battery.LevelGranularity:
		// the design voltage is reported in the capacity field of the scale
		res.Scales = []battery.ReportingScale{{Capacity: s.capacity.DesignVoltage, Granularity: 1}}
	case battery.LevelTemperature:
		if s.gauge == nil {
			return battery.QueryResult{}, ErrNoGauge
		}
		t, err := s.gauge.Temperature(ctx)
		if err != nil {
			return battery.QueryResult{}, fmt.Errorf("session: query temperature: %w", err)
		}
		res.Temperature = t
	default:
		return battery.QueryResult{}, fmt.Errorf("%w: query %s", battery.ErrUnsupported, level)
	}
	return res, nil
}

func (s *Session) information(ctx context.Context) battery.Information {
	full := s.capacity.FullChargedCapacity
	info := battery.Information{
		Capabilities:        battery.CapabilitySystemBattery,
		Technology:          s.capacity.Technology,
		Chemistry:           chemistry,
		DesignedCapacity:    s.capacity.DesignedCapacity,
		FullChargedCapacity: full,
		DefaultAlert1:       full * 7 / 100,
		DefaultAlert2:       full * 9 / 100,
		CriticalBias:        0,
	}
	if s.gauge == nil {
		return info
	}
	cycles, err := s.gauge.CycleCount(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "cycle count unavailable", "error", err)
		return info
	}
	info.CycleCount = uint32(cycles)
	return info
}

// QueryStatus reads the gauge and derives the battery status. Quantities that
// cannot be read are declined instead of failing the query.
func (s *Session) QueryStatus(ctx context.Context, tag battery.Tag) (battery.Status, error) {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if err := s.checkTag(tag); err != nil {
		return battery.Status{}, err
	}
	if s.gauge == nil {
		return battery.Status{}, ErrNoGauge
	}

	var status battery.Status
	soc, err := s.gauge.SoC(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "state of charge unavailable", "error", err)
		status.Declined |= battery.AttrCapacity
	} else {
		status.Capacity = uint32(uint64(soc) * uint64(s.capacity.FullChargedCapacity) / 1000)
	}
	mv, err := s.gauge.Voltage(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "voltage unavailable", "error", err)
		status.Declined |= battery.AttrVoltage | battery.AttrRate
	} else {
		status.Voltage = uint32(mv)
	}
	ma, err := s.gauge.Current(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "current unavailable", "error", err)
		status.Declined |= battery.AttrRate | battery.AttrPowerState
	} else {
		status.PowerState = battery.Discharging
		if ma >= onLineCurrent {
			status.PowerState = battery.PowerOnLine
		}
	}
	if status.Has(battery.AttrRate) {
		status.Rate = int32(int64(ma) * int64(mv) / 1000)
	}
	s.log.DebugContext(ctx, "battery status", "power_state", status.PowerState.String(),
		"capacity_mWh", status.Capacity, "voltage_mV", status.Voltage, "rate_mW", status.Rate, "declined", status.Declined)
	return status, nil
}

// SetInformation handles charge control requests. Charge and Discharge
// toggle the charger when one is attached.
func (s *Session) SetInformation(ctx context.Context, tag battery.Tag, level battery.SetLevel, value any) error {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if err := s.checkTag(tag); err != nil {
		return err
	}
	switch level {
	case battery.SetCharge, battery.SetDischarge:
		enable := level == battery.SetCharge
		s.log.InfoContext(ctx, "charge control", "charge", enable)
		if s.charger == nil {
			return nil
		}
		return s.charger.EnableCharging(ctx, enable)
	}
	if value == nil {
		return fmt.Errorf("%w: level %d requires a value", battery.ErrInvalidParameter, level)
	}
	switch level {
	case battery.SetChargingSource:
		if src, ok := value.(battery.ChargingSource); ok {
			s.log.InfoContext(ctx, "charging source", "type", src.Type, "max_current_mA", src.MaxCurrent)
		}
	case battery.SetCriticalBias:
		s.log.InfoContext(ctx, "critical bias", "value", value)
	case battery.SetChargerID:
		s.log.InfoContext(ctx, "charger id", "value", value)
	case battery.SetChargerStatus:
		s.log.InfoContext(ctx, "charger status", "value", value)
	default:
		return fmt.Errorf("%w: set level %d", battery.ErrUnsupported, level)
	}
	return nil
}

func (s *Session) SetStatusNotify(ctx context.Context, tag battery.Tag, notify battery.Notify) error {
	s.stateMx.Lock()
	defer s.stateMx.Unlock()
	if err := s.checkTag(tag); err != nil {
		return err
	}
	return fmt.Errorf("%w: status notify", battery.ErrUnsupported)
}

func (s *Session) DisableStatusNotify(ctx context.Context) error {
	return fmt.Errorf("%w: status notify", battery.ErrUnsupported)
}
