// Package battery defines the host battery class protocol a battery miniport
// answers to.
package battery

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnsupported is returned for request levels the miniport does not implement.
	ErrUnsupported = errors.New("battery: request not supported")
	// ErrInvalidParameter is returned when a request is missing its value.
	ErrInvalidParameter = errors.New("battery: invalid parameter")
)

// Tag identifies one hardware session of a battery. It changes every time
// the hardware is reinitialized.
type Tag uint32

// TagInvalid is never handed out as a valid tag.
const TagInvalid Tag = 0

// Next returns the tag following t, skipping TagInvalid.
func (t Tag) Next() Tag {
	t++
	if t == TagInvalid {
		t++
	}
	return t
}

type PowerState uint32

const (
	PowerOnLine PowerState = 0x00000001
	Discharging PowerState = 0x00000002
	Charging    PowerState = 0x00000004
	Critical    PowerState = 0x00000008
)

func (p PowerState) String() string {
	switch p {
	case PowerOnLine:
		return "on line"
	case Discharging:
		return "discharging"
	case Charging:
		return "charging"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("power state %#x", uint32(p))
	}
}

// Attribute flags the fields of a Status that could not be determined.
type Attribute uint8

const (
	AttrCapacity Attribute = 1 << iota
	AttrVoltage
	AttrRate
	AttrPowerState
)

type Status struct {
	PowerState PowerState `yaml:"power_state"`
	Capacity   uint32     `yaml:"capacity_mwh"`
	Voltage    uint32     `yaml:"voltage_mv"`
	Rate       int32      `yaml:"rate_mw"`
	// Declined lists attributes whose reads failed. They are left zero.
	Declined Attribute `yaml:"declined,omitempty"`
}

func (s Status) Has(a Attribute) bool {
	return s.Declined&a == 0
}

const CapabilitySystemBattery uint32 = 0x80000000

type Information struct {
	Capabilities        uint32 `yaml:"capabilities"`
	Technology          uint8  `yaml:"technology"`
	Chemistry           string `yaml:"chemistry"`
	DesignedCapacity    uint32 `yaml:"designed_capacity_mwh"`
	FullChargedCapacity uint32 `yaml:"full_charged_capacity_mwh"`
	DefaultAlert1       uint32 `yaml:"default_alert1_mwh"`
	DefaultAlert2       uint32 `yaml:"default_alert2_mwh"`
	CriticalBias        uint32 `yaml:"critical_bias_mwh"`
	CycleCount          uint32 `yaml:"cycle_count"`
}

type ReportingScale struct {
	Granularity uint32 `yaml:"granularity"`
	Capacity    uint32 `yaml:"capacity"`
}

type QueryLevel int

const (
	LevelInformation QueryLevel = iota
	LevelGranularity
	LevelTemperature
	LevelEstimatedTime
	LevelDeviceName
	LevelManufactureDate
	LevelManufactureName
	LevelUniqueID
	LevelSerialNumber
)

var queryLevelNames = map[QueryLevel]string{
	LevelInformation:     "information",
	LevelGranularity:     "granularity",
	LevelTemperature:     "temperature",
	LevelEstimatedTime:   "estimated-time",
	LevelDeviceName:      "device-name",
	LevelManufactureDate: "manufacture-date",
	LevelManufactureName: "manufacture-name",
	LevelUniqueID:        "unique-id",
	LevelSerialNumber:    "serial-number",
}

func (l QueryLevel) String() string {
	if name, ok := queryLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level %d", int(l))
}

// ParseQueryLevel maps a level name back to its value.
func ParseQueryLevel(name string) (QueryLevel, error) {
	for l, n := range queryLevelNames {
		if n == name {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown level %q", ErrUnsupported, name)
}

// QueryResult carries the answer to one information level. Only the field
// matching Level is set.
type QueryResult struct {
	Level       QueryLevel
	Information *Information     `yaml:",omitempty"`
	Scales      []ReportingScale `yaml:",omitempty"`
	Temperature int              `yaml:",omitempty"` // degrees Celsius
	Text        string           `yaml:",omitempty"`
	Date        time.Time        `yaml:",omitempty"`
}

type SetLevel int

const (
	SetCriticalBias SetLevel = iota
	SetCharge
	SetDischarge
	SetChargingSource
	SetChargerID
	SetChargerStatus
)

// ChargingSource describes the supply the host selected.
type ChargingSource struct {
	Type       int
	MaxCurrent uint32 // mA
}

// Notify holds the thresholds a host wants to be notified about.
type Notify struct {
	PowerState   PowerState
	LowCapacity  uint32
	HighCapacity uint32
}

// Miniport is the capability a battery device registers with the host.
// Every tagged call fails with sm5714.ErrInvalidSession when the tag is stale.
type Miniport interface {
	QueryTag(ctx context.Context) (Tag, error)
	QueryInformation(ctx context.Context, tag Tag, level QueryLevel, atRate int32) (QueryResult, error)
	SetInformation(ctx context.Context, tag Tag, level SetLevel, value any) error
	QueryStatus(ctx context.Context, tag Tag) (Status, error)
	SetStatusNotify(ctx context.Context, tag Tag, notify Notify) error
	DisableStatusNotify(ctx context.Context) error
}

// Registrar accepts miniports at startup.
type Registrar interface {
	Register(ctx context.Context, m Miniport) error
}
