package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/battery"
	"github.com/mklimuk/sm5714/bus"
	"github.com/mklimuk/sm5714/bus/bustest"
	"github.com/mklimuk/sm5714/charger"
	"github.com/mklimuk/sm5714/fuelgauge"
	"github.com/mklimuk/sm5714/platform"
)

type fixture struct {
	session *Session
	pmic    *bustest.Registers
	gauge   *bustest.Registers
}

func defaultPlatform() platform.Static {
	return platform.Static{
		platform.MethodBattery: {5000, 4800, 1, 3850},
		platform.MethodPMIC:    {1, 1500, 1000, 200},
	}
}

func newFixture(t *testing.T, ev platform.Evaluator, opts ...Opt) *fixture {
	t.Helper()
	f := &fixture{
		pmic:  bustest.NewRegisters(0xFF, 0xFF),
		gauge: bustest.NewRegisters(fuelgauge.RegSRAMRAddr, fuelgauge.RegSRAMRData),
	}
	f.gauge.SRAM[fuelgauge.SRAMSoC] = 0x1E00
	f.gauge.SRAM[fuelgauge.SRAMOCV] = 0x2000
	f.gauge.SRAM[fuelgauge.SRAMCurrent] = 0x0800
	f.gauge.SRAM[fuelgauge.SRAMTemperature] = 0x1900
	f.gauge.SRAM[fuelgauge.SRAMSoCCycle] = 0x0011
	f.session = New(ev, opts...)
	return f
}

func (f *fixture) prepare(t *testing.T) battery.Tag {
	t.Helper()
	err := f.session.Prepare(context.Background(),
		bus.New(f.pmic, charger.DefaultAddress, bus.WithName("pmic")),
		bus.New(f.gauge, fuelgauge.DefaultAddress, bus.WithName("fuelgauge")))
	require.NoError(t, err)
	tag, err := f.session.QueryTag(context.Background())
	require.NoError(t, err)
	return tag
}

func TestSession_TagLifecycle(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	ctx := context.Background()

	_, err := f.session.QueryTag(ctx)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)

	first := f.prepare(t)
	assert.Equal(t, battery.Tag(1), first)

	require.NoError(t, f.session.Release(ctx))
	assert.Equal(t, battery.TagInvalid, f.session.Tag())
	_, err = f.session.QueryStatus(ctx, first)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)

	second := f.prepare(t)
	assert.Equal(t, battery.Tag(2), second)
	_, err = f.session.QueryStatus(ctx, first)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
	_, err = f.session.QueryStatus(ctx, second)
	assert.NoError(t, err)
}

func TestSession_PrepareWithoutCapacity(t *testing.T) {
	tests := []struct {
		name string
		ev   platform.Evaluator
	}{
		{name: "missing method", ev: platform.Static{}},
		{name: "short package", ev: platform.Static{platform.MethodBattery: {5000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.ev)
			err := f.session.Prepare(context.Background(), bus.New(f.pmic, charger.DefaultAddress))
			assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)
			assert.Equal(t, battery.TagInvalid, f.session.Tag())
		})
	}
}

func TestSession_PrepareTooManyBuses(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	c := bus.New(f.pmic, charger.DefaultAddress)
	err := f.session.Prepare(context.Background(), c, c, c)
	assert.Error(t, err)
}

func TestSession_QueryStatus(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	tag := f.prepare(t)

	status, err := f.session.QueryStatus(context.Background(), tag)
	require.NoError(t, err)
	assert.Equal(t, battery.Status{
		PowerState: battery.PowerOnLine,
		Capacity:   1440,
		Voltage:    4000,
		Rate:       4000,
	}, status)
}

func TestSession_PowerStateThreshold(t *testing.T) {
	tests := []struct {
		raw  uint16
		want battery.PowerState
		rate int32
	}{
		{raw: 0x0010, want: battery.Discharging, rate: 28},
		{raw: 0x0011, want: battery.PowerOnLine, rate: 32},
		{raw: 0x8800, want: battery.Discharging, rate: -4000},
		{raw: 0x0000, want: battery.Discharging, rate: 0},
	}
	for _, tt := range tests {
		f := newFixture(t, defaultPlatform())
		f.gauge.SRAM[fuelgauge.SRAMCurrent] = tt.raw
		tag := f.prepare(t)
		status, err := f.session.QueryStatus(context.Background(), tag)
		require.NoError(t, err)
		assert.Equal(t, tt.want, status.PowerState, "raw %#04x", tt.raw)
		assert.Equal(t, tt.rate, status.Rate, "raw %#04x", tt.raw)
	}
}

func TestSession_QueryStatusDeclines(t *testing.T) {
	tests := []struct {
		name     string
		sub      byte
		declined battery.Attribute
	}{
		{name: "soc", sub: fuelgauge.SRAMSoC, declined: battery.AttrCapacity},
		{name: "voltage", sub: fuelgauge.SRAMOCV, declined: battery.AttrVoltage | battery.AttrRate},
		{name: "current", sub: fuelgauge.SRAMCurrent, declined: battery.AttrRate | battery.AttrPowerState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, defaultPlatform())
			f.gauge.FailSRAM[tt.sub] = errors.New("nack")
			tag := f.prepare(t)
			status, err := f.session.QueryStatus(context.Background(), tag)
			require.NoError(t, err)
			assert.Equal(t, tt.declined, status.Declined)
			if !status.Has(battery.AttrRate) {
				assert.Zero(t, status.Rate)
			}
		})
	}
}

func TestSession_QueryInformation(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	tag := f.prepare(t)
	ctx := context.Background()

	res, err := f.session.QueryInformation(ctx, tag, battery.LevelInformation, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Information)
	assert.Equal(t, battery.Information{
		Capabilities:        battery.CapabilitySystemBattery,
		Technology:          1,
		Chemistry:           "LION",
		DesignedCapacity:    5000,
		FullChargedCapacity: 4800,
		DefaultAlert1:       336,
		DefaultAlert2:       432,
		CycleCount:          17,
	}, *res.Information)

	texts := map[battery.QueryLevel]string{
		battery.LevelUniqueID:        "SM5714FG",
		battery.LevelManufactureName: "SS",
		battery.LevelDeviceName:      "SM5714",
		battery.LevelSerialNumber:    "5714",
	}
	for level, want := range texts {
		res, err := f.session.QueryInformation(ctx, tag, level, 0)
		require.NoError(t, err)
		assert.Equal(t, want, res.Text, level.String())
	}

	res, err = f.session.QueryInformation(ctx, tag, battery.LevelManufactureDate, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, time.September, 1, 0, 0, 0, 0, time.UTC), res.Date)

	res, err = f.session.QueryInformation(ctx, tag, battery.LevelGranularity, 0)
	require.NoError(t, err)
	assert.Equal(t, []battery.ReportingScale{{Capacity: 3850, Granularity: 1}}, res.Scales)

	res, err = f.session.QueryInformation(ctx, tag, battery.LevelTemperature, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, res.Temperature)

	_, err = f.session.QueryInformation(ctx, tag, battery.LevelEstimatedTime, 0)
	assert.ErrorIs(t, err, battery.ErrUnsupported)
}

func TestSession_QueryInformationSingleAttributeFailure(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	f.gauge.FailSRAM[fuelgauge.SRAMTemperature] = errors.New("nack")
	f.gauge.FailSRAM[fuelgauge.SRAMSoCCycle] = errors.New("nack")
	tag := f.prepare(t)

	_, err := f.session.QueryInformation(context.Background(), tag, battery.LevelTemperature, 0)
	assert.ErrorIs(t, err, sm5714.ErrBusTransport)

	res, err := f.session.QueryInformation(context.Background(), tag, battery.LevelInformation, 0)
	require.NoError(t, err)
	assert.Zero(t, res.Information.CycleCount)
}

func TestSession_StaleTagHasNoSideEffects(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	tag := f.prepare(t)
	stale := tag + 1
	ctx := context.Background()
	pmicWrites := len(f.pmic.Writes)
	gaugeWrites := len(f.gauge.Writes)

	_, err := f.session.QueryStatus(ctx, stale)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
	_, err = f.session.QueryInformation(ctx, stale, battery.LevelTemperature, 0)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
	err = f.session.SetInformation(ctx, stale, battery.SetCharge, nil)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
	err = f.session.SetStatusNotify(ctx, stale, battery.Notify{})
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)

	assert.Len(t, f.pmic.Writes, pmicWrites)
	assert.Len(t, f.gauge.Writes, gaugeWrites)
	assert.Equal(t, tag, f.session.Tag())
}

func TestSession_SetInformation(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	tag := f.prepare(t)
	ctx := context.Background()

	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetCharge, nil))
	assert.Equal(t, charger.MaskChargeEnable, f.pmic.Regs[charger.RegCntl1]&charger.MaskChargeEnable)
	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetDischarge, nil))
	assert.Zero(t, f.pmic.Regs[charger.RegCntl1]&charger.MaskChargeEnable)

	err := f.session.SetInformation(ctx, tag, battery.SetCriticalBias, nil)
	assert.ErrorIs(t, err, battery.ErrInvalidParameter)
	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetCriticalBias, uint32(10)))
	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetChargingSource, battery.ChargingSource{Type: 1, MaxCurrent: 500}))
	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetChargerID, [16]byte{}))
	require.NoError(t, f.session.SetInformation(ctx, tag, battery.SetChargerStatus, struct{}{}))
	err = f.session.SetInformation(ctx, tag, battery.SetLevel(42), uint32(1))
	assert.ErrorIs(t, err, battery.ErrUnsupported)
}

func TestSession_StatusNotifyUnsupported(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	tag := f.prepare(t)
	assert.ErrorIs(t, f.session.SetStatusNotify(context.Background(), tag, battery.Notify{LowCapacity: 100}), battery.ErrUnsupported)
	assert.ErrorIs(t, f.session.DisableStatusNotify(context.Background()), battery.ErrUnsupported)
}

func TestSession_PowerUp(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	f.prepare(t)
	ctx := context.Background()

	require.NoError(t, f.session.PowerUp(ctx))
	assert.Equal(t, uint16(0x40), f.pmic.Regs[charger.RegChgCntl4])
	assert.Equal(t, uint16(56), f.pmic.Regs[charger.RegVBusCntl])
	assert.Equal(t, uint16(64), f.pmic.Regs[charger.RegChgCntl2])
	assert.Equal(t, uint16(4), f.pmic.Regs[charger.RegChgCntl5])
	assert.Equal(t, uint16(0x08), f.pmic.Regs[charger.RegCntl1])

	require.NoError(t, f.session.PowerDown(ctx, false))
	assert.Equal(t, uint16(0x08), f.pmic.Regs[charger.RegCntl1])
	require.NoError(t, f.session.PowerDown(ctx, true))
	assert.Equal(t, uint16(0x00), f.pmic.Regs[charger.RegCntl1])
}

func TestSession_PowerUpWithoutConfig(t *testing.T) {
	f := newFixture(t, platform.Static{platform.MethodBattery: {5000, 4800}})
	f.prepare(t)

	err := f.session.PowerUp(context.Background())
	assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)
	assert.Zero(t, f.pmic.WriteCount())
}

func TestSession_PowerUpWithoutCharger(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	require.NoError(t, f.session.Prepare(context.Background(), nil, bus.New(f.gauge, fuelgauge.DefaultAddress)))
	assert.ErrorIs(t, f.session.PowerUp(context.Background()), ErrNoCharger)
	assert.ErrorIs(t, f.session.PowerDown(context.Background(), true), ErrNoCharger)
}

func TestSession_RegisterAccess(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	f.prepare(t)
	ctx := context.Background()

	require.NoError(t, f.session.WriteRegister(ctx, BusPMIC, charger.RegChgCntl2, 0x1234))
	v, err := f.session.ReadRegister(ctx, BusPMIC, charger.RegChgCntl2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
	require.NoError(t, f.session.UpdateRegister(ctx, BusPMIC, charger.RegChgCntl2, 0x00FF, 0x0056))
	assert.Equal(t, uint16(0x1256), f.pmic.Regs[charger.RegChgCntl2])

	assert.Panics(t, func() { _, _ = f.session.ReadRegister(ctx, MaxBuses, 0x00) })
	assert.Panics(t, func() { _ = f.session.WriteRegister(ctx, -1, 0x00, 0) })
	assert.Panics(t, func() { f.session.Conn(2) })
	assert.Equal(t, "pmic", f.session.Conn(BusPMIC).Name())

	require.NoError(t, f.session.Release(ctx))
	_, err = f.session.ReadRegister(ctx, BusPMIC, 0x00)
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestSession_MockGauge(t *testing.T) {
	g := fuelgauge.NewMockGauge(fuelgauge.StaticSRAM(map[byte]uint16{
		fuelgauge.SRAMSoC:     0x6400,
		fuelgauge.SRAMOCV:     0x2000,
		fuelgauge.SRAMCurrent: 0x8400,
	}))
	f := newFixture(t, defaultPlatform(), WithGauge(g))
	require.NoError(t, f.session.Prepare(context.Background(), bus.New(f.pmic, charger.DefaultAddress)))
	tag := f.session.Tag()

	status, err := f.session.QueryStatus(context.Background(), tag)
	require.NoError(t, err)
	assert.Equal(t, uint32(4800), status.Capacity)
	assert.Equal(t, int32(-2000), status.Rate)
	assert.Equal(t, battery.Discharging, status.PowerState)
}

func TestSession_RegisterWithPoller(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	f.prepare(t)
	p := battery.NewPoller(time.Millisecond, nil)
	require.NoError(t, f.session.Register(context.Background(), p))

	res := p.PollOnce(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, uint32(1440), res.Status.Capacity)
}

func TestSession_PrepareAgainClosesDroppedEndpoints(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	ctx := context.Background()
	pmic := bus.New(f.pmic, charger.DefaultAddress)
	gauge := bus.New(f.gauge, fuelgauge.DefaultAddress)
	require.NoError(t, f.session.Prepare(ctx, pmic, gauge))
	first := f.session.Tag()

	require.NoError(t, f.session.Prepare(ctx, pmic))
	second := f.session.Tag()
	assert.Greater(t, second, first)

	// the gauge endpoint is closed and no longer attached
	err := gauge.ReadSync(ctx, fuelgauge.RegDeviceID, make([]byte, 2))
	assert.ErrorIs(t, err, bus.ErrClosed)
	_, err = f.session.ReadRegister(ctx, BusFuelGauge, fuelgauge.RegDeviceID)
	assert.ErrorIs(t, err, ErrNotAttached)
	_, err = f.session.QueryInformation(ctx, second, battery.LevelTemperature, 0)
	assert.ErrorIs(t, err, ErrNoGauge)

	// the endpoint passed again stays open
	_, err = f.session.ReadRegister(ctx, BusPMIC, charger.RegCntl1)
	assert.NoError(t, err)
}

func TestSession_PrepareAgainFailureInvalidatesTag(t *testing.T) {
	ev := defaultPlatform()
	f := newFixture(t, ev)
	ctx := context.Background()
	tag := f.prepare(t)

	delete(ev, platform.MethodBattery)
	err := f.session.Prepare(ctx, bus.New(f.pmic, charger.DefaultAddress))
	assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)
	assert.Equal(t, battery.TagInvalid, f.session.Tag())
	_, err = f.session.QueryStatus(ctx, tag)
	assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
}

func TestSession_TagsNeverRepeat(t *testing.T) {
	f := newFixture(t, defaultPlatform())
	ctx := context.Background()
	seen := map[battery.Tag]bool{}
	for range 5 {
		tag := f.prepare(t)
		assert.False(t, seen[tag], "tag %d issued twice", tag)
		seen[tag] = true
		require.NoError(t, f.session.Release(ctx))
		_, err := f.session.QueryStatus(ctx, tag)
		assert.ErrorIs(t, err, sm5714.ErrInvalidSession)
	}
}
