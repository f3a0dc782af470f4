package charger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputCurrentLimitCode(t *testing.T) {
	for mA := uint(0); mA < 100; mA++ {
		assert.Equal(t, uint16(0), InputCurrentLimitCode(mA), "%d mA", mA)
	}
	tests := []struct {
		mA   uint
		want uint16
	}{
		{mA: 100, want: 0},
		{mA: 124, want: 0},
		{mA: 125, want: 1},
		{mA: 500, want: 16},
		{mA: 1500, want: 56},
		{mA: 3275, want: 127},
		// the field wraps rather than saturates
		{mA: 3300, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InputCurrentLimitCode(tt.mA), "%d mA", tt.mA)
	}
}

func TestChargingCurrentCode(t *testing.T) {
	tests := []struct {
		mA   uint
		want uint16
	}{
		{mA: 0, want: 0x07},
		{mA: 109, want: 0x07},
		{mA: 110, want: 0x07},
		{mA: 125, want: 0x08},
		{mA: 1000, want: 64},
		{mA: 3499, want: 0xDF},
		{mA: 3500, want: 0xE0},
		{mA: 3501, want: 0xE0},
		{mA: 10000, want: 0xE0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChargingCurrentCode(tt.mA), "%d mA", tt.mA)
	}
	for mA := uint(110); mA <= 3500; mA++ {
		uA := mA * 1000
		want := uint16(7 + (uA-109375)/15625)
		got := ChargingCurrentCode(mA)
		assert.Equal(t, want, got, "%d mA", mA)
		assert.GreaterOrEqual(t, got, uint16(0x07))
		assert.LessOrEqual(t, got, uint16(0xE0))
	}
}

func TestTopoffCurrentCode(t *testing.T) {
	for mA := uint(0); mA < 100; mA++ {
		assert.Equal(t, uint16(0), TopoffCurrentCode(mA), "%d mA", mA)
	}
	prev := uint16(0)
	for mA := uint(100); mA < 800; mA++ {
		got := TopoffCurrentCode(mA)
		assert.Equal(t, uint16((mA-100)/25), got, "%d mA", mA)
		assert.GreaterOrEqual(t, got, prev, "non-decreasing at %d mA", mA)
		assert.LessOrEqual(t, got, MaskTopoffCurrent)
		prev = got
	}
	for _, mA := range []uint{800, 801, 1000, 5000} {
		assert.Equal(t, uint16(0x1C), TopoffCurrentCode(mA), "%d mA", mA)
	}
}
