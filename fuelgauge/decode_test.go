package fuelgauge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSoC(t *testing.T) {
	tests := []struct {
		raw  uint16
		want uint
	}{
		{raw: 0x1E00, want: 300},
		{raw: 0x6400, want: 1000},
		{raw: 0x0000, want: 0},
		{raw: 0x1E80, want: 305},
		{raw: 0x1EFF, want: 309},
		{raw: 0x001A, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeSoC(tt.raw), "raw %#04x", tt.raw)
	}
}

func TestDecodeVoltage(t *testing.T) {
	tests := []struct {
		raw  uint16
		want uint
	}{
		{raw: 0x1800, want: 3000},
		{raw: 0x2000, want: 4000},
		{raw: 0x1C00, want: 3500},
		{raw: 0x1FFF, want: 3999},
		{raw: 0x3FFF, want: 7999},
		// bits above the integer field are ignored
		{raw: 0xD800, want: 3000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeVoltage(tt.raw), "raw %#04x", tt.raw)
	}
}

func TestDecodeCurrent(t *testing.T) {
	tests := []struct {
		raw  uint16
		want int
	}{
		{raw: 0x0800, want: 1000},
		{raw: 0x8800, want: -1000},
		{raw: 0x0400, want: 500},
		{raw: 0x8400, want: -500},
		{raw: 0x1FFF, want: 3999},
		{raw: 0x0000, want: 0},
		{raw: 0x8000, want: 0},
		{raw: 0x0011, want: 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeCurrent(tt.raw), "raw %#04x", tt.raw)
	}
}

func TestDecodeTemperature(t *testing.T) {
	tests := []struct {
		raw    uint16
		tenths int
		want   int
	}{
		{raw: 0x1900, tenths: 250, want: 25},
		{raw: 0x19F0, tenths: 259, want: 25},
		{raw: 0x1980, tenths: 255, want: 25},
		{raw: 0x8500, tenths: -50, want: -5},
		{raw: 0x85F0, tenths: -59, want: -5},
		// the low nibble carries no weight
		{raw: 0x190F, tenths: 250, want: 25},
		{raw: 0x0000, tenths: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.tenths, DecodeTemperatureTenths(tt.raw), "raw %#04x", tt.raw)
		assert.Equal(t, tt.want, DecodeTemperature(tt.raw), "raw %#04x", tt.raw)
	}
}

func TestDecodeCycleCount(t *testing.T) {
	assert.Equal(t, uint(0), DecodeCycleCount(0x0000))
	assert.Equal(t, uint(42), DecodeCycleCount(0x002A))
	assert.Equal(t, uint(255), DecodeCycleCount(0xFFFF))
	assert.Equal(t, uint(1), DecodeCycleCount(0x8001))
}
