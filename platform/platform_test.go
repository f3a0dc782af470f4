package platform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/sm5714"
	"github.com/mklimuk/sm5714/charger"
)

const board = `
buses:
  pmic:
    device: /dev/i2c-1
    address: 0x49
  fuelgauge:
    address: 0x71
methods:
  BATT: [5000, 4800, 1, 3850]
  PMIC: [1, 1500, 1000, 200]
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(t, os.WriteFile(path, []byte(board), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x49), f.Buses.PMIC.Address)
	assert.Equal(t, "/dev/i2c-1", f.Buses.PMIC.Device)
	assert.Equal(t, uint8(0x71), f.Buses.FuelGauge.Address)

	c, err := FetchCapacity(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, Capacity{DesignedCapacity: 5000, FullChargedCapacity: 4800, Technology: 1, DesignVoltage: 3850}, c)

	cfg, err := FetchChargerConfig(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, charger.Config{Autostop: true, InputCurrentLimit: 1500, ChargingCurrent: 1000, TopoffCurrent: 200}, cfg)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFetchCapacity(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    Capacity
		wantErr bool
	}{
		{
			name: "two arguments",
			doc:  "methods: {BATT: [3000, 2900]}",
			want: Capacity{DesignedCapacity: 3000, FullChargedCapacity: 2900},
		},
		{
			name: "three arguments",
			doc:  "methods: {BATT: [3000, 2900, 1]}",
			want: Capacity{DesignedCapacity: 3000, FullChargedCapacity: 2900, Technology: 1},
		},
		{
			name: "optional argument not an integer",
			doc:  "methods: {BATT: [3000, 2900, LION, 3700]}",
			want: Capacity{DesignedCapacity: 3000, FullChargedCapacity: 2900, DesignVoltage: 3700},
		},
		{
			name:    "one argument",
			doc:     "methods: {BATT: [3000]}",
			wantErr: true,
		},
		{
			name:    "required argument not an integer",
			doc:     "methods: {BATT: [3000, full]}",
			wantErr: true,
		},
		{
			name:    "negative capacity",
			doc:     "methods: {BATT: [-1, 2900]}",
			wantErr: true,
		},
		{
			name:    "not a package",
			doc:     "methods: {BATT: 3000}",
			wantErr: true,
		},
		{
			name:    "missing method",
			doc:     "methods: {PMIC: [1, 2, 3, 4]}",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Parse([]byte(tt.doc))
			require.NoError(t, err)
			c, err := FetchCapacity(context.Background(), f)
			if tt.wantErr {
				assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestFetchChargerConfig(t *testing.T) {
	cfg, err := FetchChargerConfig(context.Background(), Static{MethodPMIC: {0, 500, 2000, 100, 99}})
	require.NoError(t, err)
	assert.Equal(t, charger.Config{InputCurrentLimit: 500, ChargingCurrent: 2000, TopoffCurrent: 100}, cfg)

	cfg, err = FetchChargerConfig(context.Background(), Static{MethodPMIC: {7, 500, 2000, 100}})
	require.NoError(t, err)
	assert.True(t, cfg.Autostop)

	for _, args := range [][]int64{{1, 500, 2000}, {}, {1, -500, 2000, 100}} {
		_, err = FetchChargerConfig(context.Background(), Static{MethodPMIC: args})
		assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable, "%v", args)
	}
	_, err = FetchChargerConfig(context.Background(), Static{})
	assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)

	f, err := Parse([]byte("methods: {PMIC: [1, 1500, high, 200]}"))
	require.NoError(t, err)
	_, err = FetchChargerConfig(context.Background(), f)
	assert.ErrorIs(t, err, sm5714.ErrConfigUnavailable)
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse([]byte("buses: [1, 2"))
	assert.Error(t, err)
}
