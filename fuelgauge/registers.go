package fuelgauge

// DefaultAddress is the 7-bit bus address of the fuel gauge block.
const DefaultAddress = 0x71

// Top-level registers.
const (
	RegDeviceID  byte = 0x00
	RegCtrl      byte = 0x01
	RegIntFG     byte = 0x02
	RegStatus    byte = 0x03
	RegIntFGMask byte = 0x04
	RegSRAMProt  byte = 0x8B
	RegSRAMRAddr byte = 0x8C
	RegSRAMRData byte = 0x8D
	RegSRAMWAddr byte = 0x8E
	RegSRAMWData byte = 0x8F
)

// SRAM sub-addresses reached through RegSRAMRAddr/RegSRAMRData.
const (
	SRAMSoC         byte = 0x00
	SRAMOCV         byte = 0x01
	SRAMVBat        byte = 0x03
	SRAMVSys        byte = 0x04
	SRAMCurrent     byte = 0x05
	SRAMTemperature byte = 0x07
	SRAMVBatAvg     byte = 0x08
	SRAMCurrentAvg  byte = 0x09
	SRAMState       byte = 0x15
	SRAMSoCCycle    byte = 0x87
)
