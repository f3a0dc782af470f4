package charger

// DefaultAddress is the 7-bit bus address of the charger block.
const DefaultAddress = 0x49

const (
	RegStatus1  byte = 0x0D
	RegStatus2  byte = 0x0E
	RegStatus3  byte = 0x0F
	RegStatus4  byte = 0x10
	RegStatus5  byte = 0x11
	RegCntl1    byte = 0x13
	RegVBusCntl byte = 0x15
	RegChgCntl2 byte = 0x18
	RegChgCntl4 byte = 0x1A
	RegChgCntl5 byte = 0x1B
)

// Field masks.
const (
	MaskChargeEnable      uint16 = 0x08
	MaskInputCurrentLimit uint16 = 0x7F
	MaskChargingCurrent   uint16 = 0xFF
	MaskAutostop          uint16 = 0x40
	MaskTopoffCurrent     uint16 = 0x1F
)
