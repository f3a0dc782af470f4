package charger

// InputCurrentLimitCode encodes the VBUS input current limit in 25 mA steps
// from a 100 mA floor.
func InputCurrentLimitCode(mA uint) uint16 {
	if mA < 100 {
		return 0
	}
	return uint16((mA-100)/25) & 0x7F
}

// ChargingCurrentCode encodes the fast charge current in 15.625 mA steps from
// 109.375 mA (code 0x07), pinned to [0x07, 0xE0].
func ChargingCurrentCode(mA uint) uint16 {
	uA := uint64(mA) * 1000
	switch {
	case uA < 109375:
		return 0x07
	case uA > 3500000:
		return 0xE0
	}
	return uint16(7+(uA-109375)/15625) & 0xFF
}

// TopoffCurrentCode encodes the end of charge current in 25 mA steps from
// 100 mA, pinned to 0x1C from 800 mA up.
func TopoffCurrentCode(mA uint) uint16 {
	switch {
	case mA < 100:
		return 0
	case mA < 800:
		return uint16((mA - 100) / 25)
	}
	return 0x1C
}

func autostopBits(enabled bool) uint16 {
	if enabled {
		return MaskAutostop
	}
	return 0
}

func chargeEnableBits(enabled bool) uint16 {
	if enabled {
		return MaskChargeEnable
	}
	return 0
}
