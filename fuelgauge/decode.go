package fuelgauge

// extendOrders scales fixed-point values to one decimal place.
const extendOrders = 10

// DecodeSoC converts an 8.8 fixed-point state of charge to tenths of a percent.
func DecodeSoC(raw uint16) uint {
	hi := uint(raw >> 8)
	lo := uint(raw & 0xFF)
	return hi*extendOrders + lo*extendOrders/256
}

// DecodeVoltage converts a 3.11 fixed-point voltage to mV.
func DecodeVoltage(raw uint16) uint {
	volts := uint(raw&0x3800) >> 11
	frac := uint(raw & 0x07FF)
	return volts*1000 + frac*1000/2048
}

// DecodeCurrent converts a signed-magnitude 2.11 fixed-point current to mA.
// Bit 15 marks discharge.
func DecodeCurrent(raw uint16) int {
	amps := int(raw&0x1800) >> 11
	frac := int(raw & 0x07FF)
	ma := amps*1000 + frac*1000/2048
	if raw&0x8000 != 0 {
		return -ma
	}
	return ma
}

// DecodeTemperature converts a signed-magnitude temperature to whole degrees
// Celsius. The fraction is resolved to tenths and then truncated toward zero.
func DecodeTemperature(raw uint16) int {
	return DecodeTemperatureTenths(raw) / extendOrders
}

// DecodeTemperatureTenths keeps the tenths that DecodeTemperature drops.
func DecodeTemperatureTenths(raw uint16) int {
	deg := int(raw&0x7FFF) >> 8
	frac := int(raw & 0x00F0)
	t := deg*extendOrders + frac*extendOrders/256
	if raw&0x8000 != 0 {
		return -t
	}
	return t
}

func DecodeCycleCount(raw uint16) uint {
	return uint(raw & 0xFF)
}
