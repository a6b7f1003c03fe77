package seatalk

import "fmt"

// Describe returns a one-line reading for the datagrams it knows, or "" for
// anything else. data starts with the command byte.
func Describe(data []byte) string {
	if len(data) == 0 {
		return ""
	}

	switch data[0] {
	case CmdSpeedThroughWtr:
		// 20 01 XX XX: XXXX/10 knots
		if len(data) < 4 {
			return ""
		}
		return fmt.Sprintf("STW = %s kn", tenths(word(data[2], data[3])))

	case CmdTripMileage:
		// 21 02 XX XX 0X: XXXXX/100 nautical miles
		if len(data) < 5 {
			return ""
		}
		v := uint32(data[4]&0x0F)<<16 | uint32(word(data[2], data[3]))
		return fmt.Sprintf("Trip mileage = %d.%02d nm", v/100, v%100)

	case CmdTotalMileage:
		// 22 02 XX XX 00: XXXX/10 nautical miles
		if len(data) < 4 {
			return ""
		}
		return fmt.Sprintf("Total mileage = %s nm", tenths(word(data[2], data[3])))

	case CmdWaterTemperature:
		// 23 Z1 XX YY: XX degrees Celsius, YY degrees Fahrenheit
		if len(data) < 4 {
			return ""
		}
		return fmt.Sprintf("Water temperature = %d C", int8(data[2]))

	case CmdCompassHeading:
		// 89 U2 VW XY 2Z
		if len(data) < 3 {
			return ""
		}
		return fmt.Sprintf("HDG = %d", heading(data[1], data[2]))

	case CmdHeadingRudder:
		// 9C U1 VW RR
		if len(data) < 3 {
			return ""
		}
		return fmt.Sprintf("HDG2 = %d", heading(data[1], data[2]))
	}

	return ""
}

// word combines a little-endian byte pair.
func word(lo, hi byte) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

func tenths(v uint16) string {
	return fmt.Sprintf("%d.%d", v/10, v%10)
}

// heading decodes the U nibble (upper half of b1) and VW byte:
// (U & 0x3)*90 + (VW & 0x3F)*2 plus 0, 1 or 2 from U & 0xC.
func heading(b1, vw byte) int {
	u := int(b1 >> 4)
	h := (u&0x3)*90 + int(vw&0x3F)*2
	switch u & 0xC {
	case 0x4, 0x8:
		h++
	case 0xC:
		h += 2
	}
	return h
}
