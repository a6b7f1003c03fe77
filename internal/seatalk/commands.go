// Package seatalk names SeaTalk command bytes and annotates the handful of
// datagrams a bus monitor is usually watched for. It does not validate
// datagrams.
package seatalk

// Bus parameters
const (
	DefaultBaudRate = 4800
	DefaultDevice   = "/dev/ttyAMA0"
)

// Command bytes
const (
	CmdDepth            = 0x00
	CmdApparentWindAng  = 0x10
	CmdApparentWindSpd  = 0x11
	CmdSpeedThroughWtr  = 0x20
	CmdTripMileage      = 0x21
	CmdTotalMileage     = 0x22
	CmdWaterTemperature = 0x23
	CmdTotalTripMileage = 0x25
	CmdSpeedThroughWtr2 = 0x26
	CmdWaterTemp2       = 0x27
	CmdLatitude         = 0x50
	CmdLongitude        = 0x51
	CmdSpeedOverGround  = 0x52
	CmdCourseOverGround = 0x53
	CmdGMTTime          = 0x54
	CmdDate             = 0x56
	CmdAutopilotStatus  = 0x84
	CmdCompassHeading   = 0x89
	CmdHeadingRudder    = 0x9C
)

// CommandName returns a human-readable name for a command byte
func CommandName(cmd byte) string {
	switch cmd {
	case CmdDepth:
		return "depth"
	case CmdApparentWindAng:
		return "apparent wind angle"
	case CmdApparentWindSpd:
		return "apparent wind speed"
	case CmdSpeedThroughWtr, CmdSpeedThroughWtr2:
		return "speed through water"
	case CmdTripMileage:
		return "trip mileage"
	case CmdTotalMileage:
		return "total mileage"
	case CmdWaterTemperature, CmdWaterTemp2:
		return "water temperature"
	case CmdTotalTripMileage:
		return "total and trip mileage"
	case CmdLatitude:
		return "latitude"
	case CmdLongitude:
		return "longitude"
	case CmdSpeedOverGround:
		return "speed over ground"
	case CmdCourseOverGround:
		return "course over ground"
	case CmdGMTTime:
		return "GMT time"
	case CmdDate:
		return "date"
	case CmdAutopilotStatus:
		return "autopilot status"
	case CmdCompassHeading:
		return "compass heading"
	case CmdHeadingRudder:
		return "compass heading and rudder"
	default:
		return "unknown"
	}
}
