// Package ccid implements the message layer of the USB CCID (Chip/Smart
// Card Interface Device) class: framing and sequencing of PC_to_RDR /
// RDR_to_PC bulk exchanges, per-slot status tracking, and interrupt-driven
// card presence notification.
//
// The package does not talk to the USB stack itself. It drives a Bus, a
// narrow interface over the device's bulk-out, bulk-in and interrupt-in
// endpoints, so the same transport works against libusb-style backends and
// against in-memory fakes in tests.
//
// PROTOCOL SHAPE:
// Every message carries a 10-byte little-endian header:
//
//	offset 0    bMessageType
//	offset 1-4  dwLength (payload bytes following the header)
//	offset 5    bSlot
//	offset 6    bSeq
//	offset 7-9  message specific (voltage, bStatus/bError/bClockStatus, ...)
//
// A command provokes exactly one response whose bSeq must echo the
// command's. The transport enforces the class's single-outstanding-command
// rule: one exchange in flight per device at a time.
package ccid

import "github.com/gregLibert/ccid-utils/pkg/bits"

// Message types used by this transport.
const (
	PCToRDRIccPowerOn    = 0x62
	PCToRDRIccPowerOff   = 0x63
	PCToRDRGetSlotStatus = 0x65
	PCToRDRXfrBlock      = 0x6F

	RDRToPCDataBlock  = 0x80
	RDRToPCSlotStatus = 0x81

	RDRToPCNotifySlotChange = 0x50
	RDRToPCHardwareError    = 0x51
)

// Voltage selects the ICC operating voltage for power-on.
type Voltage byte

// Voltage selectors per the CCID class specification.
const (
	AutoVoltage Voltage = 0x00
	Volts5      Voltage = 0x01
	Volts3      Voltage = 0x02
	Volts1_8    Voltage = 0x03
)

// Status is the card presence state of a slot.
type Status uint8

const (
	// StatusActive means a card is present and powered.
	StatusActive Status = iota
	// StatusPresent means a card is present but not powered.
	StatusPresent
	// StatusNotPresent means the slot is empty.
	StatusNotPresent
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPresent:
		return "present"
	case StatusNotPresent:
		return "not present"
	}
	return "unknown"
}

// ClockStatus is the state of the ICC clock as reported by the reader.
type ClockStatus uint8

const (
	// ClockStart means the clock is running.
	ClockStart ClockStatus = iota
	// ClockStop means the clock is stopped in an unknown state.
	ClockStop
	// ClockStopLow means the clock is stopped low.
	ClockStopLow
	// ClockStopHigh means the clock is stopped high.
	ClockStopHigh
	// ClockError reports a failed status query, not a clock state.
	ClockError
)

func (c ClockStatus) String() string {
	switch c {
	case ClockStart:
		return "running"
	case ClockStop:
		return "stopped"
	case ClockStopLow:
		return "stopped low"
	case ClockStopHigh:
		return "stopped high"
	}
	return "error"
}

// statusFromByte extracts the bmICCStatus field (bits 0-1) of bStatus.
func statusFromByte(b byte) Status {
	switch bits.GetRange(b, 2, 1) {
	case 0:
		return StatusActive
	case 1:
		return StatusPresent
	default:
		return StatusNotPresent
	}
}

// commandFailed reports whether the bmCommandStatus field (bits 6-7) of
// bStatus flags the command as failed.
func commandFailed(b byte) bool {
	return bits.GetRange(b, 8, 7) == 1
}

// clockFromByte maps the bClockStatus response byte to a ClockStatus.
func clockFromByte(b byte) ClockStatus {
	switch b {
	case 0x00:
		return ClockStart
	case 0x01:
		return ClockStopLow
	case 0x02:
		return ClockStopHigh
	case 0x03:
		return ClockStop
	}
	return ClockError
}
