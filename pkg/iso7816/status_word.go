package iso7816

import (
	"fmt"

	"github.com/gregLibert/ccid-utils/pkg/bits"
)

// StatusWord represents the two-byte status trailer (SW1-SW2) returned by
// the card. Most values are static, but 61XX and 6CXX carry a byte count
// in SW2 that the Client consumes to drive the T=0 transport behaviours.
type StatusWord uint16

// NewStatusWord creates a StatusWord instance from two separate bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the first byte (high byte) of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the second byte (low byte) of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsSuccess returns true if the command was processed successfully (9000)
// or if data is available (61XX).
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR || sw.SW1() == 0x61
}

// IsCounter checks if the status carries a retry counter (63CX).
func (sw StatusWord) IsCounter() bool {
	if sw.SW1() != 0x63 {
		return false
	}
	return bits.GetRange(sw.SW2(), 8, 5) == 0x0C
}

func (sw StatusWord) String() string {
	switch {
	case sw == SW_NO_ERROR:
		return "9000 (No Error)"
	case sw.SW1() == 0x61:
		return fmt.Sprintf("%04X (%d bytes available)", uint16(sw), sw.SW2())
	case sw.SW1() == 0x6C:
		return fmt.Sprintf("%04X (wrong length, correct Le is %d)", uint16(sw), sw.SW2())
	case sw.IsCounter():
		return fmt.Sprintf("%04X (counter = %d)", uint16(sw), bits.GetRange(sw.SW2(), 4, 1))
	}
	return fmt.Sprintf("%04X", uint16(sw))
}

// Status word codes defined in ISO/IEC 7816-4 that this layer reacts to.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WRONG_LENGTH         StatusWord = 0x6700
	SW_FUNC_NOT_SUPPORTED   StatusWord = 0x6A81
	SW_FILE_NOT_FOUND       StatusWord = 0x6A82
	SW_RECORD_NOT_FOUND     StatusWord = 0x6A83
	SW_INCORRECT_PARAMETERS StatusWord = 0x6A86
)
