// Package iso7816 implements the short-length APDU layer of ISO/IEC
// 7816-3/-4 as used by EMV payment applications: command encoding,
// response parsing, status word semantics and a client that resolves the
// T=0 transport behaviours (61XX response chaining, 6CXX length
// correction) before handing data back to the application.
package iso7816

import "fmt"

// Short-length limits per ISO 7816-3. EMV commands never need extended
// length.
const (
	// MaxShortLc is the maximum command data length encodable on one byte.
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length; 0x00 encodes 256.
	MaxShortLe = 256
)

// CommandAPDU represents a command sent to the card.
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
type CommandAPDU struct {
	Cla, Ins, P1, P2 byte
	Data             []byte
	Ne               int // Expected response length (0 means none)
}

// Bytes encodes the command into its C-APDU byte representation.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxShortLc {
		return nil, fmt.Errorf("iso7816: command data of %d bytes exceeds short Lc", nc)
	}
	if c.Ne < 0 || c.Ne > MaxShortLe {
		return nil, fmt.Errorf("iso7816: expected length %d exceeds short Le", c.Ne)
	}

	out := make([]byte, 0, 4+1+nc+1)
	out = append(out, c.Cla, c.Ins, c.P1, c.P2)

	if nc > 0 {
		out = append(out, byte(nc))
		out = append(out, c.Data...)
	}

	if c.Ne > 0 {
		if c.Ne == MaxShortLe {
			out = append(out, 0x00) // 0x00 represents 256
		} else {
			out = append(out, byte(c.Ne))
		}
	}

	return out, nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("CLA: %02X, INS: %02X | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Cla, c.Ins, c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponse parses raw bytes received from the card. The input must
// contain at least the two trailer bytes (SW1, SW2).
func ParseResponse(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("iso7816: response too short: %d bytes", len(raw))
	}

	split := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:split],
		Status: NewStatusWord(raw[split], raw[split+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status)
}
