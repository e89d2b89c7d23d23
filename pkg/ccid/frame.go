package ccid

import (
	"encoding/binary"
	"fmt"
)

// headerLen is the fixed CCID message header size.
const headerLen = 10

// Frame is one parsed RDR_to_PC message. Payload is owned by the frame,
// detached from the transport's receive buffer.
type Frame struct {
	MessageType byte
	Slot        byte
	Seq         byte
	Status      byte // bStatus: bmICCStatus | bmCommandStatus
	Error       byte // bError, meaningful when the command failed
	Param       byte // bClockStatus or bChainParameter, per message type
	Payload     []byte
}

// encodeCommand serialises a PC_to_RDR message: header fields plus payload.
func encodeCommand(msgType, slot, seq byte, p [3]byte, payload []byte) []byte {
	out := make([]byte, headerLen+len(payload))
	out[0] = msgType
	binary.LittleEndian.PutUint32(out[1:5], uint32(len(payload)))
	out[5] = slot
	out[6] = seq
	out[7] = p[0]
	out[8] = p[1]
	out[9] = p[2]
	copy(out[headerLen:], payload)
	return out
}

// parseFrame decodes a complete RDR_to_PC message. raw must hold exactly
// the header plus the declared payload; the receive loop guarantees this.
func parseFrame(raw []byte) (*Frame, error) {
	if len(raw) < headerLen {
		return nil, fmt.Errorf("ccid: truncated header (%d bytes)", len(raw))
	}

	declared := binary.LittleEndian.Uint32(raw[1:5])
	if int(declared) != len(raw)-headerLen {
		return nil, fmt.Errorf("ccid: declared length %d, got %d payload bytes",
			declared, len(raw)-headerLen)
	}

	f := &Frame{
		MessageType: raw[0],
		Slot:        raw[5],
		Seq:         raw[6],
		Status:      raw[7],
		Error:       raw[8],
		Param:       raw[9],
	}
	if declared > 0 {
		f.Payload = make([]byte, declared)
		copy(f.Payload, raw[headerLen:])
	}
	return f, nil
}

// commandError surfaces a reader-reported command failure.
func (f *Frame) commandError() error {
	if !commandFailed(f.Status) {
		return nil
	}
	return fmt.Errorf("ccid: slot %d error %#02x: %w", f.Slot, f.Error, ErrCommandFailed)
}
