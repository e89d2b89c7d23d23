package ccid

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// fakeBus scripts bulk-in chunks and interrupt notifications, recording
// every bulk-out transfer.
type fakeBus struct {
	sent       [][]byte
	chunks     [][]byte
	interrupts [][]byte
}

func (b *fakeBus) BulkOut(p []byte) error {
	b.sent = append(b.sent, append([]byte(nil), p...))
	return nil
}

func (b *fakeBus) BulkIn(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		return 0, ErrBusTimeout
	}
	chunk := b.chunks[0]
	b.chunks = b.chunks[1:]
	return copy(p, chunk), nil
}

func (b *fakeBus) InterruptIn(ctx context.Context, p []byte) (int, error) {
	if len(b.interrupts) == 0 {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	msg := b.interrupts[0]
	b.interrupts = b.interrupts[1:]
	return copy(p, msg), nil
}

// respond builds a complete RDR_to_PC frame.
func respond(msgType, slot, seq, status, errByte, param byte, payload []byte) []byte {
	raw := make([]byte, headerLen+len(payload))
	raw[0] = msgType
	binary.LittleEndian.PutUint32(raw[1:5], uint32(len(payload)))
	raw[5] = slot
	raw[6] = seq
	raw[7] = status
	raw[8] = errByte
	raw[9] = param
	copy(raw[headerLen:], payload)
	return raw
}

func TestExchangeBuildsCommandFrame(t *testing.T) {
	bus := &fakeBus{chunks: [][]byte{
		respond(RDRToPCDataBlock, 0, 0, 0x00, 0, 0, nil),
	}}
	tr := NewTransport(bus)

	if _, err := tr.Exchange(PCToRDRXfrBlock, 0, [3]byte{}, []byte{0x00, 0xA4}); err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}

	if len(bus.sent) != 1 {
		t.Fatalf("expected 1 bulk-out, got %d", len(bus.sent))
	}
	sent := bus.sent[0]
	if sent[0] != PCToRDRXfrBlock {
		t.Errorf("message type = %#02x, expected %#02x", sent[0], PCToRDRXfrBlock)
	}
	if got := binary.LittleEndian.Uint32(sent[1:5]); got != 2 {
		t.Errorf("dwLength = %d, expected 2", got)
	}
	if sent[5] != 0 || sent[6] != 0 {
		t.Errorf("slot/seq = %d/%d, expected 0/0", sent[5], sent[6])
	}
	if sent[10] != 0x00 || sent[11] != 0xA4 {
		t.Errorf("payload = % X, expected 00 A4", sent[10:])
	}
}

func TestSequenceNumbersAdvancePerSlot(t *testing.T) {
	bus := &fakeBus{chunks: [][]byte{
		respond(RDRToPCSlotStatus, 0, 0, 0x00, 0, 0, nil),
		respond(RDRToPCSlotStatus, 0, 1, 0x00, 0, 0, nil),
		respond(RDRToPCSlotStatus, 1, 0, 0x00, 0, 0, nil),
	}}
	tr := NewTransport(bus)

	for _, slot := range []byte{0, 0, 1} {
		if _, err := tr.Exchange(PCToRDRGetSlotStatus, slot, [3]byte{}, nil); err != nil {
			t.Fatalf("Exchange on slot %d failed: %v", slot, err)
		}
	}

	if seq := bus.sent[1][6]; seq != 1 {
		t.Errorf("second command on slot 0 has seq %d, expected 1", seq)
	}
	if seq := bus.sent[2][6]; seq != 0 {
		t.Errorf("first command on slot 1 has seq %d, expected its own counter at 0", seq)
	}
}

func TestSequenceMismatchIsProtocolError(t *testing.T) {
	bus := &fakeBus{chunks: [][]byte{
		respond(RDRToPCSlotStatus, 0, 7, 0x00, 0, 0, nil),
	}}
	tr := NewTransport(bus)

	_, err := tr.Exchange(PCToRDRGetSlotStatus, 0, [3]byte{}, nil)
	if !errors.Is(err, ErrSequenceMismatch) {
		t.Errorf("expected ErrSequenceMismatch, got %v", err)
	}
}

func TestReceiveReassemblesChunkedFrame(t *testing.T) {
	full := respond(RDRToPCDataBlock, 0, 0, 0x00, 0, 0, []byte{0x3B, 0x65, 0x00, 0x00, 0x9C})
	bus := &fakeBus{chunks: [][]byte{full[:6], full[6:12], full[12:]}}
	tr := NewTransport(bus)

	f, err := tr.Exchange(PCToRDRXfrBlock, 0, [3]byte{}, nil)
	if err != nil {
		t.Fatalf("Exchange failed: %v", err)
	}
	if len(f.Payload) != 5 || f.Payload[0] != 0x3B {
		t.Errorf("payload = % X, expected 3B 65 00 00 9C", f.Payload)
	}
}

func TestBusTimeoutSurfaces(t *testing.T) {
	tr := NewTransport(&fakeBus{})

	_, err := tr.Exchange(PCToRDRGetSlotStatus, 0, [3]byte{}, nil)
	if !errors.Is(err, ErrBusTimeout) {
		t.Errorf("expected ErrBusTimeout, got %v", err)
	}
}

func TestWaitForInterruptSlotChange(t *testing.T) {
	bus := &fakeBus{interrupts: [][]byte{
		{RDRToPCNotifySlotChange, 0x03},
	}}
	tr := NewTransport(bus)

	change, err := tr.WaitForInterrupt(context.Background())
	if err != nil {
		t.Fatalf("WaitForInterrupt failed: %v", err)
	}
	if !change.Present(0) || !change.Changed(0) {
		t.Errorf("slot 0 should be present and changed, bitmap % X", []byte(change))
	}
	if change.Present(1) || change.Changed(1) {
		t.Errorf("slot 1 should be untouched, bitmap % X", []byte(change))
	}
}

func TestWaitForInterruptCancellation(t *testing.T) {
	tr := NewTransport(&fakeBus{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := tr.WaitForInterrupt(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestWaitForInterruptHardwareError(t *testing.T) {
	bus := &fakeBus{interrupts: [][]byte{
		{RDRToPCHardwareError, 0x00, 0x00, 0x01},
	}}
	tr := NewTransport(bus)

	_, err := tr.WaitForInterrupt(context.Background())
	if !errors.Is(err, ErrCommandFailed) {
		t.Errorf("expected ErrCommandFailed, got %v", err)
	}
}
