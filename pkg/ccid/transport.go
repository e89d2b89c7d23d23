package ccid

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/gregLibert/ccid-utils/pkg/bits"
	"github.com/gregLibert/ccid-utils/pkg/xfr"
)

// Transport errors.
var (
	// ErrSequenceMismatch means a response carried a bSeq different from
	// the outstanding command's.
	ErrSequenceMismatch = errors.New("ccid: response sequence does not match request")

	// ErrCommandFailed means the reader flagged the command as failed in
	// bStatus; the frame's bError carries the reason.
	ErrCommandFailed = errors.New("ccid: command failed")

	// ErrBusTimeout means the bus completed without delivering data.
	ErrBusTimeout = errors.New("ccid: bus timeout")
)

// Bus is the raw USB endpoint access a Transport drives. Implementations
// wrap a claimed CCID interface: one bulk-out, one bulk-in and one
// interrupt-in endpoint. BulkIn and BulkOut block until the transfer
// completes or the bus times out; InterruptIn additionally honours
// context cancellation, since waiting on it is unbounded by design.
type Bus interface {
	BulkOut(p []byte) error
	BulkIn(p []byte) (int, error)
	InterruptIn(ctx context.Context, p []byte) (int, error)
}

// defaultBufferSize covers the largest dwMaxCCIDMessageLength commonly
// advertised (extended APDU plus header); the buffer grows if a reader
// declares more.
const defaultBufferSize = headerLen + 65536

// Transport builds and parses CCID frames over a Bus, assigning sequence
// numbers per slot and serialising exchanges so that exactly one command
// is outstanding at a time.
type Transport struct {
	mu  sync.Mutex
	bus Bus
	buf *xfr.Buffer

	seq     [256]byte // next bSeq per slot, wraps with byte overflow
	pending [256]byte // bSeq of the outstanding command per slot
}

// NewTransport creates a Transport over the given bus.
func NewTransport(bus Bus) *Transport {
	return &Transport{
		bus: bus,
		buf: xfr.New(defaultBufferSize),
	}
}

// NewSlot returns a handle on the given slot index. The slot starts as
// not present until a status-bearing response says otherwise.
func (t *Transport) NewSlot(index byte) *Slot {
	return &Slot{
		index:     index,
		status:    StatusNotPresent,
		transport: t,
	}
}

// Exchange performs one command/response pair on a slot. The transport
// lock is held across the pair: the CCID class forbids pipelining.
func (t *Transport) Exchange(msgType, slot byte, p [3]byte, payload []byte) (*Frame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.send(msgType, slot, p, payload); err != nil {
		return nil, err
	}
	return t.receive(slot)
}

func (t *Transport) send(msgType, slot byte, p [3]byte, payload []byte) error {
	seq := t.seq[slot]
	t.seq[slot]++
	t.pending[slot] = seq

	t.buf.Reset()
	t.buf.SetTx(encodeCommand(msgType, slot, seq, p, payload))

	if err := t.bus.BulkOut(t.buf.Tx()); err != nil {
		return fmt.Errorf("ccid: bulk-out: %w", err)
	}
	return nil
}

// receive reads bulk-in transfers until the declared frame length is fully
// consumed, then validates the sequence echo.
func (t *Transport) receive(slot byte) (*Frame, error) {
	total := 0
	declared := headerLen

	for total < declared {
		n, err := t.bus.BulkIn(t.buf.RxFull()[total:])
		if err != nil {
			return nil, fmt.Errorf("ccid: bulk-in: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("ccid: bulk-in empty transfer: %w", ErrBusTimeout)
		}
		total += n

		if total >= headerLen {
			declared = headerLen + int(binary.LittleEndian.Uint32(t.buf.RxFull()[1:5]))
			t.buf.GrowRx(declared)
		}
	}

	if err := t.buf.SetRxLen(declared); err != nil {
		return nil, err
	}

	f, err := parseFrame(t.buf.Rx())
	if err != nil {
		return nil, err
	}
	if f.Seq != t.pending[slot] {
		return nil, fmt.Errorf("ccid: got sequence %d, expected %d: %w",
			f.Seq, t.pending[slot], ErrSequenceMismatch)
	}
	return f, nil
}

// SlotChange is the slot status bitmap from an RDR_to_PC_NotifySlotChange
// message: two bits per slot, presence then change.
type SlotChange []byte

func (c SlotChange) bit(i int) bool {
	return i/8 < len(c) && bits.IsSet(c[i/8], uint(i%8)+1)
}

// Present reports the card presence state of a slot in the notification.
func (c SlotChange) Present(slot byte) bool {
	return c.bit(int(slot) * 2)
}

// Changed reports whether the slot's presence state changed.
func (c SlotChange) Changed(slot byte) bool {
	return c.bit(int(slot)*2 + 1)
}

// WaitForInterrupt blocks on the interrupt endpoint until the reader
// notifies a slot status change or ctx is cancelled. It is decoupled from
// the command/response path and takes no part in sequencing.
func (t *Transport) WaitForInterrupt(ctx context.Context) (SlotChange, error) {
	p := make([]byte, headerLen)
	n, err := t.bus.InterruptIn(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("ccid: interrupt-in: %w", err)
	}
	if n < 1 {
		return nil, fmt.Errorf("ccid: interrupt-in empty transfer: %w", ErrBusTimeout)
	}

	switch p[0] {
	case RDRToPCNotifySlotChange:
		return SlotChange(p[1:n]), nil
	case RDRToPCHardwareError:
		return nil, fmt.Errorf("ccid: hardware error notification: %w", ErrCommandFailed)
	}
	return nil, fmt.Errorf("ccid: unexpected interrupt message %#02x", p[0])
}
