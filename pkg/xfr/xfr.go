// Package xfr provides the reusable transmit/receive staging buffer used
// by transport exchanges on a single logical connection.
//
// A Buffer is owned exclusively by the session using it and is recycled
// across successive transactions to avoid per-exchange allocation. It
// performs no I/O itself: the transport stages outbound bytes with SetTx,
// hands RxFull to the bus for filling, then records how much arrived with
// SetRxLen. The received view never exceeds the buffer's capacity; growing
// capacity is an explicit reallocation, never a silent truncation.
package xfr

import "fmt"

// Buffer is a reusable send/receive byte buffer with length and capacity
// tracking.
type Buffer struct {
	tx    []byte
	rx    []byte
	rxLen int
}

// New creates a Buffer with the given receive capacity.
func New(capacity int) *Buffer {
	return &Buffer{rx: make([]byte, capacity)}
}

// Reset discards any staged transmit bytes and received data.
func (b *Buffer) Reset() {
	b.tx = b.tx[:0]
	b.rxLen = 0
}

// SetTx stages a copy of p for transmission, growing the transmit storage
// when needed.
func (b *Buffer) SetTx(p []byte) {
	if cap(b.tx) < len(p) {
		b.tx = make([]byte, len(p))
	} else {
		b.tx = b.tx[:len(p)]
	}
	copy(b.tx, p)
}

// Tx returns the staged transmit bytes.
func (b *Buffer) Tx() []byte {
	return b.tx
}

// RxFull returns the whole receive storage for the bus to fill.
func (b *Buffer) RxFull() []byte {
	return b.rx
}

// GrowRx reallocates the receive storage to hold at least n bytes,
// preserving already received content. A no-op when capacity suffices.
func (b *Buffer) GrowRx(n int) {
	if n <= len(b.rx) {
		return
	}
	grown := make([]byte, n)
	copy(grown, b.rx)
	b.rx = grown
}

// SetRxLen records how many bytes of the receive storage are valid.
func (b *Buffer) SetRxLen(n int) error {
	if n < 0 || n > len(b.rx) {
		return fmt.Errorf("xfr: receive length %d exceeds capacity %d", n, len(b.rx))
	}
	b.rxLen = n
	return nil
}

// Rx returns the received bytes.
func (b *Buffer) Rx() []byte {
	return b.rx[:b.rxLen]
}

// Capacity returns the receive storage size.
func (b *Buffer) Capacity() int {
	return len(b.rx)
}
