package ccid

import "context"

// Slot is one chip card slot of a CCID. Its presence status is a cache,
// refreshed from status-bearing responses and never by implicit polling;
// transport errors leave the last successfully observed state in place.
type Slot struct {
	index     byte
	status    Status
	transport *Transport
}

// Index returns the slot number within the device.
func (s *Slot) Index() byte {
	return s.index
}

// Status returns the card presence state as of the last exchange.
// Generates no bus traffic.
func (s *Slot) Status() Status {
	return s.status
}

// observe refreshes the cached presence state from a response frame.
func (s *Slot) observe(f *Frame) {
	s.status = statusFromByte(f.Status)
}

// ClockStatus queries the reader for the state of the slot's ICC clock.
// Bus failures are expected operational conditions and map to ClockError.
func (s *Slot) ClockStatus() ClockStatus {
	f, err := s.transport.Exchange(PCToRDRGetSlotStatus, s.index, [3]byte{}, nil)
	if err != nil {
		return ClockError
	}
	s.observe(f)
	return clockFromByte(f.Param)
}

// PowerOn powers the card in the slot and returns its raw, uninterpreted
// Answer-To-Reset byte sequence.
func (s *Slot) PowerOn(v Voltage) ([]byte, error) {
	f, err := s.transport.Exchange(PCToRDRIccPowerOn, s.index, [3]byte{byte(v), 0, 0}, nil)
	if err != nil {
		return nil, err
	}
	s.observe(f)
	if err := f.commandError(); err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// PowerOff powers the card down and returns the resulting slot status.
func (s *Slot) PowerOff() (Status, error) {
	f, err := s.transport.Exchange(PCToRDRIccPowerOff, s.index, [3]byte{}, nil)
	if err != nil {
		return s.status, err
	}
	s.observe(f)
	if err := f.commandError(); err != nil {
		return s.status, err
	}
	return s.status, nil
}

// Transact sends a command APDU to the card and returns the response
// block: a transmit followed by a receive, the fundamental unit of
// exchange for all higher-level card commands.
func (s *Slot) Transact(cmd []byte) ([]byte, error) {
	f, err := s.transport.Exchange(PCToRDRXfrBlock, s.index, [3]byte{}, cmd)
	if err != nil {
		return nil, err
	}
	s.observe(f)
	if err := f.commandError(); err != nil {
		return nil, err
	}
	return f.Payload, nil
}

// Transmit is Transact under the name card clients expect
// (iso7816.Transmitter, like *scard.Card).
func (s *Slot) Transmit(cmd []byte) ([]byte, error) {
	return s.Transact(cmd)
}

// refreshStatus issues GetSlotStatus, the canonical way to refresh the
// cached presence state.
func (s *Slot) refreshStatus() error {
	f, err := s.transport.Exchange(PCToRDRGetSlotStatus, s.index, [3]byte{}, nil)
	if err != nil {
		return err
	}
	s.observe(f)
	return nil
}

// WaitForCard blocks until a card is present in the slot or ctx is
// cancelled. Card insertion is an external physical event with unbounded
// latency: the wait suspends on the interrupt endpoint between status
// queries rather than polling.
func (s *Slot) WaitForCard(ctx context.Context) error {
	for {
		if err := s.refreshStatus(); err != nil {
			return err
		}
		if s.status != StatusNotPresent {
			return nil
		}
		if _, err := s.transport.WaitForInterrupt(ctx); err != nil {
			return err
		}
	}
}
