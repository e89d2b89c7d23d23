package emv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/ccid-utils/pkg/iso7816"
)

// Session is one application session with a card: the ISO 7816 client,
// the data store populated from the card, and the verdict state the SDA
// engine writes. A Session is not safe for concurrent use; verification
// must not interleave with data-store mutation.
type Session struct {
	client *iso7816.Client
	store  *DataStore

	fci []byte
	aip [2]byte
	afl []byte

	caPK     *PublicKey
	issuerPK *PublicKey
	sdaOK    bool
}

// NewSession creates a session over a card connection.
func NewSession(card iso7816.Transmitter) *Session {
	return &Session{
		client: iso7816.NewClient(card),
		store:  NewDataStore(),
	}
}

// Store exposes the session's data store.
func (s *Session) Store() *DataStore {
	return s.store
}

// AIP returns the Application Interchange Profile captured by
// GetProcessingOptions.
func (s *Session) AIP() [2]byte {
	return s.aip
}

// FCI returns the raw File Control Information from the last successful
// application selection.
func (s *Session) FCI() []byte {
	return s.fci
}

// SelectApplication selects the payment application by AID and keeps the
// raw FCI.
func (s *Session) SelectApplication(aid []byte) error {
	resp, err := s.client.Send(iso7816.Select(aid))
	if err != nil {
		return fmt.Errorf("select application: %w", err)
	}
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("select application %X: status %s", aid, resp.Status)
	}
	s.fci = resp.Data
	return nil
}

// GetProcessingOptions initiates application processing and captures the
// AIP and AFL. Both response formats are handled: format 1 (tag 80,
// AIP and AFL concatenated) and format 2 (tag 77 with separate data
// objects).
func (s *Session) GetProcessingOptions() error {
	// Empty PDOL-related data: tag 83, zero length.
	cmd := &iso7816.CommandAPDU{
		Cla:  0x80,
		Ins:  0xA8,
		Data: []byte{0x83, 0x00},
		Ne:   iso7816.MaxShortLe,
	}
	resp, err := s.client.Send(cmd)
	if err != nil {
		return fmt.Errorf("get processing options: %w", err)
	}
	if !resp.Status.IsSuccess() {
		return fmt.Errorf("get processing options: status %s", resp.Status)
	}

	packets, err := bertlv.Decode(resp.Data)
	if err != nil {
		return fmt.Errorf("decode processing options: %w", err)
	}
	if len(packets) == 0 {
		return fmt.Errorf("emv: empty processing options response")
	}

	switch {
	case strings.EqualFold(packets[0].Tag, "80"):
		v := packets[0].Value
		if len(v) < 2 || (len(v)-2)%4 != 0 {
			return fmt.Errorf("emv: malformed format 1 processing options (%d bytes)", len(v))
		}
		copy(s.aip[:], v[:2])
		s.afl = append([]byte(nil), v[2:]...)

	case strings.EqualFold(packets[0].Tag, "77"):
		var haveAIP bool
		for _, p := range packets[0].TLVs {
			switch {
			case strings.EqualFold(p.Tag, "82"):
				if len(p.Value) != 2 {
					return fmt.Errorf("emv: AIP of %d bytes", len(p.Value))
				}
				copy(s.aip[:], p.Value)
				haveAIP = true
			case strings.EqualFold(p.Tag, "94"):
				s.afl = append([]byte(nil), p.Value...)
			}
		}
		if !haveAIP {
			return fmt.Errorf("emv: processing options carry no AIP")
		}

	default:
		return fmt.Errorf("emv: unexpected processing options template %s", packets[0].Tag)
	}

	s.store.Put(TagAIP, s.aip[:])
	s.store.Put(TagAFL, s.afl)
	return nil
}

// ReadApplicationData walks the Application File Locator and loads every
// referenced record into the data store. Each AFL entry is four bytes:
// SFI (shifted), first record, last record, and the count of leading
// records protected by static data authentication. Protected records are
// kept in card order.
func (s *Session) ReadApplicationData() error {
	if len(s.afl) == 0 || len(s.afl)%4 != 0 {
		return fmt.Errorf("emv: malformed application file locator (%d bytes)", len(s.afl))
	}

	for off := 0; off < len(s.afl); off += 4 {
		sfi := s.afl[off] >> 3
		first, last, numSDA := s.afl[off+1], s.afl[off+2], s.afl[off+3]
		if sfi == 0 || first == 0 || last < first {
			return fmt.Errorf("emv: malformed AFL entry % X", s.afl[off:off+4])
		}

		for rec := first; rec <= last; rec++ {
			resp, err := s.client.Send(iso7816.ReadRecord(sfi, rec))
			if err != nil {
				return fmt.Errorf("read record %d of SFI %d: %w", rec, sfi, err)
			}
			if !resp.Status.IsSuccess() {
				return fmt.Errorf("read record %d of SFI %d: status %s", rec, sfi, resp.Status)
			}
			if err := s.ingestRecord(sfi, resp.Data, rec-first < numSDA); err != nil {
				return fmt.Errorf("record %d of SFI %d: %w", rec, sfi, err)
			}
		}
	}
	return nil
}

// ingestRecord stores the record's data objects and, when the record is
// SDA-protected, appends its signed region: the value of the record
// template for SFI 1-10, the entire record otherwise (EMV Book 3).
func (s *Session) ingestRecord(sfi byte, raw []byte, protected bool) error {
	var signed []byte

	if sfi <= 10 {
		value, err := templateValue(raw)
		if err != nil {
			return err
		}
		if err := s.storeFields(value); err != nil {
			return err
		}
		signed = value
	} else {
		if value, err := templateValue(raw); err == nil {
			// Records outside SFI 1-10 need not be TLV; decode when they are.
			_ = s.storeFields(value)
		}
		signed = raw
	}

	if protected {
		s.store.AppendSDARecord(&DataObject{
			Tag:  TagRecordTemplate,
			Data: append([]byte(nil), signed...),
		})
	}
	return nil
}

// storeFields indexes every data object inside a record template value.
func (s *Session) storeFields(value []byte) error {
	packets, err := bertlv.Decode(value)
	if err != nil {
		return fmt.Errorf("decode record content: %w", err)
	}
	for _, p := range packets {
		tag, err := strconv.ParseUint(p.Tag, 16, 32)
		if err != nil {
			continue
		}
		s.store.Put(uint32(tag), packetData(p))
	}
	return nil
}

// packetData returns a packet's raw contents, re-encoding children of
// constructed objects.
func packetData(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// templateValue strips the record template (tag 70) header and returns
// the value field by byte-exact slicing. The signed region must be the
// card's own bytes; re-encoding a decoded structure cannot guarantee
// that.
func templateValue(raw []byte) ([]byte, error) {
	if len(raw) < 2 || raw[0] != 0x70 {
		return nil, fmt.Errorf("emv: missing record template (tag 70)")
	}

	var length, skip int
	switch l := raw[1]; {
	case l < 0x80:
		length, skip = int(l), 2
	case l == 0x81 && len(raw) >= 3:
		length, skip = int(raw[2]), 3
	case l == 0x82 && len(raw) >= 4:
		length, skip = int(raw[2])<<8|int(raw[3]), 4
	default:
		return nil, fmt.Errorf("emv: unsupported record template length form %#02x", raw[1])
	}

	if skip+length > len(raw) {
		return nil, fmt.Errorf("emv: record template declares %d bytes, %d available",
			length, len(raw)-skip)
	}
	return raw[skip : skip+length], nil
}
