package iso7816

// Instruction codes used by the EMV application flow.
const (
	INS_SELECT       = 0xA4
	INS_READ_RECORD  = 0xB2
	INS_GET_RESPONSE = 0xC0
)

// Select builds SELECT by DF name (AID), first or only occurrence.
func Select(aid []byte) *CommandAPDU {
	return &CommandAPDU{
		Ins:  INS_SELECT,
		P1:   0x04, // select by DF name
		P2:   0x00, // first or only occurrence
		Data: aid,
		Ne:   MaxShortLe,
	}
}

// ReadRecord builds READ RECORD for one record of the file identified by
// its short file identifier, in reference-by-record-number mode.
func ReadRecord(sfi, record byte) *CommandAPDU {
	return &CommandAPDU{
		Ins: INS_READ_RECORD,
		P1:  record,
		P2:  sfi<<3 | 0x04,
		Ne:  MaxShortLe,
	}
}
