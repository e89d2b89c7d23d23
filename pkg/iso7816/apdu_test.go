package iso7816

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

// hexBytes builds a byte slice from space-separated hex strings.
func hexBytes(t *testing.T, parts ...string) []byte {
	t.Helper()
	raw, err := hex.DecodeString(strings.ReplaceAll(strings.Join(parts, ""), " ", ""))
	if err != nil {
		t.Fatalf("invalid hex fixture: %v", err)
	}
	return raw
}

func TestCommandAPDUBytes(t *testing.T) {
	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name:     "case 1: header only",
			cmd:      &CommandAPDU{Ins: 0xE2, P1: 0x01},
			expected: []byte{0x00, 0xE2, 0x01, 0x00},
		},
		{
			name:     "case 2: Le only",
			cmd:      &CommandAPDU{Ins: 0xC0, Ne: 12},
			expected: []byte{0x00, 0xC0, 0x00, 0x00, 0x0C},
		},
		{
			name:     "case 2: Le 256 encoded as 00",
			cmd:      &CommandAPDU{Ins: 0xB2, P1: 0x01, P2: 0x0C, Ne: 256},
			expected: []byte{0x00, 0xB2, 0x01, 0x0C, 0x00},
		},
		{
			name:     "case 3: data only",
			cmd:      &CommandAPDU{Cla: 0x80, Ins: 0x1E, Data: []byte{0xAA, 0xBB}},
			expected: []byte{0x80, 0x1E, 0x00, 0x00, 0x02, 0xAA, 0xBB},
		},
		{
			name: "case 4: select PSE",
			cmd:  Select([]byte("1PAY.SYS.DDF01")),
			expected: append(append([]byte{0x00, 0xA4, 0x04, 0x00, 0x0E},
				[]byte("1PAY.SYS.DDF01")...), 0x00),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes() failed: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %X\nGot:      %X", tt.expected, got)
			}
		})
	}
}

func TestCommandAPDUBytesRejectsOversize(t *testing.T) {
	if _, err := (&CommandAPDU{Data: make([]byte, 256)}).Bytes(); err == nil {
		t.Error("Lc over 255 should be rejected")
	}
	if _, err := (&CommandAPDU{Ne: 257}).Bytes(); err == nil {
		t.Error("Le over 256 should be rejected")
	}
}

func TestReadRecordEncoding(t *testing.T) {
	got, err := ReadRecord(1, 1).Bytes()
	if err != nil {
		t.Fatalf("Bytes() failed: %v", err)
	}
	if !bytes.Equal(got, hexBytes(t, "00 B2 01 0C", "00")) {
		t.Errorf("ReadRecord(1, 1) = %X", got)
	}
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse(hexBytes(t, "6F 02 84 00", "90 00"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.Status != SW_NO_ERROR {
		t.Errorf("status = %s, expected 9000", resp.Status)
	}
	if len(resp.Data) != 4 {
		t.Errorf("data length = %d, expected 4", len(resp.Data))
	}

	if _, err := ParseResponse([]byte{0x90}); err == nil {
		t.Error("a one-byte response should be rejected")
	}
}

func TestStatusWordSemantics(t *testing.T) {
	if !NewStatusWord(0x90, 0x00).IsSuccess() {
		t.Error("9000 must be a success")
	}
	if !NewStatusWord(0x61, 0x10).IsSuccess() {
		t.Error("61XX must be a success")
	}
	if NewStatusWord(0x6A, 0x83).IsSuccess() {
		t.Error("6A83 must not be a success")
	}
	if !NewStatusWord(0x63, 0xC2).IsCounter() {
		t.Error("63C2 must be a counter status")
	}
}
