package emv

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeKeyFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ca-keys.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	return path
}

func TestLoadCAKeySet(t *testing.T) {
	path := writeKeyFile(t, `{
		"keys": [
			{"index": 1, "modulus": "C0 FF EE 01", "exponent": "03"},
			{"index": 7, "modulus": "deadbeef", "exponent": "010001"}
		]
	}`)

	set, err := LoadCAKeySet(path)
	if err != nil {
		t.Fatalf("LoadCAKeySet failed: %v", err)
	}

	if !bytes.Equal(set.Modulus(1), []byte{0xC0, 0xFF, 0xEE, 0x01}) {
		t.Errorf("modulus 1 = %X", set.Modulus(1))
	}
	if !bytes.Equal(set.Exponent(7), []byte{0x01, 0x00, 0x01}) {
		t.Errorf("exponent 7 = %X", set.Exponent(7))
	}

	// Unknown indices yield nil, the provider contract for "no key".
	if set.Modulus(9) != nil || set.Exponent(9) != nil {
		t.Error("unknown index should yield nil key material")
	}
}

func TestLoadCAKeySetRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `{"keys": [`},
		{"no keys", `{"keys": []}`},
		{"bad hex", `{"keys": [{"index": 1, "modulus": "XYZ", "exponent": "03"}]}`},
		{"empty modulus", `{"keys": [{"index": 1, "modulus": "", "exponent": "03"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCAKeySet(writeKeyFile(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadCAKeySetMissingFile(t *testing.T) {
	if _, err := LoadCAKeySet(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing file should be an error")
	}
}
