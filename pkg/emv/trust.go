package emv

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// CAKeySet holds certificate authority public keys loaded from a key
// file, indexed by the CA public key index cards reference. Its Modulus
// and Exponent methods satisfy the provider callback contract of
// AuthenticateStaticData.
type CAKeySet struct {
	keys map[uint8]caKey
}

type caKey struct {
	modulus  []byte
	exponent []byte
}

// caKeyFile is the on-disk JSON layout: a list of keys with hex-encoded
// parameters (spaces allowed for readability).
type caKeyFile struct {
	Keys []struct {
		Index    uint8  `json:"index"`
		Modulus  string `json:"modulus"`
		Exponent string `json:"exponent"`
	} `json:"keys"`
}

// LoadCAKeySet reads trust-root key material from a JSON key file.
func LoadCAKeySet(path string) (*CAKeySet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA key file: %w", err)
	}

	var file caKeyFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse CA key file %s: %w", path, err)
	}
	if len(file.Keys) == 0 {
		return nil, fmt.Errorf("CA key file %s holds no keys", path)
	}

	set := &CAKeySet{keys: make(map[uint8]caKey, len(file.Keys))}
	for _, k := range file.Keys {
		modulus, err := decodeHexField(k.Modulus)
		if err != nil {
			return nil, fmt.Errorf("CA key %d modulus: %w", k.Index, err)
		}
		exponent, err := decodeHexField(k.Exponent)
		if err != nil {
			return nil, fmt.Errorf("CA key %d exponent: %w", k.Index, err)
		}
		set.keys[k.Index] = caKey{modulus: modulus, exponent: exponent}
	}
	return set, nil
}

func decodeHexField(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	return raw, nil
}

// Modulus returns the modulus for a CA key index, or nil when unknown.
func (s *CAKeySet) Modulus(index uint8) []byte {
	return s.keys[index].modulus
}

// Exponent returns the exponent for a CA key index, or nil when unknown.
func (s *CAKeySet) Exponent(index uint8) []byte {
	return s.keys[index].exponent
}
