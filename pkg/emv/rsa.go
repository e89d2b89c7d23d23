package emv

import (
	"fmt"
	"math/big"
)

// PublicKey is a raw RSA public key as used by the EMV recovery scheme.
// Size is the modulus length in bytes; signed values and recovered
// plaintexts are always exactly Size bytes.
type PublicKey struct {
	N    *big.Int
	E    *big.Int
	Size int
}

// NewPublicKey builds a key from big-endian modulus and exponent byte
// strings. The modulus byte length, leading zeros included, becomes the
// key's Size.
func NewPublicKey(modulus, exponent []byte) (*PublicKey, error) {
	n := new(big.Int).SetBytes(modulus)
	e := new(big.Int).SetBytes(exponent)
	if n.Sign() == 0 {
		return nil, fmt.Errorf("emv: empty RSA modulus")
	}
	if e.Sign() == 0 {
		return nil, fmt.Errorf("emv: empty RSA exponent")
	}
	return &PublicKey{N: n, E: e, Size: len(modulus)}, nil
}

// Recover applies the raw RSA public operation (value^E mod N, no
// padding) to a signed value. Data "encrypted" under the corresponding
// private key comes back in clear; this is how EMV certificates carry
// their contents. The result is a fresh buffer of Size bytes — the input
// is never touched.
func (k *PublicKey) Recover(value []byte) ([]byte, error) {
	if len(value) != k.Size {
		return nil, fmt.Errorf("emv: %d byte value against %d byte modulus: %w",
			len(value), k.Size, ErrLengthMismatch)
	}

	m := new(big.Int).SetBytes(value)
	if m.Cmp(k.N) >= 0 {
		return nil, fmt.Errorf("emv: value out of range for modulus: %w", ErrLengthMismatch)
	}

	out := make([]byte, k.Size)
	new(big.Int).Exp(m, k.E, k.N).FillBytes(out)
	return out, nil
}
