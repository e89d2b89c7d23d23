package emv

import (
	"bytes"
	"crypto/sha1"
	"fmt"
)

// Static data authentication constants (EMV Book 2).
const (
	certHeader           = 0x6A
	certTrailer          = 0xBC
	certFormatIssuerKey  = 0x02
	certFormatSignedData = 0x03
	hashAlgorithmSHA1    = 0x01

	digestLen = sha1.Size

	// certMetaLen is the certificate layout up to the leftmost modulus
	// digits: header, format, issuer id, expiry, serial, hash algorithm,
	// key algorithm, key length, exponent length.
	certMetaLen = 15
)

// CAModulusFunc returns the modulus of the certificate authority public
// key stored under the given index, or nil when the index is unknown.
// The trust-root store behind it is the caller's concern.
type CAModulusFunc func(index uint8) []byte

// CAExponentFunc returns the exponent of the certificate authority public
// key stored under the given index, or nil when the index is unknown.
type CAExponentFunc func(index uint8) []byte

// sdaRequest is the set of card data elements one verification attempt
// needs. Fields are views into the data store; the request owns nothing.
type sdaRequest struct {
	caIndex   uint8
	cert      []byte
	remainder []byte
	exponent  []byte
	ssaData   []byte
}

// gatherSDARequest retrieves the five required data elements. Any missing
// element aborts: no partial verification is attempted.
func (s *Session) gatherSDARequest() (*sdaRequest, error) {
	idx, err := s.store.RetrieveInt(TagCAPublicKeyIndex)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx > 0xFF {
		return nil, fmt.Errorf("emv: CA public key index %d out of range", idx)
	}

	req := &sdaRequest{caIndex: uint8(idx)}
	for _, want := range []struct {
		tag  uint32
		dst  *[]byte
		name string
	}{
		{TagIssuerPKCert, &req.cert, "issuer public key certificate"},
		{TagIssuerPKRemainder, &req.remainder, "issuer public key remainder"},
		{TagIssuerPKExponent, &req.exponent, "issuer public key exponent"},
		{TagSignedStaticData, &req.ssaData, "signed static application data"},
	} {
		obj := s.store.Retrieve(want.tag)
		if obj == nil || len(obj.Data) == 0 {
			return nil, fmt.Errorf("emv: %s (tag %X): %w", want.name, want.tag, ErrMissingData)
		}
		*want.dst = obj.Data
	}
	return req, nil
}

// lookupCAKey obtains the trusted CA public key through the caller's
// provider callbacks.
func lookupCAKey(index uint8, modFn CAModulusFunc, expFn CAExponentFunc) (*PublicKey, error) {
	if modFn == nil || expFn == nil {
		return nil, fmt.Errorf("emv: no CA key providers: %w", ErrUnknownCAKey)
	}

	modulus := modFn(index)
	if modulus == nil {
		return nil, fmt.Errorf("emv: CA modulus for index %d: %w", index, ErrUnknownCAKey)
	}
	exponent := expFn(index)
	if exponent == nil {
		return nil, fmt.Errorf("emv: CA exponent for index %d: %w", index, ErrUnknownCAKey)
	}

	key, err := NewPublicKey(modulus, exponent)
	if err != nil {
		return nil, fmt.Errorf("emv: CA key for index %d: %v: %w", index, err, ErrUnknownCAKey)
	}
	return key, nil
}

// emsaPSSDecode checks the digest-plus-trailer layout shared by both
// recovery steps: the rightmost byte of the recovered value must be the
// 0xBC trailer, and the 20 bytes before it the SHA-1 digest of msg.
// Byte-exact comparison; inputs are not secret, so timing is irrelevant.
func emsaPSSDecode(msg, em []byte) error {
	if len(em) < digestLen+1 {
		return fmt.Errorf("emv: recovered value of %d bytes: %w", len(em), ErrSignatureInvalid)
	}
	if em[len(em)-1] != certTrailer {
		return fmt.Errorf("emv: bad trailer byte %#02x: %w", em[len(em)-1], ErrSignatureInvalid)
	}

	md := sha1.Sum(msg)
	if !bytes.Equal(em[len(em)-digestLen-1:len(em)-1], md[:]) {
		return fmt.Errorf("emv: recovered digest mismatch: %w", ErrSignatureInvalid)
	}
	return nil
}

// checkIssuerCertificate validates the recovered certificate's structure
// and verifies its signature over the certificate body concatenated with
// the issuer key remainder and exponent.
func checkIssuerCertificate(req *sdaRequest, cert []byte) error {
	if len(cert) < certMetaLen+digestLen+1 {
		return fmt.Errorf("emv: certificate of %d bytes: %w", len(cert), ErrBadCertificateFormat)
	}
	if cert[0] != certHeader {
		return fmt.Errorf("emv: bad certificate header %#02x: %w", cert[0], ErrBadCertificateFormat)
	}
	if cert[1] != certFormatIssuerKey {
		return fmt.Errorf("emv: bad certificate format %#02x: %w", cert[1], ErrBadCertificateFormat)
	}
	if cert[11] != hashAlgorithmSHA1 {
		return fmt.Errorf("emv: unexpected hash algorithm %#02x: %w", cert[11], ErrBadCertificateFormat)
	}

	body := cert[1 : len(cert)-(digestLen+1)]
	msg := make([]byte, 0, len(body)+len(req.remainder)+len(req.exponent))
	msg = append(msg, body...)
	msg = append(msg, req.remainder...)
	msg = append(msg, req.exponent...)

	return emsaPSSDecode(msg, cert)
}

// reconstructIssuerKey assembles the issuer public key: the leftmost
// modulus digits carried in the certificate, completed by the remainder
// data object. The modulus is read from a buffer sized to the full
// certificate length; when the remainder fills the key exactly (the
// common deployment) this equals the digits' length, and deployed
// terminals size it this way regardless.
func reconstructIssuerKey(req *sdaRequest, cert []byte) (*PublicKey, error) {
	kb := cert[certMetaLen : len(cert)-(digestLen+1)]
	if len(kb)+len(req.remainder) > len(cert) {
		return nil, fmt.Errorf("emv: modulus digits exceed certificate length: %w",
			ErrKeyConstructionFailed)
	}

	modulus := make([]byte, len(cert))
	copy(modulus, kb)
	copy(modulus[len(kb):], req.remainder)

	key, err := NewPublicKey(modulus, req.exponent)
	if err != nil {
		return nil, fmt.Errorf("emv: issuer public key: %v: %w", err, ErrKeyConstructionFailed)
	}
	return key, nil
}

// verifySignedStaticData recovers the Signed Static Application Data
// under the issuer key and verifies it over the SDA-protected records, in
// stored order, followed by the AIP.
func (s *Session) verifySignedStaticData(issuer *PublicKey, ssaData []byte) error {
	rec, err := issuer.Recover(ssaData)
	if err != nil {
		return fmt.Errorf("recover signed static data: %w", err)
	}

	if len(rec) < digestLen+3 {
		return fmt.Errorf("emv: signed static data of %d bytes: %w", len(rec), ErrSignatureInvalid)
	}
	if rec[0] != certHeader {
		return fmt.Errorf("emv: signed static data bad header %#02x: %w", rec[0], ErrSignatureInvalid)
	}
	if rec[1] != certFormatSignedData {
		return fmt.Errorf("emv: signed static data bad format %#02x: %w", rec[1], ErrSignatureInvalid)
	}
	if rec[2] != hashAlgorithmSHA1 {
		return fmt.Errorf("emv: signed static data bad hash algorithm %#02x: %w", rec[2], ErrSignatureInvalid)
	}

	body := rec[1 : len(rec)-(digestLen+1)]
	size := len(body) + 2
	for _, r := range s.store.SDARecords() {
		size += len(r.Data)
	}

	msg := make([]byte, 0, size)
	msg = append(msg, body...)
	for _, r := range s.store.SDARecords() {
		msg = append(msg, r.Data...)
	}
	msg = append(msg, s.aip[:]...)

	return emsaPSSDecode(msg, rec)
}

// AuthenticateStaticData runs the full static data authentication chain
// against the session's data store, using the supplied trust-root
// callbacks. On success the CA and reconstructed issuer public keys are
// recorded on the session and the verdict flag is set. Verification is
// all or nothing: any failing step aborts with its error and the verdict
// stays false.
func (s *Session) AuthenticateStaticData(modFn CAModulusFunc, expFn CAExponentFunc) error {
	if s.aip[0]&AIPSupportsSDA == 0 {
		return ErrUnsupportedByCard
	}

	req, err := s.gatherSDARequest()
	if err != nil {
		return err
	}

	caKey, err := lookupCAKey(req.caIndex, modFn, expFn)
	if err != nil {
		return err
	}
	s.caPK = caKey

	if len(req.cert) != caKey.Size {
		return fmt.Errorf("emv: %d byte certificate against %d byte CA key: %w",
			len(req.cert), caKey.Size, ErrLengthMismatch)
	}

	cert, err := caKey.Recover(req.cert)
	if err != nil {
		return fmt.Errorf("recover issuer certificate: %w", err)
	}
	if err := checkIssuerCertificate(req, cert); err != nil {
		return err
	}

	issuerKey, err := reconstructIssuerKey(req, cert)
	if err != nil {
		return err
	}
	s.issuerPK = issuerKey

	if err := s.verifySignedStaticData(issuerKey, req.ssaData); err != nil {
		return err
	}

	s.sdaOK = true
	return nil
}

// SDAVerified reports whether static data authentication succeeded for
// this session. Pure accessor.
func (s *Session) SDAVerified() bool {
	return s.sdaOK
}

// IssuerPublicKey returns the issuer public key reconstructed during
// authentication, or nil before a successful certificate recovery.
func (s *Session) IssuerPublicKey() *PublicKey {
	return s.issuerPK
}

// CAPublicKey returns the certificate authority key used during
// authentication, or nil before key lookup.
func (s *Session) CAPublicKey() *PublicKey {
	return s.caPK
}
