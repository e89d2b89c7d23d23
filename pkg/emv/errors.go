package emv

import "errors"

// Verification and ingestion errors. Every SDA step fails closed: the
// first failing check aborts the whole verification.
var (
	// ErrUnsupportedByCard means the AIP does not advertise SDA support.
	ErrUnsupportedByCard = errors.New("emv: static data authentication not supported by card")

	// ErrMissingData means a required data element is absent from the store.
	ErrMissingData = errors.New("emv: required data element not present")

	// ErrUnknownCAKey means no trust-root key material exists for the CA
	// public key index the card references.
	ErrUnknownCAKey = errors.New("emv: unknown certificate authority key")

	// ErrLengthMismatch means a signed value's length does not match the
	// recovering key's modulus length. This is an anti-forgery check.
	ErrLengthMismatch = errors.New("emv: length does not match public key modulus")

	// ErrBadCertificateFormat means the recovered issuer certificate does
	// not carry the expected header, format or hash algorithm bytes.
	ErrBadCertificateFormat = errors.New("emv: malformed recovered certificate")

	// ErrSignatureInvalid means a recovered digest or trailer did not
	// match the computed one.
	ErrSignatureInvalid = errors.New("emv: signature verification failed")

	// ErrKeyConstructionFailed means the issuer public key could not be
	// reconstructed from the recovered certificate.
	ErrKeyConstructionFailed = errors.New("emv: issuer public key construction failed")
)
