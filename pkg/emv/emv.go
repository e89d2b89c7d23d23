// Package emv implements the EMV application data model and offline
// static data authentication (SDA) over an ISO 7816 card client.
//
// A Session drives the application flow (SELECT, GET PROCESSING OPTIONS,
// READ RECORD), populating a tag-indexed DataStore with the BER-TLV data
// objects the card returns and keeping, in card order, the records the
// Application File Locator designates as protected by static data
// authentication. AuthenticateStaticData then runs the full SDA chain:
// CA key lookup, issuer public key certificate recovery and verification,
// issuer key reconstruction, and verification of the Signed Static
// Application Data over the concatenated protected records.
//
// SDA proves the issuer signed the card's static data; it does not
// protect against full card cloning. That is a property of the scheme,
// not of this implementation.
package emv

// EMV tag numbers for the data objects this package consumes.
const (
	TagAIP               uint32 = 0x82
	TagAFL               uint32 = 0x94
	TagCAPublicKeyIndex  uint32 = 0x8F
	TagIssuerPKCert      uint32 = 0x90
	TagIssuerPKRemainder uint32 = 0x92
	TagIssuerPKExponent  uint32 = 0x9F32
	TagSignedStaticData  uint32 = 0x93
	TagPAN               uint32 = 0x5A
	TagRecordTemplate    uint32 = 0x70
)

// Application Interchange Profile capability bits (byte 0).
const (
	AIPSupportsSDA = 0x40
	AIPSupportsDDA = 0x20
	AIPSupportsCDA = 0x01
)
