package mldsa

import "errors"

// Sentinel errors for the failure taxonomy described by FIPS 204. Decode
// errors wrap one of the Malformed* sentinels with context via %w, so
// callers can match with errors.Is while still getting a human-readable
// message.
var (
	// RngFailure is returned when the caller-supplied random number
	// generator fails during KeyGen or hedged Sign.
	RngFailure = errors.New("mldsa: random number generator failed")

	// RejectionExhausted is returned when the signing rejection loop hits
	// its safety cap (MaxSignAttempts) without producing a valid signature.
	RejectionExhausted = errors.New("mldsa: signing rejection loop exhausted")

	// MalformedPublicKey is returned when a public key fails to decode.
	// Length is the only check: every 10-bit t1 value is in range.
	MalformedPublicKey = errors.New("mldsa: malformed public key")

	// MalformedPrivateKey is returned when a private key fails to decode:
	// wrong length or an out-of-range coefficient.
	MalformedPrivateKey = errors.New("mldsa: malformed private key")

	// MalformedSignature is returned when a signature fails to decode:
	// wrong length, an out-of-range z coefficient, or a structurally
	// invalid hint encoding.
	MalformedSignature = errors.New("mldsa: malformed signature")

	// errContextTooLong guards the 255-byte context string limit; it is
	// not part of the FIPS 204 taxonomy (it is a caller-input mistake, not
	// a decode failure or RNG failure) so it is not exported as a sentinel.
	errContextTooLong = errors.New("mldsa: context exceeds 255 bytes")
)
