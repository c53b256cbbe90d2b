package mldsa

import (
	"crypto/sha3"
)

// sampleNTTPoly rejection-samples a polynomial directly in the NTT domain
// from a SHAKE128 stream keyed on rho, s and r (FIPS 204 Algorithm 30,
// RejNTTPoly): each 3-byte chunk yields a 23-bit candidate, kept whenever it
// falls below q.
func sampleNTTPoly(rho []byte, s, r byte) nttElement {
	xof := sha3.NewSHAKE128()
	xof.Write(rho)
	xof.Write([]byte{s, r})

	const rate = 168 // SHAKE128 block size
	var block [rate]byte
	var a nttElement
	filled := 0

	for filled < n {
		xof.Read(block[:])
		for off := 0; off < rate && filled < n; off += 3 {
			candidate := uint32(block[off]) | uint32(block[off+1])<<8 | uint32(block[off+2]&0x7f)<<16
			if candidate < q {
				a[filled] = fieldElement(candidate)
				filled++
			}
		}
	}
	return a
}

// etaSample maps a raw 4-bit nibble to a coefficient in [-eta, eta],
// rejecting nibbles the encoding doesn't define for the given eta (the
// coefficient body of FIPS 204 Algorithm 31, RejBoundedPoly).
func etaSample(nibble byte, eta int) (fieldElement, bool) {
	if eta == 2 {
		if nibble >= 15 {
			return 0, false
		}
		nibble -= (nibble / 5) * 5 // fold 0-14 onto 0-4
		return fieldSub(2, fieldElement(nibble)), true
	}
	if nibble > 8 {
		return 0, false
	}
	return fieldSub(4, fieldElement(nibble)), true
}

// sampleBoundedPoly rejection-samples a polynomial with coefficients in
// [-eta, eta] from a SHAKE256 stream, consuming each output byte as a pair
// of nibbles (FIPS 204 Algorithm 31, RejBoundedPoly).
func sampleBoundedPoly(seed []byte, eta int, nonce uint16) ringElement {
	xof := sha3.NewSHAKE256()
	xof.Write(seed)
	xof.Write([]byte{byte(nonce), byte(nonce >> 8)})

	const rate = 136 // SHAKE256 block size
	var block [rate]byte
	xof.Read(block[:])

	var a ringElement
	filled, pos := 0, 0
	for filled < n {
		if pos >= rate {
			xof.Read(block[:])
			pos = 0
		}
		lo := block[pos] & 0x0f
		hi := block[pos] >> 4
		pos++

		if v, ok := etaSample(lo, eta); ok {
			a[filled] = v
			filled++
		}
		if filled < n {
			if v, ok := etaSample(hi, eta); ok {
				a[filled] = v
				filled++
			}
		}
	}
	return a
}

// sampleChallenge draws the weight-tau challenge polynomial with a
// Fisher-Yates shuffle driven by a SHAKE256 stream (FIPS 204 Algorithm 29,
// SampleInBall): the first 8 bytes supply one sign bit per nonzero
// coefficient, then each swap target is rejection-sampled from the
// remaining stream.
func sampleChallenge(seed []byte, tau int) ringElement {
	xof := sha3.NewSHAKE256()
	xof.Write(seed)

	const rate = 136
	var block [rate]byte
	xof.Read(block[:])

	var signBits uint64
	for i := 0; i < 8; i++ {
		signBits |= uint64(block[i]) << (8 * i)
	}
	pos := 8

	var c ringElement
	for i := n - tau; i < n; i++ {
		var j byte
		for {
			if pos >= rate {
				xof.Read(block[:])
				pos = 0
			}
			j = block[pos]
			pos++
			if int(j) <= i {
				break
			}
		}

		c[i] = c[j]
		if signBits&1 == 0 {
			c[j] = 1
		} else {
			c[j] = q - 1
		}
		signBits >>= 1
	}
	return c
}

// expandMask derives the signer's masking polynomial y from a SHAKE256
// stream (FIPS 204 Algorithm 34, ExpandMask); the unpacking itself reuses
// the signature-decoding codec since both encode coefficients the same way
// (centered on gamma1, packed at 18 or 20 bits).
func expandMask(seed []byte, gamma1Bits int) ringElement {
	xof := sha3.NewSHAKE256()
	xof.Write(seed)

	if gamma1Bits == 17 {
		var block [576]byte // 256 coefficients * 18 bits
		xof.Read(block[:])
		return unpackZ17Sig(block[:])
	}
	var block [640]byte // 256 coefficients * 20 bits
	xof.Read(block[:])
	return unpackZ19Sig(block[:])
}
