package mldsa

import "errors"

// packBits serializes count fixed-width values into a little-endian,
// least-significant-bit-first continuous bit stream. bitWidth*count must be
// a multiple of 8; every coefficient-packing format in this file satisfies
// that for n=256 coefficients, so a single streaming accumulator replaces
// the separate per-group unrolled packers FIPS 204's codec would otherwise
// need one of for each bit width.
func packBits(values []uint32, bitWidth int) []byte {
	out := make([]byte, bitWidth*len(values)/8)
	var acc uint64
	accBits, pos := 0, 0
	for _, v := range values {
		acc |= uint64(v) << uint(accBits)
		accBits += bitWidth
		for accBits >= 8 {
			out[pos] = byte(acc)
			acc >>= 8
			accBits -= 8
			pos++
		}
	}
	return out
}

// unpackBits is the inverse of packBits.
func unpackBits(b []byte, bitWidth, count int) []uint32 {
	values := make([]uint32, count)
	mask := uint64(1)<<uint(bitWidth) - 1
	var acc uint64
	accBits, pos := 0, 0
	for i := range values {
		for accBits < bitWidth {
			acc |= uint64(b[pos]) << uint(accBits)
			pos++
			accBits += 8
		}
		values[i] = uint32(acc & mask)
		acc >>= uint(bitWidth)
		accBits -= bitWidth
	}
	return values
}

// coeffsOf extracts f's coefficients as the plain uint32 values packBits
// expects.
func coeffsOf(f ringElement) []uint32 {
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(c)
	}
	return vals
}

// packT1 packs a polynomial with unsigned 10-bit coefficients (public key t1).
func packT1(f ringElement) []byte {
	return packBits(coeffsOf(f), 10)
}

// unpackT1 unpacks a polynomial with unsigned 10-bit coefficients.
func unpackT1(b []byte) ringElement {
	var f ringElement
	for i, v := range unpackBits(b, 10, n) {
		f[i] = fieldElement(v)
	}
	return f
}

// t0Center is the offset packT0/unpackT0 center their 13-bit coefficients
// on, so that the signed range [-(2^12-1), 2^12] packs as an unsigned value.
const t0Center = 1 << 12

// packT0 packs a polynomial with 13-bit coefficients centered on t0Center
// (private key t0).
func packT0(f ringElement) []byte {
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(fieldSub(t0Center, c))
	}
	return packBits(vals, 13)
}

// unpackT0 unpacks a polynomial packed by packT0.
func unpackT0(b []byte) ringElement {
	var f ringElement
	for i, v := range unpackBits(b, 13, n) {
		f[i] = fieldSub(t0Center, fieldElement(v))
	}
	return f
}

var errInvalidEta = errors.New("mldsa: invalid eta encoding")

// packEta2 packs a polynomial with coefficients in [-2, 2] using 3 bits each.
func packEta2(f ringElement) []byte {
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(fieldSub(2, c))
	}
	return packBits(vals, 3)
}

// unpackEta2 unpacks a polynomial packed by packEta2, rejecting any 3-bit
// group whose raw value is 5 or above (those encode no valid [-2,2]
// coefficient).
func unpackEta2(b []byte) (ringElement, error) {
	var f ringElement
	for i, v := range unpackBits(b, 3, n) {
		if v >= 5 {
			return ringElement{}, errInvalidEta
		}
		f[i] = fieldSub(2, fieldElement(v))
	}
	return f, nil
}

// packEta4 packs a polynomial with coefficients in [-4, 4] using 4 bits each.
func packEta4(f ringElement) []byte {
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(fieldSub(4, c))
	}
	return packBits(vals, 4)
}

// unpackEta4 unpacks a polynomial packed by packEta4, rejecting any 4-bit
// group whose raw value is 9 or above.
func unpackEta4(b []byte) (ringElement, error) {
	var f ringElement
	for i, v := range unpackBits(b, 4, n) {
		if v >= 9 {
			return ringElement{}, errInvalidEta
		}
		f[i] = fieldSub(4, fieldElement(v))
	}
	return f, nil
}

// packZ17 packs a signer's masking/response polynomial z with coefficients
// in [-(gamma1-1), gamma1], gamma1 = 2^17, using 18 bits each.
func packZ17(f ringElement) []byte {
	const gamma1 = 1 << 17
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(fieldSub(gamma1, c))
	}
	return packBits(vals, 18)
}

// unpackZ17Sig unpacks z packed by packZ17.
func unpackZ17Sig(b []byte) ringElement {
	const gamma1 = 1 << 17
	var f ringElement
	for i, v := range unpackBits(b, 18, n) {
		f[i] = fieldSub(gamma1, fieldElement(v))
	}
	return f
}

// packZ19 is packZ17's counterpart for gamma1 = 2^19, using 20 bits each.
func packZ19(f ringElement) []byte {
	const gamma1 = 1 << 19
	vals := make([]uint32, n)
	for i, c := range f {
		vals[i] = uint32(fieldSub(gamma1, c))
	}
	return packBits(vals, 20)
}

// unpackZ19Sig unpacks z packed by packZ19.
func unpackZ19Sig(b []byte) ringElement {
	const gamma1 = 1 << 19
	var f ringElement
	for i, v := range unpackBits(b, 20, n) {
		f[i] = fieldSub(gamma1, fieldElement(v))
	}
	return f
}

// packW1_4 packs the commitment w1 with unsigned 4-bit coefficients
// (ML-DSA-65/87, where gamma2 leaves 16 possible HighBits values).
func packW1_4(f ringElement) []byte {
	return packBits(coeffsOf(f), 4)
}

// packW1_6 packs w1 with unsigned 6-bit coefficients (ML-DSA-44, where
// gamma2 leaves 44 possible HighBits values).
func packW1_6(f ringElement) []byte {
	return packBits(coeffsOf(f), 6)
}

// packHint serializes a hint vector as a sparse position list: for each
// polynomial, the indices of its nonzero coefficients, followed by a
// running total of how many indices have been written so far (FIPS 204's
// HintBitPack).
func packHint[T ~[n]fieldElement](hints []T, omega int) []byte {
	b := make([]byte, omega+len(hints))
	pos := 0
	for i, h := range hints {
		for j, c := range h {
			if c != 0 {
				b[pos] = byte(j)
				pos++
			}
		}
		b[omega+i] = byte(pos)
	}
	return b
}

// unpackHint is packHint's inverse, rejecting any encoding whose per-
// polynomial index runs aren't in bounds and strictly increasing, or whose
// unused trailing bytes aren't zero (FIPS 204's HintBitUnpack).
func unpackHint[T ~[n]fieldElement](b []byte, hints []T, omega int) bool {
	pos := 0
	for i := range hints {
		limit := int(b[omega+i])
		if limit < pos || limit > omega {
			return false
		}
		runStart := pos
		for ; pos < limit; pos++ {
			j := b[pos]
			if pos > runStart && b[pos-1] >= j {
				return false
			}
			hints[i][j] = 1
		}
	}
	for ; pos < omega; pos++ {
		if b[pos] != 0 {
			return false
		}
	}
	return true
}
