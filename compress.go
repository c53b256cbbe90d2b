package mldsa

// power2Round splits r = r1*2^d + r0 with r0 centered in (-2^(d-1), 2^(d-1)]
// (FIPS 204 Algorithm 35). r1 carries the bits a signer publishes as t1;
// r0 is folded into the private key as t0.
func power2Round(r fieldElement) (r1, r0 fieldElement) {
	const half = 1 << (d - 1)

	r1 = r >> d
	r0 = r - r1<<d
	if r0 > half {
		r0 = fieldSub(r0, 1<<d)
		r1++
	}
	return r1, r0
}

// highBits returns HighBits(r) for the given gamma2 (FIPS 204 Algorithm 37).
// Both branches approximate division by 2*gamma2 with a fixed-point
// multiply-and-shift rather than an integer division.
func highBits(r fieldElement, gamma2 uint32) uint32 {
	rounded := int32((r + 127) >> 7)

	switch gamma2 {
	case gamma2QMinus1Div32:
		v := (rounded*1025 + (1 << 21)) >> 22
		return uint32(v) & 15
	default: // gamma2QMinus1Div88
		v := (rounded*11275 + (1 << 23)) >> 24
		v ^= ((43 - v) >> 31) & v // clamp the rare v == 44 case back to 0
		return uint32(v)
	}
}

// decompose splits r = r1*2*gamma2 + r0 with r0 centered around zero
// (FIPS 204 Algorithms 36-38).
func decompose(r fieldElement, gamma2 uint32) (r1 uint32, r0 int32) {
	r1 = highBits(r, gamma2)
	r0 = int32(r) - int32(r1)*int32(gamma2)*2
	r0 -= ((int32(qMinus1Div2) - r0) >> 31) & q
	return r1, r0
}

// makeHint reports whether adding the z correction to r crosses a HighBits
// boundary (FIPS 204 Algorithm 39); signatures carry one such bit per
// coefficient the verifier needs help rounding.
func makeHint(z, r fieldElement, gamma2 uint32) fieldElement {
	shifted := fieldAdd(r, z)
	if highBits(shifted, gamma2) != highBits(r, gamma2) {
		return 1
	}
	return 0
}

// useHint applies a hint bit to move HighBits(r) one step toward the value
// the signer saw (FIPS 204 Algorithm 40): in verification r is
// w - c*s2 + c*t0 and the result is HighBits(w - c*s2). It wraps at the
// modulus-specific bound m
// (16 for gamma2QMinus1Div32, 44 for gamma2QMinus1Div88).
func useHint(hint, r fieldElement, gamma2 uint32) fieldElement {
	r1, r0 := decompose(r, gamma2)
	if hint == 0 {
		return fieldElement(r1)
	}

	switch gamma2 {
	case gamma2QMinus1Div32:
		if r0 > 0 {
			return fieldElement((r1 + 1) & 15)
		}
		return fieldElement((r1 - 1) & 15)
	default:
		if r0 > 0 {
			if r1 == 43 {
				return 0
			}
			return fieldElement(r1 + 1)
		}
		if r1 == 0 {
			return 43
		}
		return fieldElement(r1 - 1)
	}
}

// infinityNorm returns |a| for a interpreted as a signed residue: the
// smaller of a and q-a.
func infinityNorm(a fieldElement) uint32 {
	v := uint32(a)
	if v <= qMinus1Div2 {
		return v
	}
	return q - v
}

// polyInfinityNorm returns the largest infinityNorm among f's coefficients.
func polyInfinityNorm[T ~[n]fieldElement](f T) uint32 {
	var peak uint32
	for _, c := range f {
		if norm := infinityNorm(c); norm > peak {
			peak = norm
		}
	}
	return peak
}

// vectorInfinityNorm returns the largest polyInfinityNorm among v's entries.
func vectorInfinityNorm[T ~[n]fieldElement](v []T) uint32 {
	var peak uint32
	for _, p := range v {
		if norm := polyInfinityNorm(p); norm > peak {
			peak = norm
		}
	}
	return peak
}

// vectorInfinityNormSigned is vectorInfinityNorm's counterpart for vectors
// already materialized as plain signed coefficients.
func vectorInfinityNormSigned(v [][n]int32) int32 {
	var peak int32
	for _, p := range v {
		for _, c := range p {
			if c < 0 {
				c = -c
			}
			if c > peak {
				peak = c
			}
		}
	}
	return peak
}

// countOnes totals the nonzero coefficients across v, used to bound the
// number of hint bits a signature may carry.
func countOnes[T ~[n]fieldElement](v []T) int {
	total := 0
	for _, p := range v {
		for _, c := range p {
			if c != 0 {
				total++
			}
		}
	}
	return total
}
