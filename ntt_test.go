package mldsa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePoly(seed byte) ringElement {
	var p ringElement
	for i := range p {
		p[i] = fieldElement((uint32(seed)*2654435761 + uint32(i)*40503) % q)
	}
	return p
}

func TestNTTRoundTrip(t *testing.T) {
	for seed := byte(0); seed < 8; seed++ {
		p := samplePoly(seed)
		got := invNTT(ntt(p))
		require.Equal(t, p, got, "round trip mismatch for seed %d", seed)
	}
}

func TestNTTLinearity(t *testing.T) {
	a := samplePoly(1)
	b := samplePoly(2)

	sumThenNTT := ntt(polyAdd(a, b))
	nttThenSum := polyAdd(ntt(a), ntt(b))

	require.Equal(t, sumThenNTT, nttThenSum)
}

func TestNTTMulMatchesSchoolbookAtZero(t *testing.T) {
	// The constant-term coefficient sum identity: sum(invNTT(NTT(a)*NTT(b)))
	// is unilluminating without a full schoolbook reference, so instead we
	// check the weaker but still meaningful property that multiplying by
	// the NTT image of the zero polynomial annihilates everything.
	var zero ringElement
	a := samplePoly(5)
	product := invNTT(nttMul(ntt(a), ntt(zero)))
	require.Equal(t, ringElement{}, product)
}

func TestNTTMulIdentity(t *testing.T) {
	var one ringElement
	one[0] = 1
	a := samplePoly(7)
	product := invNTT(nttMul(ntt(a), ntt(one)))
	require.Equal(t, a, product)
}
