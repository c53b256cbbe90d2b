package mldsa

import (
	"crypto"
	"crypto/sha3"
	"fmt"
	"io"
)

// CompactPrivateKey44 holds exactly the wire-serializable fields of an
// ML-DSA-44 private key: (rho, K, tr, s1, s2, t0). Decoding a private key
// only ever produces this form; deriving the NTT-domain matrix and secret
// vector caches needed to sign is a separate, explicit step
// (GenExpandedPrivate44) so a caller that only wants to store or forward a
// private key never pays for it.
type CompactPrivateKey44 struct {
	rho [32]byte         // Public seed
	key [32]byte         // Private seed for signing
	tr  [64]byte         // H(pk)
	s1  [l44]ringElement // Secret vector
	s2  [k44]ringElement // Secret vector
	t0  [k44]ringElement // Low bits of t
}

// PrivateKey44 is an expanded ML-DSA-44 private key: a CompactPrivateKey44
// plus the NTT-domain caches (matrix A, and NTT(s1), NTT(s2), NTT(t0)) that
// signing needs on every call.
type PrivateKey44 struct {
	CompactPrivateKey44
	a     [k44 * l44]nttElement // Matrix A in NTT form
	s1NTT [l44]nttElement
	s2NTT [k44]nttElement
	t0NTT [k44]nttElement
}

// CompactPublicKey44 holds exactly the wire-serializable fields of an
// ML-DSA-44 public key: (rho, t1). tr is cached alongside since it is a
// pure function of the encoded bytes and is needed by both signing and
// verification.
type CompactPublicKey44 struct {
	rho [32]byte         // Public seed
	t1  [k44]ringElement // High bits of t
	tr  [64]byte         // H(pk)
}

// PublicKey44 is an expanded ML-DSA-44 public key: a CompactPublicKey44
// plus the NTT-domain caches (matrix A, and NTT(t1*2^d)) that verification
// needs on every call.
type PublicKey44 struct {
	CompactPublicKey44
	a     [k44 * l44]nttElement // Matrix A in NTT form
	t1NTT [k44]nttElement
}

// Key44 is a key pair for ML-DSA-44, holding both private and public
// components in expanded form.
type Key44 struct {
	PrivateKey44
	seed [32]byte         // Original seed
	t1   [k44]ringElement // Public key component
}

// GenerateKey44 generates a new ML-DSA-44 key pair using rand.
func GenerateKey44(rand io.Reader) (*Key44, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", RngFailure, err)
	}
	return NewKey44(seed[:])
}

// NewKey44 creates a key pair from a 32-byte seed.
func NewKey44(seed []byte) (*Key44, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("mldsa: invalid seed length %d, want %d", len(seed), SeedSize)
	}

	key := &Key44{}
	copy(key.seed[:], seed)
	key.generate()
	return key, nil
}

func (key *Key44) generate() {
	h := sha3.NewSHAKE256()
	h.Write(key.seed[:])
	h.Write([]byte{k44, l44})

	var expanded [128]byte
	h.Read(expanded[:])
	defer zeroBytes(expanded[:])

	copy(key.rho[:], expanded[:32])
	rho1 := expanded[32:96]
	copy(key.key[:], expanded[96:128])

	for i := 0; i < l44; i++ {
		key.s1[i] = sampleBoundedPoly(rho1, eta2, uint16(i))
	}
	for i := 0; i < k44; i++ {
		key.s2[i] = sampleBoundedPoly(rho1, eta2, uint16(l44+i))
	}

	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			key.a[i*l44+j] = sampleNTTPoly(key.rho[:], byte(j), byte(i))
		}
	}

	for i := 0; i < l44; i++ {
		key.s1NTT[i] = ntt(key.s1[i])
	}

	var t [k44]ringElement
	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l44+j], key.s1NTT[j]))
		}
		t[i] = polyAdd(invNTT(acc), key.s2[i])

		for j := 0; j < n; j++ {
			key.t1[i][j], key.t0[i][j] = power2Round(t[i][j])
		}
	}

	for i := 0; i < k44; i++ {
		key.s2NTT[i] = ntt(key.s2[i])
		key.t0NTT[i] = ntt(key.t0[i])
	}

	pkBytes := key.publicKeyBytes()
	h.Reset()
	h.Write(pkBytes)
	h.Read(key.tr[:])
}

func (key *Key44) publicKeyBytes() []byte {
	b := make([]byte, PublicKeySize44)
	copy(b[:32], key.rho[:])
	offset := 32
	for i := 0; i < k44; i++ {
		packed := packT1(key.t1[i])
		copy(b[offset:], packed)
		offset += encodingSize10
	}
	return b
}

// PublicKey returns the expanded public key for this key pair.
func (key *Key44) PublicKey() *PublicKey44 {
	pk := &PublicKey44{
		CompactPublicKey44: CompactPublicKey44{
			rho: key.rho,
			t1:  key.t1,
			tr:  key.tr,
		},
		a: key.a,
	}
	pk.cacheT1NTT()
	return pk
}

func (pk *PublicKey44) cacheT1NTT() {
	for i := 0; i < k44; i++ {
		var t1Scaled ringElement
		for j := 0; j < n; j++ {
			t1Scaled[j] = pk.t1[i][j] << d
		}
		pk.t1NTT[i] = ntt(t1Scaled)
	}
}

// Bytes returns the 32-byte seed this key pair was generated from.
func (key *Key44) Bytes() []byte {
	b := make([]byte, SeedSize)
	copy(b, key.seed[:])
	return b
}

// PrivateKeyBytes returns the full encoded private key.
func (key *Key44) PrivateKeyBytes() []byte {
	return key.CompactPrivateKey44.Bytes()
}

// Zero wipes the seed and all private key material in place. The key pair
// must not be used afterward.
func (key *Key44) Zero() {
	zeroBytes(key.seed[:])
	key.PrivateKey44.Zero()
}

// Compact discards the NTT-domain caches, returning only the
// wire-serializable fields.
func (sk *PrivateKey44) Compact() *CompactPrivateKey44 {
	c := sk.CompactPrivateKey44
	return &c
}

// Zero wipes all private key material, including the cached NTT-domain
// matrix and secret-vector images, in place.
func (sk *PrivateKey44) Zero() {
	zeroBytes(sk.rho[:])
	zeroBytes(sk.key[:])
	zeroBytes(sk.tr[:])
	zeroPolyVec(sk.s1[:])
	zeroPolyVec(sk.s2[:])
	zeroPolyVec(sk.t0[:])
	zeroPolyVec(sk.a[:])
	zeroPolyVec(sk.s1NTT[:])
	zeroPolyVec(sk.s2NTT[:])
	zeroPolyVec(sk.t0NTT[:])
}

// Bytes returns the encoded private key: rho || K || tr || s1 || s2 || t0.
func (sk *CompactPrivateKey44) Bytes() []byte {
	b := make([]byte, PrivateKeySize44)
	copy(b[:32], sk.rho[:])
	copy(b[32:64], sk.key[:])
	copy(b[64:128], sk.tr[:])

	offset := 128
	for i := 0; i < l44; i++ {
		packed := packEta2(sk.s1[i])
		copy(b[offset:], packed)
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		packed := packEta2(sk.s2[i])
		copy(b[offset:], packed)
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		packed := packT0(sk.t0[i])
		copy(b[offset:], packed)
		offset += encodingSize13
	}
	return b
}

// Compact returns the wire-serializable fields of an expanded public key.
func (pk *PublicKey44) Compact() *CompactPublicKey44 {
	c := pk.CompactPublicKey44
	return &c
}

// Bytes returns the encoded public key: rho || SimpleBitPack(t1).
func (pk *CompactPublicKey44) Bytes() []byte {
	b := make([]byte, PublicKeySize44)
	copy(b[:32], pk.rho[:])
	offset := 32
	for i := 0; i < k44; i++ {
		packed := packT1(pk.t1[i])
		copy(b[offset:], packed)
		offset += encodingSize10
	}
	return b
}

// Equal reports whether pk and other are the same public key.
func (pk *CompactPublicKey44) Equal(other crypto.PublicKey) bool {
	if o, ok := other.(*CompactPublicKey44); ok {
		return pk.rho == o.rho && pk.t1 == o.t1
	}
	op, ok := other.(*PublicKey44)
	if !ok {
		return false
	}
	return pk.rho == op.rho && pk.t1 == op.t1
}

// Equal reports whether pk and other are the same public key.
func (pk *PublicKey44) Equal(other crypto.PublicKey) bool {
	return pk.CompactPublicKey44.Equal(other)
}

// NewCompactPublicKey44 decodes an encoded public key without deriving its
// NTT-domain caches. Returns MalformedPublicKey on a length mismatch.
func NewCompactPublicKey44(b []byte) (*CompactPublicKey44, error) {
	if len(b) != PublicKeySize44 {
		return nil, fmt.Errorf("%w: length %d, want %d", MalformedPublicKey, len(b), PublicKeySize44)
	}

	pk := &CompactPublicKey44{}
	copy(pk.rho[:], b[:32])

	offset := 32
	for i := 0; i < k44; i++ {
		pk.t1[i] = unpackT1(b[offset : offset+encodingSize10])
		offset += encodingSize10
	}

	h := sha3.NewSHAKE256()
	h.Write(b)
	h.Read(pk.tr[:])

	return pk, nil
}

// GenExpandedPublic44 derives the NTT-domain matrix and t1 cache from a
// compact public key.
func GenExpandedPublic44(c *CompactPublicKey44) (*PublicKey44, error) {
	pk := &PublicKey44{CompactPublicKey44: *c}
	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			pk.a[i*l44+j] = sampleNTTPoly(pk.rho[:], byte(j), byte(i))
		}
	}
	pk.cacheT1NTT()
	return pk, nil
}

// NewPublicKey44 decodes and fully expands an encoded public key in one
// step; equivalent to NewCompactPublicKey44 followed by GenExpandedPublic44.
func NewPublicKey44(b []byte) (*PublicKey44, error) {
	c, err := NewCompactPublicKey44(b)
	if err != nil {
		return nil, err
	}
	return GenExpandedPublic44(c)
}

// NewCompactPrivateKey44 decodes an encoded private key without deriving
// its NTT-domain caches. Returns MalformedPrivateKey on a length mismatch
// or an out-of-range secret coefficient.
func NewCompactPrivateKey44(b []byte) (*CompactPrivateKey44, error) {
	if len(b) != PrivateKeySize44 {
		return nil, fmt.Errorf("%w: length %d, want %d", MalformedPrivateKey, len(b), PrivateKeySize44)
	}

	sk := &CompactPrivateKey44{}
	copy(sk.rho[:], b[:32])
	copy(sk.key[:], b[32:64])
	copy(sk.tr[:], b[64:128])

	offset := 128
	var err error
	for i := 0; i < l44; i++ {
		sk.s1[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, fmt.Errorf("%w: s1[%d]: %v", MalformedPrivateKey, i, err)
		}
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		sk.s2[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, fmt.Errorf("%w: s2[%d]: %v", MalformedPrivateKey, i, err)
		}
		offset += encodingSize3
	}
	for i := 0; i < k44; i++ {
		sk.t0[i] = unpackT0(b[offset : offset+encodingSize13])
		offset += encodingSize13
	}

	return sk, nil
}

// GenExpandedPrivate44 derives the NTT-domain matrix and secret-vector
// caches from a compact private key.
func GenExpandedPrivate44(c *CompactPrivateKey44) (*PrivateKey44, error) {
	sk := &PrivateKey44{CompactPrivateKey44: *c}
	for i := 0; i < k44; i++ {
		for j := 0; j < l44; j++ {
			sk.a[i*l44+j] = sampleNTTPoly(sk.rho[:], byte(j), byte(i))
		}
	}
	for i := 0; i < l44; i++ {
		sk.s1NTT[i] = ntt(sk.s1[i])
	}
	for i := 0; i < k44; i++ {
		sk.s2NTT[i] = ntt(sk.s2[i])
		sk.t0NTT[i] = ntt(sk.t0[i])
	}
	return sk, nil
}

// NewPrivateKey44 decodes and fully expands an encoded private key in one
// step; equivalent to NewCompactPrivateKey44 followed by
// GenExpandedPrivate44.
func NewPrivateKey44(b []byte) (*PrivateKey44, error) {
	c, err := NewCompactPrivateKey44(b)
	if err != nil {
		return nil, err
	}
	return GenExpandedPrivate44(c)
}

// Public returns the public key corresponding to this private key,
// implementing crypto.Signer.
func (sk *PrivateKey44) Public() crypto.PublicKey {
	pk := &PublicKey44{
		CompactPublicKey44: CompactPublicKey44{rho: sk.rho, tr: sk.tr},
		a:                  sk.a,
	}
	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(sk.a[i*l44+j], sk.s1NTT[j]))
		}
		t := polyAdd(invNTT(acc), sk.s2[i])
		for j := 0; j < n; j++ {
			pk.t1[i][j], _ = power2Round(t[j])
		}
	}
	pk.cacheT1NTT()
	return pk
}

// Sign signs digest with the private key, implementing crypto.Signer. For
// ML-DSA the digest is the message itself, not a hash; if opts is
// *SignerOpts, its Context field is used for domain separation.
func (sk *PrivateKey44) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return sk.SignMessage(rand, digest, opts)
}

// SignMessage signs msg with the private key, implementing
// crypto.MessageSigner. Returns an error if opts specifies a hash
// function, since ML-DSA signs messages directly rather than a digest.
func (sk *PrivateKey44) SignMessage(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	if opts != nil && opts.HashFunc() != 0 {
		return nil, fmt.Errorf("mldsa: cannot sign pre-hashed messages")
	}
	var context []byte
	if o, ok := opts.(*SignerOpts); ok && o != nil {
		context = o.Context
	}
	return sk.SignWithContext(rand, msg, context)
}

// SignWithContext signs message with an optional context string (at most
// 255 bytes), reading one 32-byte rnd value from rand per signature (the
// "hedged" variant of FIPS 204 Algorithm 7).
func (sk *PrivateKey44) SignWithContext(rand io.Reader, message, context []byte) ([]byte, error) {
	if len(context) > 255 {
		return nil, errContextTooLong
	}

	var rnd [32]byte
	if _, err := io.ReadFull(rand, rnd[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", RngFailure, err)
	}
	defer zeroBytes(rnd[:])

	return sk.signInternal(rnd[:], mPrime(message, context))
}

// SignDeterministic signs message with an optional context string using
// an all-zero rnd value (the deterministic variant of FIPS 204
// Algorithm 7, step 2). No randomness is consumed; the signature is a
// function of the private key, context, and message alone.
func (sk *PrivateKey44) SignDeterministic(message, context []byte) ([]byte, error) {
	if len(context) > 255 {
		return nil, errContextTooLong
	}
	var rnd [32]byte
	return sk.signInternal(rnd[:], mPrime(message, context))
}

// mPrime builds M' = 0x00 || len(ctx) || ctx || msg.
func mPrime(message, context []byte) []byte {
	m := make([]byte, 2+len(context)+len(message))
	m[0] = 0
	m[1] = byte(len(context))
	copy(m[2:], context)
	copy(m[2+len(context):], message)
	return m
}

// signInternal implements ML-DSA.Sign_internal (FIPS 204 Algorithm 7).
func (sk *PrivateKey44) signInternal(rnd, mp []byte) ([]byte, error) {
	h := sha3.NewSHAKE256()
	h.Write(sk.tr[:])
	h.Write(mp)

	var mu [64]byte
	h.Read(mu[:])

	h.Reset()
	h.Write(sk.key[:])
	h.Write(rnd)
	h.Write(mu[:])

	var rhoPrime [64]byte
	h.Read(rhoPrime[:])
	defer zeroBytes(rhoPrime[:])

	var seedBuf [66]byte
	copy(seedBuf[:64], rhoPrime[:])
	defer zeroBytes(seedBuf[:])

	for attempt := 0; ; attempt++ {
		if attempt >= MaxSignAttempts {
			return nil, RejectionExhausted
		}
		kappa := uint16(attempt) * l44

		var y [l44]ringElement
		for i := 0; i < l44; i++ {
			seedBuf[64] = byte(kappa + uint16(i))
			seedBuf[65] = byte((kappa + uint16(i)) >> 8)
			y[i] = expandMask(seedBuf[:], gamma1Bits17)
		}

		var yNTT [l44]nttElement
		for i := 0; i < l44; i++ {
			yNTT[i] = ntt(y[i])
		}

		var w [k44]ringElement
		var w1 [k44]ringElement
		for i := 0; i < k44; i++ {
			var acc nttElement
			for j := 0; j < l44; j++ {
				acc = polyAdd(acc, nttMul(sk.a[i*l44+j], yNTT[j]))
			}
			w[i] = invNTT(acc)

			for j := 0; j < n; j++ {
				w1[i][j] = fieldElement(highBits(w[i][j], gamma2QMinus1Div88))
			}
		}

		h.Reset()
		h.Write(mu[:])
		for i := 0; i < k44; i++ {
			h.Write(packW1_6(w1[i]))
		}
		var cTilde [lambda128 / 4]byte
		h.Read(cTilde[:])

		c := sampleChallenge(cTilde[:], tau39)
		cNTT := ntt(c)

		var z [l44]ringElement
		for i := 0; i < l44; i++ {
			cs1 := invNTT(nttMul(cNTT, sk.s1NTT[i]))
			z[i] = polyAdd(y[i], cs1)
		}
		zeroPolyVec(y[:])
		zeroPolyVec(yNTT[:])

		if vectorInfinityNorm(z[:]) >= gamma1Pow17-beta44 {
			continue
		}

		var r0 [k44][n]int32
		for i := 0; i < k44; i++ {
			cs2 := invNTT(nttMul(cNTT, sk.s2NTT[i]))
			for j := 0; j < n; j++ {
				_, r0[i][j] = decompose(fieldSub(w[i][j], cs2[j]), gamma2QMinus1Div88)
			}
		}

		if vectorInfinityNormSigned(r0[:]) >= int32(gamma2QMinus1Div88-beta44) {
			continue
		}

		var ct0 [k44]ringElement
		for i := 0; i < k44; i++ {
			ct0[i] = invNTT(nttMul(cNTT, sk.t0NTT[i]))
		}

		if vectorInfinityNorm(ct0[:]) >= gamma2QMinus1Div88 {
			continue
		}

		var hints [k44]ringElement
		for i := 0; i < k44; i++ {
			cs2 := invNTT(nttMul(cNTT, sk.s2NTT[i]))
			for j := 0; j < n; j++ {
				r := fieldSub(w[i][j], cs2[j])
				hints[i][j] = makeHint(ct0[i][j], r, gamma2QMinus1Div88)
			}
		}
		zeroPolyVec(ct0[:])

		if countOnes(hints[:]) > omega80 {
			continue
		}

		return EncodeSignature44(cTilde[:], z, hints), nil
	}
}

// EncodeSignature44 packs (c~, z, h) into wire format:
// c~ || BitPack(z, gamma1-1, gamma1) || HintBitPack(h, omega).
func EncodeSignature44(cTilde []byte, z [l44]ringElement, h [k44]ringElement) []byte {
	sig := make([]byte, SignatureSize44)
	copy(sig[:lambda128/4], cTilde)
	offset := lambda128 / 4
	for i := 0; i < l44; i++ {
		packed := packZ17(z[i])
		copy(sig[offset:], packed)
		offset += encodingSize18
	}
	hintPacked := packHint(h[:], omega80)
	copy(sig[offset:], hintPacked)
	return sig
}

// DecodeSignature44 unpacks a wire-format signature, validating z's range
// and the hint's structural invariants. Returns MalformedSignature on any
// violation.
func DecodeSignature44(sig []byte) (cTilde [lambda128 / 4]byte, z [l44]ringElement, h [k44]ringElement, err error) {
	if len(sig) != SignatureSize44 {
		err = fmt.Errorf("%w: length %d, want %d", MalformedSignature, len(sig), SignatureSize44)
		return
	}
	copy(cTilde[:], sig[:lambda128/4])
	offset := lambda128 / 4
	for i := 0; i < l44; i++ {
		z[i] = unpackZ17Sig(sig[offset : offset+encodingSize18])
		offset += encodingSize18
	}

	if vectorInfinityNorm(z[:]) >= gamma1Pow17-beta44 {
		err = fmt.Errorf("%w: z coefficient out of range", MalformedSignature)
		return
	}

	if !unpackHint(sig[offset:], h[:], omega80) {
		err = fmt.Errorf("%w: invalid hint encoding", MalformedSignature)
		return
	}
	return
}

// Verify checks the signature over message with an optional context
// string. Runs in variable time, as permitted by FIPS 204 for
// verification. Any decode failure is folded into a false result rather
// than surfaced as an error, so a malformed signature cannot be
// distinguished from a well-formed but invalid one.
func (pk *PublicKey44) Verify(sig, message, context []byte) bool {
	if len(context) > 255 {
		return false
	}
	cTilde, z, h, err := DecodeSignature44(sig)
	if err != nil {
		return false
	}
	return pk.verifyInternal(cTilde, z, h, mPrime(message, context))
}

// verifyInternal implements ML-DSA.Verify_internal (FIPS 204 Algorithm 8).
func (pk *PublicKey44) verifyInternal(cTilde [lambda128 / 4]byte, z [l44]ringElement, hints [k44]ringElement, mp []byte) bool {
	h := sha3.NewSHAKE256()
	h.Write(pk.tr[:])
	h.Write(mp)

	var mu [64]byte
	h.Read(mu[:])

	c := sampleChallenge(cTilde[:], tau39)
	cNTT := ntt(c)

	var zNTT [l44]nttElement
	for i := 0; i < l44; i++ {
		zNTT[i] = ntt(z[i])
	}

	var w1 [k44]ringElement
	h.Reset()
	h.Write(mu[:])

	for i := 0; i < k44; i++ {
		var acc nttElement
		for j := 0; j < l44; j++ {
			acc = polyAdd(acc, nttMul(pk.a[i*l44+j], zNTT[j]))
		}
		ct1 := nttMul(cNTT, pk.t1NTT[i])
		acc = polySub(acc, ct1)
		wApprox := invNTT(acc)

		for j := 0; j < n; j++ {
			w1[i][j] = useHint(hints[i][j], wApprox[j], gamma2QMinus1Div88)
		}

		h.Write(packW1_6(w1[i]))
	}

	var cTildeCheck [lambda128 / 4]byte
	h.Read(cTildeCheck[:])

	var diff byte
	for i := range cTilde {
		diff |= cTilde[i] ^ cTildeCheck[i]
	}
	return diff == 0
}

// Sign signs digest with the key pair's private key, implementing
// crypto.Signer.
func (key *Key44) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return key.PrivateKey44.Sign(rand, digest, opts)
}

// SignMessage signs msg with the key pair's private key, implementing
// crypto.MessageSigner.
func (key *Key44) SignMessage(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	return key.PrivateKey44.SignMessage(rand, msg, opts)
}

// SignWithContext signs message with an optional context string using the
// key pair's private key.
func (key *Key44) SignWithContext(rand io.Reader, message, context []byte) ([]byte, error) {
	return key.PrivateKey44.SignWithContext(rand, message, context)
}

// SignDeterministic signs message with an optional context string using
// the key pair's private key, without consuming randomness.
func (key *Key44) SignDeterministic(message, context []byte) ([]byte, error) {
	return key.PrivateKey44.SignDeterministic(message, context)
}
