package mldsa

import (
	"crypto"
	"crypto/sha3"
	"fmt"
	"io"
)

// CompactPrivateKey87 holds exactly the wire-serializable fields of an
// ML-DSA-87 private key: (rho, K, tr, s1, s2, t0).
type CompactPrivateKey87 struct {
	rho [32]byte         // Public seed
	key [32]byte         // Private seed for signing
	tr  [64]byte         // H(pk)
	s1  [l87]ringElement // Secret vector
	s2  [k87]ringElement // Secret vector
	t0  [k87]ringElement // Low bits of t
}

// PrivateKey87 is an expanded ML-DSA-87 private key: a CompactPrivateKey87
// plus the NTT-domain caches (matrix A, and NTT(s1), NTT(s2), NTT(t0)) that
// signing needs on every call.
type PrivateKey87 struct {
	CompactPrivateKey87
	a     [k87 * l87]nttElement // Matrix A in NTT form
	s1NTT [l87]nttElement
	s2NTT [k87]nttElement
	t0NTT [k87]nttElement
}

// CompactPublicKey87 holds exactly the wire-serializable fields of an
// ML-DSA-87 public key: (rho, t1).
type CompactPublicKey87 struct {
	rho [32]byte         // Public seed
	t1  [k87]ringElement // High bits of t
	tr  [64]byte         // H(pk)
}

// PublicKey87 is an expanded ML-DSA-87 public key: a CompactPublicKey87
// plus the NTT-domain caches (matrix A, and NTT(t1*2^d)) that verification
// needs on every call.
type PublicKey87 struct {
	CompactPublicKey87
	a     [k87 * l87]nttElement // Matrix A in NTT form
	t1NTT [k87]nttElement
}

// Key87 is a key pair for ML-DSA-87, holding both private and public
// components in expanded form.
type Key87 struct {
	PrivateKey87
	seed [32]byte         // Original seed
	t1   [k87]ringElement // Public key component
}

// GenerateKey87 generates a new ML-DSA-87 key pair using rand.
func GenerateKey87(rand io.Reader) (*Key87, error) {
	var seed [SeedSize]byte
	if _, err := io.ReadFull(rand, seed[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", RngFailure, err)
	}
	return NewKey87(seed[:])
}

// NewKey87 creates a key pair from a 32-byte seed.
func NewKey87(seed []byte) (*Key87, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("mldsa: invalid seed length %d, want %d", len(seed), SeedSize)
	}

	key := &Key87{}
	copy(key.seed[:], seed)
	key.generate()
	return key, nil
}

func (key *Key87) generate() {
	h := sha3.NewSHAKE256()
	h.Write(key.seed[:])
	h.Write([]byte{k87, l87})

	var expanded [128]byte
	h.Read(expanded[:])
	defer zeroBytes(expanded[:])

	copy(key.rho[:], expanded[:32])
	rho1 := expanded[32:96]
	copy(key.key[:], expanded[96:128])

	for i := 0; i < l87; i++ {
		key.s1[i] = sampleBoundedPoly(rho1, eta2, uint16(i))
	}
	for i := 0; i < k87; i++ {
		key.s2[i] = sampleBoundedPoly(rho1, eta2, uint16(l87+i))
	}

	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			key.a[i*l87+j] = sampleNTTPoly(key.rho[:], byte(j), byte(i))
		}
	}

	for i := 0; i < l87; i++ {
		key.s1NTT[i] = ntt(key.s1[i])
	}

	var t [k87]ringElement
	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(key.a[i*l87+j], key.s1NTT[j]))
		}
		t[i] = polyAdd(invNTT(acc), key.s2[i])

		for j := 0; j < n; j++ {
			key.t1[i][j], key.t0[i][j] = power2Round(t[i][j])
		}
	}

	for i := 0; i < k87; i++ {
		key.s2NTT[i] = ntt(key.s2[i])
		key.t0NTT[i] = ntt(key.t0[i])
	}

	pkBytes := key.publicKeyBytes()
	h.Reset()
	h.Write(pkBytes)
	h.Read(key.tr[:])
}

func (key *Key87) publicKeyBytes() []byte {
	b := make([]byte, PublicKeySize87)
	copy(b[:32], key.rho[:])
	offset := 32
	for i := 0; i < k87; i++ {
		packed := packT1(key.t1[i])
		copy(b[offset:], packed)
		offset += encodingSize10
	}
	return b
}

// PublicKey returns the expanded public key for this key pair.
func (key *Key87) PublicKey() *PublicKey87 {
	pk := &PublicKey87{
		CompactPublicKey87: CompactPublicKey87{
			rho: key.rho,
			t1:  key.t1,
			tr:  key.tr,
		},
		a: key.a,
	}
	pk.cacheT1NTT()
	return pk
}

func (pk *PublicKey87) cacheT1NTT() {
	for i := 0; i < k87; i++ {
		var t1Scaled ringElement
		for j := 0; j < n; j++ {
			t1Scaled[j] = pk.t1[i][j] << d
		}
		pk.t1NTT[i] = ntt(t1Scaled)
	}
}

// Bytes returns the 32-byte seed this key pair was generated from.
func (key *Key87) Bytes() []byte {
	b := make([]byte, SeedSize)
	copy(b, key.seed[:])
	return b
}

// PrivateKeyBytes returns the full encoded private key.
func (key *Key87) PrivateKeyBytes() []byte {
	return key.CompactPrivateKey87.Bytes()
}

// Zero wipes the seed and all private key material in place. The key pair
// must not be used afterward.
func (key *Key87) Zero() {
	zeroBytes(key.seed[:])
	key.PrivateKey87.Zero()
}

// Compact discards the NTT-domain caches, returning only the
// wire-serializable fields.
func (sk *PrivateKey87) Compact() *CompactPrivateKey87 {
	c := sk.CompactPrivateKey87
	return &c
}

// Zero wipes all private key material, including the cached NTT-domain
// matrix and secret-vector images, in place.
func (sk *PrivateKey87) Zero() {
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
func (sk *CompactPrivateKey87) Bytes() []byte {
	b := make([]byte, PrivateKeySize87)
	copy(b[:32], sk.rho[:])
	copy(b[32:64], sk.key[:])
	copy(b[64:128], sk.tr[:])

	offset := 128
	for i := 0; i < l87; i++ {
		packed := packEta2(sk.s1[i])
		copy(b[offset:], packed)
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		packed := packEta2(sk.s2[i])
		copy(b[offset:], packed)
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		packed := packT0(sk.t0[i])
		copy(b[offset:], packed)
		offset += encodingSize13
	}
	return b
}

// Compact returns the wire-serializable fields of an expanded public key.
func (pk *PublicKey87) Compact() *CompactPublicKey87 {
	c := pk.CompactPublicKey87
	return &c
}

// Bytes returns the encoded public key: rho || SimpleBitPack(t1).
func (pk *CompactPublicKey87) Bytes() []byte {
	b := make([]byte, PublicKeySize87)
	copy(b[:32], pk.rho[:])
	offset := 32
	for i := 0; i < k87; i++ {
		packed := packT1(pk.t1[i])
		copy(b[offset:], packed)
		offset += encodingSize10
	}
	return b
}

// Equal reports whether pk and other are the same public key.
func (pk *CompactPublicKey87) Equal(other crypto.PublicKey) bool {
	if o, ok := other.(*CompactPublicKey87); ok {
		return pk.rho == o.rho && pk.t1 == o.t1
	}
	op, ok := other.(*PublicKey87)
	if !ok {
		return false
	}
	return pk.rho == op.rho && pk.t1 == op.t1
}

// Equal reports whether pk and other are the same public key.
func (pk *PublicKey87) Equal(other crypto.PublicKey) bool {
	return pk.CompactPublicKey87.Equal(other)
}

// NewCompactPublicKey87 decodes an encoded public key without deriving its
// NTT-domain caches. Returns MalformedPublicKey on a length mismatch.
func NewCompactPublicKey87(b []byte) (*CompactPublicKey87, error) {
	if len(b) != PublicKeySize87 {
		return nil, fmt.Errorf("%w: length %d, want %d", MalformedPublicKey, len(b), PublicKeySize87)
	}

	pk := &CompactPublicKey87{}
	copy(pk.rho[:], b[:32])

	offset := 32
	for i := 0; i < k87; i++ {
		pk.t1[i] = unpackT1(b[offset : offset+encodingSize10])
		offset += encodingSize10
	}

	h := sha3.NewSHAKE256()
	h.Write(b)
	h.Read(pk.tr[:])

	return pk, nil
}

// GenExpandedPublic87 derives the NTT-domain matrix and t1 cache from a
// compact public key.
func GenExpandedPublic87(c *CompactPublicKey87) (*PublicKey87, error) {
	pk := &PublicKey87{CompactPublicKey87: *c}
	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			pk.a[i*l87+j] = sampleNTTPoly(pk.rho[:], byte(j), byte(i))
		}
	}
	pk.cacheT1NTT()
	return pk, nil
}

// NewPublicKey87 decodes and fully expands an encoded public key in one
// step; equivalent to NewCompactPublicKey87 followed by GenExpandedPublic87.
func NewPublicKey87(b []byte) (*PublicKey87, error) {
	c, err := NewCompactPublicKey87(b)
	if err != nil {
		return nil, err
	}
	return GenExpandedPublic87(c)
}

// NewCompactPrivateKey87 decodes an encoded private key without deriving
// its NTT-domain caches. Returns MalformedPrivateKey on a length mismatch
// or an out-of-range secret coefficient.
func NewCompactPrivateKey87(b []byte) (*CompactPrivateKey87, error) {
	if len(b) != PrivateKeySize87 {
		return nil, fmt.Errorf("%w: length %d, want %d", MalformedPrivateKey, len(b), PrivateKeySize87)
	}

	sk := &CompactPrivateKey87{}
	copy(sk.rho[:], b[:32])
	copy(sk.key[:], b[32:64])
	copy(sk.tr[:], b[64:128])

	offset := 128
	var err error
	for i := 0; i < l87; i++ {
		sk.s1[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, fmt.Errorf("%w: s1[%d]: %v", MalformedPrivateKey, i, err)
		}
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		sk.s2[i], err = unpackEta2(b[offset : offset+encodingSize3])
		if err != nil {
			return nil, fmt.Errorf("%w: s2[%d]: %v", MalformedPrivateKey, i, err)
		}
		offset += encodingSize3
	}
	for i := 0; i < k87; i++ {
		sk.t0[i] = unpackT0(b[offset : offset+encodingSize13])
		offset += encodingSize13
	}

	return sk, nil
}

// GenExpandedPrivate87 derives the NTT-domain matrix and secret-vector
// caches from a compact private key.
func GenExpandedPrivate87(c *CompactPrivateKey87) (*PrivateKey87, error) {
	sk := &PrivateKey87{CompactPrivateKey87: *c}
	for i := 0; i < k87; i++ {
		for j := 0; j < l87; j++ {
			sk.a[i*l87+j] = sampleNTTPoly(sk.rho[:], byte(j), byte(i))
		}
	}
	for i := 0; i < l87; i++ {
		sk.s1NTT[i] = ntt(sk.s1[i])
	}
	for i := 0; i < k87; i++ {
		sk.s2NTT[i] = ntt(sk.s2[i])
		sk.t0NTT[i] = ntt(sk.t0[i])
	}
	return sk, nil
}

// NewPrivateKey87 decodes and fully expands an encoded private key in one
// step; equivalent to NewCompactPrivateKey87 followed by
// GenExpandedPrivate87.
func NewPrivateKey87(b []byte) (*PrivateKey87, error) {
	c, err := NewCompactPrivateKey87(b)
	if err != nil {
		return nil, err
	}
	return GenExpandedPrivate87(c)
}

// Public returns the public key corresponding to this private key,
// implementing crypto.Signer.
func (sk *PrivateKey87) Public() crypto.PublicKey {
	pk := &PublicKey87{
		CompactPublicKey87: CompactPublicKey87{rho: sk.rho, tr: sk.tr},
		a:                  sk.a,
	}
	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(sk.a[i*l87+j], sk.s1NTT[j]))
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
func (sk *PrivateKey87) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return sk.SignMessage(rand, digest, opts)
}

// SignMessage signs msg with the private key, implementing
// crypto.MessageSigner. Returns an error if opts specifies a hash
// function, since ML-DSA signs messages directly rather than a digest.
func (sk *PrivateKey87) SignMessage(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
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
func (sk *PrivateKey87) SignWithContext(rand io.Reader, message, context []byte) ([]byte, error) {
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
// Algorithm 7, step 2). No randomness is consumed.
func (sk *PrivateKey87) SignDeterministic(message, context []byte) ([]byte, error) {
	if len(context) > 255 {
		return nil, errContextTooLong
	}
	var rnd [32]byte
	return sk.signInternal(rnd[:], mPrime(message, context))
}

// signInternal implements ML-DSA.Sign_internal (FIPS 204 Algorithm 7).
func (sk *PrivateKey87) signInternal(rnd, mp []byte) ([]byte, error) {
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
		kappa := uint16(attempt) * l87

		var y [l87]ringElement
		for i := 0; i < l87; i++ {
			seedBuf[64] = byte(kappa + uint16(i))
			seedBuf[65] = byte((kappa + uint16(i)) >> 8)
			y[i] = expandMask(seedBuf[:], gamma1Bits19)
		}

		var yNTT [l87]nttElement
		for i := 0; i < l87; i++ {
			yNTT[i] = ntt(y[i])
		}

		var w [k87]ringElement
		var w1 [k87]ringElement
		for i := 0; i < k87; i++ {
			var acc nttElement
			for j := 0; j < l87; j++ {
				acc = polyAdd(acc, nttMul(sk.a[i*l87+j], yNTT[j]))
			}
			w[i] = invNTT(acc)

			for j := 0; j < n; j++ {
				w1[i][j] = fieldElement(highBits(w[i][j], gamma2QMinus1Div32))
			}
		}

		h.Reset()
		h.Write(mu[:])
		for i := 0; i < k87; i++ {
			h.Write(packW1_4(w1[i]))
		}
		var cTilde [lambda256 / 4]byte
		h.Read(cTilde[:])

		c := sampleChallenge(cTilde[:], tau60)
		cNTT := ntt(c)

		var z [l87]ringElement
		for i := 0; i < l87; i++ {
			cs1 := invNTT(nttMul(cNTT, sk.s1NTT[i]))
			z[i] = polyAdd(y[i], cs1)
		}
		zeroPolyVec(y[:])
		zeroPolyVec(yNTT[:])

		if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta87 {
			continue
		}

		var r0 [k87][n]int32
		for i := 0; i < k87; i++ {
			cs2 := invNTT(nttMul(cNTT, sk.s2NTT[i]))
			for j := 0; j < n; j++ {
				_, r0[i][j] = decompose(fieldSub(w[i][j], cs2[j]), gamma2QMinus1Div32)
			}
		}

		if vectorInfinityNormSigned(r0[:]) >= int32(gamma2QMinus1Div32-beta87) {
			continue
		}

		var ct0 [k87]ringElement
		for i := 0; i < k87; i++ {
			ct0[i] = invNTT(nttMul(cNTT, sk.t0NTT[i]))
		}

		if vectorInfinityNorm(ct0[:]) >= gamma2QMinus1Div32 {
			continue
		}

		var hints [k87]ringElement
		for i := 0; i < k87; i++ {
			cs2 := invNTT(nttMul(cNTT, sk.s2NTT[i]))
			for j := 0; j < n; j++ {
				r := fieldSub(w[i][j], cs2[j])
				hints[i][j] = makeHint(ct0[i][j], r, gamma2QMinus1Div32)
			}
		}
		zeroPolyVec(ct0[:])

		if countOnes(hints[:]) > omega75 {
			continue
		}

		return EncodeSignature87(cTilde[:], z, hints), nil
	}
}

// EncodeSignature87 packs (c~, z, h) into wire format.
func EncodeSignature87(cTilde []byte, z [l87]ringElement, h [k87]ringElement) []byte {
	sig := make([]byte, SignatureSize87)
	copy(sig[:lambda256/4], cTilde)
	offset := lambda256 / 4
	for i := 0; i < l87; i++ {
		packed := packZ19(z[i])
		copy(sig[offset:], packed)
		offset += encodingSize20
	}
	hintPacked := packHint(h[:], omega75)
	copy(sig[offset:], hintPacked)
	return sig
}

// DecodeSignature87 unpacks a wire-format signature, validating z's range
// and the hint's structural invariants. Returns MalformedSignature on any
// violation.
func DecodeSignature87(sig []byte) (cTilde [lambda256 / 4]byte, z [l87]ringElement, h [k87]ringElement, err error) {
	if len(sig) != SignatureSize87 {
		err = fmt.Errorf("%w: length %d, want %d", MalformedSignature, len(sig), SignatureSize87)
		return
	}
	copy(cTilde[:], sig[:lambda256/4])
	offset := lambda256 / 4
	for i := 0; i < l87; i++ {
		z[i] = unpackZ19Sig(sig[offset : offset+encodingSize20])
		offset += encodingSize20
	}

	if vectorInfinityNorm(z[:]) >= gamma1Pow19-beta87 {
		err = fmt.Errorf("%w: z coefficient out of range", MalformedSignature)
		return
	}

	if !unpackHint(sig[offset:], h[:], omega75) {
		err = fmt.Errorf("%w: invalid hint encoding", MalformedSignature)
		return
	}
	return
}

// Verify checks the signature over message with an optional context
// string. Runs in variable time, as permitted by FIPS 204 for
// verification. Any decode failure is folded into a false result.
func (pk *PublicKey87) Verify(sig, message, context []byte) bool {
	if len(context) > 255 {
		return false
	}
	cTilde, z, h, err := DecodeSignature87(sig)
	if err != nil {
		return false
	}
	return pk.verifyInternal(cTilde, z, h, mPrime(message, context))
}

// verifyInternal implements ML-DSA.Verify_internal (FIPS 204 Algorithm 8).
func (pk *PublicKey87) verifyInternal(cTilde [lambda256 / 4]byte, z [l87]ringElement, hints [k87]ringElement, mp []byte) bool {
	h := sha3.NewSHAKE256()
	h.Write(pk.tr[:])
	h.Write(mp)

	var mu [64]byte
	h.Read(mu[:])

	c := sampleChallenge(cTilde[:], tau60)
	cNTT := ntt(c)

	var zNTT [l87]nttElement
	for i := 0; i < l87; i++ {
		zNTT[i] = ntt(z[i])
	}

	var w1 [k87]ringElement
	h.Reset()
	h.Write(mu[:])

	for i := 0; i < k87; i++ {
		var acc nttElement
		for j := 0; j < l87; j++ {
			acc = polyAdd(acc, nttMul(pk.a[i*l87+j], zNTT[j]))
		}
		ct1 := nttMul(cNTT, pk.t1NTT[i])
		acc = polySub(acc, ct1)
		wApprox := invNTT(acc)

		for j := 0; j < n; j++ {
			w1[i][j] = useHint(hints[i][j], wApprox[j], gamma2QMinus1Div32)
		}

		h.Write(packW1_4(w1[i]))
	}

	var cTildeCheck [lambda256 / 4]byte
	h.Read(cTildeCheck[:])

	var diff byte
	for i := range cTilde {
		diff |= cTilde[i] ^ cTildeCheck[i]
	}
	return diff == 0
}

// Sign signs digest with the key pair's private key, implementing
// crypto.Signer.
func (key *Key87) Sign(rand io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return key.PrivateKey87.Sign(rand, digest, opts)
}

// SignMessage signs msg with the key pair's private key, implementing
// crypto.MessageSigner.
func (key *Key87) SignMessage(rand io.Reader, msg []byte, opts crypto.SignerOpts) ([]byte, error) {
	return key.PrivateKey87.SignMessage(rand, msg, opts)
}

// SignWithContext signs message with an optional context string using the
// key pair's private key.
func (key *Key87) SignWithContext(rand io.Reader, message, context []byte) ([]byte, error) {
	return key.PrivateKey87.SignWithContext(rand, message, context)
}

// SignDeterministic signs message with an optional context string using
// the key pair's private key, without consuming randomness.
func (key *Key87) SignDeterministic(message, context []byte) ([]byte, error) {
	return key.PrivateKey87.SignDeterministic(message, context)
}
