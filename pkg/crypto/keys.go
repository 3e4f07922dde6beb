// Package crypto wraps the Ed25519 primitives the coordinator uses to check
// task eligibility and message authenticity. It deliberately stays a thin
// layer over crypto/ed25519 rather than reimplementing signature math.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
)

// PublicKey is a fixed-size, comparable copy of an Ed25519 public key, so it
// can be used directly as a map key in the sum and seed dictionaries.
type PublicKey [ed25519.PublicKeySize]byte

func (pk PublicKey) String() string {
	return fmt.Sprintf("%x", pk[:4])
}

// Bytes returns pk as an ed25519.PublicKey for use with the stdlib API.
func (pk PublicKey) Bytes() ed25519.PublicKey {
	return ed25519.PublicKey(pk[:])
}

// PublicKeyFromBytes copies b into a PublicKey. b must be exactly
// ed25519.PublicKeySize bytes.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != ed25519.PublicKeySize {
		return pk, fmt.Errorf("crypto: public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// PrivateKey is a copy of an Ed25519 private key.
type PrivateKey [ed25519.PrivateKeySize]byte

// Bytes returns the key as an ed25519.PrivateKey for use with the stdlib API.
func (sk PrivateKey) Bytes() ed25519.PrivateKey {
	return ed25519.PrivateKey(sk[:])
}

// Signature is a fixed-size, comparable copy of an Ed25519 detached signature.
type Signature [ed25519.SignatureSize]byte

// Bytes returns sig as a plain byte slice.
func (sig Signature) Bytes() []byte {
	return sig[:]
}

// SignatureFromBytes copies b into a Signature. b must be exactly
// ed25519.SignatureSize bytes.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != ed25519.SignatureSize {
		return sig, fmt.Errorf("crypto: signature must be %d bytes, got %d", ed25519.SignatureSize, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

// Seed is the per-round random seed the coordinator hands to participants.
// It is signed with tags to derive both task-eligibility and the
// per-participant mask seed.
type Seed [32]byte

// GenerateKeyPair returns a fresh Ed25519 signing keypair. The coordinator
// does not call it; tests use it to stand in for participants.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}
	pk, err := PublicKeyFromBytes(pub)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}
	var sk PrivateKey
	copy(sk[:], priv)
	return pk, sk, nil
}

// Sign produces a detached signature of msg under sk.
func Sign(sk PrivateKey, msg []byte) Signature {
	raw := ed25519.Sign(sk.Bytes(), msg)
	var sig Signature
	copy(sig[:], raw)
	return sig
}

// VerifyDetached checks sig against msg under pk.
func VerifyDetached(pk PublicKey, sig Signature, msg []byte) bool {
	return ed25519.Verify(pk.Bytes(), msg, sig.Bytes())
}

const (
	sumTag    = "sum"
	updateTag = "update"
)

// SumSigningMessage returns the byte string a participant signs to prove sum
// eligibility: seed || "sum".
func SumSigningMessage(seed Seed) []byte {
	return append(append([]byte{}, seed[:]...), []byte(sumTag)...)
}

// UpdateSigningMessage returns the byte string a participant signs to prove
// update eligibility: seed || "update".
func UpdateSigningMessage(seed Seed) []byte {
	return append(append([]byte{}, seed[:]...), []byte(updateTag)...)
}

// SignatureToUniform maps a signature onto a uniformly distributed float in
// [0, 1), by treating its leading 8 bytes as a big-endian integer and
// normalizing against 2^64. Since a valid signature cannot be forged without
// the private key, this gives each participant a reproducible, unbiased
// per-round coin that the coordinator can recompute and verify itself.
func SignatureToUniform(sig Signature) float64 {
	v := binary.BigEndian.Uint64(sig[:8])
	return float64(v) / (float64(math.MaxUint64) + 1)
}

// IsEligible reports whether sig clears the eligibility bar for a ratio in
// (0, 1]: the participant is eligible when their uniform draw falls at or
// below ratio.
func IsEligible(sig Signature, ratio float64) bool {
	return SignatureToUniform(sig) <= ratio
}
