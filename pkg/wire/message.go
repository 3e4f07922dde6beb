// Package wire defines the coordinator's single inbound message envelope
// and the framing used to tell a Sum, Update, or Sum2 body apart, mirroring
// the tagged-payload layout xaynet-core uses for its message frames.
package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"

	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
	"github.com/xaynetics/pet-coordinator/pkg/mask/serialization"
)

// Kind tags which of the three message bodies follows the envelope header.
type Kind byte

const (
	KindSum Kind = iota
	KindUpdate
	KindSum2
)

var (
	ErrBufferTooShort = errors.New("wire: buffer too short")
	ErrUnknownKind    = errors.New("wire: unknown message kind")
)

const envelopeHeaderLen = 1 + ed25519.PublicKeySize // kind byte + participant pk

// Envelope is the common header carried by every inbound message.
type Envelope struct {
	Kind          Kind
	ParticipantPK crypto.PublicKey
}

// SumBody is the Sum-specific payload following the envelope.
type SumBody struct {
	SumSignature crypto.Signature
	EphemeralPK  crypto.PublicKey
}

// UpdateBody is the Update-specific payload following the envelope.
type UpdateBody struct {
	SumSignature    crypto.Signature
	UpdateSignature crypto.Signature
	LocalSeedDict   map[crypto.PublicKey][]byte
	MaskedModel     mask.Many
	MaskedScalar    mask.One
}

// Sum2Body is the Sum2-specific payload following the envelope.
type Sum2Body struct {
	SumSignature crypto.Signature
	ModelMask    mask.Object
}

func decodeEnvelope(buf []byte) (Envelope, int, error) {
	if len(buf) < envelopeHeaderLen {
		return Envelope{}, 0, ErrBufferTooShort
	}
	pk, err := crypto.PublicKeyFromBytes(buf[1:envelopeHeaderLen])
	if err != nil {
		return Envelope{}, 0, err
	}
	return Envelope{Kind: Kind(buf[0]), ParticipantPK: pk}, envelopeHeaderLen, nil
}

func encodeEnvelope(kind Kind, pk crypto.PublicKey) []byte {
	out := make([]byte, envelopeHeaderLen)
	out[0] = byte(kind)
	copy(out[1:], pk[:])
	return out
}

// DecodeSum parses a Sum message: envelope + sum_signature + ephemeral_pk.
func DecodeSum(buf []byte) (Envelope, SumBody, error) {
	env, n, err := decodeEnvelope(buf)
	if err != nil {
		return Envelope{}, SumBody{}, err
	}
	rest := buf[n:]
	const bodyLen = ed25519.SignatureSize + ed25519.PublicKeySize
	if len(rest) < bodyLen {
		return Envelope{}, SumBody{}, ErrBufferTooShort
	}
	sig, err := crypto.SignatureFromBytes(rest[:ed25519.SignatureSize])
	if err != nil {
		return Envelope{}, SumBody{}, err
	}
	ephm, err := crypto.PublicKeyFromBytes(rest[ed25519.SignatureSize:bodyLen])
	if err != nil {
		return Envelope{}, SumBody{}, err
	}
	return env, SumBody{SumSignature: sig, EphemeralPK: ephm}, nil
}

// EncodeSum serializes a Sum message.
func EncodeSum(pk crypto.PublicKey, body SumBody) []byte {
	out := encodeEnvelope(KindSum, pk)
	out = append(out, body.SumSignature.Bytes()...)
	out = append(out, body.EphemeralPK[:]...)
	return out
}

// DecodeUpdate parses an Update message: envelope + sum_signature +
// update_signature + local seed dict + masked model + masked scalar.
func DecodeUpdate(buf []byte, vectorConfig, scalarConfig mask.Config) (Envelope, UpdateBody, error) {
	env, n, err := decodeEnvelope(buf)
	if err != nil {
		return Envelope{}, UpdateBody{}, err
	}
	rest := buf[n:]

	const sigPairLen = 2 * ed25519.SignatureSize
	if len(rest) < sigPairLen+4 {
		return Envelope{}, UpdateBody{}, ErrBufferTooShort
	}
	sumSig, err := crypto.SignatureFromBytes(rest[:ed25519.SignatureSize])
	if err != nil {
		return Envelope{}, UpdateBody{}, err
	}
	updateSig, err := crypto.SignatureFromBytes(rest[ed25519.SignatureSize:sigPairLen])
	if err != nil {
		return Envelope{}, UpdateBody{}, err
	}
	rest = rest[sigPairLen:]

	count := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]

	localSeedDict := make(map[crypto.PublicKey][]byte, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < ed25519.PublicKeySize+4 {
			return Envelope{}, UpdateBody{}, ErrBufferTooShort
		}
		pk, err := crypto.PublicKeyFromBytes(rest[:ed25519.PublicKeySize])
		if err != nil {
			return Envelope{}, UpdateBody{}, err
		}
		rest = rest[ed25519.PublicKeySize:]
		seedLen := binary.BigEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < seedLen {
			return Envelope{}, UpdateBody{}, ErrBufferTooShort
		}
		seed := make([]byte, seedLen)
		copy(seed, rest[:seedLen])
		rest = rest[seedLen:]
		localSeedDict[pk] = seed
	}

	maskedModel, consumed, err := serialization.DecodeMany(rest, vectorConfig)
	if err != nil {
		return Envelope{}, UpdateBody{}, err
	}
	rest = rest[consumed:]

	maskedScalar, _, err := serialization.DecodeOne(rest, scalarConfig)
	if err != nil {
		return Envelope{}, UpdateBody{}, err
	}

	return env, UpdateBody{
		SumSignature:    sumSig,
		UpdateSignature: updateSig,
		LocalSeedDict:   localSeedDict,
		MaskedModel:     maskedModel,
		MaskedScalar:    maskedScalar,
	}, nil
}

// EncodeUpdate serializes an Update message.
func EncodeUpdate(pk crypto.PublicKey, body UpdateBody) []byte {
	out := encodeEnvelope(KindUpdate, pk)
	out = append(out, body.SumSignature.Bytes()...)
	out = append(out, body.UpdateSignature.Bytes()...)

	countBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(countBuf, uint32(len(body.LocalSeedDict)))
	out = append(out, countBuf...)
	for pk, seed := range body.LocalSeedDict {
		out = append(out, pk[:]...)
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, uint32(len(seed)))
		out = append(out, lenBuf...)
		out = append(out, seed...)
	}

	out = append(out, serialization.EncodeMany(body.MaskedModel)...)
	out = append(out, serialization.EncodeOne(body.MaskedScalar)...)
	return out
}

// DecodeSum2 parses a Sum2 message: envelope + sum_signature + model mask.
func DecodeSum2(buf []byte, vectorConfig, scalarConfig mask.Config) (Envelope, Sum2Body, error) {
	env, n, err := decodeEnvelope(buf)
	if err != nil {
		return Envelope{}, Sum2Body{}, err
	}
	rest := buf[n:]

	if len(rest) < ed25519.SignatureSize {
		return Envelope{}, Sum2Body{}, ErrBufferTooShort
	}
	sig, err := crypto.SignatureFromBytes(rest[:ed25519.SignatureSize])
	if err != nil {
		return Envelope{}, Sum2Body{}, err
	}
	rest = rest[ed25519.SignatureSize:]

	obj, _, err := serialization.DecodeObject(rest, vectorConfig, scalarConfig)
	if err != nil {
		return Envelope{}, Sum2Body{}, err
	}

	return env, Sum2Body{SumSignature: sig, ModelMask: obj}, nil
}

// EncodeSum2 serializes a Sum2 message.
func EncodeSum2(pk crypto.PublicKey, body Sum2Body) []byte {
	out := encodeEnvelope(KindSum2, pk)
	out = append(out, body.SumSignature.Bytes()...)
	out = append(out, serialization.EncodeObject(body.ModelMask)...)
	return out
}

// PeekKind reads just the leading kind byte of an encoded message, without
// validating the rest of the envelope.
func PeekKind(buf []byte) (Kind, error) {
	if len(buf) < 1 {
		return 0, ErrBufferTooShort
	}
	k := Kind(buf[0])
	if k != KindSum && k != KindUpdate && k != KindSum2 {
		return 0, ErrUnknownKind
	}
	return k, nil
}
