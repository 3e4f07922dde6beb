// Package preprocessor validates and normalizes inbound participant
// messages before they reach the phase state machine. Every function here
// is pure: given the same header, payload, and round parameters, it always
// returns the same result, with no side effects on coordinator state.
package preprocessor

import (
	"errors"

	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/dict"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

// Error taxonomy participants' messages are rejected under. Callers should
// match with errors.Is.
var (
	ErrInvalidSumSignature    = errors.New("preprocessor: invalid sum signature")
	ErrInvalidUpdateSignature = errors.New("preprocessor: invalid update signature")
	ErrNotSumEligible         = errors.New("preprocessor: participant not sum-eligible")
	ErrNotUpdateEligible      = errors.New("preprocessor: participant not update-eligible")
	ErrSumEligibleForUpdate   = errors.New("preprocessor: sum-eligible participant may not also submit an update")
	ErrUnknownSumParticipant  = errors.New("preprocessor: participant did not register in the sum dictionary")
)

// Header carries the fields common to every message envelope.
type Header struct {
	ParticipantPK crypto.PublicKey
}

// RoundParams is the subset of round parameters the preprocessors need.
type RoundParams struct {
	Seed        crypto.Seed
	SumRatio    float64
	UpdateRatio float64
}

// SumPayload is the body of a Sum message.
type SumPayload struct {
	SumSignature crypto.Signature
	EphemeralPK  crypto.PublicKey
}

// SumMessage is a Sum payload that has passed eligibility and signature checks.
type SumMessage struct {
	ParticipantPK crypto.PublicKey
	EphemeralPK   crypto.PublicKey
}

// Sum validates a Sum message: the signature over seed||"sum" must verify
// under the participant's public key, and the resulting uniform draw must
// clear sum_ratio.
func Sum(header Header, payload SumPayload, params RoundParams) (SumMessage, error) {
	msg := crypto.SumSigningMessage(params.Seed)
	if !crypto.VerifyDetached(header.ParticipantPK, payload.SumSignature, msg) {
		return SumMessage{}, ErrInvalidSumSignature
	}
	if !crypto.IsEligible(payload.SumSignature, params.SumRatio) {
		return SumMessage{}, ErrNotSumEligible
	}
	return SumMessage{ParticipantPK: header.ParticipantPK, EphemeralPK: payload.EphemeralPK}, nil
}

// UpdatePayload is the body of an Update message.
type UpdatePayload struct {
	SumSignature    crypto.Signature
	UpdateSignature crypto.Signature
	LocalSeedDict   map[crypto.PublicKey][]byte
	MaskedModel     mask.Many
	MaskedScalar    mask.One
}

// UpdateMessage is an Update payload that has passed eligibility and
// signature checks.
type UpdateMessage struct {
	ParticipantPK crypto.PublicKey
	LocalSeedDict map[crypto.PublicKey][]byte
	MaskedModel   mask.Many
	MaskedScalar  mask.One
}

// Update validates an Update message. A participant must prove both that
// they are not sum-eligible (the sum and update roles are mutually
// exclusive for a single round) and that they are update-eligible.
func Update(header Header, payload UpdatePayload, params RoundParams) (UpdateMessage, error) {
	sumMsg := crypto.SumSigningMessage(params.Seed)
	if !crypto.VerifyDetached(header.ParticipantPK, payload.SumSignature, sumMsg) {
		return UpdateMessage{}, ErrInvalidSumSignature
	}
	if crypto.IsEligible(payload.SumSignature, params.SumRatio) {
		return UpdateMessage{}, ErrSumEligibleForUpdate
	}

	updateMsg := crypto.UpdateSigningMessage(params.Seed)
	if !crypto.VerifyDetached(header.ParticipantPK, payload.UpdateSignature, updateMsg) {
		return UpdateMessage{}, ErrInvalidUpdateSignature
	}
	if !crypto.IsEligible(payload.UpdateSignature, params.UpdateRatio) {
		return UpdateMessage{}, ErrNotUpdateEligible
	}

	return UpdateMessage{
		ParticipantPK: header.ParticipantPK,
		LocalSeedDict: payload.LocalSeedDict,
		MaskedModel:   payload.MaskedModel,
		MaskedScalar:  payload.MaskedScalar,
	}, nil
}

// Sum2Payload is the body of a Sum2 message.
type Sum2Payload struct {
	SumSignature crypto.Signature
	ModelMask    mask.Object
}

// Sum2Message is a Sum2 payload that has passed eligibility and membership checks.
type Sum2Message struct {
	ParticipantPK crypto.PublicKey
	ModelMask     mask.Object
}

// Sum2 validates a Sum2 message: the participant must re-prove sum
// eligibility and must be a member of the frozen sum dictionary built
// during Sum (this guards against a participant who only became eligible
// after Sum closed).
func Sum2(header Header, payload Sum2Payload, params RoundParams, frozenSumDict dict.SumDict[crypto.PublicKey]) (Sum2Message, error) {
	msg := crypto.SumSigningMessage(params.Seed)
	if !crypto.VerifyDetached(header.ParticipantPK, payload.SumSignature, msg) {
		return Sum2Message{}, ErrInvalidSumSignature
	}
	if !crypto.IsEligible(payload.SumSignature, params.SumRatio) {
		return Sum2Message{}, ErrNotSumEligible
	}
	if !frozenSumDict.Contains(header.ParticipantPK) {
		return Sum2Message{}, ErrUnknownSumParticipant
	}

	return Sum2Message{ParticipantPK: header.ParticipantPK, ModelMask: payload.ModelMask}, nil
}
