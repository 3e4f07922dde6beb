// Package dict implements the three dictionaries the coordinator builds up
// over a round: the sum dictionary (who is summing, and their ephemeral
// key), the seed dictionary (masked seeds routed from updaters to summers),
// and the mask dictionary (the multiset of masks summers report back in
// Sum2). None of these types are safe for concurrent use; they are only
// ever touched from the single goroutine that owns a round's phase machine.
package dict

import "errors"

// ErrDuplicateParticipant is returned by SumDict.Insert when a participant
// public key has already registered and RejectDuplicateSumParticipants is
// enabled.
var ErrDuplicateParticipant = errors.New("dict: participant already present in sum dictionary")

// SumDict maps a sum participant's public key to the ephemeral public key
// they registered for the round.
type SumDict[PK comparable] map[PK]PK

// NewSumDict returns an empty sum dictionary.
func NewSumDict[PK comparable]() SumDict[PK] {
	return make(SumDict[PK])
}

// Insert records pk's ephemeral key. When rejectDuplicate is false (the
// default), a re-registration simply overwrites the previous entry. When
// true, re-registration is rejected with ErrDuplicateParticipant.
func (d SumDict[PK]) Insert(pk, ephemeralPK PK, rejectDuplicate bool) error {
	if _, exists := d[pk]; exists && rejectDuplicate {
		return ErrDuplicateParticipant
	}
	d[pk] = ephemeralPK
	return nil
}

// Contains reports whether pk has registered.
func (d SumDict[PK]) Contains(pk PK) bool {
	_, ok := d[pk]
	return ok
}

// Keys returns every registered participant key, in map iteration order.
func (d SumDict[PK]) Keys() []PK {
	out := make([]PK, 0, len(d))
	for pk := range d {
		out = append(out, pk)
	}
	return out
}

// Freeze returns a defensive copy, so the Sum2 phase can keep validating
// against the participant set as it stood at the end of Sum without being
// affected by further mutation (there should be none, but the copy makes
// that invariant explicit rather than assumed).
func (d SumDict[PK]) Freeze() SumDict[PK] {
	out := make(SumDict[PK], len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Len returns the number of registered sum participants.
func (d SumDict[PK]) Len() int {
	return len(d)
}
