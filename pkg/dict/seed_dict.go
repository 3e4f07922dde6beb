package dict

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrUnknownSumKeys is returned when a local seed dictionary's key set
	// does not exactly match the frozen sum dictionary's key set.
	ErrUnknownSumKeys = errors.New("dict: local seed dictionary keys do not match the frozen sum dictionary")
	// ErrUpdaterAlreadySeeded is returned when an updater submits a second
	// local seed dictionary for the same round.
	ErrUpdaterAlreadySeeded = errors.New("dict: updater already contributed a seed dictionary")
)

// UpdateSeedDict maps an updater's public key to the encrypted mask seed
// they routed to one particular summer.
type UpdateSeedDict[PK comparable] map[PK][]byte

// SeedDict maps a sum participant's public key to the encrypted seeds every
// updater has routed to them.
type SeedDict[PK comparable] map[PK]UpdateSeedDict[PK]

// NewSeedDict pre-populates one empty inner dictionary per summer in
// sumDict, so membership in the outer dictionary reflects the frozen sum
// participant set from the moment Update begins, before any updater has
// contributed.
func NewSeedDict[PK comparable](sumDict SumDict[PK]) SeedDict[PK] {
	out := make(SeedDict[PK], len(sumDict))
	for pk := range sumDict {
		out[pk] = make(UpdateSeedDict[PK])
	}
	return out
}

// UpdaterCount returns how many updaters have contributed so far, taken
// from the size of any one inner dictionary (they all grow in lockstep).
func (d SeedDict[PK]) UpdaterCount() int {
	for _, inner := range d {
		return len(inner)
	}
	return 0
}

// AddLocalSeedDict merges one updater's local seed dictionary into the
// round's seed dictionary. local must carry exactly one entry per summer in
// frozenSumDict (no more, no fewer), and updaterPK must not have already
// contributed.
func (d SeedDict[PK]) AddLocalSeedDict(updaterPK PK, local map[PK][]byte, frozenSumDict SumDict[PK]) error {
	var result *multierror.Error
	for sumPK := range local {
		if !frozenSumDict.Contains(sumPK) {
			result = multierror.Append(result, fmt.Errorf("%v: not a sum participant this round", sumPK))
		}
	}
	for sumPK := range frozenSumDict {
		if _, ok := local[sumPK]; !ok {
			result = multierror.Append(result, fmt.Errorf("%v: missing from local seed dictionary", sumPK))
		}
	}
	if result.ErrorOrNil() != nil {
		return multierror.Append(result, ErrUnknownSumKeys).ErrorOrNil()
	}

	for sumPK := range frozenSumDict {
		inner, ok := d[sumPK]
		if !ok {
			inner = make(UpdateSeedDict[PK])
			d[sumPK] = inner
		}
		if _, already := inner[updaterPK]; already {
			return ErrUpdaterAlreadySeeded
		}
	}

	for sumPK, seed := range local {
		d[sumPK][updaterPK] = seed
	}
	return nil
}

// ForSum returns the encrypted seeds routed to sumPK.
func (d SeedDict[PK]) ForSum(sumPK PK) UpdateSeedDict[PK] {
	return d[sumPK]
}
