// Package events implements the coordinator's broadcast bus: a set of
// last-value snapshots participants can fetch or long-poll, one per kind of
// round artifact. It is a cache, not a queue — a slow or absent reader never
// causes backpressure on the phase machine, and a reader that misses an
// update simply observes the next snapshot instead of a backlog of old
// ones.
package events

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"

	"github.com/xaynetics/pet-coordinator/internal/util"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/dict"
)

// ErrShutdown is returned by a blocking fetch when the bus is closed while
// the caller was waiting for a fresh value.
var ErrShutdown = errors.New("events: bus shut down")

// RoundParameters is the per-round public configuration participants need
// before deciding whether to take part.
type RoundParameters struct {
	TaskID      string
	RoundID     uint64
	Seed        crypto.Seed
	SumRatio    float64
	UpdateRatio float64
	ModelSize   int
}

// PhaseName identifies which phase the round is currently in.
type PhaseName string

const (
	PhaseIdle     PhaseName = "idle"
	PhaseSum      PhaseName = "sum"
	PhaseUpdate   PhaseName = "update"
	PhaseSum2     PhaseName = "sum2"
	PhaseUnmask   PhaseName = "unmask"
	PhaseError    PhaseName = "error"
	PhaseShutdown PhaseName = "shutdown"
)

// snapshot[T] is an atomically-swappable last-value cache with a channel
// used only to wake blocked readers; the pointer itself is what a reader
// eventually trusts.
type snapshot[T any] struct {
	value atomic.Pointer[T]
	wake  *util.FanOutChan[struct{}]
}

func newSnapshot[T any]() *snapshot[T] {
	return &snapshot[T]{wake: util.NewFanOutChan[struct{}]()}
}

func (s *snapshot[T]) set(v T) {
	s.value.Store(&v)
	select {
	case s.wake.Chan() <- struct{}{}:
	default:
	}
}

func (s *snapshot[T]) get() (T, bool) {
	p := s.value.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// waitForChange returns the current value at once if the snapshot has ever
// been set; otherwise it blocks until the snapshot is set, ctx is done, or
// the bus is closed.
func (s *snapshot[T]) waitForChange(ctx context.Context, closed <-chan struct{}) (T, error) {
	if v, ok := s.get(); ok {
		return v, nil
	}

	ch := s.wake.Listen()
	defer s.wake.StopListening(ch)

	// A set that landed between the first get and Listen sent its wake-up
	// before ch was registered, so look again now that it is.
	if v, ok := s.get(); ok {
		return v, nil
	}

	select {
	case <-ch:
		v, _ := s.get()
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-closed:
		var zero T
		return zero, ErrShutdown
	}
}

// Bus is the coordinator's event bus for a single task. Each method pair
// (BroadcastX / X) corresponds to one artifact kind.
type Bus struct {
	params       *snapshot[RoundParameters]
	sumDict      *snapshot[dict.SumDict[crypto.PublicKey]]
	seedDict     *snapshot[dict.SeedDict[crypto.PublicKey]]
	maskLength   *snapshot[int]
	model        *snapshot[[]*big.Int]
	phase        *snapshot[PhaseName]
	roundFailure *snapshot[RoundFailure]

	closed chan struct{}
}

// RoundFailure describes why a round was abandoned, broadcast when the
// phase machine aborts back to Idle instead of completing Unmask.
type RoundFailure struct {
	RoundID uint64
	Reason  string
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{
		params:       newSnapshot[RoundParameters](),
		sumDict:      newSnapshot[dict.SumDict[crypto.PublicKey]](),
		seedDict:     newSnapshot[dict.SeedDict[crypto.PublicKey]](),
		maskLength:   newSnapshot[int](),
		model:        newSnapshot[[]*big.Int](),
		phase:        newSnapshot[PhaseName](),
		roundFailure: newSnapshot[RoundFailure](),
		closed:       make(chan struct{}),
	}
}

// Close wakes every blocked reader with ErrShutdown. Further broadcasts are
// harmless but pointless; the bus is expected to be discarded afterwards.
func (b *Bus) Close() {
	close(b.closed)
}

func (b *Bus) BroadcastRoundParameters(p RoundParameters) { b.params.set(p) }
func (b *Bus) BroadcastSumDict(d dict.SumDict[crypto.PublicKey]) { b.sumDict.set(d) }
func (b *Bus) BroadcastSeedDict(d dict.SeedDict[crypto.PublicKey]) { b.seedDict.set(d) }
func (b *Bus) BroadcastMaskLength(n int) { b.maskLength.set(n) }
func (b *Bus) BroadcastModel(m []*big.Int) { b.model.set(m) }
func (b *Bus) BroadcastPhase(p PhaseName) { b.phase.set(p) }
func (b *Bus) BroadcastRoundFailure(f RoundFailure) { b.roundFailure.set(f) }

// RoundParameters returns the latest round parameters, blocking until one
// has been broadcast if none has yet.
func (b *Bus) RoundParameters(ctx context.Context) (RoundParameters, error) {
	return b.params.waitForChange(ctx, b.closed)
}

// SumDict returns the latest frozen sum dictionary, blocking until Sum ends.
func (b *Bus) SumDict(ctx context.Context) (dict.SumDict[crypto.PublicKey], error) {
	return b.sumDict.waitForChange(ctx, b.closed)
}

// SeedDictFor returns the encrypted seeds routed to sumPK, blocking until
// the seed dictionary has been published at least once.
func (b *Bus) SeedDictFor(ctx context.Context, sumPK crypto.PublicKey) (dict.UpdateSeedDict[crypto.PublicKey], error) {
	full, err := b.seedDict.waitForChange(ctx, b.closed)
	if err != nil {
		return nil, err
	}
	return full.ForSum(sumPK), nil
}

// MaskLength returns the agreed mask vector length, blocking until Update ends.
func (b *Bus) MaskLength(ctx context.Context) (int, error) {
	return b.maskLength.waitForChange(ctx, b.closed)
}

// Model returns the latest unmasked global model, blocking until Unmask
// completes at least once.
func (b *Bus) Model(ctx context.Context) ([]*big.Int, error) {
	return b.model.waitForChange(ctx, b.closed)
}

// Phase returns the current phase name without blocking; it is always set
// once the bus's owning machine starts running.
func (b *Bus) Phase() PhaseName {
	p, ok := b.phase.get()
	if !ok {
		return PhaseIdle
	}
	return p
}

// RoundFailure returns the most recently broadcast round failure, blocking
// until one has occurred.
func (b *Bus) RoundFailure(ctx context.Context) (RoundFailure, error) {
	return b.roundFailure.waitForChange(ctx, b.closed)
}
