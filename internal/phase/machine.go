// Package phase implements the coordinator's round state machine: a single
// goroutine per task that walks Idle -> Sum -> Update -> Sum2 -> Unmask ->
// Idle, collecting and validating participant requests along the way and
// publishing round artifacts to the task's event bus as each phase closes.
package phase

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"

	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/events"
	"github.com/xaynetics/pet-coordinator/internal/metrics"
	"github.com/xaynetics/pet-coordinator/internal/preprocessor"
	"github.com/xaynetics/pet-coordinator/pkg/aggregation"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/dict"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

const requestBuffer = 64

// Machine runs the round state machine for one task. All mutable round
// state is only ever touched from the goroutine running Run; callers
// interact with it exclusively through the Submit* methods, which hand a
// request to that goroutine and block for a result.
type Machine struct {
	cfg    Config
	bus    *events.Bus
	logger log.Logger

	requests chan *request

	kind      Kind
	roundID   uint64
	roundUUID uuid.UUID
	seed      crypto.Seed

	sumDict       dict.SumDict[crypto.PublicKey]
	frozenSumDict dict.SumDict[crypto.PublicKey]
	seedDict      dict.SeedDict[crypto.PublicKey]
	maskDict      *dict.MaskDict

	modelAgg  *aggregation.Aggregation
	scalarAgg *aggregation.Aggregation

	aggregationStarted time.Time
}

// NewMachine returns a machine ready to run. Call Run in its own goroutine.
func NewMachine(cfg Config, bus *events.Bus, logger log.Logger) *Machine {
	return &Machine{
		cfg:      cfg,
		bus:      bus,
		logger:   logger.Named("phase").With("taskID", cfg.TaskID),
		requests: make(chan *request, requestBuffer),
		kind:     KindIdle,
	}
}

// Run drives the state machine until ctx is canceled. It is meant to run in
// its own goroutine for the lifetime of the task.
func (m *Machine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		default:
		}

		switch m.kind {
		case KindIdle:
			m.enterIdle(ctx)
		case KindSum:
			m.runSum(ctx)
		case KindUpdate:
			m.runUpdate(ctx)
		case KindSum2:
			m.runSum2(ctx)
		case KindUnmask:
			m.runUnmask()
		case KindShutdown:
			return
		default:
			m.logger.Errorw("machine reached an unexpected phase", "kind", m.kind)
			return
		}
	}
}

func (m *Machine) shutdown() {
	m.transition(KindShutdown)
	m.bus.BroadcastPhase(events.PhaseShutdown)
	m.bus.Close()
}

func (m *Machine) transition(to Kind) {
	if !isValidTransition(m.kind, to) {
		m.logger.Errorw("invalid phase transition", "from", m.kind, "to", to)
	}
	m.kind = to
}

func (m *Machine) roundParams() preprocessor.RoundParams {
	return preprocessor.RoundParams{Seed: m.seed, SumRatio: m.cfg.SumRatio, UpdateRatio: m.cfg.UpdateRatio}
}

// enterIdle prepares a fresh round: a new seed, a clean sum dictionary, and
// freshly published round parameters, then moves straight into Sum. A
// coordinator runs rounds back to back rather than waiting for an external
// trigger.
func (m *Machine) enterIdle(ctx context.Context) {
	m.roundID++
	m.roundUUID = uuid.New()

	var seed crypto.Seed
	if _, err := rand.Read(seed[:]); err != nil {
		m.logger.Fatalw("failed to generate round seed", "err", err)
	}
	m.seed = seed
	m.sumDict = dict.NewSumDict[crypto.PublicKey]()

	m.bus.BroadcastRoundParameters(events.RoundParameters{
		TaskID:      m.cfg.TaskID,
		RoundID:     m.roundID,
		Seed:        m.seed,
		SumRatio:    m.cfg.SumRatio,
		UpdateRatio: m.cfg.UpdateRatio,
		ModelSize:   m.cfg.ModelSize,
	})
	m.bus.BroadcastPhase(events.PhaseIdle)

	select {
	case <-ctx.Done():
		return
	default:
	}

	m.transition(KindSum)
	m.bus.BroadcastPhase(events.PhaseSum)
	metrics.PhaseTransitions.WithLabelValues(m.cfg.TaskID, string(events.PhaseSum)).Inc()
}

// phaseRun describes one run of the Phase run protocol (spec.md §4.6): a
// minimum-time window that always accepts requests without checking quorum,
// followed by a quorum window bounded by the remaining budget.
type phaseRun struct {
	kind          requestKind
	minTime       time.Duration
	maxTime       time.Duration
	handle        func(*request)
	quorumMet     func() bool
	onQuorum      func()
	timeoutReason string
}

// runPhase drives one phase through its minimum-time and quorum windows.
// Requests not addressed to this phase are rejected with ErrWrongPhase in
// both windows; the minimum-time window never exits early even once the
// quorum predicate already holds.
func (m *Machine) runPhase(ctx context.Context, r phaseRun) {
	minTimer := time.NewTimer(r.minTime)
	defer minTimer.Stop()

minWindow:
	for {
		select {
		case <-ctx.Done():
			return
		case <-minTimer.C:
			break minWindow
		case req := <-m.requests:
			if req.kind != r.kind {
				req.result <- ErrWrongPhase
				continue
			}
			r.handle(req)
		}
	}

	quorumBudget := r.maxTime - r.minTime
	if quorumBudget < 0 {
		quorumBudget = 0
	}
	maxTimer := time.NewTimer(quorumBudget)
	defer maxTimer.Stop()

	if r.quorumMet() {
		r.onQuorum()
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-maxTimer.C:
			if r.quorumMet() {
				r.onQuorum()
				return
			}
			m.failRound(r.timeoutReason)
			return
		case req := <-m.requests:
			if req.kind != r.kind {
				req.result <- ErrWrongPhase
				continue
			}
			r.handle(req)
			if r.quorumMet() {
				r.onQuorum()
				return
			}
		}
	}
}

func (m *Machine) runSum(ctx context.Context) {
	m.runPhase(ctx, phaseRun{
		kind:          requestSum,
		minTime:       m.cfg.MinSumTime,
		maxTime:       m.cfg.MaxSumTime,
		handle:        m.handleSum,
		quorumMet:     func() bool { return m.sumDict.Len() >= m.cfg.SumQuorum },
		onQuorum:      m.finishSum,
		timeoutReason: "sum quorum not reached before timeout",
	})
}

func (m *Machine) handleSum(req *request) {
	msg, err := preprocessor.Sum(req.header, req.sumPayload, m.roundParams())
	if err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}
	err = m.sumDict.Insert(msg.ParticipantPK, msg.EphemeralPK, m.cfg.RejectDuplicateSumParticipants)
	if err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
	}
	metrics.SumParticipants.WithLabelValues(m.cfg.TaskID).Set(float64(m.sumDict.Len()))
	req.result <- err
}

func (m *Machine) finishSum() {
	m.frozenSumDict = m.sumDict.Freeze()
	m.seedDict = dict.NewSeedDict[crypto.PublicKey](m.frozenSumDict)
	m.modelAgg = aggregation.New(m.cfg.VectorMaskConfig, m.cfg.ModelSize)
	m.scalarAgg = aggregation.New(m.cfg.ScalarMaskConfig, 1)
	m.aggregationStarted = time.Now()

	m.bus.BroadcastSumDict(m.frozenSumDict)
	m.bus.BroadcastSeedDict(m.seedDict)
	m.transition(KindUpdate)
	m.bus.BroadcastPhase(events.PhaseUpdate)
	metrics.PhaseTransitions.WithLabelValues(m.cfg.TaskID, string(events.PhaseUpdate)).Inc()
}

func (m *Machine) runUpdate(ctx context.Context) {
	m.runPhase(ctx, phaseRun{
		kind:          requestUpdate,
		minTime:       m.cfg.MinUpdateTime,
		maxTime:       m.cfg.MaxUpdateTime,
		handle:        m.handleUpdate,
		quorumMet:     func() bool { return m.seedDict.UpdaterCount() >= m.cfg.UpdateQuorum },
		onQuorum:      m.finishUpdate,
		timeoutReason: "update quorum not reached before timeout",
	})
}

func (m *Machine) handleUpdate(req *request) {
	msg, err := preprocessor.Update(req.header, req.updatePayload, m.roundParams())
	if err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}

	if err := m.modelAgg.ValidateAggregation(msg.MaskedModel); err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}
	scalarAsMany := mask.ManyFromOne(msg.MaskedScalar)
	if err := m.scalarAgg.ValidateAggregation(scalarAsMany); err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}

	if err := m.seedDict.AddLocalSeedDict(msg.ParticipantPK, msg.LocalSeedDict, m.frozenSumDict); err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}

	m.modelAgg.Aggregate(msg.MaskedModel)
	m.scalarAgg.Aggregate(scalarAsMany)
	m.bus.BroadcastSeedDict(m.seedDict)
	metrics.UpdateParticipants.WithLabelValues(m.cfg.TaskID).Set(float64(m.seedDict.UpdaterCount()))
	req.result <- nil
}

func (m *Machine) finishUpdate() {
	m.maskDict = dict.NewMaskDict()
	m.bus.BroadcastMaskLength(m.cfg.ModelSize)
	m.transition(KindSum2)
	m.bus.BroadcastPhase(events.PhaseSum2)
	metrics.PhaseTransitions.WithLabelValues(m.cfg.TaskID, string(events.PhaseSum2)).Inc()
}

func (m *Machine) runSum2(ctx context.Context) {
	m.runPhase(ctx, phaseRun{
		kind:          requestSum2,
		minTime:       m.cfg.MinSum2Time,
		maxTime:       m.cfg.MaxSum2Time,
		handle:        m.handleSum2,
		quorumMet:     func() bool { return m.maskDict.MaxCount() >= m.cfg.Sum2Quorum },
		onQuorum:      func() { m.transition(KindUnmask) },
		timeoutReason: "sum2 quorum not reached before timeout",
	})
}

func (m *Machine) handleSum2(req *request) {
	msg, err := preprocessor.Sum2(req.header, req.sum2Payload, m.roundParams(), m.frozenSumDict)
	if err != nil {
		metrics.RejectedMessages.WithLabelValues(m.cfg.TaskID, err.Error()).Inc()
		req.result <- err
		return
	}
	m.maskDict.Increment(msg.ModelMask)
	req.result <- nil
}

func (m *Machine) runUnmask() {
	winner, ok := m.maskDict.Mode()
	if !ok {
		m.failRound("no mask reported during sum2")
		return
	}

	vectorOrder := m.cfg.VectorMaskConfig.Order()
	scalarOrder := m.cfg.ScalarMaskConfig.Order()

	unmaskedVector, err := aggregation.Unmask(m.modelAgg.Partial, winner.Vector.Data, vectorOrder)
	if err != nil {
		m.failRound("failed to unmask model vector: " + err.Error())
		return
	}
	unmaskedScalar, err := aggregation.Unmask(m.scalarAgg.Partial, mask.ManyFromOne(winner.Scalar).Data, scalarOrder)
	if err != nil {
		m.failRound("failed to unmask scale factor: " + err.Error())
		return
	}

	m.bus.BroadcastModel(unmaskedVector)
	m.logger.Infow("round complete",
		"roundID", m.roundID, "roundUUID", m.roundUUID,
		"participants", m.frozenSumDict.Len(), "scaleFactor", unmaskedScalar[0])
	metrics.RoundsCompleted.WithLabelValues(m.cfg.TaskID).Inc()
	if !m.aggregationStarted.IsZero() {
		metrics.AggregationLatency.WithLabelValues(m.cfg.TaskID).Observe(time.Since(m.aggregationStarted).Seconds())
	}
	m.transition(KindIdle)
}

func (m *Machine) failRound(reason string) {
	m.logger.Warnw("round failed", "roundID", m.roundID, "roundUUID", m.roundUUID, "reason", reason)
	m.transition(KindError)
	m.bus.BroadcastPhase(events.PhaseError)
	m.bus.BroadcastRoundFailure(events.RoundFailure{RoundID: m.roundID, Reason: reason})
	metrics.RoundsFailed.WithLabelValues(m.cfg.TaskID, reason).Inc()
	m.transition(KindIdle)
}

// SubmitSum hands a Sum message to the machine and blocks for the result.
func (m *Machine) SubmitSum(ctx context.Context, header preprocessor.Header, payload preprocessor.SumPayload) error {
	return m.submit(ctx, &request{kind: requestSum, header: header, sumPayload: payload})
}

// SubmitUpdate hands an Update message to the machine and blocks for the result.
func (m *Machine) SubmitUpdate(ctx context.Context, header preprocessor.Header, payload preprocessor.UpdatePayload) error {
	return m.submit(ctx, &request{kind: requestUpdate, header: header, updatePayload: payload})
}

// SubmitSum2 hands a Sum2 message to the machine and blocks for the result.
func (m *Machine) SubmitSum2(ctx context.Context, header preprocessor.Header, payload preprocessor.Sum2Payload) error {
	return m.submit(ctx, &request{kind: requestSum2, header: header, sum2Payload: payload})
}

func (m *Machine) submit(ctx context.Context, req *request) error {
	req.result = make(chan error, 1)
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
