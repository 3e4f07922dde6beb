// Package coordinator hosts the per-task registry: it owns each task's
// phase machine and event bus, and adapts wire-encoded participant messages
// into the calls those machines expect.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/events"
	"github.com/xaynetics/pet-coordinator/internal/phase"
	"github.com/xaynetics/pet-coordinator/internal/preprocessor"
	"github.com/xaynetics/pet-coordinator/pkg/wire"
)

// ErrUnknownTask is returned when a request names a task the registry has
// no configuration for.
var ErrUnknownTask = errors.New("coordinator: unknown task")

// Task bundles one task's running phase machine with the event bus
// participants read artifacts from.
type Task struct {
	ID      string
	Machine *phase.Machine
	Bus     *events.Bus
	Config  phase.Config
}

// Registry holds every task a coordinator process serves, keyed by task ID,
// mirroring how a multi-beacon drand process keys its running instances by
// beacon ID.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register builds a new task's phase machine and bus and adds it to the
// registry. It does not start the machine; call Run for that.
func (r *Registry) Register(cfg phase.Config, logger log.Logger) *Task {
	bus := events.New()
	machine := phase.NewMachine(cfg, bus, logger)
	t := &Task{ID: cfg.TaskID, Machine: machine, Bus: bus, Config: cfg}

	r.mu.Lock()
	r.tasks[cfg.TaskID] = t
	r.mu.Unlock()
	return t
}

// Get returns the task registered under id, if any.
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	return t, ok
}

// All returns every registered task.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	return out
}

// Run starts every registered task's phase machine in its own goroutine and
// blocks until ctx is canceled.
func (r *Registry) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range r.All() {
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			t.Machine.Run(ctx)
		}(t)
	}
	<-ctx.Done()
	wg.Wait()
}

// HandleMessage decodes a wire-encoded message for taskID and submits it to
// that task's phase machine, blocking for the result.
func (r *Registry) HandleMessage(ctx context.Context, taskID string, body []byte) error {
	t, ok := r.Get(taskID)
	if !ok {
		return ErrUnknownTask
	}

	kind, err := wire.PeekKind(body)
	if err != nil {
		return err
	}

	switch kind {
	case wire.KindSum:
		env, sumBody, err := wire.DecodeSum(body)
		if err != nil {
			return err
		}
		return t.Machine.SubmitSum(ctx, preprocessor.Header{ParticipantPK: env.ParticipantPK}, preprocessor.SumPayload{
			SumSignature: sumBody.SumSignature,
			EphemeralPK:  sumBody.EphemeralPK,
		})

	case wire.KindUpdate:
		env, updateBody, err := wire.DecodeUpdate(body, t.Config.VectorMaskConfig, t.Config.ScalarMaskConfig)
		if err != nil {
			return err
		}
		return t.Machine.SubmitUpdate(ctx, preprocessor.Header{ParticipantPK: env.ParticipantPK}, preprocessor.UpdatePayload{
			SumSignature:    updateBody.SumSignature,
			UpdateSignature: updateBody.UpdateSignature,
			LocalSeedDict:   updateBody.LocalSeedDict,
			MaskedModel:     updateBody.MaskedModel,
			MaskedScalar:    updateBody.MaskedScalar,
		})

	case wire.KindSum2:
		env, sum2Body, err := wire.DecodeSum2(body, t.Config.VectorMaskConfig, t.Config.ScalarMaskConfig)
		if err != nil {
			return err
		}
		return t.Machine.SubmitSum2(ctx, preprocessor.Header{ParticipantPK: env.ParticipantPK}, preprocessor.Sum2Payload{
			SumSignature: sum2Body.SumSignature,
			ModelMask:    sum2Body.ModelMask,
		})

	default:
		return fmt.Errorf("coordinator: unhandled message kind %d", kind)
	}
}
