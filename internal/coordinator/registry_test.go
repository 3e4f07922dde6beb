package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/phase"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
	"github.com/xaynetics/pet-coordinator/pkg/wire"
)

func TestHandleMessageRejectsUnknownTask(t *testing.T) {
	r := NewRegistry()
	err := r.HandleMessage(context.Background(), "nope", []byte{0})
	require.ErrorIs(t, err, ErrUnknownTask)
}

func TestHandleMessageRoutesSumToMachine(t *testing.T) {
	cfg := mask.NewConfig(mask.GroupInteger, mask.DataI32, mask.Bound2)
	pcfg := phase.Config{
		TaskID:           "t1",
		SumRatio:         1.0,
		UpdateRatio:      1.0,
		SumQuorum:        1,
		UpdateQuorum:     1,
		Sum2Quorum:       1,
		MaxSumTime:       2 * time.Second,
		MaxUpdateTime:    2 * time.Second,
		MaxSum2Time:      2 * time.Second,
		VectorMaskConfig: cfg,
		ScalarMaskConfig: cfg,
		ModelSize:        1,
	}

	r := NewRegistry()
	task := r.Register(pcfg, log.New(nil, log.InfoLevel, true))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Machine.Run(ctx)

	params, err := task.Bus.RoundParameters(ctx)
	require.NoError(t, err)

	pk, sk, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sig := crypto.Sign(sk, crypto.SumSigningMessage(params.Seed))

	msg := wire.EncodeSum(pk, wire.SumBody{SumSignature: sig, EphemeralPK: pk})
	err = r.HandleMessage(ctx, "t1", msg)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return task.Bus.Phase() == "update"
	}, time.Second, 5*time.Millisecond)
}
