package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/coordinator"
	"github.com/xaynetics/pet-coordinator/internal/phase"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
	"github.com/xaynetics/pet-coordinator/pkg/mask"
	"github.com/xaynetics/pet-coordinator/pkg/wire"
)

func newTestHandler(t *testing.T) (*Handler, *coordinator.Task, context.CancelFunc) {
	t.Helper()
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

	registry := coordinator.NewRegistry()
	task := registry.Register(pcfg, log.New(nil, log.InfoLevel, true))

	ctx, cancel := context.WithCancel(context.Background())
	go task.Machine.Run(ctx)

	return New(registry, log.New(nil, log.InfoLevel, true)), task, cancel
}

func TestGetParamsReturnsRoundParameters(t *testing.T) {
	h, _, cancel := newTestHandler(t)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/t1/params", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp roundParametersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "t1", resp.TaskID)
}

func TestGetParamsUnknownTaskIs404(t *testing.T) {
	h, _, cancel := newTestHandler(t)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/nope/params", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostMessageSubmitsSum(t *testing.T) {
	h, task, cancel := newTestHandler(t)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/t1/params", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var resp roundParametersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var seed crypto.Seed
	copy(seed[:], resp.Seed)

	pk, sk, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	sig := crypto.Sign(sk, crypto.SumSigningMessage(seed))

	body := wire.EncodeSum(pk, wire.SumBody{SumSignature: sig, EphemeralPK: pk})
	postReq := httptest.NewRequest(http.MethodPost, "/t1/message", bytes.NewReader(body))
	postRec := httptest.NewRecorder()
	h.ServeHTTP(postRec, postReq)

	require.Equal(t, http.StatusOK, postRec.Code)
	require.Eventually(t, func() bool {
		return task.Bus.Phase() == "update"
	}, time.Second, 5*time.Millisecond)
}
