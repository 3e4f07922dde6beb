// Package http exposes the coordinator's wire protocol over plain HTTP: one
// POST endpoint for inbound participant messages and a handful of GET
// endpoints for long-polling round artifacts, routed per task with chi the
// same way the teacher keys its handlers by chain hash.
package http

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/xaynetics/pet-coordinator/common/log"
	"github.com/xaynetics/pet-coordinator/internal/coordinator"
	"github.com/xaynetics/pet-coordinator/internal/events"
	"github.com/xaynetics/pet-coordinator/pkg/crypto"
)

// longPollTimeout bounds how long a GET request waits for a fresh artifact
// before returning 503 so a client can retry.
const longPollTimeout = 30 * time.Second

// Handler is the coordinator's public HTTP API.
type Handler struct {
	registry *coordinator.Registry
	logger   log.Logger
	router   chi.Router
}

// New builds a Handler routing requests to registry.
func New(registry *coordinator.Registry, logger log.Logger) *Handler {
	h := &Handler{registry: registry, logger: logger.Named("http")}
	h.router = chi.NewRouter()
	h.router.Route("/{taskID}", func(r chi.Router) {
		r.Post("/message", h.postMessage)
		r.Get("/params", h.getParams)
		r.Get("/sums", h.getSums)
		r.Get("/seeds/{pk}", h.getSeedsFor)
		r.Get("/mask_length", h.getMaskLength)
		r.Get("/model", h.getModel)
	})
	return h
}

// ServeHTTP lets Handler be used directly as an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) postMessage(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.registry.HandleMessage(r.Context(), taskID, body); err != nil {
		h.writeMessageError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, coordinator.ErrUnknownTask):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		// Every other error is a rejected or malformed message: a client
		// mistake, not a coordinator fault.
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func (h *Handler) taskOrNotFound(w http.ResponseWriter, r *http.Request) (*coordinator.Task, bool) {
	taskID := chi.URLParam(r, "taskID")
	t, ok := h.registry.Get(taskID)
	if !ok {
		http.Error(w, coordinator.ErrUnknownTask.Error(), http.StatusNotFound)
		return nil, false
	}
	return t, true
}

func (h *Handler) withLongPollContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), longPollTimeout)
}

func (h *Handler) getParams(w http.ResponseWriter, r *http.Request) {
	t, ok := h.taskOrNotFound(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withLongPollContext(r)
	defer cancel()

	params, err := t.Bus.RoundParameters(ctx)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, roundParametersResponse{
		TaskID:      params.TaskID,
		RoundID:     params.RoundID,
		Seed:        params.Seed[:],
		SumRatio:    params.SumRatio,
		UpdateRatio: params.UpdateRatio,
		ModelSize:   params.ModelSize,
	})
}

func (h *Handler) getSums(w http.ResponseWriter, r *http.Request) {
	t, ok := h.taskOrNotFound(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withLongPollContext(r)
	defer cancel()

	sums, err := t.Bus.SumDict(ctx)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	out := make([]string, 0, len(sums))
	for pk := range sums {
		out = append(out, pk.String())
	}
	writeJSON(w, out)
}

func (h *Handler) getSeedsFor(w http.ResponseWriter, r *http.Request) {
	t, ok := h.taskOrNotFound(w, r)
	if !ok {
		return
	}

	pkParam := chi.URLParam(r, "pk")
	pkBytes, err := decodeHexPublicKey(pkParam)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := h.withLongPollContext(r)
	defer cancel()

	seeds, err := t.Bus.SeedDictFor(ctx, pkBytes)
	if err != nil {
		writeFetchError(w, err)
		return
	}

	out := make(map[string]string, len(seeds))
	for updaterPK, seed := range seeds {
		out[updaterPK.String()] = encodeHex(seed)
	}
	writeJSON(w, out)
}

func (h *Handler) getMaskLength(w http.ResponseWriter, r *http.Request) {
	t, ok := h.taskOrNotFound(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withLongPollContext(r)
	defer cancel()

	n, err := t.Bus.MaskLength(ctx)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	writeJSON(w, map[string]int{"mask_length": n})
}

func (h *Handler) getModel(w http.ResponseWriter, r *http.Request) {
	t, ok := h.taskOrNotFound(w, r)
	if !ok {
		return
	}
	ctx, cancel := h.withLongPollContext(r)
	defer cancel()

	model, err := t.Bus.Model(ctx)
	if err != nil {
		writeFetchError(w, err)
		return
	}
	out := make([]string, len(model))
	for i, v := range model {
		out[i] = v.Text(10)
	}
	writeJSON(w, out)
}

func writeFetchError(w http.ResponseWriter, err error) {
	if errors.Is(err, events.ErrShutdown) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	// Context deadline: nothing published yet, ask the client to retry.
	http.Error(w, err.Error(), http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type roundParametersResponse struct {
	TaskID      string  `json:"task_id"`
	RoundID     uint64  `json:"round_id"`
	Seed        []byte  `json:"seed"`
	SumRatio    float64 `json:"sum_ratio"`
	UpdateRatio float64 `json:"update_ratio"`
	ModelSize   int     `json:"model_size"`
}

func decodeHexPublicKey(s string) (crypto.PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return crypto.PublicKey{}, err
	}
	return crypto.PublicKeyFromBytes(b)
}

func encodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
