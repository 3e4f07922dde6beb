package phase

import "github.com/xaynetics/pet-coordinator/internal/preprocessor"

type requestKind int

const (
	requestSum requestKind = iota
	requestUpdate
	requestSum2
)

// request is submitted to the machine's single goroutine by SubmitSum,
// SubmitUpdate, and SubmitSum2, and carries a result channel the submitter
// blocks on.
type request struct {
	kind requestKind

	header        preprocessor.Header
	sumPayload    preprocessor.SumPayload
	updatePayload preprocessor.UpdatePayload
	sum2Payload   preprocessor.Sum2Payload

	result chan error
}
