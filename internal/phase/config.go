package phase

import (
	"time"

	"github.com/xaynetics/pet-coordinator/pkg/mask"
)

// Config parameterizes one task's rounds: eligibility ratios, the quorums
// and min/max phase windows that drive phase transitions, and the mask
// configs applied to the model vector and its scale factor.
type Config struct {
	TaskID string

	SumRatio    float64
	UpdateRatio float64

	SumQuorum    int
	UpdateQuorum int
	Sum2Quorum   int

	MinSumTime    time.Duration
	MaxSumTime    time.Duration
	MinUpdateTime time.Duration
	MaxUpdateTime time.Duration
	MinSum2Time   time.Duration
	MaxSum2Time   time.Duration

	VectorMaskConfig mask.Config
	ScalarMaskConfig mask.Config
	ModelSize        int

	// RejectDuplicateSumParticipants, when true, makes a second Sum
	// registration from the same participant within a round fail instead
	// of silently overwriting the first registration's ephemeral key.
	RejectDuplicateSumParticipants bool
}
