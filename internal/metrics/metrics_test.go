package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPhaseTransitionsIncrement(t *testing.T) {
	PhaseTransitions.Reset()
	PhaseTransitions.WithLabelValues("t1", "sum").Inc()
	PhaseTransitions.WithLabelValues("t1", "sum").Inc()

	require.Equal(t, float64(2), testutil.ToFloat64(PhaseTransitions.WithLabelValues("t1", "sum")))
}

func TestRoundsFailedLabelsByReason(t *testing.T) {
	RoundsFailed.Reset()
	RoundsFailed.WithLabelValues("t1", "sum quorum not reached before timeout").Inc()

	require.Equal(t, float64(1), testutil.ToFloat64(RoundsFailed.WithLabelValues("t1", "sum quorum not reached before timeout")))
}
