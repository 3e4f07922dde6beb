package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoundParametersBlocksUntilBroadcast(t *testing.T) {
	b := New()
	done := make(chan RoundParameters, 1)

	go func() {
		p, err := b.RoundParameters(context.Background())
		require.NoError(t, err)
		done <- p
	}()

	time.Sleep(10 * time.Millisecond)
	b.BroadcastRoundParameters(RoundParameters{TaskID: "t1", RoundID: 1})

	select {
	case p := <-done:
		require.Equal(t, "t1", p.TaskID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for round parameters")
	}
}

func TestRoundParametersReturnsImmediatelyIfAlreadySet(t *testing.T) {
	b := New()
	b.BroadcastRoundParameters(RoundParameters{TaskID: "t1"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p, err := b.RoundParameters(ctx)
	require.NoError(t, err)
	require.Equal(t, "t1", p.TaskID)
}

func TestFetchReturnsShutdownErrorOnClose(t *testing.T) {
	b := New()
	errCh := make(chan error, 1)

	go func() {
		_, err := b.RoundParameters(context.Background())
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrShutdown)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for shutdown error")
	}
}

func TestFetchRespectsContextCancellation(t *testing.T) {
	b := New()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := b.RoundParameters(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPhaseDefaultsToIdle(t *testing.T) {
	b := New()
	require.Equal(t, PhaseIdle, b.Phase())
	b.BroadcastPhase(PhaseSum)
	require.Equal(t, PhaseSum, b.Phase())
}
