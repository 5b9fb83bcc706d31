package toggle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDo_Commit(t *testing.T) {
	t.Parallel()

	tg := New(false, 3)

	var seen State
	out, err := tg.Do(context.Background(), func(_ context.Context, want bool) error {
		require.True(t, want)
		seen = tg.Snapshot()
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, Committed, out)

	require.Equal(t, State{On: true, Count: 4, Phase: Pending}, seen)
	require.Equal(t, State{On: true, Count: 4, Phase: Idle, Last: Committed}, tg.Snapshot())
}

func TestDo_Unset(t *testing.T) {
	t.Parallel()

	tg := New(true, 1)
	_, err := tg.Do(context.Background(), func(_ context.Context, want bool) error {
		require.False(t, want)
		return nil
	})
	require.NoError(t, err)

	s := tg.Snapshot()
	require.False(t, s.On)
	require.Equal(t, 0, s.Count)
}

func TestDo_Rollback(t *testing.T) {
	t.Parallel()

	boom := errors.New("network down")
	tg := New(false, 10)

	out, err := tg.Do(context.Background(), func(context.Context, bool) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Equal(t, RolledBack, out)
	require.Equal(t, State{On: false, Count: 10, Phase: Idle, Last: RolledBack}, tg.Snapshot())
}

func TestDo_PendingIsNoop(t *testing.T) {
	t.Parallel()

	tg := New(false, 0)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = tg.Do(context.Background(), func(context.Context, bool) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	calls := 0
	out, err := tg.Do(context.Background(), func(context.Context, bool) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrPending)
	require.Equal(t, None, out)
	require.Zero(t, calls)
	require.Equal(t, State{On: true, Count: 1, Phase: Pending}, tg.Snapshot())

	close(release)
	<-done
	require.Equal(t, Idle, tg.Snapshot().Phase)
}

func TestReset(t *testing.T) {
	t.Parallel()

	tg := New(false, 0)
	_, _ = tg.Do(context.Background(), func(context.Context, bool) error { return errors.New("x") })

	tg.Reset(true, 7)
	require.Equal(t, State{On: true, Count: 7}, tg.Snapshot())
	require.Equal(t, "idle", tg.Snapshot().Phase.String())
	require.Equal(t, "none", tg.Snapshot().Last.String())
}
