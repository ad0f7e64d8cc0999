package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/traderdesk/errs"
)

func TestNewPoolRejectsZeroWorkers(t *testing.T) {
	_, err := NewPool(0, 1, nil)
	require.True(t, errs.Is(err, errs.CodeInvalid))
}

func TestSubmitRunsTasks(t *testing.T) {
	p, err := NewPool(2, 8, nil)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	require.EqualValues(t, 5, ran.Load())
}

func TestSubmitFailsFastWhenFull(t *testing.T) {
	p, err := NewPool(1, 0, nil)
	require.NoError(t, err)

	release := make(chan struct{})
	started := make(chan struct{})
	require.Eventually(t, func() bool {
		return p.Submit(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		}) == nil
	}, time.Second, time.Millisecond)
	<-started

	err = p.Submit(context.Background(), func(context.Context) error { return nil })
	require.True(t, errs.Is(err, errs.CodeUnavailable))

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSubmitAfterClose(t *testing.T) {
	p, err := NewPool(1, 1, nil)
	require.NoError(t, err)
	p.Close()
	p.Close()
	err = p.Submit(context.Background(), func(context.Context) error { return nil })
	require.True(t, errs.Is(err, errs.CodeUnavailable))
	require.True(t, errs.Is(p.Submit(context.Background(), nil), errs.CodeInvalid))
}

func TestPanicsAndErrorsKeepWorkerAlive(t *testing.T) {
	p, err := NewPool(1, 4, nil)
	require.NoError(t, err)

	var ran atomic.Bool
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error { panic("boom") }))
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error { return errors.New("failed") }))
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error {
		ran.Store(true)
		return nil
	}))
	require.NoError(t, p.Shutdown(context.Background()))
	require.True(t, ran.Load())
}

func TestShutdownHonoursContext(t *testing.T) {
	p, err := NewPool(1, 1, nil)
	require.NoError(t, err)
	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
	close(release)
}
