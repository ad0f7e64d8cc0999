package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/traderdesk/internal/app/collection"
	"github.com/coachpo/traderdesk/internal/domain/schema"
)

type stubFetcher struct {
	name  string
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context) error {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func TestTickFetchesEveryCollection(t *testing.T) {
	a := &stubFetcher{name: "orders"}
	b := &stubFetcher{name: "executions"}
	s := New(Options{}, a, b)

	require.NoError(t, s.Tick(context.Background()))
	require.EqualValues(t, 1, a.calls.Load())
	require.EqualValues(t, 1, b.calls.Load())
	require.EqualValues(t, 1, s.Ticks())
	require.Equal(t, DefaultInterval, s.Interval())
}

func TestTickFailureDoesNotBlockSiblings(t *testing.T) {
	failing := &stubFetcher{name: "instruments", err: errors.New("gateway down")}
	healthy := &stubFetcher{name: "marketdata"}
	s := New(Options{}, failing, healthy)

	err := s.Tick(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "gateway down")
	require.EqualValues(t, 1, healthy.calls.Load())

	// The next tick retries without any backoff.
	failing.err = nil
	require.NoError(t, s.Tick(context.Background()))
	require.EqualValues(t, 2, failing.calls.Load())
}

func TestTickRunsFetchesInParallel(t *testing.T) {
	gate := make(chan struct{})
	a := &stubFetcher{name: "a", gate: gate}
	b := &stubFetcher{name: "b", gate: gate}
	s := New(Options{}, a, b)

	done := make(chan error, 1)
	go func() { done <- s.Tick(context.Background()) }()

	require.Eventually(t, func() bool {
		return a.calls.Load() == 1 && b.calls.Load() == 1
	}, time.Second, time.Millisecond)
	close(gate)
	require.NoError(t, <-done)
}

func TestRunDoesNotSerializeSlowTicks(t *testing.T) {
	gate := make(chan struct{})
	slow := &stubFetcher{name: "slow", gate: gate}
	s := New(Options{Interval: 5 * time.Millisecond}, slow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// The first tick is still blocked while later ticks start.
	require.Eventually(t, func() bool { return slow.calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	close(gate)
	require.NoError(t, <-done)
}

func TestRunKeepsCollectionsEqualToLatestFetch(t *testing.T) {
	var mu sync.Mutex
	current := []schema.Order{{ID: 2, Open: "1"}, {ID: 1, Open: "1"}}
	orders := collection.New(collection.Options[schema.Order]{
		Name: "orders",
		List: func(context.Context) ([]schema.Order, error) {
			mu.Lock()
			defer mu.Unlock()
			return append([]schema.Order(nil), current...), nil
		},
	})
	s := New(Options{Interval: 2 * time.Millisecond}, orders)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	require.Eventually(t, func() bool { return orders.Len() == 2 }, time.Second, time.Millisecond)

	mu.Lock()
	current = []schema.Order{{ID: 3, Open: "0"}}
	mu.Unlock()

	require.Eventually(t, func() bool {
		items := orders.Items()
		return len(items) == 1 && items[0].ID == 3
	}, time.Second, time.Millisecond)
}

func TestRegisterIgnoresNil(t *testing.T) {
	s := New(Options{Interval: time.Minute})
	s.Register(nil)
	require.NoError(t, s.Tick(context.Background()))
}
